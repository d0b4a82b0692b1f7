package container

import (
	"bytes"
	"testing"

	"tfbpdash/domain/core"
	"tfbpdash/internal"
	"tfbpdash/internal/config"
	"tfbpdash/internal/sourcename"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Analysis: config.DefaultAnalysisConfig(),
		Log:      config.LogConfig{Level: internal.LogLevelDebug},
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	c, err := New(testConfig(), &buf)
	require.NoError(t, err)

	assert.NotNil(t, c.Tester)
	assert.NotNil(t, c.Engine)
	assert.NotNil(t, c.SeriesBuilder)
	assert.Contains(t, buf.String(), "container initialized")

	name, ok := c.Names.DisplayName(sourcename.PerturbationResponse, "kemmeren_tfko")
	assert.True(t, ok)
	assert.Equal(t, "2014 TFKO", name)

	calc, err := c.Calculator(sourcename.Binding)
	require.NoError(t, err)
	assert.NotNil(t, calc)

	_, err = c.Calculator("chromatin")
	assert.True(t, core.IsConfigurationError(err))
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil, &bytes.Buffer{})
	assert.Error(t, err)

	cfg := testConfig()
	cfg.Analysis.BaselineStep = 0
	_, err = New(cfg, &bytes.Buffer{})
	assert.True(t, core.IsConfigurationError(err))
}

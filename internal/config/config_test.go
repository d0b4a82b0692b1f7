package config

import (
	"testing"

	"tfbpdash/domain/core"
	"tfbpdash/domain/rankresponse"
	"tfbpdash/internal"
	"tfbpdash/internal/errors"
	"tfbpdash/internal/sourcename"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"RANK_CEILING", "BASELINE_STEP", "BASELINE_ALPHA", "BASELINE_POLICY", "ALTERNATIVE",
		"CONFIDENCE_LEVEL", "CI_METHOD", "WORKERS", "BINDING_SOURCE_NAMES",
		"PERTURBATION_SOURCE_NAMES", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 150, cfg.Analysis.RankCeiling)
	assert.Equal(t, 5, cfg.Analysis.BaselineStep)
	assert.Equal(t, 0.05, cfg.Analysis.BaselineAlpha)
	assert.Equal(t, rankresponse.BaselineFirstWins, cfg.Analysis.BaselinePolicy)
	assert.Equal(t, rankresponse.DefaultOptions(), cfg.Analysis.Options())
	assert.Equal(t, internal.LogLevelInfo, cfg.Log.Level)
	assert.GreaterOrEqual(t, cfg.Analysis.Workers, 1)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RANK_CEILING", "50")
	t.Setenv("CONFIDENCE_LEVEL", "0.9")
	t.Setenv("CI_METHOD", "wilson")
	t.Setenv("ALTERNATIVE", "greater")
	t.Setenv("BASELINE_POLICY", "strict")
	t.Setenv("WORKERS", "2")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BINDING_SOURCE_NAMES", "harbison_chip=Harbison 2004,rossi_chipexo=ChIP-exo (Rossi)")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Analysis.RankCeiling)
	assert.Equal(t, rankresponse.Options{Alternative: rankresponse.Greater, ConfidenceLevel: 0.9, CIMethod: rankresponse.CIWilson}, cfg.Analysis.Options())
	assert.Equal(t, rankresponse.BaselineStrict, cfg.Analysis.SeriesConfig().BaselinePolicy)
	assert.Equal(t, 2, cfg.Analysis.SeriesConfig().Workers)
	assert.Equal(t, internal.LogLevelDebug, cfg.Log.Level)

	reg := cfg.Sources.Registry()
	name, _ := reg.DisplayName(sourcename.Binding, "harbison_chip")
	assert.Equal(t, "Harbison 2004", name)
	name, _ = reg.DisplayName(sourcename.Binding, "rossi_chipexo")
	assert.Equal(t, "ChIP-exo (Rossi)", name)
	name, _ = reg.DisplayName(sourcename.Binding, "brent_nf_cc")
	assert.Equal(t, "Calling Cards", name)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"RANK_CEILING", "0"},
		{"RANK_CEILING", "lots"},
		{"CONFIDENCE_LEVEL", "95"},
		{"CI_METHOD", "bootstrap"},
		{"ALTERNATIVE", "both"},
		{"BASELINE_ALPHA", "1"},
		{"BASELINE_POLICY", "average"},
		{"BASELINE_STEP", "0"},
		{"WORKERS", "0"},
		{"LOG_LEVEL", "chatty"},
		{"PERTURBATION_SOURCE_NAMES", "no-equals-sign"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
			assert.True(t, core.IsConfigurationError(err))
		})
	}
}

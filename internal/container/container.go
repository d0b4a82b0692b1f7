package container

import (
	"fmt"
	"io"

	"tfbpdash/adapters/stats/binomial"
	"tfbpdash/internal"
	"tfbpdash/internal/config"
	"tfbpdash/internal/intersection"
	"tfbpdash/internal/rankresponse"
	"tfbpdash/internal/sourcename"
	"tfbpdash/ports"
)

// Container holds the analysis components built from one configuration
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Source-name display labels shared by every component
	Names *sourcename.Registry

	// Statistics
	Tester ports.BinomialTester
	Engine *rankresponse.Engine

	// Rank-response series assembly
	SeriesBuilder *rankresponse.SeriesBuilder
}

// New creates a new dependency injection container. Log output goes to
// logOut at the configured level.
func New(cfg *config.Config, logOut io.Writer) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		Logger: internal.NewLoggerTo(logOut, cfg.Log.Level),
		Names:  cfg.Sources.Registry(),
	}

	if err := c.initStatistics(); err != nil {
		return nil, fmt.Errorf("failed to initialize statistics: %w", err)
	}

	c.Logger.Debug("container initialized: %+v", cfg.Analysis)
	return c, nil
}

// initStatistics wires the binomial tester into the engine and builder
func (c *Container) initStatistics() error {
	c.Tester = binomial.NewTester()
	c.Engine = rankresponse.NewEngineWithTester(c.Tester)

	seriesConfig := c.Config.Analysis.SeriesConfig()
	if err := seriesConfig.Validate(); err != nil {
		return err
	}
	c.SeriesBuilder = rankresponse.NewSeriesBuilder(c.Engine, c.Names, seriesConfig, c.Logger)
	return nil
}

// Calculator returns an intersection calculator for one datatype
func (c *Container) Calculator(datatype sourcename.Datatype) (*intersection.Calculator, error) {
	return intersection.NewCalculator(datatype, c.Names, c.Logger)
}

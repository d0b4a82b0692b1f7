package config

import (
	"os"
	"runtime"
	"strconv"

	"tfbpdash/domain/rankresponse"
	"tfbpdash/internal"
	"tfbpdash/internal/errors"
	rr "tfbpdash/internal/rankresponse"
	"tfbpdash/internal/sourcename"
)

// Config represents the complete application configuration
type Config struct {
	Analysis AnalysisConfig
	Sources  SourceConfig
	Log      LogConfig
}

// AnalysisConfig holds the rank-response parameters
type AnalysisConfig struct {
	RankCeiling     int
	BaselineStep    int
	BaselineAlpha   float64
	BaselinePolicy  rankresponse.BaselinePolicy
	Alternative     rankresponse.Alternative
	ConfidenceLevel float64
	CIMethod        rankresponse.CIMethod
	Workers         int
}

// SourceConfig holds source-name display labels
type SourceConfig struct {
	Binding      map[string]string
	Perturbation map[string]string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level internal.LogLevel
}

// DefaultAnalysisConfig returns the dashboard defaults
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		RankCeiling:     rankresponse.DefaultRankCeiling,
		BaselineStep:    rankresponse.DefaultBaselineStep,
		BaselineAlpha:   rankresponse.DefaultBaselineAlpha,
		BaselinePolicy:  rankresponse.BaselineFirstWins,
		Alternative:     rankresponse.TwoSided,
		ConfidenceLevel: rankresponse.DefaultConfidenceLevel,
		CIMethod:        rankresponse.CIExact,
		Workers:         runtime.NumCPU(),
	}
}

// Options returns the engine options of the analysis config
func (a AnalysisConfig) Options() rankresponse.Options {
	return rankresponse.Options{
		Alternative:     a.Alternative,
		ConfidenceLevel: a.ConfidenceLevel,
		CIMethod:        a.CIMethod,
	}
}

// SeriesConfig returns the series builder config of the analysis config
func (a AnalysisConfig) SeriesConfig() rr.SeriesConfig {
	return rr.SeriesConfig{
		Options:        a.Options(),
		BaselineStep:   a.BaselineStep,
		BaselineAlpha:  a.BaselineAlpha,
		BaselinePolicy: a.BaselinePolicy,
		Workers:        a.Workers,
	}
}

// Registry builds the source-name registry, starting from the built-in
// labels and applying any overrides
func (s SourceConfig) Registry() *sourcename.Registry {
	binding := sourcename.DefaultBindingSources()
	for k, v := range s.Binding {
		binding[k] = v
	}
	perturbation := sourcename.DefaultPerturbationSources()
	for k, v := range s.Perturbation {
		perturbation[k] = v
	}
	return sourcename.NewRegistry(binding, perturbation)
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	analysis, err := loadAnalysisConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load analysis configuration")
	}
	config.Analysis = *analysis

	sources, err := loadSourceConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load source name configuration")
	}
	config.Sources = *sources

	logConfig, err := loadLogConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load log configuration")
	}
	config.Log = *logConfig

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadAnalysisConfig() (*AnalysisConfig, error) {
	defaults := DefaultAnalysisConfig()
	cfg := &AnalysisConfig{
		Alternative: rankresponse.Alternative(getEnvOrDefault("ALTERNATIVE", string(defaults.Alternative))),
		CIMethod:    rankresponse.CIMethod(getEnvOrDefault("CI_METHOD", string(defaults.CIMethod))),
	}

	var err error
	if cfg.RankCeiling, err = getEnvInt("RANK_CEILING", defaults.RankCeiling); err != nil {
		return nil, err
	}
	if cfg.BaselineStep, err = getEnvInt("BASELINE_STEP", defaults.BaselineStep); err != nil {
		return nil, err
	}
	if cfg.Workers, err = getEnvInt("WORKERS", defaults.Workers); err != nil {
		return nil, err
	}
	if cfg.BaselineAlpha, err = getEnvFloat("BASELINE_ALPHA", defaults.BaselineAlpha); err != nil {
		return nil, err
	}
	if cfg.ConfidenceLevel, err = getEnvFloat("CONFIDENCE_LEVEL", defaults.ConfidenceLevel); err != nil {
		return nil, err
	}

	policy, err := rankresponse.ParseBaselinePolicy(getEnvOrDefault("BASELINE_POLICY", string(defaults.BaselinePolicy)))
	if err != nil {
		return nil, err
	}
	cfg.BaselinePolicy = policy

	return cfg, nil
}

func loadSourceConfig() (*SourceConfig, error) {
	binding, err := sourcename.ParseMapping(os.Getenv("BINDING_SOURCE_NAMES"))
	if err != nil {
		return nil, errors.ConfigInvalid(err.Error())
	}
	perturbation, err := sourcename.ParseMapping(os.Getenv("PERTURBATION_SOURCE_NAMES"))
	if err != nil {
		return nil, errors.ConfigInvalid(err.Error())
	}
	return &SourceConfig{Binding: binding, Perturbation: perturbation}, nil
}

func loadLogConfig() (*LogConfig, error) {
	level, err := internal.ParseLogLevel(getEnvOrDefault("LOG_LEVEL", "INFO"))
	if err != nil {
		return nil, errors.ConfigInvalid(err.Error())
	}
	return &LogConfig{Level: level}, nil
}

func validateConfig(config *Config) error {
	if config.Analysis.RankCeiling < 1 {
		return errors.ConfigInvalid("RANK_CEILING must be at least 1")
	}
	if config.Analysis.Workers < 1 {
		return errors.ConfigInvalid("WORKERS must be at least 1")
	}
	// options, step, alpha and policy share the builder's validation
	return config.Analysis.SeriesConfig().Validate()
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalid(key + " must be an integer, got " + strconv.Quote(value))
	}
	return intValue, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(key + " must be a number, got " + strconv.Quote(value))
	}
	return floatValue, nil
}

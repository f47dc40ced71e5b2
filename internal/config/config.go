// Package config defines engine configuration and env-based loading.
package config

import (
	"context"
	"runtime"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"seufit/internal/errors"
)

// envPrefix namespaces the engine's environment variables,
// e.g. SEUFIT_CONFIDENCE_LEVEL=0.90.
const envPrefix = "SEUFIT_"

// Config contains the analysis engine configuration.
type Config struct {
	// ConfidenceLevel for intervals and censored upper limits.
	ConfidenceLevel float64 `koanf:"confidence_level"`

	// BootstrapIterations overrides the automatic budget when > 0.
	BootstrapIterations int `koanf:"bootstrap_iterations"`

	// Seed is the base seed; per-iteration generators derive from it.
	Seed int64 `koanf:"seed"`

	// Workers sets the bootstrap pool size.
	Workers int `koanf:"workers"`

	// LedgerDSN enables the Postgres result ledger when non-empty.
	LedgerDSN string `koanf:"ledger_dsn"`

	// LogLevel controls cmd verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
}

// New returns a Config with production defaults.
func New() *Config {
	return &Config{
		ConfidenceLevel:     0.95,
		BootstrapIterations: 0, // auto
		Seed:                42,
		Workers:             runtime.NumCPU(),
		LogLevel:            "info",
	}
}

// Load builds a Config by layering SEUFIT_-prefixed environment variables
// over the defaults.
func Load(_ context.Context) (*Config, error) {
	cfg := New()

	k := koanf.New(".")
	provider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(provider, nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment configuration")
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if !(c.ConfidenceLevel > 0 && c.ConfidenceLevel < 1) {
		return errors.ConfigInvalid("confidence_level must be in (0,1)")
	}
	if c.BootstrapIterations < 0 {
		return errors.ConfigInvalid("bootstrap_iterations cannot be negative")
	}
	if c.Workers < 0 {
		return errors.ConfigInvalid("workers cannot be negative")
	}
	return nil
}

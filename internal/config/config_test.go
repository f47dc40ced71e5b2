package config

import (
	"context"
	"testing"

	"seufit/internal/errors"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()
	if cfg.ConfidenceLevel != 0.95 {
		t.Errorf("ConfidenceLevel = %g, want 0.95", cfg.ConfidenceLevel)
	}
	if cfg.BootstrapIterations != 0 {
		t.Errorf("BootstrapIterations = %d, want 0 (auto)", cfg.BootstrapIterations)
	}
	if cfg.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Seed)
	}
	if cfg.Workers <= 0 {
		t.Errorf("Workers = %d, want > 0", cfg.Workers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SEUFIT_CONFIDENCE_LEVEL", "0.90")
	t.Setenv("SEUFIT_BOOTSTRAP_ITERATIONS", "500")
	t.Setenv("SEUFIT_SEED", "7")
	t.Setenv("SEUFIT_WORKERS", "3")
	t.Setenv("SEUFIT_LOG_LEVEL", "debug")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ConfidenceLevel != 0.90 {
		t.Errorf("ConfidenceLevel = %g, want 0.90", cfg.ConfidenceLevel)
	}
	if cfg.BootstrapIterations != 500 {
		t.Errorf("BootstrapIterations = %d, want 500", cfg.BootstrapIterations)
	}
	if cfg.Seed != 7 {
		t.Errorf("Seed = %d, want 7", cfg.Seed)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("SEUFIT_CONFIDENCE_LEVEL", "1.5")

	_, err := Load(context.Background())
	if err == nil {
		t.Fatal("Expected error for confidence level 1.5")
	}
	if !errors.IsConfigInvalid(err) {
		t.Errorf("Error code = %s, want CONFIG_INVALID", errors.GetCode(err))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero confidence", func(c *Config) { c.ConfidenceLevel = 0 }, true},
		{"unit confidence", func(c *Config) { c.ConfidenceLevel = 1 }, true},
		{"negative iterations", func(c *Config) { c.BootstrapIterations = -1 }, true},
		{"negative workers", func(c *Config) { c.Workers = -2 }, true},
		{"explicit iterations", func(c *Config) { c.BootstrapIterations = 5000 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

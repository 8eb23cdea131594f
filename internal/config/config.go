// Package config loads the pipeline configuration from a YAML file, with
// defaults tuned to the production contract values and an environment
// override for the API key so credentials stay out of config files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/0Reliance/Maeple-sub002/internal/constants"
)

// APIKeyEnv overrides service.api_key when set.
const APIKeyEnv = "MAEPLE_API_KEY"

// ServiceConfig points the adapters at the analysis service.
type ServiceConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"api_key"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// ResilienceConfig tunes the breaker and retry layer.
type ResilienceConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	CoolDown         time.Duration `yaml:"cool_down"`
	MaxAttempts      int           `yaml:"max_attempts"`
	BaseDelay        time.Duration `yaml:"base_delay"`
}

// SessionConfig tunes capture session policy.
type SessionConfig struct {
	Deadline       time.Duration `yaml:"deadline"`
	FallbackOnOpen bool          `yaml:"fallback_on_open"`
}

// HistoryConfig locates the local analysis journal.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// Config is the full pipeline configuration.
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Session    SessionConfig    `yaml:"session"`
	History    HistoryConfig    `yaml:"history"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Service: ServiceConfig{
			BaseURL:           "https://api.maeple.app",
			TimeoutSeconds:    30,
			RequestsPerSecond: 2,
		},
		Resilience: ResilienceConfig{
			FailureThreshold: constants.BreakerFailureThreshold,
			SuccessThreshold: constants.BreakerSuccessThreshold,
			CoolDown:         constants.BreakerCoolDown,
			MaxAttempts:      constants.RetryMaxAttempts,
			BaseDelay:        constants.RetryBaseDelay,
		},
		Session: SessionConfig{
			Deadline:       constants.SessionDeadline,
			FallbackOnOpen: true,
		},
		History: HistoryConfig{
			Path: filepath.Join(os.Getenv("HOME"), ".config", "maeple", "history.db"),
		},
	}
}

// Load reads the config at path, layering it over the defaults. A missing
// file is not an error: defaults apply. The API key environment variable
// always wins over the file value.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if key := os.Getenv(APIKeyEnv); key != "" {
		cfg.Service.APIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func Save(cfg Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the tunables for sane ranges.
func (c Config) Validate() error {
	if c.Service.BaseURL == "" {
		return fmt.Errorf("service.base_url must not be empty")
	}
	if c.Service.TimeoutSeconds < 1 {
		return fmt.Errorf("service.timeout_seconds must be at least 1, got %d", c.Service.TimeoutSeconds)
	}
	if c.Service.RequestsPerSecond <= 0 {
		return fmt.Errorf("service.requests_per_second must be positive, got %v", c.Service.RequestsPerSecond)
	}
	if c.Resilience.FailureThreshold < 1 {
		return fmt.Errorf("resilience.failure_threshold must be at least 1, got %d", c.Resilience.FailureThreshold)
	}
	if c.Resilience.SuccessThreshold < 1 {
		return fmt.Errorf("resilience.success_threshold must be at least 1, got %d", c.Resilience.SuccessThreshold)
	}
	if c.Resilience.MaxAttempts < 1 {
		return fmt.Errorf("resilience.max_attempts must be at least 1, got %d", c.Resilience.MaxAttempts)
	}
	if c.Session.Deadline < time.Second {
		return fmt.Errorf("session.deadline must be at least 1s, got %s", c.Session.Deadline)
	}
	return nil
}

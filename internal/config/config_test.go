package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := DefaultConfig()
	if cfg.Service.BaseURL != want.Service.BaseURL {
		t.Errorf("BaseURL = %q, want default %q", cfg.Service.BaseURL, want.Service.BaseURL)
	}
	if cfg.Resilience.FailureThreshold != 5 || cfg.Resilience.CoolDown != 60*time.Second {
		t.Errorf("resilience defaults = %+v", cfg.Resilience)
	}
	if cfg.Session.Deadline != 45*time.Second {
		t.Errorf("Session.Deadline = %s, want 45s", cfg.Session.Deadline)
	}
	if !cfg.Session.FallbackOnOpen {
		t.Error("Session.FallbackOnOpen = false, want true by default")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
service:
  base_url: "https://staging.maeple.app"
  api_key: "file-key"
resilience:
  max_attempts: 3
session:
  deadline: 10s
  fallback_on_open: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.BaseURL != "https://staging.maeple.app" {
		t.Errorf("BaseURL = %q", cfg.Service.BaseURL)
	}
	if cfg.Service.APIKey != "file-key" {
		t.Errorf("APIKey = %q, want file value", cfg.Service.APIKey)
	}
	if cfg.Resilience.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.Resilience.MaxAttempts)
	}
	if cfg.Session.Deadline != 10*time.Second {
		t.Errorf("Deadline = %s, want 10s", cfg.Session.Deadline)
	}
	if cfg.Session.FallbackOnOpen {
		t.Error("FallbackOnOpen = true, want false from file")
	}
	// Untouched sections keep their defaults.
	if cfg.Resilience.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want default 5", cfg.Resilience.FailureThreshold)
	}
}

func TestLoad_EnvOverridesAPIKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("service:\n  api_key: \"file-key\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(APIKeyEnv, "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env override", cfg.Service.APIKey)
	}
}

func TestLoad_MalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("service: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() accepted malformed YAML")
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.Service.BaseURL = "" }},
		{"zero timeout", func(c *Config) { c.Service.TimeoutSeconds = 0 }},
		{"zero rate", func(c *Config) { c.Service.RequestsPerSecond = 0 }},
		{"zero failure threshold", func(c *Config) { c.Resilience.FailureThreshold = 0 }},
		{"zero attempts", func(c *Config) { c.Resilience.MaxAttempts = 0 }},
		{"sub-second deadline", func(c *Config) { c.Session.Deadline = 100 * time.Millisecond }},
	}
	for _, tt := range cases {
		cfg := DefaultConfig()
		tt.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: Validate() accepted invalid config", tt.name)
		}
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Service.BaseURL = "https://example.test"
	cfg.Resilience.MaxAttempts = 2

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Service.BaseURL != "https://example.test" || got.Resilience.MaxAttempts != 2 {
		t.Errorf("round trip lost values: %+v", got)
	}
}

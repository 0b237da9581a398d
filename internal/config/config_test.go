package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "confidant.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
version: "1"
provider:
  base_url: https://api.example.com/v1
  api_key: sk-test
  model: test-model
sync:
  enabled: true
  server_url: https://sync.example.com
  debounce: 500ms
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.Model != "test-model" {
		t.Errorf("model = %q", cfg.Provider.Model)
	}
	if cfg.Sync.DebounceDuration() != 500*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Sync.DebounceDuration())
	}
	// Defaults applied.
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log defaults = %+v", cfg.Log)
	}
	if cfg.Sync.ResyncSchedule == "" {
		t.Error("resync schedule default missing")
	}
	if cfg.Server.Bind == "" || cfg.Server.DBPath == "" {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("CONFIDANT_TEST_KEY", "sk-from-env")

	path := writeConfig(t, `
version: "1"
provider:
  base_url: ${CONFIDANT_TEST_URL:-https://api.example.com/v1}
  api_key: ${CONFIDANT_TEST_KEY}
  model: m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.APIKey != "sk-from-env" {
		t.Errorf("api_key = %q, want env value", cfg.Provider.APIKey)
	}
	if cfg.Provider.BaseURL != "https://api.example.com/v1" {
		t.Errorf("base_url = %q, want fallback default", cfg.Provider.BaseURL)
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	path := writeConfig(t, `
version: "1"
provider:
  api_key: ${CONFIDANT_DEFINITELY_UNSET_VAR}
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "CONFIDANT_DEFINITELY_UNSET_VAR") {
		t.Errorf("err = %v, want unresolved variable named", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"bad version", func(c *Config) { c.Version = "2" }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
		{"sync enabled without url", func(c *Config) { c.Sync.Enabled = true }, true},
		{"sync with bad scheme", func(c *Config) {
			c.Sync.Enabled = true
			c.Sync.ServerURL = "ftp://example.com"
		}, true},
		{"telemetry enabled without endpoint", func(c *Config) { c.Telemetry.Enabled = true }, true},
		{"bad debounce duration", func(c *Config) { c.Sync.Debounce = "soon" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var cfg Config
			cfg.Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for both the confidant client and
// the confidantd server.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is
	// supported.
	Version string `yaml:"version"`

	// DataDir holds the local backup database and cached credentials.
	// Defaults to ~/.confidant.
	DataDir string `yaml:"data_dir"`

	Log       LogConfig       `yaml:"log"`
	Provider  ProviderConfig  `yaml:"provider"`
	Sync      SyncConfig      `yaml:"sync"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Server    ServerConfig    `yaml:"server"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level"`

	// Format is "text" or "json". Defaults to text.
	Format string `yaml:"format"`
}

// ProviderConfig configures the chat completions backend. Duration
// fields are Go duration strings ("30s", "2m").
type ProviderConfig struct {
	// Type selects the backend: "openai_compatible" (default) or
	// "anthropic".
	Type string `yaml:"type"`

	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	Persona   string `yaml:"persona"`
	Timeout   string `yaml:"timeout"`
}

// TimeoutDuration parses the timeout field. Zero when unset.
func (c ProviderConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// SyncConfig configures the remote reconciliation engine.
type SyncConfig struct {
	// Enabled turns remote sync on. Off, the companion is local-only.
	Enabled bool `yaml:"enabled"`

	// ServerURL is the confidantd address.
	ServerURL string `yaml:"server_url"`

	// Debounce is the quiet period before a mutation burst is pushed, as
	// a Go duration string. Defaults to "2s".
	Debounce string `yaml:"debounce"`

	// ResyncSchedule is a cron expression for the periodic safety-net
	// push. Defaults to every 15 minutes.
	ResyncSchedule string `yaml:"resync_schedule"`
}

// DebounceDuration parses the debounce field. Zero when unset.
func (c SyncConfig) DebounceDuration() time.Duration {
	d, _ := time.ParseDuration(c.Debounce)
	return d
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP/HTTP collector address, host:port.
	Endpoint string `yaml:"endpoint"`
}

// ServerConfig configures confidantd. Ignored by the client binary.
type ServerConfig struct {
	Bind            string `yaml:"bind"`
	DBPath          string `yaml:"db_path"`
	ReadTimeout     string `yaml:"read_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// ReadTimeoutDuration parses the read timeout. Zero when unset.
func (c ServerConfig) ReadTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ReadTimeout)
	return d
}

// ShutdownTimeoutDuration parses the shutdown timeout. Zero when unset.
func (c ServerConfig) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Defaults fills unset fields in place.
func (c *Config) Defaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.DataDir = filepath.Join(home, ".confidant")
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Sync.Debounce == "" {
		c.Sync.Debounce = "2s"
	}
	if c.Sync.ResyncSchedule == "" {
		c.Sync.ResyncSchedule = "@every 15m"
	}
	if c.Server.Bind == "" {
		c.Server.Bind = "127.0.0.1:8788"
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = filepath.Join(c.DataDir, "confidantd.db")
	}
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Validate checks the configuration for structural errors. Defaults must
// be applied first.
func (c *Config) Validate() error {
	var errs []error

	if c.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (want \"1\")", c.Version))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: invalid log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: invalid log format %q", c.Log.Format))
	}

	switch c.Provider.Type {
	case "", "openai_compatible", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("config: invalid provider type %q", c.Provider.Type))
	}

	if c.Provider.BaseURL != "" {
		if err := validateHTTPURL("provider.base_url", c.Provider.BaseURL); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Sync.Enabled {
		if c.Sync.ServerURL == "" {
			errs = append(errs, errors.New("config: sync.server_url is required when sync is enabled"))
		} else if err := validateHTTPURL("sync.server_url", c.Sync.ServerURL); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("config: telemetry.endpoint is required when telemetry is enabled"))
	}

	durations := map[string]string{
		"provider.timeout":        c.Provider.Timeout,
		"sync.debounce":           c.Sync.Debounce,
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
	}
	for field, raw := range durations {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			errs = append(errs, fmt.Errorf("config: %s is not a valid duration: %q", field, raw))
		}
	}

	return errors.Join(errs...)
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: %s is not a valid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: %s scheme must be http or https, got %q", field, u.Scheme)
	}
	return nil
}

// Package anthropic implements the chat provider on the Anthropic
// Messages API, using the official SDK. It is the alternative to the
// OpenAI-compatible provider for installs with an Anthropic key.
package anthropic

import (
	"context"
	"log/slog"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/confidant-ai/confidant/internal/provider"
)

// Compile-time interface check.
var _ provider.Provider = (*Provider)(nil)

// Provider bridges the companion to the Anthropic Messages API.
type Provider struct {
	config Config
	client sdkanthropic.Client
	logger *slog.Logger
}

// New builds a Provider from configuration.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Provider{
		config: cfg,
		client: sdkanthropic.NewClient(opts...),
		logger: logger.With("component", "provider.anthropic"),
	}, nil
}

// ModelName implements provider.Provider.
func (p *Provider) ModelName() string {
	return p.config.Model
}

// Complete implements provider.Provider. Used for the non-streaming
// calls, such as memory extraction.
func (p *Provider) Complete(ctx context.Context, req provider.Request) (provider.Response, error) {
	msg, err := p.client.Messages.New(ctx, p.buildParams(req))
	if err != nil {
		return provider.Response{}, mapError(err)
	}
	return provider.Response{Content: textOf(msg)}, nil
}

// Package openaicompat implements the companion provider against any API
// that speaks the OpenAI chat completions interface (OpenAI, Mistral,
// Groq, DeepSeek, vLLM, LiteLLM, etc.) via a configurable base_url.
package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/confidant-ai/confidant/internal/provider"
)

// Provider is an OpenAI-compatible chat completions provider.
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// Compile-time interface check.
var _ provider.Provider = (*Provider)(nil)

// New creates a provider from a validated config.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		config: cfg,
		logger: logger.With("component", "provider.openai_compatible"),
		// Response-header timeout instead of a global client timeout: a
		// global timeout would kill long-running SSE streams, and
		// per-request context already handles cancellation.
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: cfg.Timeout,
			},
		},
	}, nil
}

// Complete implements provider.Provider.
func (p *Provider) Complete(ctx context.Context, req provider.Request) (provider.Response, error) {
	resp, err := p.doRequest(ctx, p.buildRequest(req, false))
	if err != nil {
		return provider.Response{}, err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode != http.StatusOK {
		return provider.Response{}, handleErrorResponse(resp)
	}

	var oaiResp oaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaiResp); err != nil {
		return provider.Response{}, fmt.Errorf("decode response: %w", err)
	}
	if len(oaiResp.Choices) == 0 {
		return provider.Response{}, nil
	}
	return provider.Response{Content: oaiResp.Choices[0].Message.Content}, nil
}

// Stream implements provider.Provider.
func (p *Provider) Stream(ctx context.Context, req provider.Request) (<-chan provider.StreamChunk, error) {
	resp, err := p.doRequest(ctx, p.buildRequest(req, true))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close() //nolint:errcheck // best-effort close
		return nil, handleErrorResponse(resp)
	}

	return p.parseSSEStream(ctx, resp.Body), nil
}

// ModelName implements provider.Provider.
func (p *Provider) ModelName() string {
	return p.config.Model
}

// HealthCheck probes the /models endpoint for availability.
func (p *Provider) HealthCheck(ctx context.Context) error {
	endpoint := strings.TrimRight(p.config.BaseURL, "/") + "/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: health check: %w", provider.ErrProviderDown, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close
	drain(resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: health check returned HTTP %d", provider.ErrProviderDown, resp.StatusCode)
	}
	return nil
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	for k, v := range p.config.Headers {
		req.Header.Set(k, v)
	}
}

func errMissingField(field string) error {
	return fmt.Errorf("provider.openai_compatible: %s is required", field)
}

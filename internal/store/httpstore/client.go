// Package httpstore implements the remote store contract over the
// confidantd HTTP API.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/confidant-ai/confidant/internal/store"
)

// Config holds client construction options.
type Config struct {
	// BaseURL is the confidantd address, e.g. "https://sync.example.com".
	BaseURL string

	// Token is the bearer token issued at login.
	Token string

	// Timeout bounds each request. Defaults to 15s.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return c
}

// Client talks to the confidantd remote store.
type Client struct {
	config Config
	http   *http.Client
}

// Compile-time interface check.
var _ store.Store = (*Client)(nil)

// New creates a client for the given remote.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
	}
}

// FetchUser implements store.Store.
func (c *Client) FetchUser(ctx context.Context, id string) (store.UserRecord, error) {
	var rec store.UserRecord
	err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(id), nil, &rec)
	return rec, err
}

// UpsertUser implements store.Store.
func (c *Client) UpsertUser(ctx context.Context, rec store.UserRecord) error {
	return c.do(ctx, http.MethodPut, "/api/users/"+url.PathEscape(rec.ID), rec, nil)
}

// UpsertThread implements store.Store.
func (c *Client) UpsertThread(ctx context.Context, rec store.ThreadRecord) error {
	return c.do(ctx, http.MethodPut, "/api/threads/"+url.PathEscape(rec.ID), rec, nil)
}

// ListThreads implements store.Store.
func (c *Client) ListThreads(ctx context.Context, ownerID string) ([]store.ThreadRecord, error) {
	var recs []store.ThreadRecord
	err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(ownerID)+"/threads", nil, &recs)
	return recs, err
}

// do executes one JSON request against the remote API. Transport failures
// and 5xx responses map to store.ErrUnavailable; 404 maps to
// store.ErrNotFound.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("httpstore: marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("httpstore: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return store.ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: HTTP %d", store.ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("httpstore: HTTP %d: %s", resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("httpstore: decode response: %w", err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body) // drain body for connection reuse
	}
	return nil
}

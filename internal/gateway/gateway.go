// Package gateway is the confidantd HTTP surface: account endpoints, the
// snapshot sync API the client pushes to and pulls from, a websocket feed
// that fans thread updates out to a user's other devices, and the usual
// health and metrics endpoints.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/confidant-ai/confidant/internal/auth"
	"github.com/confidant-ai/confidant/internal/store"
)

// Config holds gateway construction options.
type Config struct {
	// Bind is the listen address, e.g. "127.0.0.1:8788".
	Bind string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8788"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 30 * time.Second
	}
	// WriteTimeout stays 0 by default: a deadline would sever long-lived
	// websocket event connections.
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Gateway serves the confidantd API.
type Gateway struct {
	config  Config
	logger  *slog.Logger
	auth    *auth.Service
	store   store.Store
	metrics *Metrics
	events  *eventHub

	server    *http.Server
	startedAt time.Time
}

// New creates a gateway over the auth service and server store.
func New(authSvc *auth.Service, st store.Store, cfg Config) *Gateway {
	cfg = cfg.withDefaults()
	logger := cfg.Logger.With("component", "gateway")
	return &Gateway{
		config:  cfg,
		logger:  logger,
		auth:    authSvc,
		store:   st,
		metrics: NewMetrics(),
		events:  newEventHub(logger),
	}
}

// Handler returns the router, for tests and embedding.
func (g *Gateway) Handler() http.Handler {
	return g.buildRouter()
}

// Validate checks the bind address before Start.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start binds the listener and serves in the background.
func (g *Gateway) Start() error {
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen: %w", err)
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down gracefully, bounded by the configured
// timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	g.events.closeAll()
	return g.server.Shutdown(shutdownCtx)
}

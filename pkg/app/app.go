// Package app assembles the confidant client: local backup, session
// cache, provider, exchange engine, and the optional remote sync stack.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/confidant-ai/confidant/internal/backup"
	"github.com/confidant-ai/confidant/internal/config"
	"github.com/confidant-ai/confidant/internal/cron"
	"github.com/confidant-ai/confidant/internal/exchange"
	"github.com/confidant-ai/confidant/internal/memory"
	"github.com/confidant-ai/confidant/internal/provider"
	"github.com/confidant-ai/confidant/internal/session"
	"github.com/confidant-ai/confidant/internal/store/httpstore"
	"github.com/confidant-ai/confidant/internal/syncer"
	"github.com/confidant-ai/confidant/internal/telemetry"
	"github.com/confidant-ai/confidant/modules/provider/anthropic"
	openaicompat "github.com/confidant-ai/confidant/modules/provider/openai_compatible"
)

// App is the assembled client.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	backup    backup.Store
	cache     *session.Cache
	provider  provider.Provider
	engine    *exchange.Engine
	sync      *syncer.Engine
	scheduler *cron.Scheduler
	telemetry *telemetry.Telemetry
	creds     *Credentials
}

// New wires the client from configuration. Identity bootstrap (restore or
// first-run onboarding) happens inside; interactive prompts may run when
// no local state exists.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := newLogger(cfg.Log)

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: "confidant",
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	if err := ensureDataDir(cfg.DataDir); err != nil {
		return nil, err
	}
	bk, err := backup.OpenSQLite(filepath.Join(cfg.DataDir, "backup.db"))
	if err != nil {
		return nil, err
	}

	cache := session.NewCache(session.Config{Backup: bk, Logger: logger})

	a := &App{
		cfg:       cfg,
		logger:    logger.With("component", "app"),
		backup:    bk,
		cache:     cache,
		telemetry: tel,
	}

	p, err := buildProvider(cfg.Provider, logger)
	if err != nil {
		_ = bk.Close()
		return nil, err
	}
	a.provider = p

	if err := a.bootstrap(ctx); err != nil {
		_ = bk.Close()
		return nil, err
	}

	var extractor memory.Extractor = memory.NopExtractor{}
	if a.provider != nil {
		extractor = memory.NewProviderExtractor(a.provider)
	}
	a.engine = exchange.New(a.provider, extractor, cache, exchange.Config{
		Logger: logger,
		Tracer: tel.Tracer(),
	})

	return a, nil
}

// bootstrap establishes identity and reconciles with the remote.
//
// Order matters: local backup first (instant, offline-friendly), then one
// remote pull that wholesale-replaces threads when the user has a remote
// row. A fresh machine with no local state onboards interactively.
func (a *App) bootstrap(ctx context.Context) error {
	snap, err := a.backup.Load(ctx)
	switch {
	case err == nil:
		a.cache.RestoreLocal(snap)
		a.logger.Info("local state restored",
			"threads", len(snap.Threads),
			"facts", len(snap.Facts),
		)
	case errors.Is(err, backup.ErrNoRecord):
		if err := a.onboard(ctx); err != nil {
			return err
		}
	default:
		return err
	}

	if !a.cfg.Sync.Enabled {
		return nil
	}

	creds, err := LoadCredentials(a.cfg.DataDir)
	if err != nil {
		a.logger.Warn("stored credentials unreadable; sync disabled for this run", "error", err)
		return nil
	}
	a.creds = creds

	remote := httpstore.New(httpstore.Config{
		BaseURL: a.cfg.Sync.ServerURL,
		Token:   creds.Token,
	})
	a.sync = syncer.New(remote, a.cache, syncer.Config{
		Debounce: a.cfg.Sync.DebounceDuration(),
		Logger:   a.logger,
		Tracer:   a.telemetry.Tracer(),
	})
	a.cache.SetMutationNotifier(a.sync.NotifyMutation)

	if err := a.sync.Pull(ctx, creds.UserID); err != nil {
		// No remote row yet, or the server is unreachable: local state
		// stands and the next push seeds the remote.
		a.logger.Warn("initial pull failed; continuing with local state", "error", err)
	}

	a.scheduler = cron.NewScheduler(a.logger)
	if err := a.scheduler.RegisterJob(&cron.ResyncJob{
		Engine:       a.sync,
		Logger:       a.logger,
		ScheduleExpr: a.cfg.Sync.ResyncSchedule,
	}); err != nil {
		return err
	}
	return a.scheduler.Start()
}

// Close shuts the stack down in dependency order: exchanges first, then a
// final push, then storage.
func (a *App) Close(ctx context.Context) error {
	closeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if a.engine != nil {
		if err := a.engine.Close(closeCtx); err != nil {
			a.logger.Warn("exchanges still running at shutdown", "error", err)
		}
	}
	if a.scheduler != nil {
		_ = a.scheduler.Stop(closeCtx)
	}
	if a.sync != nil {
		// Flush instead of waiting out the debounce window.
		if err := a.sync.Push(closeCtx); err != nil {
			a.logger.Warn("final push failed", "error", err)
		}
		_ = a.sync.Close(closeCtx)
	}
	if err := a.telemetry.Shutdown(closeCtx); err != nil {
		a.logger.Warn("telemetry shutdown failed", "error", err)
	}
	return a.backup.Close()
}

// buildProvider selects the chat backend from configuration. An
// unconfigured provider returns nil: the companion still runs, sealing
// every reply with the fallback text.
func buildProvider(cfg config.ProviderConfig, logger *slog.Logger) (provider.Provider, error) {
	switch cfg.Type {
	case "anthropic":
		return anthropic.New(anthropic.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			MaxTokens: cfg.MaxTokens,
			Persona:   cfg.Persona,
		}, logger)
	default:
		if cfg.BaseURL == "" {
			return nil, nil
		}
		return openaicompat.New(openaicompat.Config{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Persona:   cfg.Persona,
			Timeout:   cfg.TimeoutDuration(),
		}, logger)
	}
}

// Cache exposes the session cache for the UI layer.
func (a *App) Cache() *session.Cache { return a.cache }

// Engine exposes the exchange engine for the UI layer.
func (a *App) Engine() *exchange.Engine { return a.engine }

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// ensureDataDir creates the data directory with private permissions.
func ensureDataDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("app: create data dir %s: %w", dir, err)
	}
	return nil
}

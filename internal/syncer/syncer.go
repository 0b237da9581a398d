// Package syncer reconciles the local session state with the remote store:
// one pull at session start, then a debounced best-effort push whenever the
// local state mutates. Delivery is eventually consistent; a failed push is
// retried implicitly by the next mutation's debounce cycle.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/confidant-ai/confidant/internal/store"
	"github.com/confidant-ai/confidant/pkg/chat"
)

// Source provides the local state the engine reconciles. Implemented by
// the session cache.
type Source interface {
	// Snapshot returns a deep copy of the full local state.
	Snapshot() chat.Snapshot

	// AdoptRemote applies a pulled snapshot: threads wholesale, facts only
	// if the remote returned any, score and mood from the remote mirror.
	AdoptRemote(threads []*chat.Thread, facts []chat.Fact, score int, mood string)
}

// Config holds engine construction options.
type Config struct {
	// Debounce is the quiet period after the last mutation before a push
	// fires. Defaults to 2s.
	Debounce time.Duration

	Logger *slog.Logger
	Tracer trace.Tracer
}

func (c Config) withDefaults() Config {
	if c.Debounce <= 0 {
		c.Debounce = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Tracer == nil {
		c.Tracer = noop.NewTracerProvider().Tracer("syncer")
	}
	return c
}

// Engine mediates between the local source and the remote store.
type Engine struct {
	store  store.Store
	source Source
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
	tasks  sync.WaitGroup
}

// New creates an engine. The engine pushes nothing until NotifyMutation
// is called.
func New(st store.Store, source Source, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		store:  st,
		source: source,
		cfg:    cfg,
		logger: cfg.Logger.With("component", "syncer"),
	}
}

// Pull fetches the remote snapshot for the user and applies it to the
// source. Invoked exactly once, at session start after identity is
// established; the remote is authoritative for thread content at boot.
// Returns store.ErrNotFound when the user has no remote row yet.
func (e *Engine) Pull(ctx context.Context, userID string) error {
	ctx, span := e.cfg.Tracer.Start(ctx, "syncer.pull",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	rec, err := e.store.FetchUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("syncer: pull user %s: %w", userID, err)
	}

	threadRecs, err := e.store.ListThreads(ctx, userID)
	if err != nil {
		return fmt.Errorf("syncer: pull threads for %s: %w", userID, err)
	}

	threads := make([]*chat.Thread, len(threadRecs))
	for i, tr := range threadRecs {
		threads[i] = &chat.Thread{
			ID:        tr.ID,
			Title:     tr.Title,
			Turns:     tr.Turns,
			UpdatedAt: tr.UpdatedAt,
		}
	}

	e.source.AdoptRemote(threads, rec.Facts, rec.Score, rec.Mood)
	e.logger.Info("remote snapshot adopted",
		"user_id", userID,
		"threads", len(threads),
		"facts", len(rec.Facts),
	)
	return nil
}

// NotifyMutation arms or re-arms the debounce timer. Repeated mutations
// within the window coalesce into one push, scheduled one debounce period
// after the last mutation in the burst. Never blocks the caller.
func (e *Engine) NotifyMutation() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	if e.timer != nil {
		e.timer.Reset(e.cfg.Debounce)
		return
	}
	e.timer = time.AfterFunc(e.cfg.Debounce, e.debouncedPush)
}

// debouncedPush runs in the timer goroutine. Push failures are swallowed;
// the next mutation's debounce cycle is the retry.
func (e *Engine) debouncedPush() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.tasks.Add(1)
	e.mu.Unlock()
	defer e.tasks.Done()

	if err := e.Push(context.Background()); err != nil {
		e.logger.Warn("debounced push failed; will retry on next mutation", "error", err)
	}
}

// Push serializes the full current snapshot and performs one upsert per
// thread plus one for the user row. Partial failure is accepted: rows that
// fail are simply stale until the next full-snapshot push. Upserts are
// keyed by primary id, so repeating an identical push is a no-op in effect.
func (e *Engine) Push(ctx context.Context) error {
	ctx, span := e.cfg.Tracer.Start(ctx, "syncer.push")
	defer span.End()

	snap := e.source.Snapshot()
	span.SetAttributes(
		attribute.String("user.id", snap.User.ID),
		attribute.Int("threads", len(snap.Threads)),
	)

	var failed int
	if err := e.store.UpsertUser(ctx, store.UserRecord{
		ID:    snap.User.ID,
		Facts: snap.Facts,
		Score: snap.Score,
		Mood:  snap.Mood,
	}); err != nil {
		failed++
		e.logger.Warn("user upsert failed", "user_id", snap.User.ID, "error", err)
	}

	for _, t := range snap.Threads {
		if err := e.store.UpsertThread(ctx, store.ThreadRecord{
			ID:        t.ID,
			OwnerID:   snap.User.ID,
			Title:     t.Title,
			Turns:     t.Turns,
			UpdatedAt: t.UpdatedAt,
		}); err != nil {
			failed++
			e.logger.Warn("thread upsert failed", "thread_id", t.ID, "error", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("syncer: push incomplete: %d upserts failed", failed)
	}
	e.logger.Debug("snapshot pushed", "threads", len(snap.Threads))
	return nil
}

// Close stops the debounce timer and waits for in-flight pushes, bounded
// by ctx. Pending (not yet fired) pushes are dropped.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("syncer: close: %w", ctx.Err())
	}
}

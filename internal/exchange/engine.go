// Package exchange drives a single active generation: it opens a
// placeholder turn, appends provider fragments as they arrive, seals the
// turn, and triggers the background memory extraction pass. Exchanges are
// independent by target turn identity; starting a new exchange never
// cancels a prior one.
package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/confidant-ai/confidant/internal/memory"
	"github.com/confidant-ai/confidant/internal/provider"
	"github.com/confidant-ai/confidant/internal/session"
	"github.com/confidant-ai/confidant/pkg/chat"
)

// FallbackReply replaces the assistant turn's content when the provider
// fails at any point during an exchange.
const FallbackReply = "I'm sorry, I'm having trouble finding my words right now. Could you try me again in a moment?"

// recentTurnWindow is how many trailing turns feed the extraction pass.
const recentTurnWindow = 4

// Config holds engine construction options.
type Config struct {
	Logger *slog.Logger
	Tracer trace.Tracer
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Tracer == nil {
		c.Tracer = noop.NewTracerProvider().Tracer("exchange")
	}
	return c
}

// Engine runs exchanges against the session cache.
type Engine struct {
	provider  provider.Provider
	extractor memory.Extractor
	cache     *session.Cache
	cfg       Config
	logger    *slog.Logger
	tasks     sync.WaitGroup
}

// New creates an engine. The extractor may be memory.NopExtractor{} to
// disable the enrichment pass.
func New(p provider.Provider, ex memory.Extractor, cache *session.Cache, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		provider:  p,
		extractor: ex,
		cache:     cache,
		cfg:       cfg,
		logger:    cfg.Logger.With("component", "exchange"),
	}
}

// Exchange is the handle for one in-flight generation.
type Exchange struct {
	// ThreadID is the thread this exchange writes to, fixed at open time
	// even if the active thread changes mid-stream.
	ThreadID string

	// Turn references the assistant placeholder being streamed into.
	Turn session.TurnRef

	done chan struct{}
	err  error // provider failure, if any; set before done closes
}

// Done is closed once the assistant turn is sealed and the score applied.
// The background extraction pass may still be running.
func (x *Exchange) Done() <-chan struct{} {
	return x.done
}

// Wait blocks until the exchange seals or ctx expires. Returns the
// provider error if the exchange fell back; the turn is sealed either way.
func (x *Exchange) Wait(ctx context.Context) error {
	select {
	case <-x.done:
		return x.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Begin starts an exchange. If threadID is empty a new thread is created
// (title derived from userText) and becomes the target. The user turn is
// appended and published synchronously, before any network call; the
// streaming work then proceeds in the background.
//
// ctx should span the session, not the call: there is no per-exchange
// cancel, and navigating away from a thread must not stop its stream.
func (e *Engine) Begin(ctx context.Context, threadID, userText string) (*Exchange, error) {
	if threadID == "" {
		threadID = e.cache.CreateThread(userText).ID
	}

	// Prior turn sequence, captured before this exchange's own turns.
	var history []provider.Message
	if t, ok := e.cache.Thread(threadID); ok {
		history = historyMessages(t.Turns)
	}

	if _, err := e.cache.AppendUserTurn(threadID, userText); err != nil {
		return nil, fmt.Errorf("exchange: append user turn: %w", err)
	}
	ref, err := e.cache.OpenPlaceholder(threadID)
	if err != nil {
		return nil, fmt.Errorf("exchange: open placeholder: %w", err)
	}

	req := provider.Request{
		Messages: append(history, provider.Message{
			Role:    provider.MessageRoleUser,
			Content: userText,
		}),
		Facts: e.cache.FactsJoined(),
		Mood:  e.cache.Mood(),
	}

	x := &Exchange{
		ThreadID: threadID,
		Turn:     ref,
		done:     make(chan struct{}),
	}

	e.tasks.Add(1)
	go e.run(ctx, x, req)
	return x, nil
}

// run consumes the stream and seals the turn. Fragments are applied in
// arrival order; the placeholder's content is republished as the growing
// accumulator so observers see monotonic growth, never truncation.
func (e *Engine) run(ctx context.Context, x *Exchange, req provider.Request) {
	defer e.tasks.Done()
	defer close(x.done)

	ctx, span := e.cfg.Tracer.Start(ctx, "exchange.stream",
		trace.WithAttributes(attribute.String("thread.id", x.ThreadID)))
	defer span.End()

	var acc strings.Builder

	stream, err := e.stream(ctx, req)
	if err != nil {
		e.seal(x, FallbackReply, err)
	} else {
		var streamErr error
		for chunk := range stream {
			if chunk.Err != nil {
				streamErr = chunk.Err
				break
			}
			if chunk.Content == "" {
				continue
			}
			acc.WriteString(chunk.Content)
			if err := e.cache.AppendFragment(x.Turn, acc.String()); err != nil {
				e.logger.Warn("fragment apply failed", "thread_id", x.ThreadID, "error", err)
			}
		}
		if streamErr != nil {
			// Drain remaining chunks to prevent provider goroutine leak.
			for range stream { //nolint:revive // intentional empty drain loop
			}
			e.seal(x, FallbackReply, streamErr)
		} else {
			// An empty accumulator still seals: zero fragments is a valid,
			// if degenerate, outcome.
			e.seal(x, acc.String(), nil)
		}
	}

	// The score counts completed exchanges, including fallback ones.
	// Rewarding the failure path looks unintended but is the established
	// behavior; see DESIGN.md before changing it.
	e.cache.AddScore(1)

	e.tasks.Add(1)
	go e.extract(ctx, x.ThreadID)
}

// stream opens the provider stream. A nil provider (no backend
// configured) behaves like an unreachable one, so the fallback path
// handles both.
func (e *Engine) stream(ctx context.Context, req provider.Request) (<-chan provider.StreamChunk, error) {
	if e.provider == nil {
		return nil, provider.ErrProviderDown
	}
	return e.provider.Stream(ctx, req)
}

// seal freezes the assistant turn. The user turn is never rolled back on
// provider failure.
func (e *Engine) seal(x *Exchange, content string, cause error) {
	if cause != nil {
		x.err = cause
		e.logger.Warn("provider failed; sealing fallback reply",
			"thread_id", x.ThreadID,
			"error", cause,
		)
	}
	if err := e.cache.SealTurn(x.Turn, content); err != nil {
		e.logger.Error("seal failed", "thread_id", x.ThreadID, "error", err)
	}
}

// extract runs the advisory enrichment pass: the last few turns plus the
// joined corpus go to the extractor, and any genuinely new facts are
// added. Extraction errors are swallowed; the corpus stays unchanged.
func (e *Engine) extract(ctx context.Context, threadID string) {
	defer e.tasks.Done()

	ctx, span := e.cfg.Tracer.Start(ctx, "exchange.extract")
	defer span.End()

	recent := e.cache.RecentTurns(threadID, recentTurnWindow)
	joined := e.cache.FactsJoined()

	updated, err := e.extractor.Extract(ctx, recent, joined)
	if err != nil {
		e.logger.Warn("memory extraction failed; facts unchanged", "error", err)
		return
	}

	for _, cand := range memory.NewCandidates(joined, updated) {
		if _, added := e.cache.AddFact(cand); added {
			e.logger.Debug("fact learned", "content", cand)
		}
	}
}

// Close waits for in-flight exchanges and extraction passes, bounded by
// ctx. Streams are not cancelled; they are joined.
func (e *Engine) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("exchange: close: %w", ctx.Err())
	}
}

// historyMessages converts sealed turns into provider role/text pairs.
// Unsealed placeholders (a concurrent exchange still streaming) are
// skipped; their content is not yet part of the record.
func historyMessages(turns []chat.Turn) []provider.Message {
	msgs := make([]provider.Message, 0, len(turns))
	for _, t := range turns {
		if !t.Sealed {
			continue
		}
		role := provider.MessageRoleUser
		if t.Role == chat.RoleAssistant {
			role = provider.MessageRoleAssistant
		}
		msgs = append(msgs, provider.Message{Role: role, Content: t.Content})
	}
	return msgs
}

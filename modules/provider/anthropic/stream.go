package anthropic

import (
	"context"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/confidant-ai/confidant/internal/provider"
)

const streamBufferSize = 16

// Stream implements provider.Provider. The first event is consumed
// synchronously so connection errors (auth, network, 4xx) surface as the
// return value; mid-stream errors arrive via StreamChunk.Err.
func (p *Provider) Stream(ctx context.Context, req provider.Request) (<-chan provider.StreamChunk, error) {
	stream := p.client.Messages.NewStreaming(ctx, p.buildParams(req))

	if !stream.Next() {
		err := stream.Err()
		_ = stream.Close() //nolint:errcheck // best-effort close
		if err != nil {
			return nil, mapError(err)
		}
		// Stream ended without error or events.
		ch := make(chan provider.StreamChunk)
		close(ch)
		return ch, nil
	}
	firstEvent := stream.Current()

	ch := make(chan provider.StreamChunk, streamBufferSize)
	go func() {
		defer close(ch)
		defer func() { _ = stream.Close() }() //nolint:errcheck // best-effort close

		emitTextDelta(ctx, firstEvent, ch)
		for stream.Next() {
			if ctx.Err() != nil {
				return
			}
			emitTextDelta(ctx, stream.Current(), ch)
		}
		if err := stream.Err(); err != nil {
			emit(ctx, ch, provider.StreamChunk{Err: mapError(err)})
		}
	}()
	return ch, nil
}

// emitTextDelta forwards text deltas; every other event kind (message
// lifecycle, usage) carries nothing the companion renders.
func emitTextDelta(ctx context.Context, event sdkanthropic.MessageStreamEventUnion, ch chan<- provider.StreamChunk) {
	ev, ok := event.AsAny().(sdkanthropic.ContentBlockDeltaEvent)
	if !ok {
		return
	}
	if delta, ok := ev.Delta.AsAny().(sdkanthropic.TextDelta); ok {
		emit(ctx, ch, provider.StreamChunk{Content: delta.Text})
	}
}

// emit sends a chunk, respecting context cancellation.
func emit(ctx context.Context, ch chan<- provider.StreamChunk, chunk provider.StreamChunk) {
	select {
	case ch <- chunk:
	case <-ctx.Done():
	}
}

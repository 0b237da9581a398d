package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/confidant-ai/confidant/internal/provider"
)

// oaiStreamChunk represents a single SSE chunk from the streaming API.
type oaiStreamChunk struct {
	Choices []oaiStreamChoice `json:"choices"`
}

type oaiStreamChoice struct {
	Delta        oaiStreamDelta `json:"delta"`
	FinishReason *string        `json:"finish_reason"`
}

type oaiStreamDelta struct {
	Content string `json:"content,omitempty"`
}

// parseSSEStream reads an SSE response body and emits content fragments on
// the returned channel. The channel is closed when the stream ends, either
// by [DONE] or an error; the body is closed with it.
func (p *Provider) parseSSEStream(ctx context.Context, body io.ReadCloser) <-chan provider.StreamChunk {
	ch := make(chan provider.StreamChunk, 16)

	// 1 MiB line buffer: some backends send very long SSE lines.
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	go func() {
		defer close(ch)
		defer body.Close() //nolint:errcheck // best-effort close

		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				ch <- provider.StreamChunk{Err: err}
				return
			}

			line := scanner.Text()

			// Accept both "data: " and "data:"; some compatible providers
			// omit the space after the colon.
			var data string
			switch {
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case strings.HasPrefix(line, "data:"):
				data = strings.TrimPrefix(line, "data:")
			default:
				continue
			}

			if data == "[DONE]" {
				return
			}

			var chunk oaiStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				ch <- provider.StreamChunk{Err: fmt.Errorf("parse SSE chunk: %w", err)}
				return
			}

			if len(chunk.Choices) == 0 {
				continue
			}
			if content := chunk.Choices[0].Delta.Content; content != "" {
				select {
				case ch <- provider.StreamChunk{Content: content}:
				case <-ctx.Done():
					ch <- provider.StreamChunk{Err: ctx.Err()}
					return
				}
			}
		}

		// Scanner error: connection drop mid-stream.
		if err := scanner.Err(); err != nil {
			if ctx.Err() != nil {
				ch <- provider.StreamChunk{Err: ctx.Err()}
				return
			}
			ch <- provider.StreamChunk{Err: fmt.Errorf("%w: stream read error: %w", provider.ErrProviderDown, err)}
		}
	}()

	return ch
}

package provider

import "context"

// Provider is the interface for communicating with a language model.
// Concrete implementations live in separate packages (e.g., the
// OpenAI-compatible module under modules/provider).
type Provider interface {
	// Complete sends a completion request and returns the full response.
	// Used for non-streaming calls such as memory extraction.
	Complete(ctx context.Context, req Request) (Response, error)

	// Stream sends a completion request and returns a channel of fragments.
	// Initial connection errors are returned directly. Mid-stream errors
	// are delivered via StreamChunk.Err. The channel is closed when the
	// stream is exhausted; streams are finite and not restartable.
	Stream(ctx context.Context, req Request) (<-chan StreamChunk, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}

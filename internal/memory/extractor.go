// Package memory derives long-lived facts from conversation content.
// Extraction is advisory: it runs in the background after an exchange
// completes and must never block or corrupt the primary conversation flow.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/confidant-ai/confidant/internal/provider"
	"github.com/confidant-ai/confidant/pkg/chat"
)

// Extractor analyzes recent turns against the existing fact corpus and
// returns the updated corpus as comma-separated text. On failure the
// corpus is left unchanged by the caller.
type Extractor interface {
	Extract(ctx context.Context, recent []chat.Turn, factsJoined string) (string, error)
}

// ProviderExtractor uses a language model to revise the fact corpus.
type ProviderExtractor struct {
	provider provider.Provider
}

// NewProviderExtractor creates an extractor backed by the given provider.
func NewProviderExtractor(p provider.Provider) *ProviderExtractor {
	return &ProviderExtractor{provider: p}
}

// Compile-time interface check.
var _ Extractor = (*ProviderExtractor)(nil)

const extractionPrompt = `You maintain a list of long-term facts about the user.
Existing facts (comma-separated): %s

Given the recent conversation below, return the updated fact list as a single
comma-separated line. Keep existing facts, add new ones worth remembering
(preferences, personal details, decisions, goals), and nothing else.

%s

Updated facts:`

// Extract sends the recent turns and current corpus to the model and
// returns its revised comma-separated fact list.
func (e *ProviderExtractor) Extract(ctx context.Context, recent []chat.Turn, factsJoined string) (string, error) {
	prompt := fmt.Sprintf(extractionPrompt, factsJoined, formatTurns(recent))

	resp, err := e.provider.Complete(ctx, provider.Request{
		Messages: []provider.Message{
			{Role: provider.MessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("memory: extraction failed: %w", err)
	}

	return strings.TrimSpace(resp.Content), nil
}

// formatTurns renders turns as "role: text" lines for the extraction prompt.
func formatTurns(turns []chat.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteByte('\n')
	}
	return b.String()
}

// NopExtractor is a no-op extractor for when memory extraction is disabled.
type NopExtractor struct{}

// Compile-time interface check.
var _ Extractor = (*NopExtractor)(nil)

// Extract returns the corpus unchanged.
func (NopExtractor) Extract(_ context.Context, _ []chat.Turn, factsJoined string) (string, error) {
	return factsJoined, nil
}

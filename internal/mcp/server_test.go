package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/confidant-ai/confidant/internal/session"
	"github.com/confidant-ai/confidant/pkg/chat"
)

func newTestServer(t *testing.T) (*Server, *session.Cache) {
	t.Helper()
	cache := session.NewCache(session.Config{})
	cache.SeedIdentity(chat.User{ID: "u1", Username: "ada"})
	return NewServer(cache, "test", nil), cache
}

func callReq(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := mcp.AsTextContent(res.Content[0])
	if !ok {
		t.Fatalf("result content is not text: %T", res.Content[0])
	}
	return tc.Text
}

func TestMemoryList(t *testing.T) {
	t.Parallel()

	s, cache := newTestServer(t)
	cache.AddFact("likes tea")

	res, err := s.handleList(context.Background(), callReq(nil))
	if err != nil {
		t.Fatalf("handleList: %v", err)
	}
	out := textOf(t, res)
	if !strings.Contains(out, "likes tea") || !strings.Contains(out, session.StarterFact) {
		t.Errorf("list output = %q", out)
	}
}

func TestMemoryAdd(t *testing.T) {
	t.Parallel()

	s, cache := newTestServer(t)

	res, err := s.handleAdd(context.Background(), callReq(map[string]any{"content": "has a dog"}))
	if err != nil {
		t.Fatalf("handleAdd: %v", err)
	}
	if res.IsError {
		t.Fatalf("handleAdd errored: %s", textOf(t, res))
	}
	if len(cache.Facts()) != 2 {
		t.Errorf("fact count = %d, want 2", len(cache.Facts()))
	}

	// Adding the same text again dedups.
	res, err = s.handleAdd(context.Background(), callReq(map[string]any{"content": "has a dog"}))
	if err != nil {
		t.Fatalf("handleAdd duplicate: %v", err)
	}
	if !strings.Contains(textOf(t, res), "Already remembered") {
		t.Errorf("duplicate add output = %q", textOf(t, res))
	}
	if len(cache.Facts()) != 2 {
		t.Errorf("duplicate add grew corpus: %d", len(cache.Facts()))
	}
}

func TestMemoryAdd_MissingContent(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	res, err := s.handleAdd(context.Background(), callReq(nil))
	if err != nil {
		t.Fatalf("handleAdd: %v", err)
	}
	if !res.IsError {
		t.Error("missing content did not produce a tool error")
	}
}

func TestMemoryForget(t *testing.T) {
	t.Parallel()

	s, cache := newTestServer(t)
	fact, _ := cache.AddFact("temporary")

	res, err := s.handleForget(context.Background(), callReq(map[string]any{"id": fact.ID}))
	if err != nil {
		t.Fatalf("handleForget: %v", err)
	}
	if res.IsError {
		t.Fatalf("handleForget errored: %s", textOf(t, res))
	}
	for _, f := range cache.Facts() {
		if f.ID == fact.ID {
			t.Error("fact still present after forget")
		}
	}

	res, err = s.handleForget(context.Background(), callReq(map[string]any{"id": "nope"}))
	if err != nil {
		t.Fatalf("handleForget unknown: %v", err)
	}
	if !res.IsError {
		t.Error("forgetting unknown id did not produce a tool error")
	}
}

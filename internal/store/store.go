// Package store defines the remote store contract: a durable, remote,
// per-user snapshot mirror written by the debounced push and read once at
// session start. Upserts are idempotent, keyed by primary id; last writer
// wins is the entire concurrency discipline.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/confidant-ai/confidant/pkg/chat"
)

// Sentinel errors for remote store operations.
var (
	// ErrNotFound indicates no row exists for the requested id.
	ErrNotFound = errors.New("store: not found")

	// ErrUnavailable indicates the store could not be reached or rejected
	// the request. The sync engine swallows it and relies on the next
	// debounce cycle as implicit retry.
	ErrUnavailable = errors.New("store: unavailable")
)

// UserRecord is the per-user row: facts, score, and mood.
type UserRecord struct {
	ID    string      `json:"id"`
	Facts []chat.Fact `json:"facts"`
	Score int         `json:"score"`
	Mood  string      `json:"mood,omitempty"`
}

// ThreadRecord is the per-thread row keyed by thread id.
type ThreadRecord struct {
	ID        string      `json:"id"`
	OwnerID   string      `json:"owner_id"`
	Title     string      `json:"title"`
	Turns     []chat.Turn `json:"turns"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Store is the remote snapshot mirror.
// Implementations must be safe for concurrent use.
type Store interface {
	// FetchUser reads the user row. Returns ErrNotFound for unknown ids.
	FetchUser(ctx context.Context, id string) (UserRecord, error)

	// UpsertUser replaces the snapshot columns (facts, score, mood) of an
	// existing user row. Rows are created at signup, so an unknown id
	// returns ErrNotFound.
	UpsertUser(ctx context.Context, rec UserRecord) error

	// UpsertThread writes a thread row keyed by thread id: existing rows
	// get title, turns, and timestamp overwritten; new ids insert.
	UpsertThread(ctx context.Context, rec ThreadRecord) error

	// ListThreads returns the owner's threads ordered by recency.
	ListThreads(ctx context.Context, ownerID string) ([]ThreadRecord, error)
}

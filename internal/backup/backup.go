// Package backup mirrors the session state to a durable local store so a
// restart with no network recovers the last known state even before any
// sync has happened. Each logical collection (user, threads, facts, score,
// mood) is one keyed record, loaded wholesale at boot and overwritten
// wholesale on each relevant mutation.
package backup

import (
	"context"
	"errors"

	"github.com/confidant-ai/confidant/pkg/chat"
)

// ErrNoRecord indicates the requested collection has never been written.
var ErrNoRecord = errors.New("backup: no record")

// Collection keys for the local mirror.
const (
	CollectionUser    = "user"
	CollectionThreads = "threads"
	CollectionFacts   = "facts"
	CollectionScore   = "score"
	CollectionMood    = "mood"
)

// Store persists session state locally. Implementations must be safe for
// concurrent use; writes are wholesale per collection.
type Store interface {
	// SaveUser overwrites the stored user identity.
	SaveUser(ctx context.Context, user chat.User) error

	// SaveThreads overwrites the full thread list.
	SaveThreads(ctx context.Context, threads []*chat.Thread) error

	// SaveFacts overwrites the full fact list.
	SaveFacts(ctx context.Context, facts []chat.Fact) error

	// SaveScore overwrites the relationship score.
	SaveScore(ctx context.Context, score int) error

	// SaveMood overwrites the current mood tag.
	SaveMood(ctx context.Context, mood string) error

	// Load reads every collection back into a snapshot. Returns ErrNoRecord
	// if no user identity has ever been stored; missing secondary
	// collections default to their zero values.
	Load(ctx context.Context) (chat.Snapshot, error)

	// Close releases the underlying storage.
	Close() error
}

// Package session holds the process-local authoritative snapshot of the
// user's threads, facts, score, and mood. It is the source of truth for
// observers while the app is running; every mutation is mirrored to the
// local backup store and reported to the sync engine.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/confidant-ai/confidant/internal/backup"
	"github.com/confidant-ai/confidant/pkg/chat"
)

// StarterFact is seeded for fresh identities with no prior state.
const StarterFact = "We just met today"

// Config holds cache construction options.
type Config struct {
	Backup backup.Store // nil disables local mirroring
	Logger *slog.Logger
	Now    func() time.Time // injectable for testing
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Cache is the in-memory session state. All methods are safe for
// concurrent use.
type Cache struct {
	mu             sync.Mutex
	user           chat.User
	threads        []*chat.Thread // front = most recently created
	facts          []chat.Fact
	score          int
	mood           string
	activeThreadID string

	observers []func(Event)
	notify    func() // sync engine's NotifyMutation; may be nil

	cfg    Config
	logger *slog.Logger
}

// NewCache creates an empty cache.
func NewCache(cfg Config) *Cache {
	cfg = cfg.withDefaults()
	return &Cache{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "session"),
	}
}

// SetMutationNotifier registers the sync engine callback invoked after
// every mutation. Registered once at wiring time, before any mutation.
func (c *Cache) SetMutationNotifier(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = fn
}

// Subscribe registers an observer for mutation events. Observers are
// invoked synchronously in registration order, after the mutation is
// applied and before the sync engine is notified.
func (c *Cache) Subscribe(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// User returns the current identity.
func (c *Cache) User() chat.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Score returns the relationship score.
func (c *Cache) Score() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.score
}

// Mood returns the current mood tag.
func (c *Cache) Mood() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mood
}

// ActiveThreadID returns the id of the active thread, or "" if none.
func (c *Cache) ActiveThreadID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeThreadID
}

// SetActiveThread switches the active thread. Switching does not affect
// in-flight streams; they complete against the thread that was active
// when their exchange opened.
func (c *Cache) SetActiveThread(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeThreadID = id
}

// Thread returns a deep copy of the thread with the given id.
func (c *Cache) Thread(id string) (*chat.Thread, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.threadLocked(id)
	if t == nil {
		return nil, false
	}
	return t.Clone(), true
}

// Threads returns deep copies of all threads, most recent first.
func (c *Cache) Threads() []*chat.Thread {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cloneThreadsLocked()
}

// Facts returns a copy of the fact list.
func (c *Cache) Facts() []chat.Fact {
	c.mu.Lock()
	defer c.mu.Unlock()
	facts := make([]chat.Fact, len(c.facts))
	copy(facts, c.facts)
	return facts
}

// FactsJoined returns the fact corpus as comma-joined text, the
// serialization passed to the provider and the extractor.
func (c *Cache) FactsJoined() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.factsJoinedLocked()
}

// RecentTurns returns deep copies of the last n turns of a thread, or all
// of them if the thread has fewer.
func (c *Cache) RecentTurns(threadID string, n int) []chat.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.threadLocked(threadID)
	if t == nil || n <= 0 {
		return nil
	}
	start := len(t.Turns) - n
	if start < 0 {
		start = 0
	}
	turns := make([]chat.Turn, len(t.Turns)-start)
	copy(turns, t.Turns[start:])
	return turns
}

// Snapshot returns a deep copy of the full session state.
func (c *Cache) Snapshot() chat.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	facts := make([]chat.Fact, len(c.facts))
	copy(facts, c.facts)
	return chat.Snapshot{
		User:    c.user,
		Threads: c.cloneThreadsLocked(),
		Facts:   facts,
		Score:   c.score,
		Mood:    c.mood,
	}
}

func (c *Cache) threadLocked(id string) *chat.Thread {
	for _, t := range c.threads {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (c *Cache) cloneThreadsLocked() []*chat.Thread {
	threads := make([]*chat.Thread, len(c.threads))
	for i, t := range c.threads {
		threads[i] = t.Clone()
	}
	return threads
}

func (c *Cache) factsJoinedLocked() string {
	contents := make([]string, len(c.facts))
	for i, f := range c.facts {
		contents[i] = f.Content
	}
	return strings.Join(contents, ", ")
}

// emitLocked notifies observers and the sync engine. Must be called with
// the mutex held; observers run synchronously under the lock so they see
// a consistent view, and must not call back into the cache.
func (c *Cache) emitLocked(ev Event) {
	for _, fn := range c.observers {
		fn(ev)
	}
	if c.notify != nil {
		c.notify()
	}
}

// mirror functions are best-effort: a local backup failure is logged and
// never fails the mutation.

func (c *Cache) mirrorThreadsLocked() {
	if c.cfg.Backup == nil {
		return
	}
	if err := c.cfg.Backup.SaveThreads(context.Background(), c.threads); err != nil {
		c.logger.Warn("backup mirror failed", "collection", backup.CollectionThreads, "error", err)
	}
}

func (c *Cache) mirrorFactsLocked() {
	if c.cfg.Backup == nil {
		return
	}
	if err := c.cfg.Backup.SaveFacts(context.Background(), c.facts); err != nil {
		c.logger.Warn("backup mirror failed", "collection", backup.CollectionFacts, "error", err)
	}
}

func (c *Cache) mirrorScoreLocked() {
	if c.cfg.Backup == nil {
		return
	}
	if err := c.cfg.Backup.SaveScore(context.Background(), c.score); err != nil {
		c.logger.Warn("backup mirror failed", "collection", backup.CollectionScore, "error", err)
	}
}

func (c *Cache) mirrorMoodLocked() {
	if c.cfg.Backup == nil {
		return
	}
	if err := c.cfg.Backup.SaveMood(context.Background(), c.mood); err != nil {
		c.logger.Warn("backup mirror failed", "collection", backup.CollectionMood, "error", err)
	}
}

func (c *Cache) mirrorUserLocked() {
	if c.cfg.Backup == nil {
		return
	}
	if err := c.cfg.Backup.SaveUser(context.Background(), c.user); err != nil {
		c.logger.Warn("backup mirror failed", "collection", backup.CollectionUser, "error", err)
	}
}

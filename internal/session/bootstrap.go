package session

import (
	"github.com/confidant-ai/confidant/pkg/chat"
	"github.com/google/uuid"
)

// SeedIdentity installs a fresh identity with one starter fact and a zero
// score. Used when no prior local identity exists.
func (c *Cache) SeedIdentity(user chat.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.user = user
	c.mood = user.Mood
	c.score = 0
	c.threads = nil
	c.facts = []chat.Fact{{
		ID:        uuid.NewString(),
		Content:   StarterFact,
		CreatedAt: c.cfg.Now(),
	}}

	c.mirrorUserLocked()
	c.mirrorFactsLocked()
	c.mirrorScoreLocked()
	c.mirrorMoodLocked()
	c.emitObserversLocked(Event{Kind: EventThreadsLoaded})
}

// RestoreLocal replaces the session state with a snapshot loaded from the
// local backup. Instant and synchronous; observers are notified but the
// sync engine is not (restoring is not a user mutation).
func (c *Cache) RestoreLocal(snap chat.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.user = snap.User
	c.threads = snap.Threads
	c.facts = snap.Facts
	c.score = snap.Score
	c.mood = snap.Mood

	c.emitObserversLocked(Event{Kind: EventThreadsLoaded})
}

// AdoptRemote applies the result of a session-start pull. The remote is
// authoritative for thread content at boot: the thread list is replaced
// wholesale, even over unsynced local edits. Locally-seeded facts survive
// only if the remote returned none. Score and mood are restored from the
// remote mirror here and nowhere else; after boot the remote is a passive
// mirror, never a counter authority.
func (c *Cache) AdoptRemote(threads []*chat.Thread, facts []chat.Fact, score int, mood string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.threads = threads
	if len(facts) > 0 {
		c.facts = facts
	}
	c.score = score
	c.mood = mood
	c.user.Mood = mood
	if c.activeThreadID != "" && c.threadLocked(c.activeThreadID) == nil {
		c.activeThreadID = ""
	}

	c.mirrorThreadsLocked()
	c.mirrorFactsLocked()
	c.mirrorScoreLocked()
	c.mirrorMoodLocked()
	c.emitObserversLocked(Event{Kind: EventThreadsLoaded})
}

// emitObserversLocked notifies observers without arming the sync engine.
func (c *Cache) emitObserversLocked(ev Event) {
	for _, fn := range c.observers {
		fn(ev)
	}
}

package session

import (
	"errors"
	"fmt"

	"github.com/confidant-ai/confidant/pkg/chat"
	"github.com/google/uuid"
)

// Sentinel errors for cache mutations.
var (
	ErrThreadNotFound  = errors.New("session: thread not found")
	ErrTurnNotFound    = errors.New("session: turn not found")
	ErrFactNotFound    = errors.New("session: fact not found")
	ErrPlaceholderOpen = errors.New("session: thread already has an open placeholder")
)

// TurnRef identifies a turn by owning thread and position. A ref stays
// valid for the lifetime of the thread because turns are append-only.
type TurnRef struct {
	ThreadID string
	Index    int
}

// CreateThread inserts a new empty thread at the front of the list, makes
// it active, and returns a copy. The title is derived from the first user
// message.
func (c *Cache) CreateThread(firstUserText string) *chat.Thread {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &chat.Thread{
		ID:        uuid.NewString(),
		Title:     chat.DeriveTitle(firstUserText),
		UpdatedAt: c.cfg.Now(),
	}
	c.threads = append([]*chat.Thread{t}, c.threads...)
	c.activeThreadID = t.ID

	c.mirrorThreadsLocked()
	c.emitLocked(Event{Kind: EventThreadCreated, ThreadID: t.ID})
	return t.Clone()
}

// AppendUserTurn appends a sealed user turn. The update is applied and
// published synchronously, before any network call starts.
func (c *Cache) AppendUserTurn(threadID, text string) (TurnRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.threadLocked(threadID)
	if t == nil {
		return TurnRef{}, fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	}

	t.Turns = append(t.Turns, chat.Turn{Role: chat.RoleUser, Content: text, Sealed: true})
	t.UpdatedAt = c.cfg.Now()
	ref := TurnRef{ThreadID: threadID, Index: len(t.Turns) - 1}

	c.mirrorThreadsLocked()
	c.emitLocked(Event{Kind: EventThreadUpdated, ThreadID: threadID})
	return ref, nil
}

// OpenPlaceholder appends an empty unsealed assistant turn and returns its
// ref. A thread never holds two consecutive placeholders: opening a second
// one before the first is sealed fails.
func (c *Cache) OpenPlaceholder(threadID string) (TurnRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.threadLocked(threadID)
	if t == nil {
		return TurnRef{}, fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	}
	if n := len(t.Turns); n > 0 && !t.Turns[n-1].Sealed {
		return TurnRef{}, fmt.Errorf("%w: %s", ErrPlaceholderOpen, threadID)
	}

	t.Turns = append(t.Turns, chat.Turn{Role: chat.RoleAssistant})
	t.UpdatedAt = c.cfg.Now()
	ref := TurnRef{ThreadID: threadID, Index: len(t.Turns) - 1}

	c.mirrorThreadsLocked()
	c.emitLocked(Event{Kind: EventThreadUpdated, ThreadID: threadID})
	return ref, nil
}

// AppendFragment republishes the referenced turn's content as the given
// accumulator value. Fragments arriving after the turn was sealed are
// discarded silently; a turn accepts content only between its creation and
// its sealing call.
func (c *Cache) AppendFragment(ref TurnRef, accumulated string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	turn, err := c.turnLocked(ref)
	if err != nil {
		return err
	}
	if turn.Sealed {
		c.logger.Debug("fragment after seal discarded", "thread_id", ref.ThreadID, "turn", ref.Index)
		return nil
	}

	turn.Content = accumulated
	c.threadLocked(ref.ThreadID).UpdatedAt = c.cfg.Now()

	c.mirrorThreadsLocked()
	c.emitLocked(Event{Kind: EventThreadUpdated, ThreadID: ref.ThreadID})
	return nil
}

// SealTurn freezes the referenced turn with its final content. Sealing is
// idempotent: sealing an already-sealed turn is a no-op and does not alter
// its content.
func (c *Cache) SealTurn(ref TurnRef, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	turn, err := c.turnLocked(ref)
	if err != nil {
		return err
	}
	if turn.Sealed {
		return nil
	}

	turn.Content = content
	turn.Sealed = true
	c.threadLocked(ref.ThreadID).UpdatedAt = c.cfg.Now()

	c.mirrorThreadsLocked()
	c.emitLocked(Event{Kind: EventThreadUpdated, ThreadID: ref.ThreadID})
	return nil
}

// RenameThread updates a thread's title.
func (c *Cache) RenameThread(id, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.threadLocked(id)
	if t == nil {
		return fmt.Errorf("%w: %s", ErrThreadNotFound, id)
	}
	t.Title = title
	t.UpdatedAt = c.cfg.Now()

	c.mirrorThreadsLocked()
	c.emitLocked(Event{Kind: EventThreadUpdated, ThreadID: id})
	return nil
}

// DeleteThread removes a thread. Deleting the active thread clears the
// active selection.
func (c *Cache) DeleteThread(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, t := range c.threads {
		if t.ID != id {
			continue
		}
		c.threads = append(c.threads[:i], c.threads[i+1:]...)
		if c.activeThreadID == id {
			c.activeThreadID = ""
		}
		c.mirrorThreadsLocked()
		c.emitLocked(Event{Kind: EventThreadDeleted, ThreadID: id})
		return nil
	}
	return fmt.Errorf("%w: %s", ErrThreadNotFound, id)
}

// AddFact inserts a fact unless its text already exists verbatim in the
// corpus. Returns the stored fact and whether it was newly inserted.
func (c *Cache) AddFact(content string) (chat.Fact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, f := range c.facts {
		if f.Content == content {
			return f, false
		}
	}

	fact := chat.Fact{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedAt: c.cfg.Now(),
	}
	c.facts = append(c.facts, fact)

	c.mirrorFactsLocked()
	c.emitLocked(Event{Kind: EventFactsUpdated})
	return fact, true
}

// EditFact replaces a fact's content.
func (c *Cache) EditFact(id, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.facts {
		if c.facts[i].ID != id {
			continue
		}
		c.facts[i].Content = content
		c.mirrorFactsLocked()
		c.emitLocked(Event{Kind: EventFactsUpdated})
		return nil
	}
	return fmt.Errorf("%w: %s", ErrFactNotFound, id)
}

// DeleteFact removes a fact by id.
func (c *Cache) DeleteFact(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.facts {
		if c.facts[i].ID != id {
			continue
		}
		c.facts = append(c.facts[:i], c.facts[i+1:]...)
		c.mirrorFactsLocked()
		c.emitLocked(Event{Kind: EventFactsUpdated})
		return nil
	}
	return fmt.Errorf("%w: %s", ErrFactNotFound, id)
}

// AddScore increments the relationship score. The score only grows under
// normal operation (+1 per completed exchange, +5 per gift).
func (c *Cache) AddScore(delta int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.score += delta
	c.mirrorScoreLocked()
	c.emitLocked(Event{Kind: EventScoreUpdated})
	return c.score
}

// SetMood updates the current mood tag on both the session and the user
// identity.
func (c *Cache) SetMood(mood string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mood = mood
	c.user.Mood = mood
	c.mirrorMoodLocked()
	c.mirrorUserLocked()
	c.emitLocked(Event{Kind: EventMoodUpdated})
}

func (c *Cache) turnLocked(ref TurnRef) (*chat.Turn, error) {
	t := c.threadLocked(ref.ThreadID)
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrThreadNotFound, ref.ThreadID)
	}
	if ref.Index < 0 || ref.Index >= len(t.Turns) {
		return nil, fmt.Errorf("%w: %s[%d]", ErrTurnNotFound, ref.ThreadID, ref.Index)
	}
	return &t.Turns[ref.Index], nil
}

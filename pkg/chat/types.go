// Package chat defines the data contract shared by the session cache, the
// sync engine, and the remote store: users, threads, turns, facts, and the
// full-state snapshot exchanged with the remote mirror.
package chat

import "time"

// Role identifies the author of a turn.
type Role string

// Turn roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a thread. Content is mutable only while the
// turn is streaming; once sealed it is frozen. Position is implicit: a turn's
// index in its owning thread is its chronological position.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Sealed  bool   `json:"sealed"`
}

// Thread is an ordered conversation. Turns are append-only and chronological.
type Thread struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Turns     []Turn    `json:"turns"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the thread. Observers and the sync engine
// receive clones so in-flight mutation never aliases their view.
func (t *Thread) Clone() *Thread {
	c := *t
	c.Turns = make([]Turn, len(t.Turns))
	copy(c.Turns, t.Turns)
	return &c
}

// Fact is a piece of long-term memory derived from conversation content.
// Facts carry no ordering invariant; presentation sorts by recency.
type Fact struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// User is the owning identity for a snapshot. CredentialHash is opaque to
// everything except the auth service.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"display_name,omitempty"`
	CredentialHash string    `json:"credential_hash,omitempty"`
	JoinedAt       time.Time `json:"joined_at"`
	Mood           string    `json:"mood,omitempty"`
}

// Snapshot is the full serializable state of one user at a point in time.
// It is what the sync engine pushes to the remote store and what a pull
// reconstructs the session from.
type Snapshot struct {
	User    User      `json:"user"`
	Threads []*Thread `json:"threads"`
	Facts   []Fact    `json:"facts"`
	Score   int       `json:"score"`
	Mood    string    `json:"mood,omitempty"`
}

// titleLimit is the maximum rune length of a derived thread title.
const titleLimit = 30

// DeriveTitle builds a thread title from the first user message: the first
// 30 runes, ellipsis-suffixed when truncated.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleLimit {
		return text
	}
	return string(runes[:titleLimit]) + "…"
}

package session

// EventKind discriminates what a mutation event refers to.
type EventKind string

// Mutation event kinds delivered to observers.
const (
	EventThreadCreated EventKind = "thread_created"
	EventThreadUpdated EventKind = "thread_updated"
	EventThreadDeleted EventKind = "thread_deleted"
	EventThreadsLoaded EventKind = "threads_loaded"
	EventFactsUpdated  EventKind = "facts_updated"
	EventScoreUpdated  EventKind = "score_updated"
	EventMoodUpdated   EventKind = "mood_updated"
)

// Event describes one applied mutation. ThreadID is set for thread-scoped
// events and empty otherwise.
type Event struct {
	Kind     EventKind
	ThreadID string
}

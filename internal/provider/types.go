package provider

// MessageRole identifies the sender of a message in a conversation.
type MessageRole string

// MessageRole constants for conversation messages.
const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message represents a single role/text pair in a conversation history.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Request is the input to a Provider.Complete or Provider.Stream call.
// Facts is the serialized long-term memory corpus and Mood the user's
// current mood tag; both are contextual parameters the provider folds
// into its prompt.
type Request struct {
	Messages    []Message `json:"messages"`
	Facts       string    `json:"facts,omitempty"`
	Mood        string    `json:"mood,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Response is the output of a Provider.Complete call.
type Response struct {
	Content string `json:"content"`
}

// StreamChunk represents one text fragment of a streaming completion.
// A chunk carries either content or a mid-stream error, never both.
type StreamChunk struct {
	Content string `json:"content,omitempty"`
	Err     error  `json:"-"`
}

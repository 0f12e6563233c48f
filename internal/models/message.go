package models

import "time"

// Role represents the role of a message participant.
type Role string

const (
	// RoleUser represents a message typed by the person using the widget.
	RoleUser Role = "user"
	// RoleAssistant represents a message produced by the language model, including the
	// placeholder that is filled in while a response streams.
	RoleAssistant Role = "assistant"
)

// Message represents an individual entry in the transcript. Text is mutated in place while a
// response streams and is final once the stream ends. Failed marks an assistant message whose
// stream ended in an error, so its text is an error indication instead of model output.
type Message struct {
	ID        string
	Role      Role
	Text      string
	Timestamp time.Time

	Failed bool
}

// Streaming states used by the templates to mark how a message should be presented.
const (
	StreamingStateLoading   = "loading"
	StreamingStateStreaming = "streaming"
	StreamingStateEnded     = "ended"
)

// ExportLabel returns the heading label used for this role in exported transcripts.
func (r Role) ExportLabel() string {
	if r == RoleAssistant {
		return "Bot"
	}
	return "User"
}

package domain

import "time"

// PersistOp names a call to the backend made after a local mutation.
type PersistOp string

// Persistence operations.
const (
	OpCreateHighlight PersistOp = "create_highlight"
	OpUpdateHighlight PersistOp = "update_highlight"
	OpDeleteHighlight PersistOp = "delete_highlight"
	OpSaveAnnotation  PersistOp = "save_annotation"
	OpSendChatMessage PersistOp = "send_chat_message"
)

// IsValid returns true if the operation is recognised.
func (o PersistOp) IsValid() bool {
	return o.Replayable() || o == OpSendChatMessage
}

// Replayable reports whether a failed call can be queued in the outbox.
// Chat messages are answered by a fallback reply instead.
func (o PersistOp) Replayable() bool {
	switch o {
	case OpCreateHighlight, OpUpdateHighlight, OpDeleteHighlight, OpSaveAnnotation:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (o PersistOp) String() string {
	return string(o)
}

// OutboxEntry is a failed persistence call waiting to be replayed.
type OutboxEntry struct {
	ID         string
	DocumentID string
	Op         PersistOp

	// EntityID is the highlight or annotation the call targets.
	EntityID string

	// Payload is the JSON-encoded call arguments.
	Payload []byte

	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

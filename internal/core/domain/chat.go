package domain

import "time"

// ChatRole is the author of a chat message.
type ChatRole string

// Available roles.
const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of a conversation about a document.
type ChatMessage struct {
	ID      string
	Role    ChatRole
	Content string

	// HighlightIDs is a copy of the context set taken when the message was sent.
	HighlightIDs []string

	// Degraded marks assistant replies synthesised locally after the backend failed.
	Degraded bool

	CreatedAt time.Time
}

// Clone returns a copy that shares no slices with m.
func (m ChatMessage) Clone() ChatMessage {
	if m.HighlightIDs != nil {
		ids := make([]string, len(m.HighlightIDs))
		copy(ids, m.HighlightIDs)
		m.HighlightIDs = ids
	}
	return m
}

// ChatReply is the backend's answer to a chat message.
type ChatReply struct {
	Text string
}

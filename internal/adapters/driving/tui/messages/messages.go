// Package messages defines Bubbletea message types for the reader.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driving"
)

// Mode is what the keyboard is currently driving.
type Mode int

const (
	// ModeBrowse moves through highlights.
	ModeBrowse Mode = iota
	// ModeNote composes a note for the sidebar target or current page.
	ModeNote
	// ModeChat composes a question about the chat context.
	ModeChat
	// ModeComment edits the comment on the highlight under the cursor.
	ModeComment
	// ModeHelp shows the keybindings.
	ModeHelp
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeBrowse:
		return "browse"
	case ModeNote:
		return "note"
	case ModeChat:
		return "chat"
	case ModeComment:
		return "comment"
	case ModeHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Composing reports whether the mode takes text input.
func (m Mode) Composing() bool {
	return m == ModeNote || m == ModeChat || m == ModeComment
}

// ModeChanged is sent when the keyboard switches mode.
type ModeChanged struct {
	Mode Mode
}

// DocumentOpened carries the session for the document being read.
type DocumentOpened struct {
	Session driving.DocumentSession
	Err     error
}

// PersistCompleted carries the outcome of one background call.
type PersistCompleted struct {
	Result driving.PersistResult
}

// EventsClosed signals the session stopped delivering results.
type EventsClosed struct{}

// ReplayTick asks the reader to replay unsaved changes.
type ReplayTick struct{}

// OutboxReplayed carries the outcome of a replay.
type OutboxReplayed struct {
	Report *driving.ReplayReport
	Err    error
}

// SettingsLoaded carries the application settings.
type SettingsLoaded struct {
	Settings *domain.AppSettings
	Err      error
}

// ConfigChanged signals the settings file changed on disk.
type ConfigChanged struct{}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

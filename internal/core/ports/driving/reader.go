package driving

import (
	"context"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

// ReaderService opens documents for reading and annotation.
type ReaderService interface {
	// Open loads a document's highlights and annotations and starts a session.
	// Returns domain.ErrNotFound if the backend does not know the document.
	Open(ctx context.Context, documentID string) (DocumentSession, error)
}

// DocumentSession is the state of one open document: its highlights,
// annotations, chat context, conversation and sidebar focus.
//
// Mutations change local state before they return and persist to the
// backend in the background. A failed persistence call never undoes the
// local change; it is reported on Events and, when possible, queued for replay.
type DocumentSession interface {
	// Document returns the open document.
	Document() domain.Document

	// Identity returns the user the session acts for.
	Identity() domain.Identity

	// Select turns a selection into a highlight.
	// Returns nil without error if the selection has no usable geometry.
	Select(ctx context.Context, sel domain.Selection) (*domain.Highlight, error)

	// UpdateHighlight merges the patch into an existing highlight.
	UpdateHighlight(ctx context.Context, highlightID string, patch domain.HighlightPatch) error

	// DeleteHighlight removes a highlight, orphans annotations that referenced it
	// and drops it from the chat context.
	DeleteHighlight(ctx context.Context, highlightID string) error

	// Highlights returns the highlights in creation order.
	Highlights() []domain.Highlight

	// Highlight returns a single highlight.
	Highlight(highlightID string) (*domain.Highlight, error)

	// SaveAnnotation saves a note. Returns nil without error if the content is blank.
	SaveAnnotation(ctx context.Context, draft domain.AnnotationDraft) (*domain.Annotation, error)

	// ClearAnnotationTarget deselects the highlight new notes are attached to.
	ClearAnnotationTarget()

	// Annotations returns the annotations in creation order.
	Annotations() []domain.Annotation

	// ResolveAnnotation returns the live highlight an annotation refers to.
	ResolveAnnotation(a domain.Annotation) (*domain.Highlight, bool)

	// AddToContext puts a highlight into the chat context and focuses the chat panel.
	// Returns domain.ErrSessionClosed after Close.
	AddToContext(highlightID string) error

	// RemoveFromContext drops a highlight from the chat context.
	// Returns false if it was not there.
	RemoveFromContext(highlightID string) bool

	// Context returns the highlight IDs in the chat context, in insertion order.
	Context() []string

	// SendMessage appends a user message and asks the backend for a reply.
	// The reply, or a fallback if the backend fails, is appended later.
	// Returns nil without error if the text is blank.
	SendMessage(ctx context.Context, text string) (*domain.ChatMessage, error)

	// Messages returns the conversation in append order.
	Messages() []domain.ChatMessage

	// ClickHighlight routes the sidebar for a click on an existing highlight.
	// Returns domain.ErrSessionClosed after Close.
	ClickHighlight(highlightID string) (domain.SidebarState, error)

	// Sidebar returns the current sidebar focus.
	Sidebar() domain.SidebarState

	// SetSidebarPanel switches panels without changing the selection.
	SetSidebarPanel(panel domain.SidebarPanel)

	// SetPage records the page currently in view.
	SetPage(page int)

	// Page returns the page currently in view.
	Page() int

	// Events delivers the outcome of background persistence calls.
	Events() <-chan PersistResult

	// Flush replays this document's outbox.
	Flush(ctx context.Context) (*ReplayReport, error)

	// Wait blocks until every background call issued so far has finished.
	Wait()

	// Close waits for background calls, bounded by ctx, and ends the session.
	Close(ctx context.Context) error
}

// PersistResult is the outcome of one background persistence call.
type PersistResult struct {
	Op         domain.PersistOp
	DocumentID string
	EntityID   string

	// Err is nil on success.
	Err error

	// Queued is true if the failed call was stored in the outbox.
	Queued bool
}

// ReplayReport summarises an outbox replay.
type ReplayReport struct {
	Replayed int
	Failed   int

	// Skipped counts entries that exhausted their attempts.
	Skipped int

	Remaining []domain.OutboxEntry
}

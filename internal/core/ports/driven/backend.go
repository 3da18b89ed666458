package driven

import (
	"context"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

// Backend is the remote API that owns the persisted copy of a document's
// highlights, annotations and conversations.
//
// Every call except GetDocumentAnnotations is issued after local state has
// already changed. Implementations map transport failures to
// domain.ErrBackendUnavailable, 404 to domain.ErrNotFound and 429 to
// domain.ErrRateLimited.
type Backend interface {
	// CreateHighlight persists a new highlight under the client-generated ID.
	CreateHighlight(ctx context.Context, documentID string, in domain.HighlightInput) (*domain.Highlight, error)

	// UpdateHighlight applies a partial update.
	UpdateHighlight(ctx context.Context, documentID, highlightID string, patch domain.HighlightPatch) error

	// DeleteHighlight removes a highlight.
	DeleteHighlight(ctx context.Context, documentID, highlightID string) error

	// SaveAnnotation persists a note.
	SaveAnnotation(ctx context.Context, documentID string, in domain.AnnotationInput) error

	// SendChatMessage asks the assistant about the document.
	// highlightIDs are the passages the user put in context.
	SendChatMessage(ctx context.Context, documentID, text string, highlightIDs []string) (*domain.ChatReply, error)

	// GetDocumentAnnotations loads the document with its highlights and annotations.
	GetDocumentAnnotations(ctx context.Context, documentID string) (*domain.DocumentSnapshot, error)
}

package domain

import "time"

// AnnotationKind classifies annotations.
type AnnotationKind string

// Available annotation kinds.
const (
	// AnnotationNote is a note linked to a highlight.
	AnnotationNote AnnotationKind = "note"

	// AnnotationFree is a note attached to a page only.
	AnnotationFree AnnotationKind = "free"

	// AnnotationBookmark marks a page.
	AnnotationBookmark AnnotationKind = "bookmark"
)

// IsValid returns true if the kind is recognised.
func (k AnnotationKind) IsValid() bool {
	switch k {
	case AnnotationNote, AnnotationFree, AnnotationBookmark:
		return true
	default:
		return false
	}
}

// Annotation is a free-text note on a document.
type Annotation struct {
	ID      string
	Kind    AnnotationKind
	Content string

	// Page is 1-based.
	Page int

	// HighlightID is a weak reference to the highlight the note was written
	// against. It is resolved at display time and may point at a deleted highlight.
	HighlightID string

	// HighlightText is the highlight's text as it was when the note was saved.
	HighlightText string

	// Position is the linked highlight's position, if any.
	Position *Position

	// Orphaned is set once the linked highlight has been deleted.
	Orphaned bool

	CreatedAt time.Time
}

// Linked reports whether the annotation still refers to a live highlight.
func (a *Annotation) Linked() bool {
	return a.HighlightID != "" && !a.Orphaned
}

// AnnotationInput is the payload sent to the backend when an annotation is saved.
type AnnotationInput struct {
	ID          string
	Kind        AnnotationKind
	Content     string
	Page        int
	HighlightID string
	Position    *Position
}

// AnnotationDraft is what the reader typed.
type AnnotationDraft struct {
	Content string

	// Page overrides the session's current page when set.
	Page *int
}

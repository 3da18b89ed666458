package services

import (
	"fmt"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

// AnnotationStore is the append-only, in-memory list of a document's annotations.
// It is not safe for concurrent use; DocumentSession serialises access.
type AnnotationStore struct {
	items []domain.Annotation
	ids   map[string]struct{}
}

// NewAnnotationStore creates a store seeded with annotations in the given order.
func NewAnnotationStore(initial ...domain.Annotation) *AnnotationStore {
	s := &AnnotationStore{ids: make(map[string]struct{}, len(initial))}
	for _, a := range initial {
		_ = s.Append(a)
	}
	return s
}

// Append adds an annotation at the end.
func (s *AnnotationStore) Append(a domain.Annotation) error {
	if a.ID == "" {
		return fmt.Errorf("annotation without id: %w", domain.ErrInvalidInput)
	}
	if _, ok := s.ids[a.ID]; ok {
		return fmt.Errorf("annotation %s: %w", a.ID, domain.ErrAlreadyExists)
	}
	a.Position = a.Position.Clone()
	s.items = append(s.items, a)
	s.ids[a.ID] = struct{}{}
	return nil
}

// List returns copies of all annotations in insertion order.
func (s *AnnotationStore) List() []domain.Annotation {
	out := make([]domain.Annotation, len(s.items))
	for i, a := range s.items {
		a.Position = a.Position.Clone()
		out[i] = a
	}
	return out
}

// Len returns the number of annotations.
func (s *AnnotationStore) Len() int {
	return len(s.items)
}

// LinkedTo returns the live annotations that reference a highlight.
func (s *AnnotationStore) LinkedTo(highlightID string) []domain.Annotation {
	var out []domain.Annotation
	for _, a := range s.items {
		if a.Linked() && a.HighlightID == highlightID {
			a.Position = a.Position.Clone()
			out = append(out, a)
		}
	}
	return out
}

// HasLinked reports whether any live annotation references the highlight.
func (s *AnnotationStore) HasLinked(highlightID string) bool {
	for i := range s.items {
		if s.items[i].Linked() && s.items[i].HighlightID == highlightID {
			return true
		}
	}
	return false
}

// Orphan marks every annotation referencing the highlight as orphaned and
// returns how many changed. The annotations themselves are kept.
func (s *AnnotationStore) Orphan(highlightID string) int {
	n := 0
	for i := range s.items {
		if s.items[i].HighlightID == highlightID && !s.items[i].Orphaned {
			s.items[i].Orphaned = true
			n++
		}
	}
	return n
}

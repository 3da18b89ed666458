package services

import (
	"fmt"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

// HighlightStore is the ordered, in-memory set of a document's highlights.
// It is not safe for concurrent use; DocumentSession serialises access.
type HighlightStore struct {
	order []string
	byID  map[string]domain.Highlight
}

// NewHighlightStore creates a store seeded with highlights in the given order.
// Later duplicates of an ID are ignored.
func NewHighlightStore(initial ...domain.Highlight) *HighlightStore {
	s := &HighlightStore{byID: make(map[string]domain.Highlight, len(initial))}
	for _, h := range initial {
		_ = s.Append(h)
	}
	return s
}

// Append adds a highlight at the end.
func (s *HighlightStore) Append(h domain.Highlight) error {
	if h.ID == "" {
		return fmt.Errorf("highlight without id: %w", domain.ErrInvalidInput)
	}
	if _, ok := s.byID[h.ID]; ok {
		return fmt.Errorf("highlight %s: %w", h.ID, domain.ErrAlreadyExists)
	}
	s.order = append(s.order, h.ID)
	s.byID[h.ID] = h.Clone()
	return nil
}

// Update merges patch into the highlight and returns the result.
func (s *HighlightStore) Update(id string, patch domain.HighlightPatch) (domain.Highlight, error) {
	h, ok := s.byID[id]
	if !ok {
		return domain.Highlight{}, fmt.Errorf("highlight %s: %w", id, domain.ErrNotFound)
	}
	patch.Apply(&h)
	s.byID[id] = h
	return h.Clone(), nil
}

// Delete removes a highlight and returns it.
func (s *HighlightStore) Delete(id string) (domain.Highlight, error) {
	h, ok := s.byID[id]
	if !ok {
		return domain.Highlight{}, fmt.Errorf("highlight %s: %w", id, domain.ErrNotFound)
	}
	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return h, nil
}

// Get returns a copy of a highlight.
func (s *HighlightStore) Get(id string) (domain.Highlight, bool) {
	h, ok := s.byID[id]
	if !ok {
		return domain.Highlight{}, false
	}
	return h.Clone(), true
}

// Contains reports whether id is present.
func (s *HighlightStore) Contains(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// List returns copies of all highlights in insertion order.
func (s *HighlightStore) List() []domain.Highlight {
	out := make([]domain.Highlight, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].Clone())
	}
	return out
}

// Len returns the number of highlights.
func (s *HighlightStore) Len() int {
	return len(s.order)
}

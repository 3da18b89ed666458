package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driven"
)

// Ensure OutboxStore implements the interface.
var _ driven.OutboxStore = (*OutboxStore)(nil)

// OutboxStore is an in-memory implementation of driven.OutboxStore.
type OutboxStore struct {
	mu      sync.RWMutex
	entries map[string]domain.OutboxEntry
	seq     map[string]int64
	next    int64
}

// NewOutboxStore creates a new in-memory outbox store.
func NewOutboxStore() *OutboxStore {
	return &OutboxStore{
		entries: make(map[string]domain.OutboxEntry),
		seq:     make(map[string]int64),
	}
}

// Enqueue stores a new entry.
func (s *OutboxStore) Enqueue(_ context.Context, entry domain.OutboxEntry) error {
	if entry.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[entry.ID]; exists {
		return domain.ErrAlreadyExists
	}
	entry.Payload = append([]byte(nil), entry.Payload...)
	s.entries[entry.ID] = entry
	s.next++
	s.seq[entry.ID] = s.next
	return nil
}

// List returns the entries for a document in insertion order.
// An empty documentID lists every entry.
func (s *OutboxStore) List(_ context.Context, documentID string) ([]domain.OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.OutboxEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if documentID != "" && e.DocumentID != documentID {
			continue
		}
		e.Payload = append([]byte(nil), e.Payload...)
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		return s.seq[result[i].ID] < s.seq[result[j].ID]
	})
	return result, nil
}

// MarkFailed records a failed replay attempt.
func (s *OutboxStore) MarkFailed(_ context.Context, id, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Attempts++
	e.LastError = errMsg
	e.UpdatedAt = time.Now()
	s.entries[id] = e
	return nil
}

// Delete removes an entry.
func (s *OutboxStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	delete(s.seq, id)
	return nil
}

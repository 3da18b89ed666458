package driven

import (
	"context"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

// OutboxStore persists persistence calls that failed so they can be replayed.
type OutboxStore interface {
	// Enqueue stores a new entry.
	Enqueue(ctx context.Context, entry domain.OutboxEntry) error

	// List returns the entries for a document, oldest first.
	// An empty documentID lists every entry.
	List(ctx context.Context, documentID string) ([]domain.OutboxEntry, error)

	// MarkFailed records a failed replay attempt.
	MarkFailed(ctx context.Context, id string, errMsg string) error

	// Delete removes an entry after a successful replay.
	Delete(ctx context.Context, id string) error
}

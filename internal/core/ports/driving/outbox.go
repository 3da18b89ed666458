package driving

import (
	"context"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

// OutboxService inspects and replays failed persistence calls.
type OutboxService interface {
	// List returns queued entries. An empty documentID lists all of them.
	List(ctx context.Context, documentID string) ([]domain.OutboxEntry, error)

	// Replay retries a document's entries oldest first.
	Replay(ctx context.Context, documentID string) (*ReplayReport, error)
}

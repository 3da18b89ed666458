package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driven"
	"github.com/custodia-labs/marginalia/internal/core/ports/driving"
	"github.com/custodia-labs/marginalia/internal/logger"
)

// Ensure OutboxService implements the interface.
var _ driving.OutboxService = (*OutboxService)(nil)

// DefaultMaxAttempts is used when no attempt limit is configured.
const DefaultMaxAttempts = 5

// OutboxService queues failed persistence calls and replays them on request.
// Nothing is retried automatically.
type OutboxService struct {
	store       driven.OutboxStore
	backend     driven.Backend
	maxAttempts int
	now         func() time.Time
}

// NewOutboxService creates an outbox service. A nil store disables queueing.
func NewOutboxService(store driven.OutboxStore, backend driven.Backend, maxAttempts int) *OutboxService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &OutboxService{
		store:       store,
		backend:     backend,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Enabled reports whether failed calls can be queued.
func (s *OutboxService) Enabled() bool {
	return s != nil && s.store != nil
}

// updatePayload wraps a patch so an empty patch still encodes as an object.
type updatePayload struct {
	Patch domain.HighlightPatch
}

// Enqueue records a failed call. payload must be the argument the call was made with.
func (s *OutboxService) Enqueue(
	ctx context.Context,
	documentID string,
	op domain.PersistOp,
	entityID string,
	payload any,
	cause error,
) error {
	if !s.Enabled() {
		return domain.ErrNotFound
	}
	if !op.Replayable() {
		return fmt.Errorf("%w: %s cannot be queued", domain.ErrInvalidInput, op)
	}

	if patch, ok := payload.(domain.HighlightPatch); ok {
		payload = updatePayload{Patch: patch}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", op, err)
	}

	now := s.now().UTC()
	entry := domain.OutboxEntry{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Op:         op,
		EntityID:   entityID,
		Payload:    data,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if cause != nil {
		entry.LastError = cause.Error()
	}
	return s.store.Enqueue(ctx, entry)
}

// List returns queued entries.
func (s *OutboxService) List(ctx context.Context, documentID string) ([]domain.OutboxEntry, error) {
	if !s.Enabled() {
		return nil, nil
	}
	return s.store.List(ctx, documentID)
}

// Replay retries a document's entries oldest first.
//
// Once an entry for an entity fails or is skipped, later entries for the same
// entity wait for the next replay so calls reach the backend in order.
func (s *OutboxService) Replay(ctx context.Context, documentID string) (*driving.ReplayReport, error) {
	report := &driving.ReplayReport{}
	if !s.Enabled() {
		return report, nil
	}

	entries, err := s.store.List(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing outbox: %w", err)
	}

	logger.Section("Outbox Replay")
	blocked := make(map[string]bool)
	for i := range entries {
		e := entries[i]
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if blocked[e.EntityID] {
			report.Remaining = append(report.Remaining, e)
			continue
		}
		if e.Attempts >= s.maxAttempts {
			logger.Debug("skipping %s %s after %d attempts", e.Op, e.EntityID, e.Attempts)
			blocked[e.EntityID] = true
			report.Skipped++
			report.Remaining = append(report.Remaining, e)
			continue
		}

		if err := s.replay(ctx, e); err != nil {
			logger.Warn("replaying %s %s: %v", e.Op, e.EntityID, err)
			if markErr := s.store.MarkFailed(ctx, e.ID, err.Error()); markErr != nil {
				return nil, fmt.Errorf("recording failed replay: %w", markErr)
			}
			e.Attempts++
			e.LastError = err.Error()
			blocked[e.EntityID] = true
			report.Failed++
			report.Remaining = append(report.Remaining, e)
			continue
		}

		if err := s.store.Delete(ctx, e.ID); err != nil {
			return nil, fmt.Errorf("removing replayed entry: %w", err)
		}
		logger.Debug("replayed %s %s", e.Op, e.EntityID)
		report.Replayed++
	}

	return report, nil
}

// replay re-issues a single call.
func (s *OutboxService) replay(ctx context.Context, e domain.OutboxEntry) error {
	if s.backend == nil {
		return domain.ErrBackendUnavailable
	}

	switch e.Op {
	case domain.OpCreateHighlight:
		var in domain.HighlightInput
		if err := json.Unmarshal(e.Payload, &in); err != nil {
			return fmt.Errorf("decoding payload: %w", err)
		}
		_, err := s.backend.CreateHighlight(ctx, e.DocumentID, in)
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil
		}
		return err

	case domain.OpUpdateHighlight:
		var p updatePayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return fmt.Errorf("decoding payload: %w", err)
		}
		return s.backend.UpdateHighlight(ctx, e.DocumentID, e.EntityID, p.Patch)

	case domain.OpDeleteHighlight:
		err := s.backend.DeleteHighlight(ctx, e.DocumentID, e.EntityID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err

	case domain.OpSaveAnnotation:
		var in domain.AnnotationInput
		if err := json.Unmarshal(e.Payload, &in); err != nil {
			return fmt.Errorf("decoding payload: %w", err)
		}
		err := s.backend.SaveAnnotation(ctx, e.DocumentID, in)
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil
		}
		return err

	default:
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, e.Op)
	}
}

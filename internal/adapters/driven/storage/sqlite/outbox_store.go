package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driven"
)

// outboxStore implements driven.OutboxStore.
type outboxStore struct {
	store *Store
}

var _ driven.OutboxStore = (*outboxStore)(nil)

// Enqueue stores a new entry.
func (s *outboxStore) Enqueue(ctx context.Context, entry domain.OutboxEntry) error {
	if entry.ID == "" {
		return domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = now
	}
	if entry.Payload == nil {
		entry.Payload = []byte("{}")
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO outbox (id, document_id, op, entity_id, payload, attempts, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.DocumentID, string(entry.Op), entry.EntityID, entry.Payload,
		entry.Attempts, entry.LastError, entry.CreatedAt.UTC(), entry.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("enqueueing %s: %w", entry.Op, err)
	}
	return nil
}

// List returns the entries for a document, oldest first.
func (s *outboxStore) List(ctx context.Context, documentID string) ([]domain.OutboxEntry, error) {
	query := `
		SELECT id, document_id, op, entity_id, payload, attempts, last_error, created_at, updated_at
		FROM outbox`
	var args []any
	if documentID != "" {
		query += " WHERE document_id = ?"
		args = append(args, documentID)
	}
	query += " ORDER BY seq"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying outbox: %w", err)
	}
	defer rows.Close()

	var entries []domain.OutboxEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		entry, err := scanOutboxEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outbox: %w", err)
	}
	return entries, nil
}

// MarkFailed records a failed replay attempt.
func (s *outboxStore) MarkFailed(ctx context.Context, id, errMsg string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE outbox SET attempts = attempts + 1, last_error = ?, updated_at = ?
		WHERE id = ?
	`, errMsg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("marking outbox entry failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking outbox entry failed: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes an entry.
func (s *outboxStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM outbox WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting outbox entry: %w", err)
	}
	return nil
}

// scanOutboxEntry scans a single outbox row.
func scanOutboxEntry(rows *sql.Rows) (*domain.OutboxEntry, error) {
	var entry domain.OutboxEntry
	var op string
	var createdAt, updatedAt sql.NullTime

	if err := rows.Scan(&entry.ID, &entry.DocumentID, &op, &entry.EntityID, &entry.Payload,
		&entry.Attempts, &entry.LastError, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scanning outbox entry: %w", err)
	}

	entry.Op = domain.PersistOp(op)
	if createdAt.Valid {
		entry.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		entry.UpdatedAt = updatedAt.Time
	}
	return &entry, nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driven"
)

// credentialsStore implements driven.CredentialsStore.
type credentialsStore struct {
	store *Store
}

var _ driven.CredentialsStore = (*credentialsStore)(nil)

// Save stores credentials, replacing any existing session.
func (s *credentialsStore) Save(ctx context.Context, creds domain.Credentials) error {
	if creds.AccessToken == "" {
		return domain.ErrInvalidInput
	}
	if creds.UpdatedAt.IsZero() {
		creds.UpdatedAt = time.Now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO credentials (id, user_id, email, access_token, refresh_token, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			email = excluded.email,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, creds.UserID, creds.Email, creds.AccessToken, creds.RefreshToken,
		nullTime(creds.ExpiresAt), creds.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	return nil
}

// Get returns the current session.
func (s *credentialsStore) Get(ctx context.Context) (*domain.Credentials, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT user_id, email, access_token, refresh_token, expires_at, updated_at
		FROM credentials WHERE id = 1
	`)

	var creds domain.Credentials
	var expiresAt, updatedAt sql.NullTime
	if err := row.Scan(&creds.UserID, &creds.Email, &creds.AccessToken, &creds.RefreshToken,
		&expiresAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning credentials: %w", err)
	}

	if expiresAt.Valid {
		creds.ExpiresAt = expiresAt.Time
	}
	if updatedAt.Valid {
		creds.UpdatedAt = updatedAt.Time
	}
	return &creds, nil
}

// Delete removes the current session.
func (s *credentialsStore) Delete(ctx context.Context) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM credentials")
	if err != nil {
		return fmt.Errorf("deleting credentials: %w", err)
	}
	return nil
}

package driven

import (
	"context"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

// CredentialsStore persists the signed-in session.
// There is at most one session per installation.
type CredentialsStore interface {
	// Save stores credentials, replacing any existing session.
	Save(ctx context.Context, creds domain.Credentials) error

	// Get returns the current session.
	// Returns domain.ErrNotFound if nobody is signed in.
	Get(ctx context.Context) (*domain.Credentials, error)

	// Delete removes the current session. Deleting nothing is not an error.
	Delete(ctx context.Context) error
}

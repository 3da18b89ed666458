package driving

import (
	"context"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

// AuthService manages the signed-in session used for backend calls.
type AuthService interface {
	// SignIn authenticates with email and password and stores the session.
	SignIn(ctx context.Context, email, password string) (domain.Identity, error)

	// SignUp creates an account and stores its session.
	SignUp(ctx context.Context, email, password string) (domain.Identity, error)

	// ProviderURL returns the page that starts PKCE sign-in with an
	// external provider such as github.
	ProviderURL(provider, redirectTo, challenge string) (string, error)

	// ExchangeCode completes provider sign-in and stores the session.
	ExchangeCode(ctx context.Context, code, verifier string) (domain.Identity, error)

	// SignOut forgets the stored session.
	SignOut(ctx context.Context) error

	// Identity returns the signed-in user.
	// Returns domain.ErrAuthRequired if nobody is signed in.
	Identity(ctx context.Context) (domain.Identity, error)
}

package driven

import (
	"context"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

// Authenticator signs users in against the hosted auth service.
type Authenticator interface {
	// SignIn exchanges an email and password for credentials.
	// Returns domain.ErrAuthInvalid if the service rejects them.
	SignIn(ctx context.Context, email, password string) (*domain.Credentials, error)

	// SignUp registers a new account and returns its first session.
	SignUp(ctx context.Context, email, password string) (*domain.Credentials, error)

	// Refresh exchanges a refresh token for new credentials.
	// Returns domain.ErrAuthExpired if the refresh token is no longer valid.
	Refresh(ctx context.Context, refreshToken string) (*domain.Credentials, error)
}

// ProviderAuthenticator is implemented by authenticators that can sign in
// through an external identity provider using the PKCE code flow.
type ProviderAuthenticator interface {
	// AuthorizeURL returns the page the user opens to sign in with provider.
	AuthorizeURL(provider, redirectTo, challenge string) string

	// ExchangeCode trades the code delivered to redirectTo for credentials.
	ExchangeCode(ctx context.Context, code, verifier string) (*domain.Credentials, error)
}

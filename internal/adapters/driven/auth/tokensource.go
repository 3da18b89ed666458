// Package auth adapts the signed-in session to HTTP clients.
package auth

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/marginalia/internal/core/ports/driven"
)

// TokenSourceAdapter adapts the TokenProvider interface to oauth2.TokenSource.
// The backend client uses it through oauth2.Transport for bearer auth while
// the AuthService keeps ownership of refresh.
type TokenSourceAdapter struct {
	provider driven.TokenProvider
	ctx      context.Context
}

// NewTokenSource creates an oauth2.TokenSource from a TokenProvider.
func NewTokenSource(ctx context.Context, provider driven.TokenProvider) oauth2.TokenSource {
	return &TokenSourceAdapter{
		provider: provider,
		ctx:      ctx,
	}
}

// Token implements oauth2.TokenSource interface.
func (t *TokenSourceAdapter) Token() (*oauth2.Token, error) {
	accessToken, err := t.provider.GetToken(t.ctx)
	if err != nil {
		return nil, err
	}

	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}, nil
}

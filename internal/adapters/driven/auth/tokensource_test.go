package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

type stubProvider struct {
	token string
	err   error
	calls int
}

func (s *stubProvider) GetToken(_ context.Context) (string, error) {
	s.calls++
	return s.token, s.err
}

func TestTokenSource_Token(t *testing.T) {
	provider := &stubProvider{token: "access-123"}
	ts := NewTokenSource(context.Background(), provider)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-123", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, 1, provider.calls)
}

func TestTokenSource_AsksProviderEveryTime(t *testing.T) {
	provider := &stubProvider{token: "a"}
	ts := NewTokenSource(context.Background(), provider)

	_, _ = ts.Token()
	_, _ = ts.Token()
	assert.Equal(t, 2, provider.calls)
}

func TestTokenSource_Error(t *testing.T) {
	ts := NewTokenSource(context.Background(), &stubProvider{err: domain.ErrAuthRequired})

	tok, err := ts.Token()
	assert.Nil(t, tok)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

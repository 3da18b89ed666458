package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

func TestCredentialsStore_Lifecycle(t *testing.T) {
	store := NewCredentialsStore()
	ctx := context.Background()

	_, err := store.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Save(ctx, domain.Credentials{UserID: "u1", AccessToken: "a1"}))
	require.NoError(t, store.Save(ctx, domain.Credentials{UserID: "u2", AccessToken: "a2"}))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u2", got.UserID)

	got.AccessToken = "mutated"
	again, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a2", again.AccessToken)

	require.NoError(t, store.Delete(ctx))
	_, err = store.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, store.Delete(ctx))
}

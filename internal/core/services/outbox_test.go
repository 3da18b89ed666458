package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marginalia/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/marginalia/internal/core/domain"
)

func newTestOutbox(backend *mockBackend) (*OutboxService, *memory.OutboxStore) {
	store := memory.NewOutboxStore()
	return NewOutboxService(store, backend, 3), store
}

func TestOutboxService_Disabled(t *testing.T) {
	var nilService *OutboxService
	assert.False(t, nilService.Enabled())

	svc := NewOutboxService(nil, newMockBackend(), 0)
	assert.False(t, svc.Enabled())
	assert.Equal(t, DefaultMaxAttempts, svc.maxAttempts)

	err := svc.Enqueue(context.Background(), "doc-1", domain.OpDeleteHighlight, "h1", struct{}{}, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	report, err := svc.Replay(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Zero(t, report.Replayed)

	entries, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOutboxService_Enqueue_RejectsChat(t *testing.T) {
	svc, _ := newTestOutbox(newMockBackend())

	err := svc.Enqueue(context.Background(), "doc-1", domain.OpSendChatMessage, "m1", nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOutboxService_Enqueue_RecordsCause(t *testing.T) {
	svc, store := newTestOutbox(newMockBackend())
	ctx := context.Background()

	require.NoError(t, svc.Enqueue(ctx, "doc-1", domain.OpDeleteHighlight, "h1", struct{}{}, errors.New("timeout")))

	entries, err := store.List(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, domain.OpDeleteHighlight, entries[0].Op)
	assert.Equal(t, "h1", entries[0].EntityID)
	assert.Equal(t, "timeout", entries[0].LastError)
	assert.Zero(t, entries[0].Attempts)
}

func TestOutboxService_Replay_RoundTripsPayloads(t *testing.T) {
	backend := newMockBackend()
	svc, store := newTestOutbox(backend)
	ctx := context.Background()

	h := highlight("h1")
	require.NoError(t, svc.Enqueue(ctx, "doc-1", domain.OpCreateHighlight, "h1", domain.InputFor(h), nil))
	require.NoError(t, svc.Enqueue(ctx, "doc-1", domain.OpUpdateHighlight, "h1",
		domain.HighlightPatch{Comment: strPtr("x")}, nil))
	require.NoError(t, svc.Enqueue(ctx, "doc-1", domain.OpSaveAnnotation, "n1",
		domain.AnnotationInput{ID: "n1", Kind: domain.AnnotationFree, Content: "bar", Page: 2}, nil))
	require.NoError(t, svc.Enqueue(ctx, "doc-1", domain.OpDeleteHighlight, "h1", struct{}{}, nil))

	report, err := svc.Replay(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 4, report.Replayed)
	assert.Empty(t, report.Remaining)

	calls := backend.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, domain.OpCreateHighlight, calls[0].Op)
	assert.Equal(t, "h1", calls[0].EntityID)
	assert.Equal(t, domain.OpUpdateHighlight, calls[1].Op)
	require.NotNil(t, calls[1].Patch.Comment)
	assert.Equal(t, "x", *calls[1].Patch.Comment)
	assert.Nil(t, calls[1].Patch.Color)
	assert.Equal(t, domain.OpSaveAnnotation, calls[2].Op)
	assert.Equal(t, "bar", calls[2].Text)
	assert.Equal(t, domain.OpDeleteHighlight, calls[3].Op)

	left, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestOutboxService_Replay_FailureBlocksEntity(t *testing.T) {
	backend := newMockBackend()
	svc, store := newTestOutbox(backend)
	ctx := context.Background()

	require.NoError(t, svc.Enqueue(ctx, "doc-1", domain.OpCreateHighlight, "h1", domain.InputFor(highlight("h1")), nil))
	require.NoError(t, svc.Enqueue(ctx, "doc-1", domain.OpDeleteHighlight, "h1", struct{}{}, nil))
	require.NoError(t, svc.Enqueue(ctx, "doc-1", domain.OpDeleteHighlight, "h2", struct{}{}, nil))

	backend.failWith(domain.OpCreateHighlight, domain.ErrBackendUnavailable)

	report, err := svc.Replay(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Replayed)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Remaining, 2)
	assert.Equal(t, 1, report.Remaining[0].Attempts)
	assert.Equal(t, []domain.PersistOp{domain.OpCreateHighlight}, backend.CallsFor("h1"))

	entries, err := store.List(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Attempts)
	assert.Contains(t, entries[0].LastError, "unavailable")
}

func TestOutboxService_Replay_SkipsExhausted(t *testing.T) {
	backend := newMockBackend()
	svc, store := newTestOutbox(backend)
	ctx := context.Background()

	require.NoError(t, svc.Enqueue(ctx, "doc-1", domain.OpDeleteHighlight, "h1", struct{}{}, nil))
	entries, _ := store.List(ctx, "doc-1")
	for i := 0; i < 3; i++ {
		require.NoError(t, store.MarkFailed(ctx, entries[0].ID, "boom"))
	}

	report, err := svc.Replay(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, report.Remaining, 1)
	assert.Empty(t, backend.Calls())
}

func TestOutboxService_Replay_ToleratesSettledCalls(t *testing.T) {
	backend := newMockBackend()
	svc, _ := newTestOutbox(backend)
	ctx := context.Background()

	require.NoError(t, svc.Enqueue(ctx, "doc-1", domain.OpCreateHighlight, "h1", domain.InputFor(highlight("h1")), nil))
	require.NoError(t, svc.Enqueue(ctx, "doc-1", domain.OpDeleteHighlight, "h2", struct{}{}, nil))
	backend.failWith(domain.OpCreateHighlight, domain.ErrAlreadyExists)
	backend.failWith(domain.OpDeleteHighlight, domain.ErrNotFound)

	report, err := svc.Replay(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Replayed)
	assert.Zero(t, report.Failed)
}

func TestOutboxService_Replay_OnlyTouchesDocument(t *testing.T) {
	backend := newMockBackend()
	svc, store := newTestOutbox(backend)
	ctx := context.Background()

	require.NoError(t, svc.Enqueue(ctx, "doc-1", domain.OpDeleteHighlight, "h1", struct{}{}, nil))
	require.NoError(t, svc.Enqueue(ctx, "doc-2", domain.OpDeleteHighlight, "h2", struct{}{}, nil))

	report, err := svc.Replay(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Replayed)

	left, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "doc-2", left[0].DocumentID)
}

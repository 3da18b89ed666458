package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/custodia-labs/marginalia/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driving"
)

func openSession(t *testing.T, backend *mockBackend) (*DocumentSession, *memory.OutboxStore) {
	t.Helper()
	store := memory.NewOutboxStore()
	reader := NewReaderService(backend, NewOutboxService(store, backend, 5), nil, nil, ReaderOptions{
		Identity:    domain.Identity{UserID: "user-1", Email: "reader@example.com"},
		CallTimeout: time.Second,
	})
	sess, err := reader.Open(context.Background(), "doc-1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close(context.Background()) })
	return sess.(*DocumentSession), store
}

func drain(s *DocumentSession) []driving.PersistResult {
	s.Wait()
	var out []driving.PersistResult
	for {
		select {
		case r, ok := <-s.Events():
			if !ok {
				return out
			}
			out = append(out, r)
		default:
			return out
		}
	}
}

func selectText(t *testing.T, s *DocumentSession, text string) *domain.Highlight {
	t.Helper()
	h, err := s.Select(context.Background(), textSelection(text, 1))
	require.NoError(t, err)
	require.NotNil(t, h)
	return h
}

func TestDocumentSession_Select_PersistsHighlight(t *testing.T) {
	backend := newMockBackend()
	s, _ := openSession(t, backend)

	h := selectText(t, s, "foo")

	assert.Equal(t, domain.HighlightText, h.Kind)
	assert.Equal(t, domain.DefaultTextColor, h.Color)
	require.Len(t, s.Highlights(), 1)

	events := drain(s)
	require.Len(t, events, 1)
	assert.Equal(t, domain.OpCreateHighlight, events[0].Op)
	assert.Equal(t, h.ID, events[0].EntityID)
	assert.NoError(t, events[0].Err)

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "doc-1", calls[0].DocumentID)
	assert.Equal(t, h.ID, calls[0].EntityID)
}

func TestDocumentSession_Select_WithoutGeometryIsDropped(t *testing.T) {
	backend := newMockBackend()
	s, _ := openSession(t, backend)

	h, err := s.Select(context.Background(), domain.Selection{Text: "lost", Tool: domain.ToolText})

	require.NoError(t, err)
	assert.Nil(t, h)
	assert.Empty(t, s.Highlights())
	assert.Empty(t, drain(s))
	assert.Empty(t, backend.Calls())
}

func TestDocumentSession_Select_UnknownTool(t *testing.T) {
	s, _ := openSession(t, newMockBackend())

	_, err := s.Select(context.Background(), domain.Selection{Position: usablePosition(1), Tool: "lasso"})

	assert.ErrorIs(t, err, domain.ErrUnknownTool)
	assert.Empty(t, s.Highlights())
}

func TestDocumentSession_UpdateHighlight_MergesPatches(t *testing.T) {
	backend := newMockBackend()
	s, _ := openSession(t, backend)
	ctx := context.Background()
	h := selectText(t, s, "foo")

	require.NoError(t, s.UpdateHighlight(ctx, h.ID, domain.HighlightPatch{Comment: strPtr("x")}))
	require.NoError(t, s.UpdateHighlight(ctx, h.ID, domain.HighlightPatch{Color: strPtr("y")}))

	got, err := s.Highlight(h.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Comment)
	assert.Equal(t, "y", got.Color)

	s.Wait()
	assert.Equal(t,
		[]domain.PersistOp{domain.OpCreateHighlight, domain.OpUpdateHighlight, domain.OpUpdateHighlight},
		backend.CallsFor(h.ID))
}

func TestDocumentSession_UpdateHighlight_Errors(t *testing.T) {
	backend := newMockBackend()
	s, _ := openSession(t, backend)

	err := s.UpdateHighlight(context.Background(), "missing", domain.HighlightPatch{Comment: strPtr("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	h := selectText(t, s, "foo")
	require.NoError(t, s.UpdateHighlight(context.Background(), h.ID, domain.HighlightPatch{}))
	s.Wait()
	assert.Equal(t, []domain.PersistOp{domain.OpCreateHighlight}, backend.CallsFor(h.ID))
}

func TestDocumentSession_DeleteHighlight_Cascades(t *testing.T) {
	backend := newMockBackend()
	s, _ := openSession(t, backend)
	ctx := context.Background()

	h := selectText(t, s, "foo")
	_, err := s.ClickHighlight(h.ID)
	require.NoError(t, err)
	a, err := s.SaveAnnotation(ctx, domain.AnnotationDraft{Content: "bar"})
	require.NoError(t, err)
	require.NoError(t, s.AddToContext(h.ID))

	require.NoError(t, s.DeleteHighlight(ctx, h.ID))

	assert.Empty(t, s.Highlights())
	assert.Empty(t, s.Context())
	assert.Empty(t, s.Sidebar().SelectedHighlightID)

	annotations := s.Annotations()
	require.Len(t, annotations, 1)
	assert.Equal(t, a.ID, annotations[0].ID)
	assert.True(t, annotations[0].Orphaned)
	assert.Equal(t, "foo", annotations[0].HighlightText)

	resolved, ok := s.ResolveAnnotation(annotations[0])
	assert.False(t, ok)
	assert.Nil(t, resolved)

	assert.ErrorIs(t, s.DeleteHighlight(ctx, h.ID), domain.ErrNotFound)
}

func TestDocumentSession_CallsForAnEntityKeepOrder(t *testing.T) {
	backend := newMockBackend()
	s, _ := openSession(t, backend)
	ctx := context.Background()

	gate := backend.block(domain.OpCreateHighlight)
	h := selectText(t, s, "foo")
	require.NoError(t, s.UpdateHighlight(ctx, h.ID, domain.HighlightPatch{Comment: strPtr("x")}))
	require.NoError(t, s.DeleteHighlight(ctx, h.ID))

	other := selectText(t, s, "other")
	close(gate)
	s.Wait()

	assert.Equal(t,
		[]domain.PersistOp{domain.OpCreateHighlight, domain.OpUpdateHighlight, domain.OpDeleteHighlight},
		backend.CallsFor(h.ID))
	assert.Equal(t, []domain.PersistOp{domain.OpCreateHighlight}, backend.CallsFor(other.ID))
}

func TestDocumentSession_SaveAnnotation_LinksSelectedHighlight(t *testing.T) {
	backend := newMockBackend()
	s, _ := openSession(t, backend)

	h := selectText(t, s, "foo")
	state, err := s.ClickHighlight(h.ID)
	require.NoError(t, err)
	assert.Equal(t, h.ID, state.SelectedHighlightID)

	a, err := s.SaveAnnotation(context.Background(), domain.AnnotationDraft{Content: "  bar  "})
	require.NoError(t, err)
	require.NotNil(t, a)

	annotations := s.Annotations()
	require.Len(t, annotations, 1)
	assert.Equal(t, "bar", annotations[0].Content)
	assert.Equal(t, "foo", annotations[0].HighlightText)
	assert.Equal(t, h.ID, annotations[0].HighlightID)
	assert.Equal(t, domain.AnnotationNote, annotations[0].Kind)
	require.NotNil(t, annotations[0].Position)
	assert.Equal(t, 1, annotations[0].Position.PageNumber)

	resolved, ok := s.ResolveAnnotation(annotations[0])
	require.True(t, ok)
	assert.Equal(t, h.ID, resolved.ID)

	s.Wait()
	assert.Equal(t, []domain.PersistOp{domain.OpSaveAnnotation}, backend.CallsFor(a.ID))
}

func TestDocumentSession_SaveAnnotation_EmptyIsNoOp(t *testing.T) {
	backend := newMockBackend()
	s, _ := openSession(t, backend)

	for _, content := range []string{"", "   ", "\n\t"} {
		a, err := s.SaveAnnotation(context.Background(), domain.AnnotationDraft{Content: content})
		require.NoError(t, err)
		assert.Nil(t, a)
	}

	assert.Empty(t, s.Annotations())
	s.Wait()
	assert.Empty(t, backend.Calls())
}

func TestDocumentSession_SaveAnnotation_PageDefaults(t *testing.T) {
	s, _ := openSession(t, newMockBackend())
	ctx := context.Background()

	s.SetPage(7)
	s.SetPage(0)
	assert.Equal(t, 7, s.Page())

	a, err := s.SaveAnnotation(ctx, domain.AnnotationDraft{Content: "page note"})
	require.NoError(t, err)
	assert.Equal(t, 7, a.Page)
	assert.Equal(t, domain.AnnotationFree, a.Kind)
	assert.Empty(t, a.HighlightID)
	assert.Nil(t, a.Position)

	page := 3
	b, err := s.SaveAnnotation(ctx, domain.AnnotationDraft{Content: "explicit", Page: &page})
	require.NoError(t, err)
	assert.Equal(t, 3, b.Page)
}

func TestDocumentSession_ClearAnnotationTarget(t *testing.T) {
	s, _ := openSession(t, newMockBackend())
	h := selectText(t, s, "foo")
	_, err := s.ClickHighlight(h.ID)
	require.NoError(t, err)

	s.ClearAnnotationTarget()

	a, err := s.SaveAnnotation(context.Background(), domain.AnnotationDraft{Content: "loose"})
	require.NoError(t, err)
	assert.Empty(t, a.HighlightID)
	assert.Equal(t, domain.AnnotationFree, a.Kind)
}

func TestDocumentSession_AddToContext(t *testing.T) {
	s, _ := openSession(t, newMockBackend())
	h := selectText(t, s, "foo")

	require.NoError(t, s.AddToContext(h.ID))
	require.NoError(t, s.AddToContext(h.ID))

	assert.Equal(t, []string{h.ID}, s.Context())
	assert.Equal(t, domain.PanelChat, s.Sidebar().Panel)

	assert.ErrorIs(t, s.AddToContext("missing"), domain.ErrNotFound)

	assert.True(t, s.RemoveFromContext(h.ID))
	assert.False(t, s.RemoveFromContext(h.ID))
	assert.Empty(t, s.Context())
}

func TestDocumentSession_ClickHighlight_Routes(t *testing.T) {
	s, _ := openSession(t, newMockBackend())
	ctx := context.Background()

	plain := selectText(t, s, "plain")
	inContext := selectText(t, s, "context")
	withNote := selectText(t, s, "noted")

	state, err := s.ClickHighlight(plain.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SidebarState{Panel: domain.PanelAnnotations, SelectedHighlightID: plain.ID}, state)

	_, err = s.ClickHighlight(withNote.ID)
	require.NoError(t, err)
	_, err = s.SaveAnnotation(ctx, domain.AnnotationDraft{Content: "a note"})
	require.NoError(t, err)

	state, err = s.ClickHighlight(withNote.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SidebarState{Panel: domain.PanelAnnotations}, state)

	require.NoError(t, s.AddToContext(inContext.ID))
	s.SetSidebarPanel(domain.PanelAnnotations)
	state, err = s.ClickHighlight(inContext.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PanelChat, state.Panel)

	_, err = s.ClickHighlight("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentSession_SendMessage_SnapshotsContext(t *testing.T) {
	backend := newMockBackend()
	s, _ := openSession(t, backend)
	ctx := context.Background()

	a := selectText(t, s, "A")
	b := selectText(t, s, "B")
	require.NoError(t, s.AddToContext(a.ID))
	require.NoError(t, s.AddToContext(b.ID))

	msg, err := s.SendMessage(ctx, "compare these")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.True(t, s.RemoveFromContext(a.ID))

	assert.Equal(t, []string{a.ID, b.ID}, msg.HighlightIDs)
	s.Wait()

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.ChatRoleUser, msgs[0].Role)
	assert.Equal(t, []string{a.ID, b.ID}, msgs[0].HighlightIDs)
	assert.Equal(t, domain.ChatRoleAssistant, msgs[1].Role)
	assert.Equal(t, "backend reply: compare these", msgs[1].Content)
	assert.False(t, msgs[1].Degraded)

	var chat []backendCall
	for _, c := range backend.Calls() {
		if c.Op == domain.OpSendChatMessage {
			chat = append(chat, c)
		}
	}
	require.Len(t, chat, 1)
	assert.Equal(t, []string{a.ID, b.ID}, chat[0].HighlightIDs)
}

func TestDocumentSession_SendMessage_FallsBack(t *testing.T) {
	backend := newMockBackend()
	backend.failWith(domain.OpSendChatMessage, domain.ErrBackendUnavailable)
	s, store := openSession(t, backend)

	h := selectText(t, s, "A")
	require.NoError(t, s.AddToContext(h.ID))
	_, err := s.SendMessage(context.Background(), "hello?")
	require.NoError(t, err)

	events := drain(s)
	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].Degraded)
	assert.Equal(t, StaticFallback{}.Respond(context.Background(), "", []domain.Highlight{{}}, nil), msgs[1].Content)

	var chatEvent *driving.PersistResult
	for i := range events {
		if events[i].Op == domain.OpSendChatMessage {
			chatEvent = &events[i]
		}
	}
	require.NotNil(t, chatEvent)
	assert.ErrorIs(t, chatEvent.Err, domain.ErrBackendUnavailable)
	assert.False(t, chatEvent.Queued)

	entries, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDocumentSession_SendMessage_RepliesInSendOrder(t *testing.T) {
	s, _ := openSession(t, newMockBackend())
	ctx := context.Background()

	_, err := s.SendMessage(ctx, "one")
	require.NoError(t, err)
	_, err = s.SendMessage(ctx, "two")
	require.NoError(t, err)
	msg, err := s.SendMessage(ctx, "   ")
	require.NoError(t, err)
	assert.Nil(t, msg)
	s.Wait()

	var replies []string
	for _, m := range s.Messages() {
		if m.Role == domain.ChatRoleAssistant {
			replies = append(replies, m.Content)
		}
	}
	assert.Equal(t, []string{"backend reply: one", "backend reply: two"}, replies)
	assert.Len(t, s.Messages(), 4)
}

func TestDocumentSession_FailedCallsQueueAndReplay(t *testing.T) {
	backend := newMockBackend()
	s, store := openSession(t, backend)
	ctx := context.Background()

	backend.failWith(domain.OpCreateHighlight, domain.ErrBackendUnavailable)
	h := selectText(t, s, "foo")
	events := drain(s)
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, domain.ErrBackendUnavailable)
	assert.True(t, events[0].Queued)

	// The highlight stays local.
	require.Len(t, s.Highlights(), 1)

	backend.failWith(domain.OpCreateHighlight, nil)
	require.NoError(t, s.UpdateHighlight(ctx, h.ID, domain.HighlightPatch{Comment: strPtr("x")}))
	events = drain(s)
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, ErrQueuedBehind)
	assert.True(t, events[0].Queued)
	assert.Equal(t, []domain.PersistOp{domain.OpCreateHighlight}, backend.CallsFor(h.ID))

	report, err := s.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Replayed)
	assert.Equal(t,
		[]domain.PersistOp{domain.OpCreateHighlight, domain.OpCreateHighlight, domain.OpUpdateHighlight},
		backend.CallsFor(h.ID))

	entries, err := store.List(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, s.UpdateHighlight(ctx, h.ID, domain.HighlightPatch{Color: strPtr("#000000")}))
	events = drain(s)
	require.Len(t, events, 1)
	assert.NoError(t, events[0].Err)
}

func TestDocumentSession_EditDuringFlushStaysOrdered(t *testing.T) {
	backend := newMockBackend()
	s, store := openSession(t, backend)
	ctx := context.Background()

	backend.failWith(domain.OpCreateHighlight, domain.ErrBackendUnavailable)
	h := selectText(t, s, "foo")
	drain(s)
	backend.failWith(domain.OpCreateHighlight, nil)

	gate := backend.block(domain.OpCreateHighlight)
	flushed := make(chan error, 1)
	go func() {
		_, err := s.Flush(ctx)
		flushed <- err
	}()
	require.Eventually(t, func() bool { return backend.held(domain.OpCreateHighlight) == 1 },
		time.Second, time.Millisecond)

	// The replay already listed its entries, so this edit waits for the next flush.
	require.NoError(t, s.UpdateHighlight(ctx, h.ID, domain.HighlightPatch{Color: strPtr("red")}))
	events := drain(s)
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, ErrQueuedBehind)

	close(gate)
	require.NoError(t, <-flushed)

	// Still behind the queued "red" edit.
	require.NoError(t, s.UpdateHighlight(ctx, h.ID, domain.HighlightPatch{Color: strPtr("blue")}))
	events = drain(s)
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, ErrQueuedBehind)

	report, err := s.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Replayed)

	var colors []string
	for _, c := range backend.Calls() {
		if c.Op == domain.OpUpdateHighlight && c.Patch.Color != nil {
			colors = append(colors, *c.Patch.Color)
		}
	}
	assert.Equal(t, []string{"red", "blue"}, colors)

	got, err := s.Highlight(h.ID)
	require.NoError(t, err)
	assert.Equal(t, "blue", got.Color)

	entries, err := store.List(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, s.UpdateHighlight(ctx, h.ID, domain.HighlightPatch{Comment: strPtr("done")}))
	events = drain(s)
	require.Len(t, events, 1)
	assert.NoError(t, events[0].Err)
}

func TestDocumentSession_Close_RejectsSidebarAndContext(t *testing.T) {
	s, _ := openSession(t, newMockBackend())
	ctx := context.Background()
	h := selectText(t, s, "foo")
	require.NoError(t, s.AddToContext(h.ID))
	before := s.Sidebar()

	require.NoError(t, s.Close(ctx))

	assert.ErrorIs(t, s.AddToContext(h.ID), domain.ErrSessionClosed)
	_, err := s.ClickHighlight(h.ID)
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
	assert.False(t, s.RemoveFromContext(h.ID))
	s.SetSidebarPanel(domain.PanelAnnotations)
	s.ClearAnnotationTarget()

	assert.Equal(t, before, s.Sidebar())
	assert.Equal(t, []string{h.ID}, s.Context())
}

func TestDocumentSession_Close(t *testing.T) {
	s, _ := openSession(t, newMockBackend())
	ctx := context.Background()
	selectText(t, s, "foo")

	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))

	_, err := s.Select(ctx, textSelection("late", 1))
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
	_, err = s.SaveAnnotation(ctx, domain.AnnotationDraft{Content: "late"})
	assert.ErrorIs(t, err, domain.ErrSessionClosed)

	for range s.Events() {
	}
}

func TestDocumentSession_Close_BoundedByContext(t *testing.T) {
	backend := newMockBackend()
	s, _ := openSession(t, backend)
	gate := backend.block(domain.OpCreateHighlight)
	selectText(t, s, "foo")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Close(ctx)

	assert.True(t, errors.Is(err, context.Canceled))
	close(gate)
	s.Wait()
}

// Any mix of selections produces pairwise distinct highlight IDs.
func TestDocumentSession_DistinctIDsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		backend := newMockBackend()
		reader := NewReaderService(backend, nil, nil, nil, ReaderOptions{})
		sess, err := reader.Open(context.Background(), "doc-1")
		if err != nil {
			rt.Fatalf("Open: %v", err)
		}
		defer func() { _ = sess.Close(context.Background()) }()

		n := rapid.IntRange(1, 30).Draw(rt, "n")
		for i := 0; i < n; i++ {
			page := rapid.IntRange(1, 20).Draw(rt, "page")
			tool := rapid.SampledFrom([]domain.Tool{domain.ToolSelect, domain.ToolText, domain.ToolArea}).Draw(rt, "tool")
			if _, err := sess.Select(context.Background(), domain.Selection{Position: usablePosition(page), Tool: tool}); err != nil {
				rt.Fatalf("Select: %v", err)
			}
		}

		seen := make(map[string]bool)
		for _, h := range sess.Highlights() {
			if seen[h.ID] {
				rt.Fatalf("duplicate id %s", h.ID)
			}
			seen[h.ID] = true
		}
		if len(seen) != n {
			rt.Fatalf("got %d highlights, want %d", len(seen), n)
		}
	})
}

// A sent message keeps the context it was sent with whatever happens to the context afterwards.
func TestDocumentSession_MessageSnapshotProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		backend := newMockBackend()
		reader := NewReaderService(backend, nil, nil, nil, ReaderOptions{})
		sess, err := reader.Open(context.Background(), "doc-1")
		if err != nil {
			rt.Fatalf("Open: %v", err)
		}
		defer func() { _ = sess.Close(context.Background()) }()
		ctx := context.Background()

		var ids []string
		n := rapid.IntRange(1, 6).Draw(rt, "highlights")
		for i := 0; i < n; i++ {
			h, err := sess.Select(ctx, textSelection("passage", 1))
			if err != nil || h == nil {
				rt.Fatalf("Select: %v", err)
			}
			ids = append(ids, h.ID)
			if rapid.Bool().Draw(rt, "in_context") {
				_ = sess.AddToContext(h.ID)
			}
		}
		before := sess.Context()

		if _, err := sess.SendMessage(ctx, "question"); err != nil {
			rt.Fatalf("SendMessage: %v", err)
		}
		for _, id := range ids {
			switch rapid.IntRange(0, 2).Draw(rt, "mutation") {
			case 0:
				sess.RemoveFromContext(id)
			case 1:
				_ = sess.AddToContext(id)
			default:
				_ = sess.DeleteHighlight(ctx, id)
			}
		}
		sess.Wait()

		got := sess.Messages()[0].HighlightIDs
		if len(got) != len(before) {
			rt.Fatalf("snapshot %v, want %v", got, before)
		}
		for i := range got {
			if got[i] != before[i] {
				rt.Fatalf("snapshot %v, want %v", got, before)
			}
		}
	})
}

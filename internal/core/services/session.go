package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driven"
	"github.com/custodia-labs/marginalia/internal/core/ports/driving"
	"github.com/custodia-labs/marginalia/internal/logger"
)

// Ensure DocumentSession implements the interface.
var _ driving.DocumentSession = (*DocumentSession)(nil)

// ErrQueuedBehind is reported when a call is sent straight to the outbox
// because an earlier call for the same entity is still waiting there.
var ErrQueuedBehind = errors.New("queued behind an earlier failed call")

// eventBuffer bounds the undelivered persistence results kept per session.
const eventBuffer = 64

// DocumentSession holds the local state of one open document.
//
// All collections are guarded by a single mutex and changed before any
// backend call starts. Backend calls run on a keyedRunner: calls for the
// same highlight or annotation reach the backend in the order they were made.
type DocumentSession struct {
	mu sync.Mutex

	document domain.Document
	identity domain.Identity

	backend     driven.Backend
	outbox      *OutboxService
	fallback    driven.FallbackResponder
	translator  *Translator
	callTimeout time.Duration

	highlights  *HighlightStore
	annotations *AnnotationStore
	context     *ContextSet
	chat        *ChatLog
	sidebar     *SidebarRouter
	page        int

	// pending holds entity IDs with calls waiting in the outbox.
	pending map[string]int

	runner *keyedRunner
	events chan driving.PersistResult
	closed bool

	newID func() string
	now   func() time.Time
}

// Document returns the open document.
func (s *DocumentSession) Document() domain.Document {
	return s.document
}

// Identity returns the user the session acts for.
func (s *DocumentSession) Identity() domain.Identity {
	return s.identity
}

// Select turns a selection into a highlight and persists it in the background.
func (s *DocumentSession) Select(ctx context.Context, sel domain.Selection) (*domain.Highlight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrSessionClosed
	}

	h, err := s.translator.Translate(sel)
	if errors.Is(err, domain.ErrNoGeometry) {
		logger.Debug("dropping selection without geometry on %s", s.document.ID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.highlights.Append(h); err != nil {
		return nil, err
	}

	in := domain.InputFor(h)
	s.persist(ctx, domain.OpCreateHighlight, h.ID, in, func(ctx context.Context) error {
		_, err := s.backend.CreateHighlight(ctx, s.document.ID, in)
		return err
	})
	return &h, nil
}

// UpdateHighlight merges patch into a highlight and persists the patch.
func (s *DocumentSession) UpdateHighlight(ctx context.Context, highlightID string, patch domain.HighlightPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	if patch.IsEmpty() {
		return nil
	}
	if _, err := s.highlights.Update(highlightID, patch); err != nil {
		return err
	}

	s.persist(ctx, domain.OpUpdateHighlight, highlightID, patch, func(ctx context.Context) error {
		return s.backend.UpdateHighlight(ctx, s.document.ID, highlightID, patch)
	})
	return nil
}

// DeleteHighlight removes a highlight, orphans its notes, drops it from the
// chat context and persists the deletion.
func (s *DocumentSession) DeleteHighlight(ctx context.Context, highlightID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	if _, err := s.highlights.Delete(highlightID); err != nil {
		return err
	}

	if n := s.annotations.Orphan(highlightID); n > 0 {
		logger.Debug("orphaned %d annotation(s) of highlight %s", n, highlightID)
	}
	s.context.Remove(highlightID)
	s.sidebar.Forget(highlightID)

	s.persist(ctx, domain.OpDeleteHighlight, highlightID, struct{}{}, func(ctx context.Context) error {
		return s.backend.DeleteHighlight(ctx, s.document.ID, highlightID)
	})
	return nil
}

// Highlights returns the highlights in creation order.
func (s *DocumentSession) Highlights() []domain.Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highlights.List()
}

// Highlight returns a single highlight.
func (s *DocumentSession) Highlight(highlightID string) (*domain.Highlight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.highlights.Get(highlightID)
	if !ok {
		return nil, fmt.Errorf("highlight %s: %w", highlightID, domain.ErrNotFound)
	}
	return &h, nil
}

// SaveAnnotation saves a note against the selected highlight, or against
// the page if nothing is selected. Blank content is ignored.
func (s *DocumentSession) SaveAnnotation(ctx context.Context, draft domain.AnnotationDraft) (*domain.Annotation, error) {
	content := strings.TrimSpace(draft.Content)
	if content == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrSessionClosed
	}

	page := s.page
	if draft.Page != nil && *draft.Page > 0 {
		page = *draft.Page
	}

	a := domain.Annotation{
		ID:        s.newID(),
		Kind:      domain.AnnotationFree,
		Content:   content,
		Page:      page,
		CreatedAt: s.now(),
	}
	if target := s.sidebar.State().SelectedHighlightID; target != "" {
		if h, ok := s.highlights.Get(target); ok {
			a.Kind = domain.AnnotationNote
			a.HighlightID = h.ID
			a.HighlightText = h.Content.Text
			a.Position = h.Position.Clone()
		}
	}
	if err := s.annotations.Append(a); err != nil {
		return nil, err
	}

	in := domain.AnnotationInput{
		ID:          a.ID,
		Kind:        a.Kind,
		Content:     a.Content,
		Page:        a.Page,
		HighlightID: a.HighlightID,
		Position:    a.Position.Clone(),
	}
	s.persist(ctx, domain.OpSaveAnnotation, a.ID, in, func(ctx context.Context) error {
		return s.backend.SaveAnnotation(ctx, s.document.ID, in)
	})

	out := a
	out.Position = a.Position.Clone()
	return &out, nil
}

// ClearAnnotationTarget deselects the highlight new notes attach to.
func (s *DocumentSession) ClearAnnotationTarget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.sidebar.ClearSelection()
}

// Annotations returns the annotations in creation order.
func (s *DocumentSession) Annotations() []domain.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.annotations.List()
}

// ResolveAnnotation returns the live highlight an annotation refers to.
// Orphaned and page-only annotations resolve to nothing.
func (s *DocumentSession) ResolveAnnotation(a domain.Annotation) (*domain.Highlight, bool) {
	if a.HighlightID == "" || a.Orphaned {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.highlights.Get(a.HighlightID)
	if !ok {
		return nil, false
	}
	return &h, true
}

// AddToContext puts a highlight into the chat context and focuses the chat.
func (s *DocumentSession) AddToContext(highlightID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	if !s.highlights.Contains(highlightID) {
		return fmt.Errorf("highlight %s: %w", highlightID, domain.ErrNotFound)
	}
	s.context.Add(highlightID)
	s.sidebar.FocusChat()
	return nil
}

// RemoveFromContext drops a highlight from the chat context.
// It does nothing once the session is closed.
func (s *DocumentSession) RemoveFromContext(highlightID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.context.Remove(highlightID)
}

// Context returns the chat context in insertion order.
func (s *DocumentSession) Context() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.context.IDs()
}

// SendMessage appends a user message and requests a reply in the background.
//
// The message records a copy of the chat context as it is now. If the
// backend fails, the fallback responder's answer is appended instead.
func (s *DocumentSession) SendMessage(ctx context.Context, text string) (*domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrSessionClosed
	}

	ids := s.context.IDs()
	passages := make([]domain.Highlight, 0, len(ids))
	for _, id := range ids {
		if h, ok := s.highlights.Get(id); ok {
			passages = append(passages, h)
		}
	}

	msg := domain.ChatMessage{
		ID:           s.newID(),
		Role:         domain.ChatRoleUser,
		Content:      text,
		HighlightIDs: ids,
		CreatedAt:    s.now(),
	}
	s.chat.Append(msg)

	callCtx := context.WithoutCancel(ctx)
	s.runner.Go("chat:"+s.document.ID, func() {
		reqCtx, cancel := context.WithTimeout(callCtx, s.callTimeout)
		reply, err := s.backend.SendChatMessage(reqCtx, s.document.ID, text, msg.HighlightIDs)
		cancel()

		answer := domain.ChatMessage{
			ID:        s.newID(),
			Role:      domain.ChatRoleAssistant,
			CreatedAt: s.now(),
		}
		if err == nil && reply != nil {
			answer.Content = reply.Text
		} else {
			if err == nil {
				err = domain.ErrBackendUnavailable
			}
			logger.Warn("chat on %s failed, answering locally: %v", s.document.ID, err)
			answer.Content = s.fallback.Respond(callCtx, text, passages, err)
			answer.Degraded = true
		}

		s.mu.Lock()
		s.chat.Append(answer)
		s.mu.Unlock()

		s.emit(driving.PersistResult{
			Op:         domain.OpSendChatMessage,
			DocumentID: s.document.ID,
			EntityID:   msg.ID,
			Err:        err,
		})
	})

	out := msg.Clone()
	return &out, nil
}

// Messages returns the conversation in append order.
func (s *DocumentSession) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chat.Messages()
}

// ClickHighlight routes the sidebar for a click on an existing highlight.
func (s *DocumentSession) ClickHighlight(highlightID string) (domain.SidebarState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.sidebar.State(), domain.ErrSessionClosed
	}
	if !s.highlights.Contains(highlightID) {
		return s.sidebar.State(), fmt.Errorf("highlight %s: %w", highlightID, domain.ErrNotFound)
	}
	return s.sidebar.Click(
		highlightID,
		s.context.Contains(highlightID),
		s.annotations.HasLinked(highlightID),
	), nil
}

// Sidebar returns the current sidebar focus.
func (s *DocumentSession) Sidebar() domain.SidebarState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sidebar.State()
}

// SetSidebarPanel switches panels without changing the selection.
// It does nothing once the session is closed.
func (s *DocumentSession) SetSidebarPanel(panel domain.SidebarPanel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.sidebar.SetPanel(panel)
}

// SetPage records the page currently in view. Pages below 1 are ignored.
func (s *DocumentSession) SetPage(page int) {
	if page < 1 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = page
}

// Page returns the page currently in view.
func (s *DocumentSession) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Events delivers the outcome of background persistence calls.
// Results are dropped when nobody reads them and the buffer is full.
// The channel is closed by Close.
func (s *DocumentSession) Events() <-chan driving.PersistResult {
	return s.events
}

// Flush replays this document's outbox after in-flight calls have finished.
func (s *DocumentSession) Flush(ctx context.Context) (*driving.ReplayReport, error) {
	s.runner.Wait()

	report, err := s.outbox.Replay(ctx, s.document.ID)
	if err != nil {
		return nil, err
	}

	// Calls queued during the replay are missing from the report, so the
	// counts are rebuilt from the outbox. A count may run one high until
	// the next flush, never low.
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.outbox.List(ctx, s.document.ID)
	if err != nil {
		return report, fmt.Errorf("listing outbox: %w", err)
	}
	pending := make(map[string]int, len(entries))
	for i := range entries {
		pending[entries[i].EntityID]++
	}
	s.pending = pending

	return report, nil
}

// Wait blocks until every background call issued so far has finished.
func (s *DocumentSession) Wait() {
	s.runner.Wait()
}

// Close waits for background calls, bounded by ctx, and ends the session.
// Calls still running when ctx ends are left to finish on their own.
func (s *DocumentSession) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.runner.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("waiting for pending calls: %w", ctx.Err())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return err
}

// persist runs call in the background after local state has changed.
// The caller must hold s.mu.
func (s *DocumentSession) persist(
	ctx context.Context,
	op domain.PersistOp,
	entityID string,
	payload any,
	call func(ctx context.Context) error,
) {
	callCtx := context.WithoutCancel(ctx)
	s.runner.Go(entityID, func() {
		result := driving.PersistResult{Op: op, DocumentID: s.document.ID, EntityID: entityID}

		s.mu.Lock()
		behind := s.pending[entityID] > 0
		s.mu.Unlock()

		if behind {
			result.Err = ErrQueuedBehind
		} else {
			reqCtx, cancel := context.WithTimeout(callCtx, s.callTimeout)
			result.Err = call(reqCtx)
			cancel()
		}

		if result.Err != nil {
			if !behind {
				logger.Warn("%s %s on %s failed: %v", op, entityID, s.document.ID, result.Err)
			}
			result.Queued = s.enqueue(callCtx, op, entityID, payload, result.Err)
		}
		s.emit(result)
	})
}

// enqueue stores a failed call in the outbox and reports whether it was stored.
func (s *DocumentSession) enqueue(ctx context.Context, op domain.PersistOp, entityID string, payload any, cause error) bool {
	if !s.outbox.Enabled() {
		return false
	}
	if err := s.outbox.Enqueue(ctx, s.document.ID, op, entityID, payload, cause); err != nil {
		logger.Error("queueing %s %s: %v", op, entityID, err)
		return false
	}
	s.mu.Lock()
	s.pending[entityID]++
	s.mu.Unlock()
	return true
}

// emit delivers a result without blocking.
func (s *DocumentSession) emit(result driving.PersistResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- result:
	default:
		logger.Debug("dropping %s result for %s: event buffer full", result.Op, result.EntityID)
	}
}

// defaultNewID generates entity identifiers.
func defaultNewID() string {
	return uuid.NewString()
}

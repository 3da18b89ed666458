package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driven"
)

// --- Mock implementations for service tests ---

// backendCall records one call made to mockBackend.
type backendCall struct {
	Op           domain.PersistOp
	DocumentID   string
	EntityID     string
	Text         string
	HighlightIDs []string
	Patch        domain.HighlightPatch
}

// mockBackend implements driven.Backend and records every call in order.
type mockBackend struct {
	mu sync.Mutex

	snapshot *domain.DocumentSnapshot
	loadErr  error

	// errs fails every call of an op while set.
	errs map[domain.PersistOp]error

	// gate, when set, blocks calls of the op until it is closed.
	gate map[domain.PersistOp]chan struct{}
	// waiting counts calls currently held at a gate.
	waiting map[domain.PersistOp]int

	reply string
	calls []backendCall
}

var _ driven.Backend = (*mockBackend)(nil)

func newMockBackend() *mockBackend {
	return &mockBackend{
		snapshot: &domain.DocumentSnapshot{Document: domain.Document{ID: "doc-1", Title: "Attention"}},
		errs:     make(map[domain.PersistOp]error),
		gate:     make(map[domain.PersistOp]chan struct{}),
		waiting:  make(map[domain.PersistOp]int),
		reply:    "backend reply",
	}
}

func (m *mockBackend) failWith(op domain.PersistOp, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[op] = err
}

func (m *mockBackend) block(op domain.PersistOp) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan struct{})
	m.gate[op] = ch
	return ch
}

func (m *mockBackend) record(c backendCall) error {
	m.mu.Lock()
	gate := m.gate[c.Op]
	if gate != nil {
		m.waiting[c.Op]++
	}
	m.mu.Unlock()
	if gate != nil {
		<-gate
		m.mu.Lock()
		m.waiting[c.Op]--
		m.mu.Unlock()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	return m.errs[c.Op]
}

// held reports how many calls of op are waiting at a gate.
func (m *mockBackend) held(op domain.PersistOp) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiting[op]
}

func (m *mockBackend) Calls() []backendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]backendCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *mockBackend) CallsFor(entityID string) []domain.PersistOp {
	var ops []domain.PersistOp
	for _, c := range m.Calls() {
		if c.EntityID == entityID {
			ops = append(ops, c.Op)
		}
	}
	return ops
}

func (m *mockBackend) CreateHighlight(_ context.Context, documentID string, in domain.HighlightInput) (*domain.Highlight, error) {
	if err := m.record(backendCall{Op: domain.OpCreateHighlight, DocumentID: documentID, EntityID: in.ID}); err != nil {
		return nil, err
	}
	return &domain.Highlight{ID: in.ID, Kind: in.Kind, Position: in.Position, Content: in.Content, Color: in.Color}, nil
}

func (m *mockBackend) UpdateHighlight(_ context.Context, documentID, highlightID string, patch domain.HighlightPatch) error {
	return m.record(backendCall{Op: domain.OpUpdateHighlight, DocumentID: documentID, EntityID: highlightID, Patch: patch})
}

func (m *mockBackend) DeleteHighlight(_ context.Context, documentID, highlightID string) error {
	return m.record(backendCall{Op: domain.OpDeleteHighlight, DocumentID: documentID, EntityID: highlightID})
}

func (m *mockBackend) SaveAnnotation(_ context.Context, documentID string, in domain.AnnotationInput) error {
	return m.record(backendCall{Op: domain.OpSaveAnnotation, DocumentID: documentID, EntityID: in.ID, Text: in.Content})
}

func (m *mockBackend) SendChatMessage(_ context.Context, documentID, text string, highlightIDs []string) (*domain.ChatReply, error) {
	ids := append([]string(nil), highlightIDs...)
	if err := m.record(backendCall{Op: domain.OpSendChatMessage, DocumentID: documentID, Text: text, HighlightIDs: ids}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return &domain.ChatReply{Text: m.reply + ": " + text}, nil
}

func (m *mockBackend) GetDocumentAnnotations(_ context.Context, documentID string) (*domain.DocumentSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.snapshot == nil || (m.snapshot.Document.ID != "" && m.snapshot.Document.ID != documentID) {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	snap := *m.snapshot
	return &snap, nil
}

// mockLLM implements driven.LLMService.
type mockLLM struct {
	answer   string
	err      error
	messages []driven.ChatMessage
}

var _ driven.LLMService = (*mockLLM)(nil)

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.messages = messages
	return m.answer, m.err
}

func (m *mockLLM) ModelName() string            { return "mock-model" }
func (m *mockLLM) Ping(_ context.Context) error { return m.err }
func (m *mockLLM) Close() error                 { return nil }

// mockAuthenticator implements driven.Authenticator.
type mockAuthenticator struct {
	creds      *domain.Credentials
	err        error
	refreshed  *domain.Credentials
	refreshErr error
	refreshes  int
}

var _ driven.Authenticator = (*mockAuthenticator)(nil)

func (m *mockAuthenticator) SignIn(_ context.Context, email, _ string) (*domain.Credentials, error) {
	if m.err != nil {
		return nil, m.err
	}
	c := *m.creds
	c.Email = email
	return &c, nil
}

func (m *mockAuthenticator) SignUp(ctx context.Context, email, password string) (*domain.Credentials, error) {
	return m.SignIn(ctx, email, password)
}

func (m *mockAuthenticator) Refresh(_ context.Context, _ string) (*domain.Credentials, error) {
	m.refreshes++
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	c := *m.refreshed
	return &c, nil
}

// mockProviderAuthenticator adds PKCE provider sign-in.
type mockProviderAuthenticator struct {
	mockAuthenticator
	code     string
	verifier string
}

var _ driven.ProviderAuthenticator = (*mockProviderAuthenticator)(nil)

func (m *mockProviderAuthenticator) AuthorizeURL(provider, redirectTo, challenge string) string {
	return "https://auth.test/authorize?provider=" + provider + "&redirect_to=" + redirectTo + "&code_challenge=" + challenge
}

func (m *mockProviderAuthenticator) ExchangeCode(_ context.Context, code, verifier string) (*domain.Credentials, error) {
	m.code, m.verifier = code, verifier
	if m.err != nil {
		return nil, m.err
	}
	c := *m.creds
	return &c, nil
}

// usablePosition returns a position that can anchor a highlight.
func usablePosition(page int) *domain.Position {
	return &domain.Position{
		BoundingRect: domain.Rect{X1: 10, Y1: 10, X2: 110, Y2: 30, Width: 600, Height: 800},
		Rects:        []domain.Rect{{X1: 10, Y1: 10, X2: 110, Y2: 30, Width: 600, Height: 800}},
		PageNumber:   page,
	}
}

// textSelection returns a text-tool selection on page.
func textSelection(text string, page int) domain.Selection {
	return domain.Selection{Position: usablePosition(page), Text: text, Tool: domain.ToolText}
}

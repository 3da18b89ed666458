// Package memory provides an in-process driven.Backend that keeps documents in memory.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.Backend = (*Backend)(nil)

// ReplyFunc produces the assistant's answer to a chat message.
type ReplyFunc func(text string, passages []domain.Highlight) string

type document struct {
	doc         domain.Document
	highlights  []domain.Highlight
	annotations []domain.Annotation
	messages    []string
}

// Backend is an in-memory implementation of driven.Backend.
//
// Failures can be injected per operation, which makes it useful for
// exercising the optimistic paths of the core.
type Backend struct {
	mu       sync.Mutex
	docs     map[string]*document
	failures map[domain.PersistOp]error
	loadErr  error
	reply    ReplyFunc
	calls    []domain.PersistOp
}

// New creates an empty backend.
func New() *Backend {
	return &Backend{
		docs:     make(map[string]*document),
		failures: make(map[domain.PersistOp]error),
		reply:    defaultReply,
	}
}

func defaultReply(text string, passages []domain.Highlight) string {
	return fmt.Sprintf("You asked %q with %d passage(s) in context.", text, len(passages))
}

// AddDocument registers a document with its existing highlights and annotations.
func (b *Backend) AddDocument(snap domain.DocumentSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := &document{doc: snap.Document}
	for i := range snap.Highlights {
		d.highlights = append(d.highlights, snap.Highlights[i].Clone())
	}
	d.annotations = append(d.annotations, snap.Annotations...)
	b.docs[snap.Document.ID] = d
}

// SetReply replaces the assistant.
func (b *Backend) SetReply(fn ReplyFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if fn == nil {
		fn = defaultReply
	}
	b.reply = fn
}

// SetFailure makes every call of op fail with err. A nil err clears it.
func (b *Backend) SetFailure(op domain.PersistOp, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, op)
		return
	}
	b.failures[op] = err
}

// SetLoadFailure makes GetDocumentAnnotations fail with err. A nil err clears it.
func (b *Backend) SetLoadFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loadErr = err
}

// Calls returns the operations received, in order, including failed ones.
func (b *Backend) Calls() []domain.PersistOp {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.PersistOp(nil), b.calls...)
}

// Snapshot returns what the backend currently holds for a document.
func (b *Backend) Snapshot(documentID string) (*domain.DocumentSnapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.docs[documentID]
	if !ok {
		return nil, false
	}
	return d.snapshot(), true
}

// begin records the call and returns the document or the injected failure.
// The caller must hold b.mu.
func (b *Backend) begin(op domain.PersistOp, documentID string) (*document, error) {
	b.calls = append(b.calls, op)
	if err := b.failures[op]; err != nil {
		return nil, err
	}
	d, ok := b.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	return d, nil
}

// CreateHighlight stores a highlight under its client-generated ID.
func (b *Backend) CreateHighlight(_ context.Context, documentID string, in domain.HighlightInput) (*domain.Highlight, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.begin(domain.OpCreateHighlight, documentID)
	if err != nil {
		return nil, err
	}
	if d.highlightIndex(in.ID) >= 0 {
		return nil, fmt.Errorf("highlight %s: %w", in.ID, domain.ErrAlreadyExists)
	}
	h := domain.Highlight{
		ID:        in.ID,
		Kind:      in.Kind,
		Position:  *in.Position.Clone(),
		Content:   in.Content,
		Color:     in.Color,
		CreatedAt: time.Now(),
	}
	d.highlights = append(d.highlights, h)
	out := h.Clone()
	return &out, nil
}

// UpdateHighlight applies a partial update.
func (b *Backend) UpdateHighlight(_ context.Context, documentID, highlightID string, patch domain.HighlightPatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.begin(domain.OpUpdateHighlight, documentID)
	if err != nil {
		return err
	}
	i := d.highlightIndex(highlightID)
	if i < 0 {
		return fmt.Errorf("highlight %s: %w", highlightID, domain.ErrNotFound)
	}
	patch.Apply(&d.highlights[i])
	return nil
}

// DeleteHighlight removes a highlight.
func (b *Backend) DeleteHighlight(_ context.Context, documentID, highlightID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.begin(domain.OpDeleteHighlight, documentID)
	if err != nil {
		return err
	}
	i := d.highlightIndex(highlightID)
	if i < 0 {
		return fmt.Errorf("highlight %s: %w", highlightID, domain.ErrNotFound)
	}
	d.highlights = append(d.highlights[:i], d.highlights[i+1:]...)
	return nil
}

// SaveAnnotation stores a note.
func (b *Backend) SaveAnnotation(_ context.Context, documentID string, in domain.AnnotationInput) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.begin(domain.OpSaveAnnotation, documentID)
	if err != nil {
		return err
	}
	a := domain.Annotation{
		ID:          in.ID,
		Kind:        in.Kind,
		Content:     in.Content,
		Page:        in.Page,
		HighlightID: in.HighlightID,
		Position:    in.Position.Clone(),
		CreatedAt:   time.Now(),
	}
	if i := d.highlightIndex(in.HighlightID); i >= 0 {
		a.HighlightText = d.highlights[i].Content.Text
	}
	d.annotations = append(d.annotations, a)
	return nil
}

// SendChatMessage answers with the configured ReplyFunc.
func (b *Backend) SendChatMessage(_ context.Context, documentID, text string, highlightIDs []string) (*domain.ChatReply, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.begin(domain.OpSendChatMessage, documentID)
	if err != nil {
		return nil, err
	}
	passages := make([]domain.Highlight, 0, len(highlightIDs))
	for _, id := range highlightIDs {
		if i := d.highlightIndex(id); i >= 0 {
			passages = append(passages, d.highlights[i].Clone())
		}
	}
	d.messages = append(d.messages, text)
	return &domain.ChatReply{Text: b.reply(text, passages)}, nil
}

// GetDocumentAnnotations returns a copy of the stored document.
func (b *Backend) GetDocumentAnnotations(_ context.Context, documentID string) (*domain.DocumentSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	d, ok := b.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	return d.snapshot(), nil
}

func (d *document) highlightIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range d.highlights {
		if d.highlights[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *document) snapshot() *domain.DocumentSnapshot {
	snap := &domain.DocumentSnapshot{
		Document:    d.doc,
		Highlights:  make([]domain.Highlight, 0, len(d.highlights)),
		Annotations: make([]domain.Annotation, 0, len(d.annotations)),
	}
	for i := range d.highlights {
		snap.Highlights = append(snap.Highlights, d.highlights[i].Clone())
	}
	snap.Annotations = append(snap.Annotations, d.annotations...)
	return snap
}

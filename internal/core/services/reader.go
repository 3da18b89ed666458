package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driven"
	"github.com/custodia-labs/marginalia/internal/core/ports/driving"
	"github.com/custodia-labs/marginalia/internal/logger"
)

// Ensure ReaderService implements the interface.
var _ driving.ReaderService = (*ReaderService)(nil)

// DefaultCallTimeout bounds each background backend call.
const DefaultCallTimeout = 30 * time.Second

// ReaderOptions configures document sessions.
type ReaderOptions struct {
	// Identity is the user sessions act for.
	Identity domain.Identity

	// CallTimeout bounds each background backend call.
	CallTimeout time.Duration
}

// ReaderService opens document sessions.
type ReaderService struct {
	backend    driven.Backend
	outbox     *OutboxService
	fallback   driven.FallbackResponder
	translator *Translator
	opts       ReaderOptions
}

// NewReaderService creates a reader service.
// A nil fallback answers failed chats with StaticFallback.
func NewReaderService(
	backend driven.Backend,
	outbox *OutboxService,
	fallback driven.FallbackResponder,
	translator *Translator,
	opts ReaderOptions,
) *ReaderService {
	if fallback == nil {
		fallback = StaticFallback{}
	}
	if translator == nil {
		translator = NewTranslator(domain.HighlightSettings{})
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	return &ReaderService{
		backend:    backend,
		outbox:     outbox,
		fallback:   fallback,
		translator: translator,
		opts:       opts,
	}
}

// Open loads a document and starts a session for it.
//
// Annotations whose highlight is missing from the snapshot are marked as
// orphaned. Entities with entries still in the outbox are tracked so new
// calls for them queue behind the old ones.
func (s *ReaderService) Open(ctx context.Context, documentID string) (driving.DocumentSession, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	snap, err := s.backend.GetDocumentAnnotations(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("loading document %s: %w", documentID, err)
	}
	if snap.Document.ID == "" {
		snap.Document.ID = documentID
	}

	highlights := NewHighlightStore()
	for i := range snap.Highlights {
		if err := highlights.Append(snap.Highlights[i]); err != nil {
			logger.Warn("skipping highlight %q in %s: %v", snap.Highlights[i].ID, documentID, err)
		}
	}

	annotations := NewAnnotationStore()
	for i := range snap.Annotations {
		a := snap.Annotations[i]
		if a.HighlightID != "" && !highlights.Contains(a.HighlightID) {
			a.Orphaned = true
		}
		if err := annotations.Append(a); err != nil {
			logger.Warn("skipping annotation %q in %s: %v", a.ID, documentID, err)
		}
	}

	pending := make(map[string]int)
	entries, err := s.outbox.List(ctx, documentID)
	if err != nil {
		logger.Warn("reading outbox for %s: %v", documentID, err)
	}
	for i := range entries {
		pending[entries[i].EntityID]++
	}

	logger.Info("opened %s: %d highlight(s), %d annotation(s), %d queued call(s)",
		documentID, highlights.Len(), annotations.Len(), len(entries))

	return &DocumentSession{
		document:    snap.Document,
		identity:    s.opts.Identity,
		backend:     s.backend,
		outbox:      s.outbox,
		fallback:    s.fallback,
		translator:  s.translator,
		callTimeout: s.opts.CallTimeout,
		highlights:  highlights,
		annotations: annotations,
		context:     NewContextSet(),
		chat:        NewChatLog(),
		sidebar:     NewSidebarRouter(),
		page:        1,
		pending:     pending,
		runner:      newKeyedRunner(),
		events:      make(chan driving.PersistResult, eventBuffer),
		newID:       defaultNewID,
		now:         time.Now,
	}, nil
}

package mcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marginalia/internal/adapters/driven/backend/memory"
	memstore "github.com/custodia-labs/marginalia/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/services"
)

func rect(page int) domain.Rect {
	return domain.Rect{X1: 72, Y1: 100, X2: 540, Y2: 130, Width: 612, Height: 792, PageNumber: page}
}

// newTestServer builds a server over an in-memory backend holding doc-1.
func newTestServer(t *testing.T) (*Server, *memory.Backend) {
	t.Helper()

	backend := memory.New()
	backend.AddDocument(domain.DocumentSnapshot{
		Document: domain.Document{ID: "doc-1", Title: "Attention Is All You Need"},
		Highlights: []domain.Highlight{
			{
				ID: "h1", Kind: domain.HighlightText, Comment: "key idea",
				Position: domain.Position{BoundingRect: rect(1), Rects: []domain.Rect{rect(1)}, PageNumber: 1},
				Content:  domain.HighlightContent{Text: "scaled dot-product attention"},
			},
			{
				ID: "h2", Kind: domain.HighlightArea,
				Position: domain.Position{BoundingRect: rect(4), Rects: []domain.Rect{rect(4)}, PageNumber: 4},
				Content:  domain.HighlightContent{Image: "figure-2.png"},
			},
		},
		Annotations: []domain.Annotation{
			{ID: "a1", Kind: domain.AnnotationNote, Content: "why sqrt(d_k)?", Page: 1, HighlightID: "h1"},
			{ID: "a2", Kind: domain.AnnotationNote, Content: "gone", Page: 2, HighlightID: "h9", HighlightText: "old passage"},
		},
	})

	outbox := services.NewOutboxService(memstore.NewOutboxStore(), backend, services.DefaultMaxAttempts)
	reader := services.NewReaderService(backend, outbox, services.StaticFallback{}, nil, services.ReaderOptions{
		CallTimeout: time.Second,
	})

	server, err := NewServer(&Ports{Reader: reader, Outbox: outbox})
	require.NoError(t, err)
	return server, backend
}

func TestNewServer(t *testing.T) {
	t.Run("nil reader service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingReaderService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, _ := newTestServer(t)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil ports returns error", func(t *testing.T) {
		var ports *Ports
		assert.ErrorIs(t, ports.Validate(), ErrMissingReaderService)
	})

	t.Run("missing reader returns error", func(t *testing.T) {
		ports := &Ports{}
		assert.ErrorIs(t, ports.Validate(), ErrMissingReaderService)
	})

	t.Run("outbox is optional", func(t *testing.T) {
		ports := &Ports{Reader: services.NewReaderService(memory.New(), nil, nil, nil, services.ReaderOptions{})}
		assert.NoError(t, ports.Validate())
	})
}

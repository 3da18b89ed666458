package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

func note(id, highlightID, content string) domain.Annotation {
	kind := domain.AnnotationNote
	if highlightID == "" {
		kind = domain.AnnotationFree
	}
	return domain.Annotation{ID: id, Kind: kind, Content: content, Page: 1, HighlightID: highlightID}
}

func TestAnnotationStore_Append(t *testing.T) {
	store := NewAnnotationStore()

	require.NoError(t, store.Append(note("n1", "h1", "first")))
	require.NoError(t, store.Append(note("n2", "", "second")))

	assert.ErrorIs(t, store.Append(note("n1", "h1", "again")), domain.ErrAlreadyExists)
	assert.ErrorIs(t, store.Append(domain.Annotation{}), domain.ErrInvalidInput)

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Content)
	assert.Equal(t, "second", list[1].Content)
}

func TestAnnotationStore_LinkedTo(t *testing.T) {
	store := NewAnnotationStore(
		note("n1", "h1", "a"),
		note("n2", "h2", "b"),
		note("n3", "h1", "c"),
		note("n4", "", "d"),
	)

	linked := store.LinkedTo("h1")
	require.Len(t, linked, 2)
	assert.Equal(t, "n1", linked[0].ID)
	assert.Equal(t, "n3", linked[1].ID)

	assert.True(t, store.HasLinked("h2"))
	assert.False(t, store.HasLinked("h3"))
	assert.False(t, store.HasLinked(""))
}

func TestAnnotationStore_Orphan(t *testing.T) {
	store := NewAnnotationStore(note("n1", "h1", "a"), note("n2", "h1", "b"), note("n3", "h2", "c"))

	assert.Equal(t, 2, store.Orphan("h1"))
	assert.Equal(t, 0, store.Orphan("h1"))

	assert.False(t, store.HasLinked("h1"))
	assert.Empty(t, store.LinkedTo("h1"))
	assert.Equal(t, 3, store.Len())

	list := store.List()
	assert.True(t, list[0].Orphaned)
	assert.True(t, list[1].Orphaned)
	assert.False(t, list[2].Orphaned)
	assert.Equal(t, "h1", list[0].HighlightID)
}

func TestAnnotationStore_ListCopiesPosition(t *testing.T) {
	a := note("n1", "h1", "a")
	a.Position = usablePosition(2)
	store := NewAnnotationStore(a)

	list := store.List()
	list[0].Position.PageNumber = 99

	assert.Equal(t, 2, store.List()[0].Position.PageNumber)
}

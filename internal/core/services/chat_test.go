package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

func TestChatLog_AppendCopies(t *testing.T) {
	log := NewChatLog()
	ids := []string{"h1", "h2"}

	log.Append(domain.ChatMessage{ID: "m1", Role: domain.ChatRoleUser, Content: "hi", HighlightIDs: ids})
	ids[0] = "changed"

	msgs := log.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"h1", "h2"}, msgs[0].HighlightIDs)

	msgs[0].HighlightIDs[1] = "changed"
	assert.Equal(t, []string{"h1", "h2"}, log.Messages()[0].HighlightIDs)
	assert.Equal(t, 1, log.Len())
}

func TestStaticFallback_Respond(t *testing.T) {
	fb := StaticFallback{}
	ctx := context.Background()
	cause := errors.New("down")

	none := fb.Respond(ctx, "q", nil, cause)
	one := fb.Respond(ctx, "q", []domain.Highlight{highlight("a")}, cause)
	many := fb.Respond(ctx, "q", []domain.Highlight{highlight("a"), highlight("b")}, cause)

	assert.NotEmpty(t, none)
	assert.Contains(t, one, "passage")
	assert.Contains(t, many, "2 highlighted passages")
}

func TestLLMFallback_UsesPassages(t *testing.T) {
	llm := &mockLLM{answer: "  It is about attention.  "}
	fb := NewLLMFallback(llm)

	area := highlight("b")
	area.Content.Text = ""
	area.Position.PageNumber = 4

	got := fb.Respond(context.Background(), "What is this about?", []domain.Highlight{highlight("a"), area}, errors.New("down"))

	assert.Equal(t, "It is about attention.", got)
	require.Len(t, llm.messages, 2)
	assert.Equal(t, "system", llm.messages[0].Role)
	assert.Contains(t, llm.messages[1].Content, "1. text of a")
	assert.Contains(t, llm.messages[1].Content, "figure on page 4")
	assert.Contains(t, llm.messages[1].Content, "Question: What is this about?")
}

func TestLLMFallback_FallsBackToStatic(t *testing.T) {
	ctx := context.Background()
	static := StaticFallback{}.Respond(ctx, "q", nil, nil)

	tests := []struct {
		name string
		llm  *mockLLM
	}{
		{"model error", &mockLLM{err: errors.New("no model")}},
		{"blank answer", &mockLLM{answer: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, static, NewLLMFallback(tt.llm).Respond(ctx, "q", nil, nil))
		})
	}

	assert.Equal(t, static, NewLLMFallback(nil).Respond(ctx, "q", nil, nil))
}

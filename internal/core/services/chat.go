package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driven"
	"github.com/custodia-labs/marginalia/internal/logger"
)

// ChatLog is the append-only conversation of a document session.
type ChatLog struct {
	messages []domain.ChatMessage
}

// NewChatLog creates an empty conversation.
func NewChatLog() *ChatLog {
	return &ChatLog{}
}

// Append adds a message at the end. The message is copied.
func (c *ChatLog) Append(m domain.ChatMessage) {
	c.messages = append(c.messages, m.Clone())
}

// Messages returns copies of the messages in append order.
func (c *ChatLog) Messages() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(c.messages))
	for i := range c.messages {
		out[i] = c.messages[i].Clone()
	}
	return out
}

// Len returns the number of messages.
func (c *ChatLog) Len() int {
	return len(c.messages)
}

// Ensure the fallbacks implement the interface.
var (
	_ driven.FallbackResponder = StaticFallback{}
	_ driven.FallbackResponder = (*LLMFallback)(nil)
)

// StaticFallback answers with a fixed reply so the conversation keeps going.
type StaticFallback struct{}

// Respond implements driven.FallbackResponder.
func (StaticFallback) Respond(_ context.Context, _ string, passages []domain.Highlight, _ error) string {
	switch len(passages) {
	case 0:
		return "I couldn't reach the assistant just now. Please try again in a moment."
	case 1:
		return "I couldn't reach the assistant just now. Your highlighted passage is kept in context, so try again in a moment."
	default:
		return fmt.Sprintf("I couldn't reach the assistant just now. Your %d highlighted passages are kept in context, so try again in a moment.", len(passages))
	}
}

// LLMFallback answers from the highlighted passages with a locally configured
// model. If the model fails too, Static answers.
type LLMFallback struct {
	llm    driven.LLMService
	static StaticFallback
}

// NewLLMFallback creates a fallback backed by llm. A nil llm behaves like StaticFallback.
func NewLLMFallback(llm driven.LLMService) *LLMFallback {
	return &LLMFallback{llm: llm}
}

const fallbackSystemPrompt = "You are helping someone read a research paper. " +
	"The paper's full text is not available. Answer briefly using only the passages provided, " +
	"and say so when they are not enough."

// Respond implements driven.FallbackResponder.
func (f *LLMFallback) Respond(ctx context.Context, question string, passages []domain.Highlight, cause error) string {
	if f.llm == nil {
		return f.static.Respond(ctx, question, passages, cause)
	}

	var prompt strings.Builder
	if len(passages) > 0 {
		prompt.WriteString("Passages:\n")
		for i := range passages {
			text := passages[i].Content.Text
			if text == "" {
				text = "(figure on page " + fmt.Sprint(passages[i].Page()) + ")"
			}
			fmt.Fprintf(&prompt, "%d. %s\n", i+1, text)
		}
		prompt.WriteString("\n")
	}
	prompt.WriteString("Question: ")
	prompt.WriteString(question)

	answer, err := f.llm.Chat(ctx, []driven.ChatMessage{
		{Role: "system", Content: fallbackSystemPrompt},
		{Role: "user", Content: prompt.String()},
	}, driven.ChatOptions{MaxTokens: 400, Temperature: 0.2})
	if err != nil || strings.TrimSpace(answer) == "" {
		logger.Warn("fallback model %s failed: %v", f.llm.ModelName(), err)
		return f.static.Respond(ctx, question, passages, cause)
	}
	return strings.TrimSpace(answer)
}

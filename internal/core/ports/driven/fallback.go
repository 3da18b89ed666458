package driven

import (
	"context"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

// FallbackResponder synthesises an assistant reply when the backend could
// not answer a chat message. It must always return some text.
type FallbackResponder interface {
	Respond(ctx context.Context, question string, passages []domain.Highlight, cause error) string
}

// Package ai builds the optional language model services from settings.
package ai

import (
	"context"
	"fmt"
	"time"

	openaillm "github.com/custodia-labs/marginalia/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driven"
	"github.com/custodia-labs/marginalia/internal/core/services"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// FallbackResult contains the degraded-mode responder chosen from settings.
type FallbackResult struct {
	Responder driven.FallbackResponder
	LLM       driven.LLMService // Set only when the LLM fallback is active.
	Warnings  []string          // Non-fatal issues that caused fallback.
	FellBack  bool              // True if the static responder replaced a requested LLM.
}

// Close releases all resources held by FallbackResult.
func (r *FallbackResult) Close() {
	if r.LLM != nil {
		r.LLM.Close()
	}
}

// CreateLLMService creates an LLM service from settings.
// Returns nil if no model is configured.
func CreateLLMService(settings domain.LLMSettings) driven.LLMService {
	if !settings.IsConfigured() {
		return nil
	}
	return openaillm.NewLLMService(openaillm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		APIKey:  settings.APIKey,
	})
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns nil, nil if no model is configured.
func CreateAndValidateLLMService(ctx context.Context, settings domain.LLMSettings) (driven.LLMService, error) {
	svc := CreateLLMService(settings)
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'marginalia settings set llm.base_url ...' to fix",
			domain.ErrLLMUnavailable, err)
	}

	return svc, nil
}

// CreateFallback picks the responder used when the backend cannot answer a
// chat message. A requested LLM fallback that is unconfigured or unreachable
// degrades to the static reply with a warning.
func CreateFallback(ctx context.Context, settings domain.AppSettings) *FallbackResult {
	result := &FallbackResult{Responder: services.StaticFallback{}}
	if settings.Chat.Fallback != domain.FallbackLLM {
		return result
	}

	if !settings.LLM.IsConfigured() {
		result.FellBack = true
		result.Warnings = append(result.Warnings,
			"chat.fallback is llm but llm.base_url and llm.model are not set; using static replies")
		return result
	}

	svc, err := CreateAndValidateLLMService(ctx, settings.LLM)
	if err != nil {
		result.FellBack = true
		result.Warnings = append(result.Warnings, err.Error()+"; using static replies")
		return result
	}

	result.LLM = svc
	result.Responder = services.NewLLMFallback(svc)
	return result
}

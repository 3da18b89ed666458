package domain

import "time"

// FallbackMode selects how assistant replies are synthesised when the backend fails.
type FallbackMode string

// Available fallback modes.
const (
	// FallbackStatic answers with a fixed apology.
	FallbackStatic FallbackMode = "static"

	// FallbackLLM answers from the context highlights with a configured LLM.
	FallbackLLM FallbackMode = "llm"
)

// IsValid returns true if the mode is recognised.
func (m FallbackMode) IsValid() bool {
	return m == FallbackStatic || m == FallbackLLM
}

// String returns the string representation.
func (m FallbackMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m FallbackMode) Description() string {
	switch m {
	case FallbackStatic:
		return "Static (fixed reply)"
	case FallbackLLM:
		return "LLM (answer from highlighted passages)"
	default:
		return "Unknown"
	}
}

// BackendSettings configures the paper backend client.
type BackendSettings struct {
	BaseURL string
	Timeout time.Duration

	// RateLimit is the sustained requests per second.
	RateLimit float64
	Burst     int
}

// AuthSettings configures the hosted auth service.
type AuthSettings struct {
	URL    string
	APIKey string
}

// HighlightSettings holds the tool colour palette.
type HighlightSettings struct {
	TextColor string
	AreaColor string
}

// ChatSettings configures degraded-mode replies.
type ChatSettings struct {
	Fallback FallbackMode
}

// LLMSettings configures the OpenAI-compatible model used for LLM fallback.
type LLMSettings struct {
	BaseURL string
	Model   string
	APIKey  string
}

// IsConfigured returns true if a model and endpoint are set.
func (s LLMSettings) IsConfigured() bool {
	return s.Model != "" && s.BaseURL != ""
}

// OutboxSettings configures replay of failed persistence calls.
type OutboxSettings struct {
	MaxAttempts    int
	ReplayInterval time.Duration
}

// AppSettings is the complete application configuration.
type AppSettings struct {
	Backend   BackendSettings
	Auth      AuthSettings
	Highlight HighlightSettings
	Chat      ChatSettings
	LLM       LLMSettings
	Outbox    OutboxSettings
}

// Default palette.
const (
	DefaultTextColor = "#FFE28F"
	DefaultAreaColor = "#8FD3FF"
)

// DefaultAppSettings returns the default configuration.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Backend: BackendSettings{
			BaseURL:   "http://localhost:8000/api",
			Timeout:   30 * time.Second,
			RateLimit: 5,
			Burst:     10,
		},
		Auth: AuthSettings{
			URL: "http://localhost:54321/auth/v1",
		},
		Highlight: HighlightSettings{
			TextColor: DefaultTextColor,
			AreaColor: DefaultAreaColor,
		},
		Chat: ChatSettings{
			Fallback: FallbackStatic,
		},
		// LLM is left unconfigured; the static fallback is used until it is set.
		LLM: LLMSettings{},
		Outbox: OutboxSettings{
			MaxAttempts:    5,
			ReplayInterval: 30 * time.Second,
		},
	}
}

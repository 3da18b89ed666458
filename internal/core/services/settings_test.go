package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marginalia/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/marginalia/internal/core/domain"
)

func TestNewSettingsService(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())
	require.NotNil(t, service)
	assert.Equal(t, ":memory:", service.Path())
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set(KeyBackendBaseURL, "https://papers.example.com/api")
	_ = store.Set(KeyBackendTimeout, "5s")
	_ = store.Set(KeyBackendRateLimit, 2.5)
	_ = store.Set(KeyBackendBurst, int64(3))
	_ = store.Set(KeyHighlightTextColor, "#ABCDEF")
	_ = store.Set(KeyChatFallback, "llm")
	_ = store.Set(KeyLLMModel, "llama3")
	_ = store.Set(KeyLLMBaseURL, "http://localhost:11434/v1")
	_ = store.Set(KeyOutboxMaxAttempts, 9)
	_ = store.Set(KeyOutboxReplayInterval, "1m")

	settings, err := NewSettingsService(store).Get()

	require.NoError(t, err)
	assert.Equal(t, "https://papers.example.com/api", settings.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, settings.Backend.Timeout)
	assert.InDelta(t, 2.5, settings.Backend.RateLimit, 1e-9)
	assert.Equal(t, 3, settings.Backend.Burst)
	assert.Equal(t, "#ABCDEF", settings.Highlight.TextColor)
	assert.Equal(t, domain.DefaultAreaColor, settings.Highlight.AreaColor)
	assert.Equal(t, domain.FallbackLLM, settings.Chat.Fallback)
	assert.True(t, settings.LLM.IsConfigured())
	assert.Equal(t, 9, settings.Outbox.MaxAttempts)
	assert.Equal(t, time.Minute, settings.Outbox.ReplayInterval)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set(KeyBackendTimeout, "soon")
	_ = store.Set(KeyHighlightAreaColor, "blue")
	_ = store.Set(KeyChatFallback, "magic")
	_ = store.Set(KeyOutboxMaxAttempts, -1)

	settings, err := NewSettingsService(store).Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Backend.Timeout, settings.Backend.Timeout)
	assert.Equal(t, defaults.Highlight.AreaColor, settings.Highlight.AreaColor)
	assert.Equal(t, defaults.Chat.Fallback, settings.Chat.Fallback)
	assert.Equal(t, defaults.Outbox.MaxAttempts, settings.Outbox.MaxAttempts)
}

func TestSettingsService_Set_Valid(t *testing.T) {
	tests := []struct {
		key    string
		value  string
		stored any
	}{
		{KeyBackendBaseURL, "https://api.example.com/", "https://api.example.com"},
		{KeyBackendTimeout, "10s", "10s"},
		{KeyBackendRateLimit, "0.5", 0.5},
		{KeyBackendBurst, "4", int64(4)},
		{KeyAuthAPIKey, "anon-key", "anon-key"},
		{KeyHighlightTextColor, "#ffcc00", "#FFCC00"},
		{KeyChatFallback, "llm", "llm"},
		{KeyOutboxReplayInterval, "2m", "2m"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			store := memory.NewConfigStore()
			service := NewSettingsService(store)

			require.NoError(t, service.Set(tt.key, tt.value))

			val, ok := store.Get(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.stored, val)
		})
	}
}

func TestSettingsService_Set_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"unknown.key", "x"},
		{KeyBackendBaseURL, "ftp://example.com"},
		{KeyBackendTimeout, "-5s"},
		{KeyBackendRateLimit, "fast"},
		{KeyBackendBurst, "0"},
		{KeyHighlightAreaColor, "red"},
		{KeyChatFallback, "none"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			store := memory.NewConfigStore()
			err := NewSettingsService(store).Set(tt.key, tt.value)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Empty(t, store.Keys())
		})
	}
}

func TestSettingsService_ValueAndKeys(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)
	require.NoError(t, service.Set(KeyBackendBurst, "12"))

	val, ok := service.Value(KeyBackendBurst)
	assert.True(t, ok)
	assert.Equal(t, "12", val)

	_, ok = service.Value(KeyLLMModel)
	assert.False(t, ok)

	keys := service.Keys()
	assert.Contains(t, keys, KeyOutboxReplayInterval)
	assert.IsIncreasing(t, keys)
}

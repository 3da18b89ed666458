package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driven"
	"github.com/custodia-labs/marginalia/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyBackendBaseURL       = "backend.base_url"
	KeyBackendTimeout       = "backend.timeout"
	KeyBackendRateLimit     = "backend.rate_limit"
	KeyBackendBurst         = "backend.burst"
	KeyAuthURL              = "auth.url"
	KeyAuthAPIKey           = "auth.api_key"
	KeyHighlightTextColor   = "highlight.text_color"
	KeyHighlightAreaColor   = "highlight.area_color"
	KeyChatFallback         = "chat.fallback"
	KeyLLMBaseURL           = "llm.base_url"
	KeyLLMModel             = "llm.model"
	KeyLLMAPIKey            = "llm.api_key"
	KeyOutboxMaxAttempts    = "outbox.max_attempts"
	KeyOutboxReplayInterval = "outbox.replay_interval"
)

type valueKind int

const (
	kindString valueKind = iota
	kindURL
	kindDuration
	kindInt
	kindFloat
	kindColor
	kindFallback
)

var settingKinds = map[string]valueKind{
	KeyBackendBaseURL:       kindURL,
	KeyBackendTimeout:       kindDuration,
	KeyBackendRateLimit:     kindFloat,
	KeyBackendBurst:         kindInt,
	KeyAuthURL:              kindURL,
	KeyAuthAPIKey:           kindString,
	KeyHighlightTextColor:   kindColor,
	KeyHighlightAreaColor:   kindColor,
	KeyChatFallback:         kindFallback,
	KeyLLMBaseURL:           kindURL,
	KeyLLMModel:             kindString,
	KeyLLMAPIKey:            kindString,
	KeyOutboxMaxAttempts:    kindInt,
	KeyOutboxReplayInterval: kindDuration,
}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
// Missing or invalid values fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Backend: domain.BackendSettings{
			BaseURL:   s.getString(KeyBackendBaseURL, defaults.Backend.BaseURL),
			Timeout:   s.getDuration(KeyBackendTimeout, defaults.Backend.Timeout),
			RateLimit: s.getFloat(KeyBackendRateLimit, defaults.Backend.RateLimit),
			Burst:     s.getInt(KeyBackendBurst, defaults.Backend.Burst),
		},
		Auth: domain.AuthSettings{
			URL:    s.getString(KeyAuthURL, defaults.Auth.URL),
			APIKey: s.configStore.GetString(KeyAuthAPIKey),
		},
		Highlight: domain.HighlightSettings{
			TextColor: s.getColor(KeyHighlightTextColor, defaults.Highlight.TextColor),
			AreaColor: s.getColor(KeyHighlightAreaColor, defaults.Highlight.AreaColor),
		},
		Chat: domain.ChatSettings{
			Fallback: s.getFallback(defaults.Chat.Fallback),
		},
		LLM: domain.LLMSettings{
			BaseURL: s.configStore.GetString(KeyLLMBaseURL),
			Model:   s.configStore.GetString(KeyLLMModel),
			APIKey:  s.configStore.GetString(KeyLLMAPIKey),
		},
		Outbox: domain.OutboxSettings{
			MaxAttempts:    s.getInt(KeyOutboxMaxAttempts, defaults.Outbox.MaxAttempts),
			ReplayInterval: s.getDuration(KeyOutboxReplayInterval, defaults.Outbox.ReplayInterval),
		},
	}

	return settings, nil
}

// Set validates and stores a single setting.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	value = strings.TrimSpace(value)

	var stored any = value
	switch kind {
	case kindURL:
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("%w: %s must be an http(s) URL", domain.ErrInvalidInput, key)
		}
		stored = strings.TrimRight(value, "/")
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: %s must be a positive duration such as 30s", domain.ErrInvalidInput, key)
		}
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidInput, key)
		}
		stored = int64(n)
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("%w: %s must be a positive number", domain.ErrInvalidInput, key)
		}
		stored = f
	case kindColor:
		if !hexColor.MatchString(value) {
			return fmt.Errorf("%w: %s must be a hex colour such as #FFE28F", domain.ErrInvalidInput, key)
		}
		stored = strings.ToUpper(value)
	case kindFallback:
		if !domain.FallbackMode(value).IsValid() {
			return fmt.Errorf("%w: %s must be static or llm", domain.ErrInvalidInput, key)
		}
	}

	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Value returns the raw stored value for key formatted as a string.
func (s *SettingsService) Value(key string) (string, bool) {
	v, ok := s.configStore.Get(key)
	if !ok {
		return "", false
	}
	return fmt.Sprint(v), true
}

// Keys lists the recognised setting keys, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Path returns where settings are stored.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getColor(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if !hexColor.MatchString(val) {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFallback(defaultVal domain.FallbackMode) domain.FallbackMode {
	mode := domain.FallbackMode(s.configStore.GetString(KeyChatFallback))
	if !mode.IsValid() {
		return defaultVal
	}
	return mode
}

package driving

import "github.com/custodia-labs/marginalia/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Set validates and stores a single setting by key.
	Set(key, value string) error

	// Value returns the raw value stored for a key.
	Value(key string) (string, bool)

	// Keys lists the recognised setting keys.
	Keys() []string

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// Path returns where settings are stored.
	Path() string
}

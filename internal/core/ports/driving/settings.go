package driving

import "github.com/cuker/dockit/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings, with defaults for unset keys.
	Get() (*domain.Settings, error)

	// Save validates and persists settings.
	Save(settings *domain.Settings) error

	// Set updates a single setting by its dotted key, e.g. "reindex.batch_size".
	Set(key, value string) error

	// Keys lists the supported setting keys.
	Keys() []string
}

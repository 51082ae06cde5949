package driving

import "github.com/custodia-labs/sercha-answers/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings, normalized.
	Get() (domain.Settings, error)

	// Save persists settings. Changes that alter answer content
	// invalidate the response cache.
	Save(settings domain.Settings) error

	// Set updates a single setting by key from its string form.
	Set(key, value string) error

	// Keys returns the settable keys in display order.
	Keys() []string
}

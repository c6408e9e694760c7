package driving

import "github.com/custodia-labs/dossier/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Set stores a single dotted key.
	Set(key string, value any) error

	// Validate checks provider configuration.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}

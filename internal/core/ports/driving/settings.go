package driving

import (
	"context"

	"github.com/custodia-labs/studyrag/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with defaults and
	// environment overrides applied.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set parses and stores a single dot-notation key.
	Set(key, value string) error

	// Keys returns every settable key in display order.
	Keys() []string

	// Validate checks that the current settings are consistent and that the
	// configured AI providers are reachable.
	Validate(ctx context.Context) error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}

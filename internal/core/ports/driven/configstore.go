package driven

import (
	"context"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
)

// SourceConfigStore loads and persists the declarative source set.
// Implementations handle the storage format (e.g. a TOML file).
type SourceConfigStore interface {
	// Load reads all source configurations.
	// Returns domain.ErrNotFound when no configuration exists yet;
	// startup then falls back to the built-in default source list.
	Load(ctx context.Context) ([]domain.SourceConfig, error)

	// Save persists the full source configuration set, replacing
	// whatever was stored before. This is the only durable mutation
	// path for source settings.
	Save(ctx context.Context, configs []domain.SourceConfig) error

	// Path returns the backing location, for display purposes.
	Path() string
}

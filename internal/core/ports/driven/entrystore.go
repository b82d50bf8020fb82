package driven

import (
	"context"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
)

// EntryStore persists unified entries for downstream consumers.
type EntryStore interface {
	// SaveEntries stores a batch of unified entries.
	// Entries with an already-stored ID are overwritten.
	SaveEntries(ctx context.Context, entries []domain.UnifiedEntry) error

	// ListBySource returns stored entries for one source,
	// most recent first.
	ListBySource(ctx context.Context, source string, limit int) ([]domain.UnifiedEntry, error)

	// Count returns the total number of stored entries.
	Count(ctx context.Context) (int64, error)

	// Close releases resources.
	Close() error
}

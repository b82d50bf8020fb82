package driving

import (
	"context"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
)

// IngestionManager orchestrates fetching across all configured sources
// and exposes the admin/status surface.
//
// FetchAll and FetchBySource never return an error attributable to a
// downstream source; callers receive a possibly partial, possibly empty
// unified list, and the status surface carries the structured reason a
// given source under-performed.
type IngestionManager interface {
	// FetchAll queries every configured source, substituting each
	// source's fallback output where the real fetch is impossible.
	// Entries from the same source preserve that source's emission
	// order; sources are merged in priority order.
	FetchAll(ctx context.Context, query domain.Query) ([]domain.UnifiedEntry, error)

	// FetchBySource queries one named source.
	// Returns an empty list when the source is unknown or disabled.
	FetchBySource(ctx context.Context, name string, query domain.Query) ([]domain.UnifiedEntry, error)

	// SourceStatus returns the read-only snapshot for one source.
	SourceStatus(name string) (*domain.SourceStatus, error)

	// AllSourcesStatus returns snapshots for every configured source,
	// priority-descending.
	AllSourcesStatus() []domain.SourceStatus

	// Enable, Disable, SetPriority and SetFallbackMode edit the
	// in-memory configuration. Edits are not durable until SaveConfig.
	Enable(name string) error
	Disable(name string) error
	SetPriority(name string, priority int) error
	SetFallbackMode(name string, mode domain.FallbackMode) error

	// SaveConfig persists the full current source configuration set.
	SaveConfig(ctx context.Context) error
}

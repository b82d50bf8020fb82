package driven

import (
	"context"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
)

// SourceClient fetches raw adverse-event entries from one external
// provider. Each source type (openfda, pubmed, ctgov, ...) implements
// this interface.
//
// Fetch is the only method a concrete source author has to write, and
// it may fail in any way: the safe-fetch layer above classifies errors,
// retries transient ones and substitutes the configured fallback, so a
// broken client can never take the pipeline down.
type SourceClient interface {
	// Name returns the unique source key this client serves.
	Name() string

	// Fetch retrieves raw entries matching the query.
	// Errors should be tagged via domain.Transient/domain.ClientError
	// (or domain.ClassifyHTTPStatus); untagged errors are treated as
	// client faults and not retried.
	Fetch(ctx context.Context, query domain.Query) ([]domain.RawEntry, error)

	// Close releases resources.
	Close() error
}

// EntryNormaliser is an optional upgrade interface for clients whose
// payloads differ materially from the common aliased field names.
// Clients that don't implement it get the default normaliser.
type EntryNormaliser interface {
	// Normalise maps one raw payload to the unified schema.
	Normalise(raw domain.RawEntry) (*domain.UnifiedEntry, error)
}

// ClientBuilder creates a SourceClient from its resolved configuration.
// Builders are registered with the SourceRegistry per source name.
type ClientBuilder func(cfg domain.SourceConfig) (SourceClient, error)

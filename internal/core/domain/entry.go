package domain

import "time"

// MaxNarrativeLength bounds the free-form narrative carried by a UnifiedEntry.
// Longer texts are truncated during normalisation.
const MaxNarrativeLength = 4000

// RawEntry is an opaque payload as returned by a source client,
// before normalisation. Field names and shapes vary per source.
type RawEntry map[string]any

// UnifiedEntry is an adverse-event record in the common schema.
// It is the only record type that crosses the ingestion boundary;
// every source's output is normalised into this shape.
type UnifiedEntry struct {
	// ID is a deterministic identifier derived from the source name
	// and the raw payload. The same payload always yields the same ID.
	ID string `json:"id"`

	// Timestamp is when the event was reported or published.
	// Nil when the source did not provide a parseable date.
	Timestamp *time.Time `json:"timestamp,omitempty"`

	// Drug is the canonicalised drug name.
	Drug string `json:"drug"`

	// Reaction is the reported adverse reaction, if any.
	Reaction string `json:"reaction,omitempty"`

	// Confidence estimates how reliable the record is (0-1).
	// Estimated from the payload when the source omitted it.
	Confidence float64 `json:"confidence"`

	// Severity estimates how serious the event is (0-1).
	// Estimated from the narrative when the source omitted it.
	Severity float64 `json:"severity"`

	// Text is the free-form narrative, truncated to MaxNarrativeLength.
	Text string `json:"text,omitempty"`

	// Source is the name of the client that emitted this entry.
	// Always non-empty.
	Source string `json:"source"`

	// Metadata carries the untouched raw payload and any
	// source-specific fields under open string keys.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Query describes one ingestion request issued to the manager.
type Query struct {
	// DrugName is the drug to search adverse events for. Required.
	DrugName string

	// Reaction optionally narrows results to a specific reaction.
	Reaction string

	// Limit optionally caps the number of entries requested per source.
	Limit int

	// Since and Until optionally bound the report date range.
	Since *time.Time
	Until *time.Time
}

// Validate checks the query for client-side errors.
func (q Query) Validate() error {
	if q.DrugName == "" {
		return ClientError(ErrInvalidInput)
	}
	if q.Limit < 0 {
		return ClientError(ErrInvalidInput)
	}
	if q.Since != nil && q.Until != nil && q.Since.After(*q.Until) {
		return ClientError(ErrInvalidInput)
	}
	return nil
}

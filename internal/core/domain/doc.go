// Package domain defines the core business entities for Vigil.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - UnifiedEntry: An adverse-event record in the common schema
//   - RawEntry: An opaque payload fetched by a source client
//   - SourceConfig: Declarative configuration for one data source
//   - RuntimeStats: Per-source operational counters
//   - RetryPolicy: Bounded-retry parameters for safe fetching
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain

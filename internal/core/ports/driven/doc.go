// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - SourceClient: Fetches raw adverse-event entries from one provider
//   - SourceConfigStore: Loads and persists the declarative source set
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EntryStore: Persists fetched unified entries for downstream
//     analytics. Without it, fetch results are only returned to the caller.
//   - EntryNormaliser: Per-source normalisation override. Sources that
//     don't implement it get the default alias-map normaliser.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven

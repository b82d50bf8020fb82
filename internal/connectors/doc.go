// Package connectors provides implementations of the SourceClient
// interface for the external adverse-event providers. Each connector
// knows how to fetch raw entries from a specific API family (openFDA,
// PubMed, ClinicalTrials.gov, FHIR feeds, RSS safety alerts).
//
// Connector builders are registered with the SourceRegistry at startup.
// Connectors only classify their own failures; retries, fallbacks and
// fault isolation live above them in the safe-fetch layer.
package connectors

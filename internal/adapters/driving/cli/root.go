// Package cli contains the cobra command tree. Commands talk to the
// core exclusively through the driving ports, wired in via Configure.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/pharmos-labs/vigil-cli/internal/core/ports/driven"
	"github.com/pharmos-labs/vigil-cli/internal/core/ports/driving"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services wired in by the composition root.
var (
	manager    driving.IngestionManager
	entryStore driven.EntryStore
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Aggregate adverse-event drug data from multiple sources",
	Long: `Vigil fetches adverse-event reports for a drug from openFDA,
PubMed, ClinicalTrials.gov, FHIR servers and the MedWatch feed,
normalises them into one schema and keeps going when individual
sources misbehave.`,
	SilenceUsage: true,
}

// Dependencies holds everything the command tree needs.
type Dependencies struct {
	Manager    driving.IngestionManager
	EntryStore driven.EntryStore
	Version    string
}

// Configure wires the services into the command tree.
// Must be called before Execute.
func Configure(deps Dependencies) {
	manager = deps.Manager
	entryStore = deps.EntryStore
	if deps.Version != "" {
		version = deps.Version
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

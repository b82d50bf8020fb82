package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
)

var (
	fetchSource   string
	fetchReaction string
	fetchLimit    int
	fetchSince    string
	fetchUntil    string
	fetchJSON     bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [drug]",
	Short: "Fetch adverse-event entries for a drug",
	Long: `Fetches adverse-event entries for a drug from all configured
sources (or one source with --source) and prints the merged unified
list. Sources that fail or are disabled contribute their configured
fallback output instead of aborting the run.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchSource, "source", "s", "", "fetch from a single source only")
	fetchCmd.Flags().StringVarP(&fetchReaction, "reaction", "r", "", "narrow results to a specific reaction")
	fetchCmd.Flags().IntVarP(&fetchLimit, "limit", "n", 0, "maximum entries per source")
	fetchCmd.Flags().StringVar(&fetchSince, "since", "", "earliest report date (YYYY-MM-DD)")
	fetchCmd.Flags().StringVar(&fetchUntil, "until", "", "latest report date (YYYY-MM-DD)")
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "output entries as JSON")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if manager == nil {
		return errors.New("ingestion manager not configured")
	}

	query := domain.Query{
		DrugName: args[0],
		Reaction: fetchReaction,
		Limit:    fetchLimit,
	}

	var err error
	if query.Since, err = parseDateFlag(fetchSince); err != nil {
		return fmt.Errorf("invalid --since: %w", err)
	}
	if query.Until, err = parseDateFlag(fetchUntil); err != nil {
		return fmt.Errorf("invalid --until: %w", err)
	}

	ctx := context.Background()

	var entries []domain.UnifiedEntry
	if fetchSource != "" {
		entries, err = manager.FetchBySource(ctx, fetchSource, query)
	} else {
		entries, err = manager.FetchAll(ctx, query)
	}
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	if fetchJSON {
		return outputEntriesJSON(cmd, entries)
	}
	return outputEntriesTable(cmd, entries)
}

func parseDateFlag(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func outputEntriesJSON(cmd *cobra.Command, entries []domain.UnifiedEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entries: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputEntriesTable(cmd *cobra.Command, entries []domain.UnifiedEntry) error {
	if len(entries) == 0 {
		cmd.Println("No entries found.")
		return nil
	}

	cmd.Printf("Entries (%d):\n\n", len(entries))
	for i := range entries {
		e := &entries[i]

		headline := e.Reaction
		if headline == "" {
			headline = e.Text
		}
		cmd.Printf("  [%d] %s (severity %.2f, confidence %.2f)\n", i+1, headline, e.Severity, e.Confidence)
		cmd.Printf("      Source: %s", e.Source)
		if e.Drug != "" {
			cmd.Printf("  Drug: %s", e.Drug)
		}
		if e.Timestamp != nil {
			cmd.Printf("  Date: %s", e.Timestamp.Format("2006-01-02"))
		}
		cmd.Println()
		cmd.Println()
	}
	return nil
}

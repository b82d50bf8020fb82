package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var entriesLimit int

var entriesCmd = &cobra.Command{
	Use:   "entries [source]",
	Short: "List previously fetched entries from local storage",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntries,
}

func init() {
	entriesCmd.Flags().IntVarP(&entriesLimit, "limit", "n", 20, "maximum entries to show")
	rootCmd.AddCommand(entriesCmd)
}

func runEntries(cmd *cobra.Command, args []string) error {
	if entryStore == nil {
		return errors.New("entry store not configured")
	}

	ctx := context.Background()
	entries, err := entryStore.ListBySource(ctx, args[0], entriesLimit)
	if err != nil {
		return fmt.Errorf("listing entries: %w", err)
	}

	total, err := entryStore.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting entries: %w", err)
	}

	if err := outputEntriesTable(cmd, entries); err != nil {
		return err
	}
	cmd.Printf("%d entries stored in total.\n", total)
	return nil
}

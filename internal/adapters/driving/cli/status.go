package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status [source]",
	Short: "Show source health and fetch counters",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if manager == nil {
		return errors.New("ingestion manager not configured")
	}

	var statuses []domain.SourceStatus
	if len(args) == 1 {
		status, err := manager.SourceStatus(args[0])
		if err != nil {
			return fmt.Errorf("source %s: %w", args[0], err)
		}
		statuses = []domain.SourceStatus{*status}
	} else {
		statuses = manager.AllSourcesStatus()
	}

	if statusJSON {
		data, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	for _, s := range statuses {
		state := "disabled"
		if s.Enabled {
			state = "enabled"
		}
		cmd.Printf("%s (%s)\n", s.Name, state)
		cmd.Printf("  Fetches: %d  Errors: %d\n", s.FetchCount, s.ErrorCount)
		if !s.LastFetchAt.IsZero() {
			cmd.Printf("  Last fetch: %s\n", s.LastFetchAt.Format("2006-01-02 15:04:05"))
		}
		if s.LastError != "" {
			cmd.Printf("  Last error: %s\n", s.LastError)
		}
		cmd.Println()
	}
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
)

var sourcesSave bool

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage data sources",
	Long: `List and configure data sources. Enablement, priority and
fallback edits apply immediately but only survive a restart when saved
with --save (or 'vigil sources save').`,
	RunE: runSourcesList,
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sources",
	RunE:  runSourcesList,
}

var sourcesEnableCmd = &cobra.Command{
	Use:   "enable [source]",
	Short: "Enable a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editSource(cmd, args[0], "enabled", func(name string) error {
			return manager.Enable(name)
		})
	},
}

var sourcesDisableCmd = &cobra.Command{
	Use:   "disable [source]",
	Short: "Disable a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editSource(cmd, args[0], "disabled", func(name string) error {
			return manager.Disable(name)
		})
	},
}

var sourcesPriorityCmd = &cobra.Command{
	Use:   "set-priority [source] [priority]",
	Short: "Set a source's fetch priority (higher fetches first)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		priority, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid priority %q: %w", args[1], err)
		}
		return editSource(cmd, args[0], fmt.Sprintf("priority %d", priority), func(name string) error {
			return manager.SetPriority(name, priority)
		})
	},
}

var sourcesFallbackCmd = &cobra.Command{
	Use:   "set-fallback [source] [silent|warning|dummy]",
	Short: "Set a source's degraded-output policy",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := domain.ParseFallbackMode(args[1])
		if err != nil {
			return err
		}
		return editSource(cmd, args[0], fmt.Sprintf("fallback %s", mode), func(name string) error {
			return manager.SetFallbackMode(name, mode)
		})
	},
}

var sourcesSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Persist the current source configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if manager == nil {
			return errors.New("ingestion manager not configured")
		}
		if err := manager.SaveConfig(context.Background()); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
		cmd.Println("Configuration saved.")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{sourcesEnableCmd, sourcesDisableCmd, sourcesPriorityCmd, sourcesFallbackCmd} {
		c.Flags().BoolVar(&sourcesSave, "save", false, "persist the change")
	}
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesEnableCmd)
	sourcesCmd.AddCommand(sourcesDisableCmd)
	sourcesCmd.AddCommand(sourcesPriorityCmd)
	sourcesCmd.AddCommand(sourcesFallbackCmd)
	sourcesCmd.AddCommand(sourcesSaveCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func runSourcesList(cmd *cobra.Command, _ []string) error {
	if manager == nil {
		return errors.New("ingestion manager not configured")
	}

	statuses := manager.AllSourcesStatus()
	if len(statuses) == 0 {
		cmd.Println("No sources configured.")
		return nil
	}

	cmd.Println("Sources:")
	cmd.Println()
	for _, s := range statuses {
		state := "disabled"
		if s.Enabled {
			state = "enabled"
		}
		key := ""
		if !s.HasKey {
			key = "  (no API key)"
		}
		cmd.Printf("  %-10s %-8s priority %-4d fallback %-8s%s\n",
			s.Name, state, s.Priority, s.Fallback, key)
	}
	return nil
}

func editSource(cmd *cobra.Command, name, change string, apply func(string) error) error {
	if manager == nil {
		return errors.New("ingestion manager not configured")
	}
	if err := apply(name); err != nil {
		return fmt.Errorf("source %s: %w", name, err)
	}
	cmd.Printf("Source %s: %s\n", name, change)

	if sourcesSave {
		if err := manager.SaveConfig(context.Background()); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
		cmd.Println("Configuration saved.")
	} else {
		cmd.Println("Not persisted; re-run with --save or use 'vigil sources save'.")
	}
	return nil
}

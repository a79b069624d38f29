package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"unipkg/internal/ui"
)

var cleanOlderThan time.Duration

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old history entries",
	Long: `Delete operation history entries older than --older-than.

Examples:
  unipkg clean                     # Keep the last 90 days
  unipkg clean --older-than 168h   # Keep the last week`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().DurationVar(&cleanOlderThan, "older-than", 90*24*time.Hour, "age of the entries to delete")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	if historyStore == nil {
		return errors.New("operation history is not available")
	}
	if cleanOlderThan <= 0 {
		return errors.New("--older-than must be positive")
	}

	deleted, err := historyStore.Prune(cleanOlderThan)
	if err != nil {
		return err
	}
	if deleted == 0 {
		ui.MutedMsg("Nothing to clean")
		return nil
	}
	ui.SuccessMsg("Removed %d history entries", deleted)
	return nil
}

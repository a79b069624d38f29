package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"unipkg/internal/history"
	"unipkg/internal/ui"
)

var (
	historyLimit int
	historyClear bool
)

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "Show operation history",
	Long: `Display the operations unipkg performed. Pass an operation id to see
the full output of every attempt.

Examples:
  unipkg history              # Show recent history
  unipkg history -l 20 -m npm # Last 20 npm operations
  unipkg history 3f2c...      # Full log of one operation`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 10, "number of entries to show")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete every entry")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyStore == nil {
		return errors.New("operation history is not available")
	}

	if historyClear {
		if ok, err := confirm("Delete the whole operation history?"); err != nil || !ok {
			return err
		}
		return historyStore.Clear()
	}

	if len(args) == 1 {
		entry, err := historyStore.Get(args[0])
		if err != nil {
			return err
		}
		ui.HeaderMsg("%s", entry.Summary())
		fmt.Print(entry.Log())
		if entry.Hint != "" {
			ui.WarningMsg("hint: %s", entry.Hint)
		}
		return nil
	}

	entries, err := historyStore.Find(historyLimit, func(e *history.Entry) bool {
		if len(managerNames) == 0 {
			return true
		}
		for _, m := range managerNames {
			if e.Matches(m, "") {
				return true
			}
		}
		return false
	})
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(entries) == 0 {
		ui.MutedMsg("No history entries found")
		return nil
	}

	ui.HeaderMsg("Operation History")
	for i, entry := range entries {
		fmt.Printf("%2d. %s %s %s [%s] (%s)\n",
			i+1,
			ui.Muted.Sprint(entry.FormatTime()),
			ui.Bold(entry.Kind),
			entry.Package(),
			ui.Cyan(entry.Manager),
			ui.VerdictLabel(entry.Verdict),
		)
		ui.MutedMsg("    %s", entry.ID)
	}

	total, _ := historyStore.Count()
	ui.MutedMsg("\nShowing %d of %d total entries", len(entries), total)
	return nil
}

// confirm asks unless --yes was given.
func confirm(prompt string) (bool, error) {
	if cfg.General.AutoConfirm {
		return true, nil
	}
	return ui.Confirm(prompt, false)
}

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"unipkg/internal/ui"
	"unipkg/pkg/operation"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage package manager sources",
	Long: `List, add and remove the catalogs (buckets, remotes, feeds) package
managers install from.

Examples:
  unipkg sources list                         # Every manager with sources
  unipkg sources list scoop
  unipkg sources add scoop extras
  unipkg sources add flatpak flathub-beta https://flathub.org/beta-repo/flathub-beta.flatpakrepo
  unipkg sources remove chocolatey internal`,
}

var sourcesListCmd = &cobra.Command{
	Use:   "list [manager]",
	Short: "List sources",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names := managerNames
		if len(args) == 1 {
			names = args
		}
		mgrs, err := eng.Managers(names...)
		if err != nil {
			return err
		}

		shown := 0
		for _, mgr := range mgrs {
			sources, err := eng.Sources(cmd.Context(), mgr.Name())
			if errors.Is(err, operation.ErrNoSources) {
				continue
			}
			if err != nil {
				ui.WarningMsg("%s: %v", mgr.DisplayName(), err)
				continue
			}
			ui.HeaderMsg("%s", mgr.DisplayName())
			ui.PrintSources(os.Stdout, sources)
			shown++
		}
		if shown == 0 {
			ui.MutedMsg("No package manager with sources is available")
		}
		return nil
	},
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add <manager> <name> [url]",
	Short: "Add a source",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := ""
		if len(args) == 3 {
			url = args[2]
		}
		progress.start(fmt.Sprintf("Adding source %s to %s", args[1], args[0]))
		out, err := eng.AddSource(cmd.Context(), args[0], args[1], url)
		progress.stop()
		return reportSourceOutcome(out, err)
	},
}

var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove <manager> <name>",
	Short: "Remove a source",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		progress.start(fmt.Sprintf("Removing source %s from %s", args[1], args[0]))
		out, err := eng.RemoveSource(cmd.Context(), args[0], args[1])
		progress.stop()
		return reportSourceOutcome(out, err)
	},
}

func reportSourceOutcome(out *operation.Outcome, err error) error {
	if err != nil {
		return err
	}
	ui.PrintOutcome(os.Stdout, out, cfg.Output.Verbose)
	if !out.Succeeded() {
		return ErrOperationFailed
	}
	return nil
}

func init() {
	sourcesCmd.AddCommand(sourcesListCmd, sourcesAddCmd, sourcesRemoveCmd)
	rootCmd.AddCommand(sourcesCmd)
}

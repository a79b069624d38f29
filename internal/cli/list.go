package cli

import (
	"os"

	"github.com/spf13/cobra"

	"unipkg/internal/ui"
	"unipkg/pkg/manager"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List installed packages",
	Long: `List packages installed through every available package manager,
or those named with --manager.

Examples:
  unipkg list               # Everything
  unipkg list -m npm,pip    # Only npm and pip packages`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		installed, err := ui.WithSpinner("Listing installed packages", func() ([]*manager.Package, error) {
			return eng.GetInstalledPackages(ctx, managerNames...)
		})
		if err != nil {
			return err
		}
		ui.PrintPackages(os.Stdout, installed)
		return nil
	},
}

var updatesCmd = &cobra.Command{
	Use:   "updates",
	Short: "List available updates",
	Long: `List the updates available from every package manager. Updates
you chose to ignore (see "unipkg ignore") are left out.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		updates, err := ui.WithSpinner("Checking for updates", func() ([]*manager.Package, error) {
			return eng.GetAvailableUpdates(ctx, managerNames...)
		})
		if err != nil {
			return err
		}
		ui.PrintUpdates(os.Stdout, updates)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(updatesCmd)
}

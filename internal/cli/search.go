package cli

import (
	"os"

	"github.com/spf13/cobra"

	"unipkg/internal/ui"
	"unipkg/pkg/manager"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for packages",
	Long: `Search every available package manager, or those named with
--manager. Installed packages are marked.

Examples:
  unipkg search firefox           # Search every manager
  unipkg search requests -m pip   # Search pip only
  unipkg search git -m native     # Search the system package manager`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 0, "maximum number of results (0 = no limit)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	found, err := ui.WithSpinner("Searching for "+args[0], func() ([]*manager.Package, error) {
		return eng.FindPackages(ctx, args[0], managerNames...)
	})
	if err != nil {
		return err
	}

	if searchLimit > 0 && len(found) > searchLimit {
		found = found[:searchLimit]
	}
	ui.PrintPackages(os.Stdout, found)
	return nil
}

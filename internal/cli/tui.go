package cli

import (
	"github.com/spf13/cobra"

	"unipkg/internal/tui"
	"unipkg/pkg/manager"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal interface",
	Long: `Launch the interactive terminal interface.

Navigation:
  - Use arrow keys or j/k to move, tab to switch lists
  - Press space to mark a package, a to mark all
  - Press / to search
  - Press u to update, i to install, r to uninstall
  - Press x to ignore updates of a package
  - Press ? for help, q to quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.Run(cmd.Context(), eng, managerNames, manager.InstallOptions{})
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

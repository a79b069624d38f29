package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"unipkg/internal/ui"
	"unipkg/pkg/manager"
)

var ignoreVersion string

var ignoreCmd = &cobra.Command{
	Use:   "ignore",
	Short: "Manage ignored updates",
	Long: `Ignored updates are left out of "unipkg updates" and "unipkg update --all".
An entry either ignores every future version or one specific version.

Examples:
  unipkg ignore add Microsoft.Teams -m winget          # Ignore every update
  unipkg ignore add typescript -m npm --version 5.7.0  # Skip one version
  unipkg ignore remove Microsoft.Teams -m winget
  unipkg ignore list`,
}

var ignoreAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Ignore updates of an installed package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pkg, err := resolvePackage(cmd.Context(), args[0], manager.OperationUninstall)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		if err := eng.IgnoreUpdates(pkg, ignoreVersion); err != nil {
			return err
		}
		if ignoreVersion == "" {
			ui.SuccessMsg("Ignoring every update of %s", pkg.IgnoredID())
		} else {
			ui.SuccessMsg("Ignoring version %s of %s", ignoreVersion, pkg.IgnoredID())
		}
		return nil
	},
}

var ignoreRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Stop ignoring updates of a package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pkg, err := resolvePackage(cmd.Context(), args[0], manager.OperationUninstall)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		if err := eng.UnignoreUpdates(pkg); err != nil {
			return err
		}
		ui.SuccessMsg("Updates of %s are no longer ignored", pkg.IgnoredID())
		return nil
	},
}

var ignoreListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ignored updates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := eng.IgnoredUpdates()
		if err != nil {
			return err
		}
		ui.PrintIgnored(os.Stdout, entries)
		return nil
	},
}

func init() {
	ignoreAddCmd.Flags().StringVar(&ignoreVersion, "version", "", "ignore only this version")
	ignoreCmd.AddCommand(ignoreAddCmd, ignoreRemoveCmd, ignoreListCmd)
	rootCmd.AddCommand(ignoreCmd)
}

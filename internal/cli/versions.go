package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"unipkg/internal/ui"
	"unipkg/pkg/manager"
)

var versionsPick bool

var versionsCmd = &cobra.Command{
	Use:   "versions <id>",
	Short: "List the versions a package can be installed at",
	Long: `List installable versions, newest first. Any of them can be passed
to "unipkg install --version", or chosen from a menu with --pick.

Examples:
  unipkg versions typescript -m npm
  unipkg versions typescript -m npm --pick   # Choose one and install it`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pkg, err := resolvePackage(ctx, cfg.ResolveAlias(args[0]), manager.OperationInstall)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		versions, err := ui.WithSpinner("Fetching versions", func() ([]string, error) {
			return eng.InstallableVersions(ctx, pkg)
		})
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			ui.MutedMsg("No versions listed for %s", pkg.ID)
			return nil
		}

		if versionsPick {
			return installPicked(ctx, pkg, versions)
		}

		ui.HeaderMsg("%s [%s]", pkg.ID, pkg.Source)
		for _, v := range versions {
			ui.Println("  %s", v)
		}
		return nil
	},
}

func init() {
	versionsCmd.Flags().BoolVar(&versionsPick, "pick", false, "choose a version and install it")
	rootCmd.AddCommand(versionsCmd)
}

func installPicked(ctx context.Context, pkg *manager.Package, versions []string) error {
	v, err := ui.SelectString(versions, fmt.Sprintf("Version of %s to install", pkg.ID))
	if err != nil {
		return err
	}
	if err := confirmPlan(manager.OperationInstall, []*manager.Package{pkg}); err != nil {
		return err
	}
	opts := withDefaultScope(manager.InstallOptions{Version: v}, pkg)
	out, err := execute(ctx, pkg, opts, manager.OperationInstall)
	if err != nil {
		return err
	}
	if !out.Succeeded() {
		return fmt.Errorf("%w: %s %s", ErrOperationFailed, pkg.ID, v)
	}
	return nil
}

package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"unipkg/internal/history"
	"unipkg/internal/ui"
	"unipkg/pkg/manager"
)

var infoCmd = &cobra.Command{
	Use:   "info <id>",
	Short: "Show details of an installed package",
	Long: `Display what unipkg knows about an installed package: its manager,
source and scope, the available update, whether updates are ignored and
the last operation recorded for it.

Examples:
  unipkg info Git.Git
  unipkg info requests -m pip`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	pkg, err := resolvePackage(ctx, cfg.ResolveAlias(args[0]), manager.OperationUninstall)
	if err != nil {
		return err
	}

	ui.HeaderMsg("%s", pkg.Name)
	printField("ID", pkg.ID)
	printField("Version", pkg.Version)
	printField("Manager", pkg.Manager.DisplayName())
	if pkg.Source != nil {
		printField("Source", pkg.Source.Name)
	}
	if pkg.Scope != manager.ScopeDefault {
		printField("Scope", string(pkg.Scope))
	}

	updates, err := eng.GetAvailableUpdates(ctx, pkg.Manager.Name())
	if err == nil {
		for _, u := range updates {
			if u.Equals(pkg) {
				printField("Update", ui.NewVersion.Sprint(u.NewVersion()))
			}
		}
	}

	if ignoredList, err := eng.IgnoredUpdates(); err == nil {
		if v, ok := ignoredList[pkg.IgnoredID()]; ok {
			if v == manager.IgnoreAllVersions {
				v = "all versions"
			}
			printField("Ignored", v)
		}
	}

	if historyStore != nil {
		entries, err := historyStore.Find(1, func(e *history.Entry) bool {
			return e.Matches(pkg.Manager.Name(), pkg.ID)
		})
		if err == nil && len(entries) > 0 {
			printField("Last operation", strings.TrimSpace(entries[0].Summary()))
		}
	}
	return nil
}

package cli

import (
	"os"
	"slices"

	"github.com/spf13/cobra"

	"unipkg/internal/config"
	"unipkg/internal/executor"
	"unipkg/internal/ui"
	"unipkg/pkg/manager"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose system issues",
	Long: `Check that the package managers, configuration and local stores
unipkg relies on are usable. Every available manager is asked for its
installed packages, which never changes the system.

Examples:
  unipkg doctor             # Run diagnostics
  unipkg doctor -m npm      # Only check npm`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	issues := 0

	ui.HeaderMsg("System")
	if info := registry.SystemInfo(); info != nil {
		ui.SuccessMsg("Detected %s (%s)", info.PrettyName, info.Arch)
	} else {
		ui.ErrorMsg("System detection failed")
		issues++
	}
	switch elevator, ok := executor.Elevator(); {
	case executor.IsRoot():
		ui.SuccessMsg("Running elevated")
	case ok:
		ui.SuccessMsg("Elevated operations use %s", elevator)
	default:
		ui.WarningMsg("Neither sudo nor gsudo is installed; operations that need elevation will fail")
	}

	ui.HeaderMsg("Configuration")
	path := cfgFile
	if path == "" {
		path = config.ConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		ui.SuccessMsg("Config file: %s", path)
	} else {
		ui.MutedMsg("No config file at %s, using defaults", path)
	}
	if settingsStore != nil {
		ui.SuccessMsg("Settings: %s", config.SettingsPath())
	} else {
		ui.ErrorMsg("Settings store could not be opened")
		issues++
	}
	if historyStore != nil {
		ui.SuccessMsg("History: %s", config.HistoryPath())
	} else {
		ui.WarningMsg("Operation history is not available")
	}
	if _, err := eng.IgnoredUpdates(); err != nil {
		ui.ErrorMsg("Ignored updates: %v", err)
		issues++
	}

	ui.HeaderMsg("Package Managers")
	var checked []manager.Manager
	for _, mgr := range registry.All() {
		if len(managerNames) > 0 && !slices.Contains(managerNames, mgr.Name()) {
			continue
		}
		if !mgr.IsAvailable() {
			ui.MutedMsg("%s is not installed", mgr.DisplayName())
			continue
		}
		checked = append(checked, mgr)
	}
	if len(checked) == 0 {
		ui.ErrorMsg("No package manager is available")
		issues++
	}
	for _, mgr := range checked {
		pkgs, err := ui.WithSpinner("Checking "+mgr.DisplayName(), func() ([]*manager.Package, error) {
			return eng.GetInstalledPackages(ctx, mgr.Name())
		})
		if err != nil {
			ui.ErrorMsg("%s: %v", mgr.DisplayName(), err)
			issues++
			continue
		}
		ui.SuccessMsg("%s works (%d packages installed)", mgr.DisplayName(), len(pkgs))
	}

	ui.HeaderMsg("Summary")
	if issues == 0 {
		ui.SuccessMsg("No issues found")
	} else {
		ui.WarningMsg("Found %d issue(s). Some features may not work correctly.", issues)
	}
	return nil
}

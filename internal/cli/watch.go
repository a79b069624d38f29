package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"unipkg/internal/ui"
	"unipkg/pkg/engine"
	"unipkg/pkg/manager"
)

var (
	watchSchedule string
	watchApply    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Check for updates on a schedule",
	Long: `Check for updates on a cron schedule until interrupted. With --apply
(or auto_update in the configuration) every update found is installed.

The schedule defaults to update_check_schedule from the configuration.

Examples:
  unipkg watch                        # Use the configured schedule
  unipkg watch --schedule "0 9 * * *" # Every day at 09:00
  unipkg watch --schedule "@every 30m" --apply -m npm`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "cron expression or @every duration")
	watchCmd.Flags().BoolVar(&watchApply, "apply", false, "install the updates that are found")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	spec := watchSchedule
	if spec == "" {
		spec = cfg.General.UpdateCheckSchedule
	}
	if err := engine.ValidateSchedule(spec); err != nil {
		return err
	}
	apply := watchApply || cfg.General.AutoUpdate
	opts := manager.InstallOptions{}

	check := func(ctx context.Context) {
		report, err := eng.CheckUpdates(ctx, apply, opts, managerNames...)
		if err != nil {
			ui.ErrorMsg("update check failed: %v", err)
			return
		}
		if len(report.Updates) == 0 {
			ui.MutedMsg("No updates available")
			return
		}
		if !apply {
			ui.InfoMsg("%d updates available", len(report.Updates))
			ui.PrintUpdates(os.Stdout, report.Updates)
			return
		}
		for _, out := range report.Outcomes {
			ui.PrintOutcome(os.Stdout, out, false)
		}
		if n := report.Failed(); n > 0 {
			ui.WarningMsg("%d of %d updates failed", n, len(report.Updates))
		}
	}

	ui.InfoMsg("Checking for updates on schedule %q; press Ctrl+C to stop", spec)
	return eng.Watch(cmd.Context(), spec, check)
}

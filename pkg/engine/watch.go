package engine

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"unipkg/pkg/manager"
	"unipkg/pkg/operation"
)

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule checks a cron expression such as "0 9 * * *" or "@every 1h".
func ValidateSchedule(spec string) error {
	if _, err := scheduleParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// UpdateReport is the result of one update check.
type UpdateReport struct {
	Updates  []*manager.Package
	Outcomes []*operation.Outcome
}

// Failed counts the updates that did not apply.
func (r UpdateReport) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			n++
		}
	}
	return n
}

// UpdateAll updates every package in turn and returns the outcomes in the
// same order. It stops early when ctx is done.
func (e *Engine) UpdateAll(ctx context.Context, pkgs []*manager.Package, opts manager.InstallOptions) ([]*operation.Outcome, error) {
	for _, p := range pkgs {
		p.SetTag(manager.TagQueued)
	}

	var outcomes []*operation.Outcome
	for i, p := range pkgs {
		if ctx.Err() != nil {
			for _, rest := range pkgs[i:] {
				rest.SetTag(manager.TagUpgradable)
			}
			return outcomes, ctx.Err()
		}
		out, err := e.Execute(ctx, p, opts, manager.OperationUpdate)
		if err != nil {
			e.log.Warn("cannot update package", "package", p.ID, "manager", p.Manager.Name(), "error", err)
			p.SetTag(manager.TagFailed)
			continue
		}
		if out.Verdict == manager.VerdictCanceled {
			// Run restores the tag it found, which is the queued one.
			p.SetTag(manager.TagUpgradable)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// CheckUpdates lists available updates and, when apply is set, installs them.
func (e *Engine) CheckUpdates(ctx context.Context, apply bool, opts manager.InstallOptions, managers ...string) (UpdateReport, error) {
	updates, err := e.GetAvailableUpdates(ctx, managers...)
	if err != nil {
		return UpdateReport{}, err
	}
	report := UpdateReport{Updates: updates}
	if !apply || len(updates) == 0 {
		return report, nil
	}
	report.Outcomes, err = e.UpdateAll(ctx, updates, opts)
	return report, err
}

// Watch runs check on the cron schedule spec until ctx is done. Runs never
// overlap; a tick that arrives while a check is still running is skipped.
func (e *Engine) Watch(ctx context.Context, spec string, check func(context.Context)) error {
	c := cron.New(
		cron.WithParser(scheduleParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(spec, func() { check(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	e.log.Info("watching for updates", "schedule", spec)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

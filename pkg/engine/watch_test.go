package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"unipkg/internal/config"
	"unipkg/internal/executor"
	"unipkg/pkg/manager"
	"unipkg/pkg/operation"
)

func TestValidateSchedule(t *testing.T) {
	for _, spec := range []string{"@every 1h", "0 9 * * 1-5", "@daily"} {
		if err := ValidateSchedule(spec); err != nil {
			t.Errorf("ValidateSchedule(%q) = %v", spec, err)
		}
	}
	for _, spec := range []string{"", "every hour", "* * *"} {
		if err := ValidateSchedule(spec); err == nil {
			t.Errorf("ValidateSchedule(%q) should fail", spec)
		}
	}
}

func TestCheckUpdates(t *testing.T) {
	apt := newStub("apt", manager.Capabilities{})
	apt.updates = map[string][2]string{"git": {"1.0", "1.1"}, "vim": {"9.0", "9.1"}}
	e := newTestEngine(t, nil, apt)

	report, err := e.CheckUpdates(context.Background(), false, manager.InstallOptions{})
	if err != nil || len(report.Updates) != 2 || report.Outcomes != nil {
		t.Fatalf("CheckUpdates(list) = %+v, %v", report, err)
	}

	report, err = e.CheckUpdates(context.Background(), true, manager.InstallOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Outcomes) != 2 || report.Failed() != 0 {
		t.Errorf("CheckUpdates(apply) outcomes = %d, failed = %d", len(report.Outcomes), report.Failed())
	}
	for _, p := range report.Updates {
		if p.Tag() != manager.TagDefault {
			t.Errorf("%s tag = %s after update", p.ID, p.Tag())
		}
	}
}

func TestUpdateAllStopsOnCancel(t *testing.T) {
	apt := newStub("apt", manager.Capabilities{})
	e := newTestEngine(t, nil, apt)
	pkgs := []*manager.Package{
		manager.NewUpgradablePackage("git", "git", "1.0", "1.1", apt.DefaultSource(), apt, manager.ScopeDefault),
		manager.NewUpgradablePackage("vim", "vim", "9.0", "9.1", apt.DefaultSource(), apt, manager.ScopeDefault),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes, err := e.UpdateAll(ctx, pkgs, manager.InstallOptions{})
	if err == nil || len(outcomes) != 0 {
		t.Errorf("UpdateAll() = %d outcomes, %v", len(outcomes), err)
	}
	if pkgs[1].Tag() != manager.TagUpgradable {
		t.Errorf("unprocessed package tag = %s", pkgs[1].Tag())
	}
}

// cancelExec cancels the surrounding context while the process runs.
type cancelExec struct{ cancel context.CancelFunc }

func (c cancelExec) Run(ctx context.Context, req executor.Request) (executor.Result, error) {
	c.cancel()
	return executor.Result{ExitCode: -1}, nil
}

func TestUpdateAllCanceledMidRunRestoresUpgradable(t *testing.T) {
	apt := newStub("apt", manager.Capabilities{})
	cfg := config.Default()
	reg := manager.NewRegistry(cfg)
	reg.Register(apt)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := New(reg, operation.New(cancelExec{cancel}, cfg), nil, cfg, nil)

	pkgs := []*manager.Package{
		manager.NewUpgradablePackage("git", "git", "1.0", "1.1", apt.DefaultSource(), apt, manager.ScopeDefault),
		manager.NewUpgradablePackage("vim", "vim", "9.0", "9.1", apt.DefaultSource(), apt, manager.ScopeDefault),
	}
	outcomes, err := e.UpdateAll(ctx, pkgs, manager.InstallOptions{})
	if err == nil || len(outcomes) != 1 {
		t.Fatalf("UpdateAll() = %d outcomes, %v", len(outcomes), err)
	}
	if outcomes[0].Verdict != manager.VerdictCanceled {
		t.Errorf("verdict = %s, want canceled", outcomes[0].Verdict)
	}
	for _, p := range pkgs {
		if p.Tag() != manager.TagUpgradable {
			t.Errorf("%s tag = %s, want upgradable", p.ID, p.Tag())
		}
	}
}

func TestWatchRunsUntilCanceled(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	var runs atomic.Int32
	if err := e.Watch(ctx, "@every 1s", func(context.Context) { runs.Add(1) }); err != nil {
		t.Fatal(err)
	}
	if n := runs.Load(); n < 1 {
		t.Errorf("check ran %d times", n)
	}

	if err := e.Watch(context.Background(), "not a schedule", func(context.Context) {}); err == nil {
		t.Error("expected schedule error")
	}
}

package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"unipkg/internal/config"
	"unipkg/internal/executor"
	"unipkg/pkg/manager"
	"unipkg/pkg/manager/backend"
	"unipkg/pkg/manager/backend/backendtest"
	"unipkg/pkg/operation"
)

type stubManager struct {
	*backend.Base
	helper manager.OperationHelper

	found     []string
	installed []string
	updates   map[string][2]string
	versions  []string
	failList  bool
	delay     time.Duration

	installedCalls atomic.Int32
	updateCalls    atomic.Int32
}

func newStub(name string, caps manager.Capabilities) *stubManager {
	m := &stubManager{
		Base: backend.NewBase(name, strings.ToUpper(name), name, manager.TypeNative, caps, backend.Deps{Exec: backendtest.NewQuerier()}),
	}
	m.SetDefaultSource(manager.NewSource(m, name, ""))
	m.helper = manager.NewOperationHelper(stubOps{}, nil)
	return m
}

func (m *stubManager) IsAvailable() bool                        { return true }
func (m *stubManager) OperationHelper() manager.OperationHelper { return m.helper }

func (m *stubManager) pkgs(ids []string) []*manager.Package {
	out := make([]*manager.Package, 0, len(ids))
	for _, id := range ids {
		out = append(out, manager.NewPackage(id, id, "1.0", m.DefaultSource(), m, manager.ScopeDefault))
	}
	return out
}

func (m *stubManager) FindPackages(ctx context.Context, q string) ([]*manager.Package, error) {
	return m.pkgs(m.found), nil
}

func (m *stubManager) ListInstalled(ctx context.Context) ([]*manager.Package, error) {
	m.installedCalls.Add(1)
	time.Sleep(m.delay)
	if m.failList {
		return nil, errors.New("exit status 1")
	}
	return m.pkgs(m.installed), nil
}

func (m *stubManager) ListUpdates(ctx context.Context) ([]*manager.Package, error) {
	m.updateCalls.Add(1)
	var out []*manager.Package
	for id, v := range m.updates {
		out = append(out, manager.NewUpgradablePackage(id, id, v[0], v[1], m.DefaultSource(), m, manager.ScopeDefault))
	}
	return out, nil
}

func (m *stubManager) InstallableVersions(ctx context.Context, pkg *manager.Package) ([]string, error) {
	return m.versions, nil
}

type stubOps struct{}

func (stubOps) OperationParameters(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType) ([]string, error) {
	return []string{op.String(), pkg.ID}, nil
}

func (stubOps) OperationResult(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType, output []string, exitCode int) manager.Verdict {
	if exitCode == 0 {
		return manager.VerdictSucceeded
	}
	return manager.VerdictFailed
}

type okExec struct{}

func (okExec) Run(ctx context.Context, req executor.Request) (executor.Result, error) {
	return executor.Result{}, nil
}

func newTestEngine(t *testing.T, ignored IgnoredStore, managers ...manager.Manager) *Engine {
	t.Helper()
	cfg := config.Default()
	reg := manager.NewRegistry(cfg)
	for _, m := range managers {
		reg.Register(m)
	}
	return New(reg, operation.New(okExec{}, cfg), ignored, cfg, nil)
}

func ids(pkgs []*manager.Package) string {
	var s []string
	for _, p := range pkgs {
		s = append(s, p.Manager.Name()+"/"+p.ID)
	}
	return strings.Join(s, ",")
}

func TestFindPackagesTagsInstalled(t *testing.T) {
	apt := newStub("apt", manager.Capabilities{})
	apt.found = []string{"git", "git-lfs"}
	apt.installed = []string{"git"}
	snap := newStub("snap", manager.Capabilities{})
	snap.found = []string{"git-ubuntu"}
	snap.failList = true

	e := newTestEngine(t, nil, snap, apt)
	found, err := e.FindPackages(context.Background(), "git")
	if err != nil {
		t.Fatalf("FindPackages() error = %v", err)
	}
	if got := ids(found); got != "apt/git,apt/git-lfs,snap/git-ubuntu" {
		t.Fatalf("FindPackages() = %s", got)
	}
	if found[0].Tag() != manager.TagAlreadyInstalled || found[1].Tag() != manager.TagDefault {
		t.Errorf("tags = %s, %s", found[0].Tag(), found[1].Tag())
	}

	only, _ := e.FindPackages(context.Background(), "git", "snap")
	if ids(only) != "snap/git-ubuntu" {
		t.Errorf("filtered FindPackages() = %s", ids(only))
	}
	if _, err := e.FindPackages(context.Background(), "git", "brew"); !errors.Is(err, manager.ErrManagerNotFound) {
		t.Errorf("unknown manager error = %v", err)
	}
}

func TestFailingManagerIsSkipped(t *testing.T) {
	good := newStub("apt", manager.Capabilities{})
	good.installed = []string{"bash"}
	bad := newStub("snap", manager.Capabilities{})
	bad.failList = true

	installed, err := newTestEngine(t, nil, good, bad).GetInstalledPackages(context.Background())
	if err != nil || ids(installed) != "apt/bash" {
		t.Errorf("GetInstalledPackages() = %s, %v", ids(installed), err)
	}
}

func TestListingsAreDeduplicated(t *testing.T) {
	apt := newStub("apt", manager.Capabilities{})
	apt.installed = []string{"bash", "git"}
	apt.delay = 30 * time.Millisecond
	e := newTestEngine(t, nil, apt)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if pkgs, _ := e.GetInstalledPackages(context.Background()); len(pkgs) != 2 {
				t.Errorf("got %d packages", len(pkgs))
			}
		}()
	}
	wg.Wait()
	if _, err := e.GetInstalledPackages(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := apt.installedCalls.Load(); n != 1 {
		t.Errorf("ListInstalled ran %d times, want 1", n)
	}

	e.Invalidate("apt")
	_, _ = e.GetInstalledPackages(context.Background())
	if n := apt.installedCalls.Load(); n != 2 {
		t.Errorf("ListInstalled ran %d times after Invalidate, want 2", n)
	}
}

func TestUpdatesHonourIgnoredEntries(t *testing.T) {
	winget := newStub("winget", manager.Capabilities{})
	winget.updates = map[string][2]string{
		"Git.Git":             {"2.46.0", "2.47.0"},
		"Mozilla.Firefox":     {"130.0", "131.0"},
		"Microsoft.PowerToys": {"0.84.0", "0.85.1"},
	}
	ignored := backendtest.NewIgnored()
	ignored.Entries[`winget\Git.Git`] = manager.IgnoreAllVersions
	ignored.Entries[`winget\Mozilla.Firefox`] = "131.0"
	ignored.Entries[`winget\Microsoft.PowerToys`] = "0.85.0"

	updates, err := newTestEngine(t, ignored, winget).GetAvailableUpdates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ids(updates) != "winget/Microsoft.PowerToys" {
		t.Fatalf("GetAvailableUpdates() = %s", ids(updates))
	}
	if updates[0].Tag() != manager.TagUpgradable {
		t.Errorf("tag = %s", updates[0].Tag())
	}
}

func TestExecuteInvalidatesListings(t *testing.T) {
	apt := newStub("apt", manager.Capabilities{})
	apt.updates = map[string][2]string{"git": {"1.0", "1.1"}}
	e := newTestEngine(t, nil, apt)
	ctx := context.Background()

	updates, _ := e.GetAvailableUpdates(ctx)
	_, _ = e.GetAvailableUpdates(ctx)
	if n := apt.updateCalls.Load(); n != 1 {
		t.Fatalf("ListUpdates ran %d times, want 1", n)
	}

	out, err := e.Execute(ctx, updates[0], manager.InstallOptions{}, manager.OperationUpdate)
	if err != nil || out.Verdict != manager.VerdictSucceeded {
		t.Fatalf("Execute() = %v, %v", out, err)
	}
	_, _ = e.GetAvailableUpdates(ctx)
	if n := apt.updateCalls.Load(); n != 2 {
		t.Errorf("ListUpdates ran %d times after Execute, want 2", n)
	}
}

func TestInstallableVersionsSorted(t *testing.T) {
	npm := newStub("npm", manager.Capabilities{SupportsVersions: true})
	npm.versions = []string{"1.2.0", "1.10.0", "latest", "", "1.9.3", "2.0.0-rc.1", "1.10.0"}
	apt := newStub("apt", manager.Capabilities{})
	e := newTestEngine(t, nil, npm, apt)

	pkg := manager.NewPackage("left-pad", "left-pad", "", npm.DefaultSource(), npm, manager.ScopeDefault)
	got, err := e.InstallableVersions(context.Background(), pkg)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, ",") != "2.0.0-rc.1,1.10.0,1.9.3,1.2.0,latest" {
		t.Errorf("InstallableVersions() = %v", got)
	}
	if npm.versions[0] != "1.2.0" {
		t.Error("the manager's slice must not be reordered")
	}

	other := manager.NewPackage("bash", "bash", "", apt.DefaultSource(), apt, manager.ScopeDefault)
	if _, err := e.InstallableVersions(context.Background(), other); !errors.Is(err, manager.ErrUnsupported) {
		t.Errorf("unsupported manager error = %v", err)
	}
}

func TestIgnoreUpdates(t *testing.T) {
	ignored := backendtest.NewIgnored()
	winget := newStub("winget", manager.Capabilities{})
	e := newTestEngine(t, ignored, winget)
	pkg := manager.NewPackage("Git", "Git.Git", "2.46.0", winget.DefaultSource(), winget, manager.ScopeDefault)

	if err := e.IgnoreUpdates(pkg, ""); err != nil {
		t.Fatal(err)
	}
	all, _ := e.IgnoredUpdates()
	if all[`winget\Git.Git`] != manager.IgnoreAllVersions {
		t.Errorf("IgnoredUpdates() = %v", all)
	}
	if err := e.UnignoreUpdates(pkg); err != nil {
		t.Fatal(err)
	}
	if all, _ = e.IgnoredUpdates(); len(all) != 0 {
		t.Errorf("IgnoredUpdates() after unignore = %v", all)
	}

	if err := newTestEngine(t, nil, winget).IgnoreUpdates(pkg, ""); !errors.Is(err, manager.ErrUnsupported) {
		t.Errorf("IgnoreUpdates without a store = %v", err)
	}
}

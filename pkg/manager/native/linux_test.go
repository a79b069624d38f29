package native

import (
	"context"
	"strings"
	"testing"

	"unipkg/pkg/manager"
	"unipkg/pkg/manager/backend"
	"unipkg/pkg/manager/backend/backendtest"
)

func TestAPTListings(t *testing.T) {
	q := backendtest.NewQuerier().
		On("git\t1:2.34.1-1ubuntu1.10\tinstall ok installed\nvim\t2:8.2\tdeinstall ok config-files\nbroken", "dpkg-query", "-W", "-f=${Package}\t${Version}\t${Status}\n").
		On("Listing... Done\ngit/jammy-updates 1:2.34.1-1ubuntu1.11 amd64 [upgradable from: 1:2.34.1-1ubuntu1.10]", "apt", "list", "--upgradable").
		On("       git | 1:2.34.1-1ubuntu1.11 | http://archive.ubuntu.com/ubuntu jammy-updates/main amd64 Packages\n       git | 1:2.34.1-1ubuntu1 | http://archive.ubuntu.com/ubuntu jammy/main amd64 Packages", "apt-cache", "madison", "git")
	a := NewAPT(backend.Deps{Exec: q})
	ctx := context.Background()

	installed, err := a.ListInstalled(ctx)
	if err != nil || len(installed) != 1 {
		t.Fatalf("ListInstalled() = %v, %v", installed, err)
	}
	if installed[0].ID != "git" || installed[0].Version != "1:2.34.1-1ubuntu1.10" {
		t.Errorf("unexpected package %s", installed[0])
	}

	updates, _ := a.ListUpdates(ctx)
	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	if updates[0].Version != "1:2.34.1-1ubuntu1.10" || updates[0].NewVersion() != "1:2.34.1-1ubuntu1.11" {
		t.Errorf("unexpected update %s", updates[0])
	}

	versions, _ := a.InstallableVersions(ctx, installed[0])
	if strings.Join(versions, ",") != "1:2.34.1-1ubuntu1.11,1:2.34.1-1ubuntu1" {
		t.Errorf("unexpected versions %v", versions)
	}
}

func TestAPTOperations(t *testing.T) {
	a := NewAPT(backend.Deps{Exec: backendtest.NewQuerier()})
	helper := a.OperationHelper()
	pkg := manager.NewPackage("git", "git", "1:2.34.1", a.DefaultSource(), a, manager.ScopeMachine)

	args, _ := helper.Parameters(pkg, manager.InstallOptions{Version: "1:2.34.1-1ubuntu1"}, manager.OperationInstall)
	if got := strings.Join(args, " "); got != "install -y --allow-downgrades git=1:2.34.1-1ubuntu1" {
		t.Errorf("install Parameters() = %s", got)
	}
	args, _ = helper.Parameters(pkg, manager.InstallOptions{RemoveDataOnUninstall: true}, manager.OperationUninstall)
	if got := strings.Join(args, " "); got != "purge -y git" {
		t.Errorf("uninstall Parameters() = %s", got)
	}

	output := []string{
		"E: Could not open lock file /var/lib/dpkg/lock-frontend - open (13: Permission denied)",
		"E: Unable to acquire the dpkg frontend lock (/var/lib/dpkg/lock-frontend), are you root?",
	}
	if v := helper.Result(pkg, manager.InstallOptions{}, manager.OperationInstall, output, 100); v != manager.VerdictAutoRetry {
		t.Fatalf("Result() = %v, want auto-retry", v)
	}
	if v := helper.Result(pkg, manager.InstallOptions{}, manager.OperationInstall, output, 100); v != manager.VerdictFailed {
		t.Errorf("elevated failure = %v, want failed", v)
	}
}

func TestPacmanListings(t *testing.T) {
	search := strings.Join([]string{
		"core/git 2.47.0-1 [installed: 2.46.0-1]",
		"    the fast distributed version control system",
		"extra/git-lfs 3.5.1-1",
		"    Git extension for versioning large files",
	}, "\n")
	q := backendtest.NewQuerier().
		On(search, "-Ss", "git").
		On("git 2.46.0-1\nlinux 6.11.1.arch1-1\n", "-Q").
		On("git 2.46.0-1 -> 2.47.0-1\nlinux 6.11.1.arch1-1 -> 6.11.2.arch1-1 [ignored]", "-Qu")
	p := NewPacman(backend.Deps{Exec: q})
	ctx := context.Background()

	found, err := p.FindPackages(ctx, "git")
	if err != nil || len(found) != 2 {
		t.Fatalf("FindPackages() = %v, %v", found, err)
	}
	if found[0].Source.Name != "core" || found[0].Tag() != manager.TagAlreadyInstalled {
		t.Errorf("unexpected package %s from %s tagged %s", found[0], found[0].Source.Name, found[0].Tag())
	}
	if found[1].Source.Name != "extra" || found[1].Tag() != manager.TagDefault {
		t.Errorf("unexpected package %s", found[1])
	}

	installed, _ := p.ListInstalled(ctx)
	if len(installed) != 2 {
		t.Errorf("expected 2 installed packages, got %d", len(installed))
	}

	updates, _ := p.ListUpdates(ctx)
	if len(updates) != 1 || updates[0].NewVersion() != "2.47.0-1" {
		t.Errorf("unexpected updates %v", updates)
	}
}

func TestPacmanOperations(t *testing.T) {
	p := NewPacman(backend.Deps{Exec: backendtest.NewQuerier()})
	helper := p.OperationHelper()
	pkg := manager.NewPackage("git-lfs", "git-lfs", "", p.repo("extra"), p, manager.ScopeMachine)

	args, _ := helper.Parameters(pkg, manager.InstallOptions{}, manager.OperationInstall)
	if got := strings.Join(args, " "); got != "-S --noconfirm --needed extra/git-lfs" {
		t.Errorf("install Parameters() = %s", got)
	}
	args, _ = helper.Parameters(pkg, manager.InstallOptions{RemoveDataOnUninstall: true}, manager.OperationUninstall)
	if got := strings.Join(args, " "); got != "-Rns --noconfirm git-lfs" {
		t.Errorf("uninstall Parameters() = %s", got)
	}

	notRoot := []string{"error: you cannot perform this operation unless you are root."}
	if v := helper.Result(pkg, manager.InstallOptions{}, manager.OperationInstall, notRoot, 1); v != manager.VerdictAutoRetry {
		t.Fatalf("Result() = %v, want auto-retry", v)
	}
	if v := helper.Result(pkg, manager.InstallOptions{}, manager.OperationInstall, notRoot, 1); v != manager.VerdictFailed {
		t.Errorf("repeated not-root = %v, want failed", v)
	}

	locked := []string{"error: failed to init transaction (unable to lock database)"}
	if v := helper.Result(pkg, manager.InstallOptions{}, manager.OperationInstall, locked, 1); v != manager.VerdictFailed {
		t.Errorf("locked database = %v, want failed", v)
	}
	if hint := p.Explain(locked, 1); !strings.Contains(hint, "db.lck") {
		t.Errorf("Explain() = %q", hint)
	}
}

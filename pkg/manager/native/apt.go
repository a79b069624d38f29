package native

import (
	"context"
	"strings"

	"unipkg/pkg/manager"
	"unipkg/pkg/manager/backend"
)

// APT implements the Manager interface for Debian/Ubuntu's APT package manager.
// Operations go through apt-get; queries use apt-cache, dpkg-query and apt.
type APT struct {
	*backend.Base
	helper manager.OperationHelper
}

// NewAPT creates a new APT manager instance.
func NewAPT(deps backend.Deps) *APT {
	a := &APT{
		Base: backend.NewBase("apt", "APT (Debian/Ubuntu)", "apt-get", manager.TypeNative, manager.Capabilities{
			CanRunAsAdmin:    true,
			SupportsVersions: true,
		}, deps),
	}
	a.SetDefaultSource(manager.NewSource(a, "apt", ""))
	a.helper = manager.NewOperationHelper(aptOps{}, a.Log())
	return a
}

// OperationHelper returns the APT parameter builder and classifier.
func (a *APT) OperationHelper() manager.OperationHelper {
	return a.helper
}

// FindPackages runs apt-cache search on package names.
func (a *APT) FindPackages(ctx context.Context, query string) ([]*manager.Package, error) {
	lines, err := a.QueryWith(ctx, "apt-cache", "search", "--names-only", query)
	if err != nil {
		return nil, err
	}
	return a.ParseRows(lines, func(line string) (*manager.Package, error) {
		name, _, ok := strings.Cut(line, " - ")
		if !ok {
			return nil, nil
		}
		name = strings.TrimSpace(name)
		return manager.NewPackage(name, name, "", a.DefaultSource(), a, manager.ScopeMachine), nil
	}), nil
}

// ListInstalled returns packages dpkg reports as installed.
func (a *APT) ListInstalled(ctx context.Context) ([]*manager.Package, error) {
	lines, err := a.QueryWith(ctx, "dpkg-query", "-W", "-f=${Package}\t${Version}\t${Status}\n")
	if err != nil {
		return nil, err
	}
	return a.ParseRows(lines, func(line string) (*manager.Package, error) {
		if line == "" {
			return nil, nil
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, backend.Rowf(line, "expected package, version and status")
		}
		if !strings.HasSuffix(fields[2], " installed") {
			return nil, nil
		}
		return manager.NewPackage(fields[0], fields[0], fields[1], a.DefaultSource(), a, manager.ScopeMachine), nil
	}), nil
}

// ListUpdates parses "name/suite new arch [upgradable from: old]" rows.
func (a *APT) ListUpdates(ctx context.Context) ([]*manager.Package, error) {
	lines, err := a.QueryWith(ctx, "apt", "list", "--upgradable")
	if err != nil {
		return nil, err
	}
	return a.ParseRows(lines, func(line string) (*manager.Package, error) {
		_, from, ok := strings.Cut(line, "[upgradable from: ")
		if !ok {
			return nil, nil
		}
		fields := strings.Fields(line)
		name, _, _ := strings.Cut(fields[0], "/")
		if len(fields) < 2 || name == "" {
			return nil, backend.Rowf(line, "expected name/suite version")
		}
		old := strings.TrimSuffix(strings.TrimSpace(from), "]")
		return manager.NewUpgradablePackage(name, name, old, fields[1], a.DefaultSource(), a, manager.ScopeMachine), nil
	}), nil
}

// InstallableVersions lists the candidate versions apt-cache madison reports.
func (a *APT) InstallableVersions(ctx context.Context, pkg *manager.Package) ([]string, error) {
	lines, err := a.QueryWith(ctx, "apt-cache", "madison", pkg.ID)
	if err != nil {
		return nil, err
	}
	var versions []string
	for _, line := range lines {
		parts := strings.Split(line, "|")
		if len(parts) >= 2 && strings.TrimSpace(parts[0]) == pkg.ID {
			versions = append(versions, strings.TrimSpace(parts[1]))
		}
	}
	return versions, nil
}

var aptPrivilegePatterns = []string{
	"are you root?",
	"Permission denied",
}

type aptOps struct{}

func (aptOps) OperationParameters(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType) ([]string, error) {
	var args []string
	target := pkg.ID
	switch op {
	case manager.OperationInstall:
		args = []string{"install", "-y"}
		if opts.Version != "" {
			target += "=" + opts.Version
			args = append(args, "--allow-downgrades")
		}
	case manager.OperationUpdate:
		args = []string{"install", "--only-upgrade", "-y"}
	case manager.OperationUninstall:
		args = []string{"remove", "-y"}
		if opts.RemoveDataOnUninstall {
			args = []string{"purge", "-y"}
		}
	default:
		return nil, manager.ErrInvalidOperation
	}
	args = append(args, opts.CustomArgs(op)...)
	return append(args, target), nil
}

func (aptOps) OperationResult(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType, output []string, exitCode int) manager.Verdict {
	if exitCode == 0 {
		return manager.VerdictSucceeded
	}
	if manager.ContainsAny(manager.JoinOutput(output), aptPrivilegePatterns...) && manager.ElevateOnce(pkg, opts) {
		return manager.VerdictAutoRetry
	}
	return manager.VerdictFailed
}

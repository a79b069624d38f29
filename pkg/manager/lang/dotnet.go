package lang

import (
	"context"

	"unipkg/pkg/manager"
	"unipkg/pkg/manager/backend"
)

// DotNet implements the Manager interface for dotnet tools. Updates are
// listed with the dotnet-tools-outdated global tool.
type DotNet struct {
	*backend.Base
	helper manager.OperationHelper
}

// NewDotNet creates a new dotnet tool manager instance.
func NewDotNet(deps backend.Deps) *DotNet {
	d := &DotNet{
		Base: backend.NewBase("dotnet", ".NET Tool", "dotnet", manager.TypeLanguage, manager.Capabilities{
			CanRunAsAdmin:    true,
			SupportsVersions: true,
			SupportsScope:    true,
			SupportsArch:     true,
			SupportsLocation: true,
		}, deps),
	}
	d.SetDefaultSource(manager.NewSource(d, "nuget.org", "https://www.nuget.org/api/v2"))
	d.helper = manager.NewOperationHelper(dotnetOps{}, d.Log())
	return d
}

// OperationHelper returns the dotnet parameter builder and classifier.
func (d *DotNet) OperationHelper() manager.OperationHelper {
	return d.helper
}

// FindPackages runs dotnet tool search.
func (d *DotNet) FindPackages(ctx context.Context, query string) ([]*manager.Package, error) {
	lines, err := d.Query(ctx, "tool", "search", query)
	if err != nil {
		return nil, err
	}
	var pkgs []*manager.Package
	for _, f := range dashedRows(lines, 2) {
		pkgs = append(pkgs, manager.NewPackage(f[0], f[0], f[1], d.DefaultSource(), d, manager.ScopeDefault))
	}
	return pkgs, nil
}

// ListInstalled lists local and global tools.
func (d *DotNet) ListInstalled(ctx context.Context) ([]*manager.Package, error) {
	var pkgs []*manager.Package
	for _, scope := range []manager.Scope{manager.ScopeUser, manager.ScopeMachine} {
		args := []string{"tool", "list"}
		if scope == manager.ScopeMachine {
			args = append(args, "--global")
		}
		lines, err := d.QueryAny(ctx, args...)
		if err != nil {
			return nil, err
		}
		for _, f := range dashedRows(lines, 2) {
			pkgs = append(pkgs, manager.NewPackage(f[0], f[0], f[1], d.DefaultSource(), d, scope))
		}
	}
	return pkgs, nil
}

// ListUpdates runs dotnet-tools-outdated, which reports global tools.
func (d *DotNet) ListUpdates(ctx context.Context) ([]*manager.Package, error) {
	lines, err := d.QueryWith(ctx, "dotnet-tools-outdated")
	if err != nil {
		return nil, err
	}
	var pkgs []*manager.Package
	for _, f := range dashedRows(lines, 3) {
		pkgs = append(pkgs, manager.NewUpgradablePackage(f[0], f[0], f[1], f[2], d.DefaultSource(), d, manager.ScopeMachine))
	}
	return pkgs, nil
}

var dotnetArch = map[manager.Architecture]string{
	manager.ArchX86:   "x86",
	manager.ArchX64:   "x64",
	manager.ArchArm:   "arm32",
	manager.ArchArm64: "arm64",
}

type dotnetOps struct{}

func (dotnetOps) OperationParameters(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType) ([]string, error) {
	verb, err := manager.VerbFor(op, "install", "update", "uninstall")
	if err != nil {
		return nil, err
	}
	args := []string{"tool", verb, pkg.ID}
	args = append(args, opts.CustomArgs(op)...)

	if opts.InstallLocation != "" {
		args = append(args, "--tool-path", opts.InstallLocation)
	}
	if opts.Scope == manager.ScopeMachine {
		args = append(args, "--global")
	}
	if op != manager.OperationUninstall {
		if a, ok := dotnetArch[opts.Architecture]; ok {
			args = append(args, "--arch", a)
		}
	}
	if op == manager.OperationInstall && opts.Version != "" {
		args = append(args, "--version", opts.Version)
	}
	return args, nil
}

// Local tools need a manifest in the working directory; any failure
// outside the global scope is retried globally once.
func (dotnetOps) OperationResult(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType, output []string, exitCode int) manager.Verdict {
	if exitCode != 0 && opts.Scope != manager.ScopeMachine && manager.SwitchScopeOnce(pkg, manager.ScopeMachine) {
		return manager.VerdictAutoRetry
	}
	return exitVerdict(exitCode)
}

// Package universal implements cross-distribution package managers.
package universal

import (
	"context"
	"strings"

	"unipkg/pkg/manager"
	"unipkg/pkg/manager/backend"
)

// Flatpak implements the Manager interface for Flatpak. Remotes are its sources.
type Flatpak struct {
	*backend.Base
	helper  manager.OperationHelper
	sources *manager.SourceHelper
}

// NewFlatpak creates a new Flatpak manager instance. The default remote
// comes from the manager config and falls back to flathub.
func NewFlatpak(deps backend.Deps) *Flatpak {
	f := &Flatpak{
		Base: backend.NewBase("flatpak", "Flatpak", "flatpak", manager.TypeUniversal, manager.Capabilities{
			CanRunAsAdmin:   true,
			SupportsScope:   true,
			SupportsSources: true,
		}, deps),
	}
	remote := f.Config().DefaultRemote
	if remote == "" {
		remote = "flathub"
	}
	f.SetDefaultSource(manager.NewSource(f, remote, ""))
	f.helper = manager.NewOperationHelper(flatpakOps{f}, f.Log())
	f.sources = manager.NewSourceHelper(f, flatpakRemotes{f}, f.SourceRetention(), f.Log())
	return f
}

// OperationHelper returns the Flatpak parameter builder and classifier.
func (f *Flatpak) OperationHelper() manager.OperationHelper {
	return f.helper
}

// SourceHelper returns the remote registry.
func (f *Flatpak) SourceHelper() *manager.SourceHelper {
	return f.sources
}

// FindPackages searches the appstream data of every configured remote.
func (f *Flatpak) FindPackages(ctx context.Context, query string) ([]*manager.Package, error) {
	lines, err := f.QueryAny(ctx, "search", "--columns=name,application,version,remotes", query)
	if err != nil {
		return nil, err
	}
	return f.ParseRows(lines, func(line string) (*manager.Package, error) {
		fields := strings.Split(line, "\t")
		if len(fields) < 4 {
			// "No matches found"
			return nil, nil
		}
		remote, _, _ := strings.Cut(fields[3], ",")
		return manager.NewPackage(fields[0], fields[1], fields[2], f.remote(remote), f, manager.ScopeDefault), nil
	}), nil
}

// ListInstalled returns installed applications with their installation scope.
func (f *Flatpak) ListInstalled(ctx context.Context) ([]*manager.Package, error) {
	lines, err := f.Query(ctx, "list", "--app", "--columns=name,application,version,origin,installation")
	if err != nil {
		return nil, err
	}
	return f.ParseRows(lines, func(line string) (*manager.Package, error) {
		if strings.TrimSpace(line) == "" {
			return nil, nil
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 5 {
			return nil, backend.Rowf(line, "expected name, application, version, origin and installation")
		}
		return manager.NewPackage(fields[0], fields[1], fields[2], f.remote(fields[3]), f, installationScope(fields[4])), nil
	}), nil
}

// ListUpdates joins the pending updates of every remote with the
// installed versions.
func (f *Flatpak) ListUpdates(ctx context.Context) ([]*manager.Package, error) {
	installed, err := f.ListInstalled(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*manager.Package, len(installed))
	for _, p := range installed {
		byID[p.ID] = p
	}

	lines, err := f.Query(ctx, "remote-ls", "--updates", "--app", "--columns=application,version,origin")
	if err != nil {
		return nil, err
	}
	return f.ParseRows(lines, func(line string) (*manager.Package, error) {
		if strings.TrimSpace(line) == "" {
			return nil, nil
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, backend.Rowf(line, "expected application, version and origin")
		}
		cur, ok := byID[fields[0]]
		if !ok {
			// runtimes and extensions
			return nil, nil
		}
		return manager.NewUpgradablePackage(cur.Name, cur.ID, cur.Version, fields[1], cur.Source, f, cur.Scope), nil
	}), nil
}

func (f *Flatpak) remote(name string) *manager.ManagerSource {
	if name == "" || name == f.DefaultSource().Name {
		return f.DefaultSource()
	}
	return f.sources.Known(name)
}

func installationScope(s string) manager.Scope {
	if strings.TrimSpace(s) == "user" {
		return manager.ScopeUser
	}
	return manager.ScopeMachine
}

// Output of a system-wide operation the polkit policy refused.
var flatpakSystemDenied = []string{
	"Flatpak system operation",
	"not allowed for user",
	"Permission denied",
}

type flatpakOps struct {
	f *Flatpak
}

func (o flatpakOps) OperationParameters(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType) ([]string, error) {
	verb, err := manager.VerbFor(op, "install", "update", "uninstall")
	if err != nil {
		return nil, err
	}
	args := []string{verb, "-y", "--noninteractive"}

	switch opts.Scope {
	case manager.ScopeUser:
		args = append(args, "--user")
	case manager.ScopeMachine:
		args = append(args, "--system")
	}
	if op == manager.OperationUninstall && opts.RemoveDataOnUninstall {
		args = append(args, "--delete-data")
	}
	args = append(args, opts.CustomArgs(op)...)

	if op == manager.OperationInstall {
		remote := o.f.DefaultSource().Name
		if pkg.Source != nil && !pkg.Source.IsVirtualManager {
			remote = pkg.Source.Name
		}
		args = append(args, remote)
	}
	return append(args, pkg.ID), nil
}

func (o flatpakOps) OperationResult(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType, output []string, exitCode int) manager.Verdict {
	text := manager.JoinOutput(output)
	if exitCode == 0 {
		return manager.VerdictSucceeded
	}
	if op == manager.OperationInstall && strings.Contains(text, "is already installed") {
		return manager.VerdictSucceeded
	}
	if opts.Scope != manager.ScopeUser && manager.ContainsAny(text, flatpakSystemDenied...) &&
		manager.SwitchScopeOnce(pkg, manager.ScopeUser) {
		o.f.Log().Info("system installation refused, retrying for the current user", "package", pkg.ID)
		return manager.VerdictAutoRetry
	}
	return manager.VerdictFailed
}

type flatpakRemotes struct {
	f *Flatpak
}

func (r flatpakRemotes) LoadSources(ctx context.Context) ([]*manager.ManagerSource, error) {
	lines, err := r.f.Query(ctx, "remote-list", "--columns=name,url")
	if err != nil {
		return nil, err
	}
	return manager.ParseSourceLines(lines, r.f.Log(), func(line string) (*manager.ManagerSource, error) {
		name, url, ok := strings.Cut(line, "\t")
		if !ok || name == "" {
			return nil, nil
		}
		return manager.NewSource(r.f, name, strings.TrimSpace(url)), nil
	}), nil
}

func (r flatpakRemotes) AddSourceParameters(src *manager.ManagerSource) []string {
	return []string{"remote-add", "--if-not-exists", src.Name, src.URL}
}

func (r flatpakRemotes) RemoveSourceParameters(src *manager.ManagerSource) []string {
	return []string{"remote-delete", src.Name}
}

func (r flatpakRemotes) AddSourceResult(src *manager.ManagerSource, output []string, exitCode int) manager.Verdict {
	return remoteVerdict(exitCode)
}

func (r flatpakRemotes) RemoveSourceResult(src *manager.ManagerSource, output []string, exitCode int) manager.Verdict {
	return remoteVerdict(exitCode)
}

func remoteVerdict(exitCode int) manager.Verdict {
	if exitCode == 0 {
		return manager.VerdictSucceeded
	}
	return manager.VerdictFailed
}

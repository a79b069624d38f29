package lang

import (
	"context"
	"strings"

	"unipkg/pkg/manager"
	"unipkg/pkg/manager/backend"
)

// Pip implements the Manager interface for Python's pip.
type Pip struct {
	*backend.Base
	helper manager.OperationHelper
}

// NewPip creates a new pip manager instance.
func NewPip(deps backend.Deps) *Pip {
	p := &Pip{
		Base: backend.NewBase("pip", "Pip", "pip", manager.TypeLanguage, manager.Capabilities{
			CanRunAsAdmin:      true,
			SupportsVersions:   true,
			SupportsPreRelease: true,
			SupportsScope:      true,
		}, deps),
	}
	p.SetDefaultSource(manager.NewSource(p, "pip", "https://pypi.org/"))
	p.helper = manager.NewOperationHelper(pipOps{}, p.Log())
	return p
}

// OperationHelper returns the pip parameter builder and classifier.
func (p *Pip) OperationHelper() manager.OperationHelper {
	return p.helper
}

// FindPackages looks the query up as an exact project name; PyPI has no
// search endpoint pip can use.
func (p *Pip) FindPackages(ctx context.Context, query string) ([]*manager.Package, error) {
	lines, err := p.QueryAny(ctx, "index", "versions", query)
	if err != nil {
		return nil, err
	}
	return p.ParseRows(lines, func(line string) (*manager.Package, error) {
		// "requests (2.32.3)"
		name, rest, ok := strings.Cut(line, " (")
		if !ok || strings.HasPrefix(line, " ") || !strings.HasSuffix(rest, ")") {
			return nil, nil
		}
		return manager.NewPackage(name, name, strings.TrimSuffix(rest, ")"), p.DefaultSource(), p, manager.ScopeMachine), nil
	}), nil
}

// ListInstalled parses pip list --format=freeze.
func (p *Pip) ListInstalled(ctx context.Context) ([]*manager.Package, error) {
	lines, err := p.Query(ctx, "list", "--format=freeze", "--disable-pip-version-check")
	if err != nil {
		return nil, err
	}
	return p.ParseRows(lines, func(line string) (*manager.Package, error) {
		if strings.TrimSpace(line) == "" {
			return nil, nil
		}
		name, version, ok := strings.Cut(line, "==")
		if !ok {
			// editable installs use "name @ file://..."
			return nil, backend.Rowf(line, "expected name==version")
		}
		return manager.NewPackage(name, name, version, p.DefaultSource(), p, manager.ScopeMachine), nil
	}), nil
}

// ListUpdates decodes pip list --outdated in JSON format.
func (p *Pip) ListUpdates(ctx context.Context) ([]*manager.Package, error) {
	lines, err := p.Query(ctx, "list", "--outdated", "--format=json", "--disable-pip-version-check")
	if err != nil {
		return nil, err
	}
	var outdated []struct {
		Name          string `json:"name"`
		Version       string `json:"version"`
		LatestVersion string `json:"latest_version"`
	}
	if err := decodeJSON(lines, &outdated); err != nil {
		return nil, err
	}
	pkgs := make([]*manager.Package, 0, len(outdated))
	for _, o := range outdated {
		pkgs = append(pkgs, manager.NewUpgradablePackage(o.Name, o.Name, o.Version, o.LatestVersion, p.DefaultSource(), p, manager.ScopeMachine))
	}
	return pkgs, nil
}

// InstallableVersions reads the "Available versions:" line of pip index.
func (p *Pip) InstallableVersions(ctx context.Context, pkg *manager.Package) ([]string, error) {
	lines, err := p.Query(ctx, "index", "versions", pkg.ID)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if list, ok := strings.CutPrefix(strings.TrimSpace(line), "Available versions:"); ok {
			var versions []string
			for _, v := range strings.Split(list, ",") {
				if v = strings.TrimSpace(v); v != "" {
					versions = append(versions, v)
				}
			}
			return versions, nil
		}
	}
	return nil, nil
}

type pipOps struct{}

func (pipOps) OperationParameters(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType) ([]string, error) {
	target := pkg.ID
	var args []string
	switch op {
	case manager.OperationInstall:
		args = []string{"install"}
		if opts.Version != "" {
			target += "==" + opts.Version
		}
	case manager.OperationUpdate:
		args = []string{"install", "--upgrade"}
	case manager.OperationUninstall:
		args = []string{"uninstall", "--yes"}
	default:
		return nil, manager.ErrInvalidOperation
	}
	args = append(args, target, "--no-input", "--no-color", "--disable-pip-version-check", "--no-cache")

	if op != manager.OperationUninstall {
		if opts.PreRelease {
			args = append(args, "--pre")
		}
		if opts.Scope == manager.ScopeUser {
			args = append(args, "--user")
		}
	}
	return append(args, opts.CustomArgs(op)...), nil
}

func (pipOps) OperationResult(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType, output []string, exitCode int) manager.Verdict {
	if exitCode == 0 {
		return manager.VerdictSucceeded
	}
	// pip suggests --user when the site-packages directory is not writable
	if op != manager.OperationUninstall && opts.Scope != manager.ScopeUser &&
		strings.Contains(manager.JoinOutput(output), "--user") &&
		manager.SwitchScopeOnce(pkg, manager.ScopeUser) {
		return manager.VerdictAutoRetry
	}
	return manager.VerdictFailed
}

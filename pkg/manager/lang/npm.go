package lang

import (
	"context"
	"encoding/json"
	"strings"

	"unipkg/pkg/manager"
	"unipkg/pkg/manager/backend"
)

// Npm implements the Manager interface for the Node.js package manager.
// Local packages are listed with user scope, global ones with machine scope.
type Npm struct {
	*backend.Base
	helper manager.OperationHelper
}

// NewNpm creates a new npm manager instance.
func NewNpm(deps backend.Deps) *Npm {
	n := &Npm{
		Base: backend.NewBase("npm", "Npm", "npm", manager.TypeLanguage, manager.Capabilities{
			CanRunAsAdmin:      true,
			SupportsVersions:   true,
			SupportsPreRelease: true,
			SupportsScope:      true,
		}, deps),
	}
	n.SetDefaultSource(manager.NewSource(n, "npm", "https://www.npmjs.com/"))
	n.helper = manager.NewOperationHelper(npmOps{}, n.Log())
	return n
}

// OperationHelper returns the npm parameter builder and classifier.
func (n *Npm) OperationHelper() manager.OperationHelper {
	return n.helper
}

// FindPackages runs npm search and decodes its JSON array.
func (n *Npm) FindPackages(ctx context.Context, query string) ([]*manager.Package, error) {
	lines, err := n.Query(ctx, "search", query, "--json")
	if err != nil {
		return nil, err
	}
	var results []struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := decodeJSON(lines, &results); err != nil {
		return nil, err
	}
	pkgs := make([]*manager.Package, 0, len(results))
	for _, r := range results {
		if r.Name == "" {
			continue
		}
		pkgs = append(pkgs, manager.NewPackage(r.Name, r.Name, r.Version, n.DefaultSource(), n, manager.ScopeDefault))
	}
	return pkgs, nil
}

// ListInstalled lists local and global packages.
func (n *Npm) ListInstalled(ctx context.Context) ([]*manager.Package, error) {
	var pkgs []*manager.Package
	for _, scope := range []manager.Scope{manager.ScopeUser, manager.ScopeMachine} {
		lines, err := n.QueryAny(ctx, withGlobal([]string{"list", "--json"}, scope)...)
		if err != nil {
			return nil, err
		}
		var tree struct {
			Dependencies map[string]struct {
				Version string `json:"version"`
			} `json:"dependencies"`
		}
		if err := decodeJSON(lines, &tree); err != nil {
			n.Log().Warn("unreadable npm list output", "scope", scope, "error", err)
			continue
		}
		for id, dep := range tree.Dependencies {
			pkgs = append(pkgs, manager.NewPackage(id, id, dep.Version, n.DefaultSource(), n, scope))
		}
	}
	return pkgs, nil
}

// ListUpdates lists outdated local and global packages. npm outdated
// exits 1 when it finds something.
func (n *Npm) ListUpdates(ctx context.Context) ([]*manager.Package, error) {
	var pkgs []*manager.Package
	for _, scope := range []manager.Scope{manager.ScopeUser, manager.ScopeMachine} {
		lines, err := n.QueryAny(ctx, withGlobal([]string{"outdated", "--json"}, scope)...)
		if err != nil {
			return nil, err
		}
		var outdated map[string]struct {
			Current string `json:"current"`
			Latest  string `json:"latest"`
		}
		if err := decodeJSON(lines, &outdated); err != nil {
			n.Log().Warn("unreadable npm outdated output", "scope", scope, "error", err)
			continue
		}
		for id, o := range outdated {
			if o.Current == "" || o.Current == o.Latest {
				continue
			}
			pkgs = append(pkgs, manager.NewUpgradablePackage(id, id, o.Current, o.Latest, n.DefaultSource(), n, scope))
		}
	}
	return pkgs, nil
}

// InstallableVersions returns every published version.
func (n *Npm) InstallableVersions(ctx context.Context, pkg *manager.Package) ([]string, error) {
	lines, err := n.Query(ctx, "view", pkg.ID, "versions", "--json")
	if err != nil {
		return nil, err
	}
	var versions []string
	if err := decodeJSON(lines, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

func withGlobal(args []string, scope manager.Scope) []string {
	if scope == manager.ScopeMachine {
		return append(args, "--global")
	}
	return args
}

// decodeJSON decodes captured lines. Empty output decodes to the zero value.
func decodeJSON(lines []string, v any) error {
	data := strings.TrimSpace(strings.Join(lines, "\n"))
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), v)
}

type npmOps struct{}

func (npmOps) OperationParameters(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType) ([]string, error) {
	target := pkg.ID
	var verb string
	switch op {
	case manager.OperationInstall:
		verb = "install"
		if opts.Version != "" {
			target += "@" + opts.Version
		}
	case manager.OperationUpdate:
		verb = "install"
		target += "@latest"
		if pkg.NewVersion() != "" {
			target = pkg.ID + "@" + pkg.NewVersion()
		}
	case manager.OperationUninstall:
		verb = "uninstall"
	default:
		return nil, manager.ErrInvalidOperation
	}

	scope := opts.Scope
	if scope == manager.ScopeDefault {
		scope = pkg.Scope
	}
	args := withGlobal([]string{verb, target}, scope)
	if op == manager.OperationInstall && opts.PreRelease && opts.Version == "" {
		args[1] = pkg.ID + "@next"
	}
	return append(args, opts.CustomArgs(op)...), nil
}

func (npmOps) OperationResult(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType, output []string, exitCode int) manager.Verdict {
	if exitCode == 0 {
		return manager.VerdictSucceeded
	}
	if strings.Contains(manager.JoinOutput(output), "EACCES") && manager.ElevateOnce(pkg, opts) {
		return manager.VerdictAutoRetry
	}
	return manager.VerdictFailed
}

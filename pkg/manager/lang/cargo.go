package lang

import (
	"context"
	"regexp"
	"strings"

	"unipkg/pkg/manager"
	"unipkg/pkg/manager/backend"
)

var (
	// ripgrep = "14.1.1"    # Line-oriented search tool
	cargoSearchLine = regexp.MustCompile(`^([\w-]+)\s=\s"([^"]+)"`)

	// ripgrep v14.1.1:
	cargoInstalledLine = regexp.MustCompile(`^([\w-]+) v(\S+?):?$`)

	// ripgrep    v14.1.0  v14.1.1  Yes
	cargoUpdateLine = regexp.MustCompile(`^([\w-]+)\s+v(\S+)\s+v(\S+)\s+(Yes|No)$`)
)

// Cargo implements the Manager interface for Rust's cargo. Updates are
// listed with the cargo-update plugin.
type Cargo struct {
	*backend.Base
	helper manager.OperationHelper
}

// NewCargo creates a new cargo manager instance.
func NewCargo(deps backend.Deps) *Cargo {
	c := &Cargo{
		Base: backend.NewBase("cargo", "Cargo", "cargo", manager.TypeLanguage, manager.Capabilities{
			SupportsVersions: true,
			SupportsLocation: true,
		}, deps),
	}
	c.SetDefaultSource(manager.NewSource(c, "crates.io", "https://index.crates.io/"))
	c.helper = manager.NewOperationHelper(cargoOps{}, c.Log())
	return c
}

// OperationHelper returns the cargo parameter builder and classifier.
func (c *Cargo) OperationHelper() manager.OperationHelper {
	return c.helper
}

// FindPackages runs cargo search.
func (c *Cargo) FindPackages(ctx context.Context, query string) ([]*manager.Package, error) {
	lines, err := c.Query(ctx, "search", "-q", "--color=never", query)
	if err != nil {
		return nil, err
	}
	return c.ParseRows(lines, func(line string) (*manager.Package, error) {
		m := cargoSearchLine.FindStringSubmatch(line)
		if m == nil {
			return nil, nil
		}
		return manager.NewPackage(m[1], m[1], m[2], c.DefaultSource(), c, manager.ScopeUser), nil
	}), nil
}

// ListInstalled parses cargo install --list. Binary names are indented
// below each crate and skipped.
func (c *Cargo) ListInstalled(ctx context.Context) ([]*manager.Package, error) {
	lines, err := c.Query(ctx, "install", "--list")
	if err != nil {
		return nil, err
	}
	return c.ParseRows(lines, func(line string) (*manager.Package, error) {
		if line == "" || strings.HasPrefix(line, " ") {
			return nil, nil
		}
		m := cargoInstalledLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			// git and path installs carry a parenthesised origin
			return nil, backend.Rowf(line, "expected crate vX.Y.Z:")
		}
		return manager.NewPackage(m[1], m[1], m[2], c.DefaultSource(), c, manager.ScopeUser), nil
	}), nil
}

// ListUpdates runs cargo install-update --list.
func (c *Cargo) ListUpdates(ctx context.Context) ([]*manager.Package, error) {
	lines, err := c.Query(ctx, "install-update", "--list")
	if err != nil {
		return nil, err
	}
	return c.ParseRows(lines, func(line string) (*manager.Package, error) {
		m := cargoUpdateLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || m[4] != "Yes" {
			return nil, nil
		}
		return manager.NewUpgradablePackage(m[1], m[1], m[2], m[3], c.DefaultSource(), c, manager.ScopeUser), nil
	}), nil
}

type cargoOps struct{}

func (cargoOps) OperationParameters(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType) ([]string, error) {
	var args []string
	switch op {
	case manager.OperationInstall:
		args = []string{"install", pkg.ID}
		if opts.Version != "" {
			args = append(args, "--version", opts.Version)
		}
	case manager.OperationUpdate:
		args = []string{"install", "--force", pkg.ID}
		if v := pkg.NewVersion(); v != "" {
			args = append(args, "--version", v)
		}
	case manager.OperationUninstall:
		args = []string{"uninstall", pkg.ID}
	default:
		return nil, manager.ErrInvalidOperation
	}
	if opts.InstallLocation != "" {
		args = append(args, "--root", opts.InstallLocation)
	}
	return append(args, opts.CustomArgs(op)...), nil
}

func (cargoOps) OperationResult(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType, output []string, exitCode int) manager.Verdict {
	return exitVerdict(exitCode)
}

package native

import (
	"context"
	"strings"
	"sync"

	"unipkg/pkg/manager"
	"unipkg/pkg/manager/backend"
)

// Pacman implements the Manager interface for Arch Linux's pacman.
type Pacman struct {
	*backend.Base
	helper manager.OperationHelper

	mu    sync.Mutex
	repos map[string]*manager.ManagerSource
}

// NewPacman creates a new Pacman manager instance.
func NewPacman(deps backend.Deps) *Pacman {
	p := &Pacman{
		Base: backend.NewBase("pacman", "Pacman (Arch Linux)", "pacman", manager.TypeNative, manager.Capabilities{
			CanRunAsAdmin: true,
		}, deps),
		repos: make(map[string]*manager.ManagerSource),
	}
	p.SetDefaultSource(manager.NewSource(p, "local", ""))
	p.helper = manager.NewOperationHelper(pacmanOps{p}, p.Log())
	return p
}

// OperationHelper returns the pacman parameter builder and classifier.
func (p *Pacman) OperationHelper() manager.OperationHelper {
	return p.helper
}

// FindPackages runs pacman -Ss. Description lines are skipped.
func (p *Pacman) FindPackages(ctx context.Context, query string) ([]*manager.Package, error) {
	lines, err := p.QueryAny(ctx, "-Ss", query)
	if err != nil {
		return nil, err
	}
	return p.ParseRows(lines, func(line string) (*manager.Package, error) {
		if line == "" || strings.HasPrefix(line, " ") {
			return nil, nil
		}
		fields := strings.Fields(line)
		repo, name, ok := strings.Cut(fields[0], "/")
		if !ok || len(fields) < 2 {
			return nil, backend.Rowf(line, "expected repo/name version")
		}
		pkg := manager.NewPackage(name, name, fields[1], p.repo(repo), p, manager.ScopeMachine)
		if strings.Contains(line, "[installed") {
			pkg.SetTag(manager.TagAlreadyInstalled)
		}
		return pkg, nil
	}), nil
}

// ListInstalled runs pacman -Q.
func (p *Pacman) ListInstalled(ctx context.Context) ([]*manager.Package, error) {
	lines, err := p.Query(ctx, "-Q")
	if err != nil {
		return nil, err
	}
	return p.ParseRows(lines, func(line string) (*manager.Package, error) {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil, nil
		}
		if len(fields) != 2 {
			return nil, backend.Rowf(line, "expected name version")
		}
		return manager.NewPackage(fields[0], fields[0], fields[1], p.DefaultSource(), p, manager.ScopeMachine), nil
	}), nil
}

// ListUpdates runs pacman -Qu against the last synced databases. Packages
// listed in IgnorePkg are marked "[ignored]" and skipped.
func (p *Pacman) ListUpdates(ctx context.Context) ([]*manager.Package, error) {
	// exit status 1 means nothing to upgrade
	lines, err := p.QueryAny(ctx, "-Qu")
	if err != nil {
		return nil, err
	}
	return p.ParseRows(lines, func(line string) (*manager.Package, error) {
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.Contains(line, "[ignored]") {
			return nil, nil
		}
		if len(fields) < 4 || fields[2] != "->" {
			return nil, backend.Rowf(line, "expected name old -> new")
		}
		return manager.NewUpgradablePackage(fields[0], fields[0], fields[1], fields[3], p.DefaultSource(), p, manager.ScopeMachine), nil
	}), nil
}

// Explain describes a failed pacman run.
func (p *Pacman) Explain(output []string, exitCode int) string {
	if pacErr := ParsePacmanError(manager.JoinOutput(output), exitCode); pacErr != nil {
		return FormatPacmanError(pacErr)
	}
	return ""
}

func (p *Pacman) repo(name string) *manager.ManagerSource {
	p.mu.Lock()
	defer p.mu.Unlock()
	if src, ok := p.repos[name]; ok {
		return src
	}
	src := manager.NewSource(p, name, "")
	p.repos[name] = src
	return src
}

type pacmanOps struct {
	p *Pacman
}

func (o pacmanOps) OperationParameters(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType) ([]string, error) {
	var args []string
	switch op {
	case manager.OperationInstall:
		args = []string{"-S", "--noconfirm", "--needed"}
	case manager.OperationUpdate:
		args = []string{"-S", "--noconfirm"}
	case manager.OperationUninstall:
		args = []string{"-R", "--noconfirm"}
		if opts.RemoveDataOnUninstall {
			args = []string{"-Rns", "--noconfirm"}
		}
	default:
		return nil, manager.ErrInvalidOperation
	}

	target := pkg.ID
	if op != manager.OperationUninstall && pkg.Source != nil && pkg.Source != o.p.DefaultSource() {
		target = pkg.Source.Name + "/" + pkg.ID
	}
	args = append(args, opts.CustomArgs(op)...)
	return append(args, target), nil
}

func (o pacmanOps) OperationResult(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType, output []string, exitCode int) manager.Verdict {
	if exitCode == 0 {
		return manager.VerdictSucceeded
	}

	pacErr := ParsePacmanError(manager.JoinOutput(output), exitCode)
	if pacErr == nil {
		return manager.VerdictFailed
	}
	if pacErr.ErrorType == PacmanErrorNotRoot && manager.ElevateOnce(pkg, opts) {
		return manager.VerdictAutoRetry
	}
	o.p.Log().Debug("pacman failure", "package", pkg.ID, "error", pacErr)
	return manager.VerdictFailed
}

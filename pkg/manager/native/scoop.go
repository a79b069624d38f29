package native

import (
	"context"
	"strings"

	"unipkg/pkg/manager"
	"unipkg/pkg/manager/backend"
)

// Scoop implements the Manager interface for Scoop. Buckets are its sources.
type Scoop struct {
	*backend.Base
	helper  manager.OperationHelper
	sources *manager.SourceHelper
}

// NewScoop creates a new Scoop manager instance.
func NewScoop(deps backend.Deps) *Scoop {
	s := &Scoop{
		Base: backend.NewBase("scoop", "Scoop", "scoop", manager.TypeNative, manager.Capabilities{
			CanRunAsAdmin:    true,
			CanSkipIntegrity: true,
			SupportsScope:    true,
			SupportsArch:     true,
			SupportsSources:  true,
		}, deps),
	}
	s.SetDefaultSource(manager.NewSource(s, "main", "https://github.com/ScoopInstaller/Main"))
	s.helper = manager.NewOperationHelper(scoopOps{}, s.Log())
	s.sources = manager.NewSourceHelper(s, scoopBuckets{s}, s.SourceRetention(), s.Log())
	return s
}

// OperationHelper returns the Scoop parameter builder and classifier.
func (s *Scoop) OperationHelper() manager.OperationHelper {
	return s.helper
}

// SourceHelper returns the bucket registry.
func (s *Scoop) SourceHelper() *manager.SourceHelper {
	return s.sources
}

// FindPackages searches the local buckets.
func (s *Scoop) FindPackages(ctx context.Context, query string) ([]*manager.Package, error) {
	lines, err := s.QueryAny(ctx, "search", query)
	if err != nil {
		return nil, err
	}
	return s.parseTable(lines, 3, func(f []string, _ string) *manager.Package {
		return manager.NewPackage(f[0], f[0], f[1], s.bucket(f[2]), s, manager.ScopeDefault)
	}), nil
}

// ListInstalled returns all installed apps. Global installs get machine scope.
func (s *Scoop) ListInstalled(ctx context.Context) ([]*manager.Package, error) {
	lines, err := s.Query(ctx, "list")
	if err != nil {
		return nil, err
	}
	return s.parseTable(lines, 3, func(f []string, line string) *manager.Package {
		scope := manager.ScopeUser
		if strings.Contains(line, "Global install") {
			scope = manager.ScopeMachine
		}
		return manager.NewPackage(f[0], f[0], f[1], s.bucket(f[2]), s, scope)
	}), nil
}

// ListUpdates returns apps with a newer manifest version. Held apps are skipped.
func (s *Scoop) ListUpdates(ctx context.Context) ([]*manager.Package, error) {
	lines, err := s.QueryAny(ctx, "status")
	if err != nil {
		return nil, err
	}
	return s.parseTable(lines, 3, func(f []string, line string) *manager.Package {
		if strings.Contains(line, "Held package") {
			return nil
		}
		return manager.NewUpgradablePackage(f[0], f[0], f[1], f[2], s.DefaultSource(), s, manager.ScopeDefault)
	}), nil
}

func (s *Scoop) bucket(name string) *manager.ManagerSource {
	if name == "" || name == s.DefaultSource().Name {
		return s.DefaultSource()
	}
	return s.sources.Known(name)
}

// parseTable reads the rows following a "----" ruler. Rows with fewer than
// minFields fields are skipped.
func (s *Scoop) parseTable(lines []string, minFields int, build func(fields []string, line string) *manager.Package) []*manager.Package {
	inTable := false
	return s.ParseRows(lines, func(line string) (*manager.Package, error) {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "----"):
			inTable = true
			return nil, nil
		case trimmed == "":
			inTable = false
			return nil, nil
		case !inTable:
			return nil, nil
		}
		fields := strings.Fields(trimmed)
		if len(fields) < minFields {
			return nil, backend.Rowf(line, "too few columns")
		}
		return build(fields, line), nil
	})
}

var scoopAdminPatterns = []string{
	"requires admin rights",
	"requires administrator rights",
	"you need admin rights to install global apps",
}

type scoopOps struct{}

func (scoopOps) OperationParameters(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType) ([]string, error) {
	verb, err := manager.VerbFor(op, "install", "update", "uninstall")
	if err != nil {
		return nil, err
	}

	target := pkg.ID
	if pkg.Source != nil && pkg.Source.Name != "" && !strings.Contains(pkg.Source.Name, "...") {
		target = pkg.Source.Name + "/" + pkg.ID
	}
	args := []string{verb, target}

	if opts.Scope == manager.ScopeMachine {
		// global apps live under ProgramData
		pkg.SetOverrides(func(o *manager.Overrides) { o.RunAsAdministrator = manager.Ptr(true) })
		args = append(args, "--global")
	}

	args = append(args, opts.CustomArgs(op)...)

	if op == manager.OperationUninstall {
		if opts.RemoveDataOnUninstall {
			args = append(args, "--purge")
		}
	} else if opts.SkipHashCheck {
		args = append(args, "--skip-hash-check")
	}

	if op == manager.OperationInstall {
		switch opts.Architecture {
		case manager.ArchX64:
			args = append(args, "--arch", "64bit")
		case manager.ArchX86:
			args = append(args, "--arch", "32bit")
		case manager.ArchArm64:
			args = append(args, "--arch", "arm64")
		}
	}
	return args, nil
}

func (scoopOps) OperationResult(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType, output []string, exitCode int) manager.Verdict {
	out := manager.JoinOutput(output)

	if strings.Contains(out, "Try again with the --global (or -g) flag instead") && manager.SwitchScopeOnce(pkg, manager.ScopeMachine) {
		pkg.SetOverrides(func(o *manager.Overrides) { o.RunAsAdministrator = manager.Ptr(true) })
		return manager.VerdictAutoRetry
	}
	if manager.ContainsAny(out, scoopAdminPatterns...) && manager.ElevateOnce(pkg, opts) {
		return manager.VerdictAutoRetry
	}
	if strings.Contains(out, "ERROR") || exitCode != 0 {
		return manager.VerdictFailed
	}
	return manager.VerdictSucceeded
}

type scoopBuckets struct {
	s *Scoop
}

func (b scoopBuckets) LoadSources(ctx context.Context) ([]*manager.ManagerSource, error) {
	lines, err := b.s.Query(ctx, "bucket", "list")
	if err != nil {
		return nil, err
	}
	inTable := false
	return manager.ParseSourceLines(lines, b.s.Log(), func(line string) (*manager.ManagerSource, error) {
		fields := strings.Fields(line)
		if len(fields) > 0 && strings.HasPrefix(fields[0], "----") {
			inTable = true
			return nil, nil
		}
		if !inTable || len(fields) < 2 {
			return nil, nil
		}
		if fields[0] == b.s.DefaultSource().Name {
			return b.s.DefaultSource(), nil
		}
		return manager.NewSource(b.s, fields[0], fields[1]), nil
	}), nil
}

func (b scoopBuckets) AddSourceParameters(src *manager.ManagerSource) []string {
	if src.URL == "" {
		return []string{"bucket", "add", src.Name}
	}
	return []string{"bucket", "add", src.Name, src.URL}
}

func (b scoopBuckets) RemoveSourceParameters(src *manager.ManagerSource) []string {
	return []string{"bucket", "rm", src.Name}
}

func (b scoopBuckets) AddSourceResult(src *manager.ManagerSource, output []string, exitCode int) manager.Verdict {
	return scoopBucketVerdict(output, exitCode)
}

func (b scoopBuckets) RemoveSourceResult(src *manager.ManagerSource, output []string, exitCode int) manager.Verdict {
	return scoopBucketVerdict(output, exitCode)
}

func scoopBucketVerdict(output []string, exitCode int) manager.Verdict {
	if strings.Contains(manager.JoinOutput(output), "ERROR") {
		return manager.VerdictFailed
	}
	return exitVerdict(exitCode)
}

package native

import (
	"context"
	"strings"
	"sync"

	"unipkg/pkg/manager"
)

// Return codes from the winget documentation.
const (
	wingetInstallCanceled      uint32 = 0x8A150005
	wingetSourceExists         uint32 = 0x8A15000C
	wingetIntegrityFailed      uint32 = 0x8A150011
	wingetNoApplicableManifest uint32 = 0x8A150017
	wingetNeedsElevation       uint32 = 0x8A150019
	wingetUpdateNotApplicable  uint32 = 0x8A15002B
	wingetPackageAlreadyExists uint32 = 0x8A15004F
	wingetCannotRunElevated    uint32 = 0x8A150056
	wingetUserCanceled         uint32 = 0x8A150077
	wingetRebootRequired       uint32 = 0x8A150109
	wingetInstallerCanceled    uint32 = 0x8A15010C
	wingetAlreadyInstalled     uint32 = 0x8A15010D
	wingetDowngradeBlocked     uint32 = 0x8A15010E
	appxNeedsElevation         uint32 = 0x80073D28
)

// wingetIDPiece selects the package by id, or by name when winget
// truncated the id column.
func wingetIDPiece(pkg *manager.Package) []string {
	switch {
	case !strings.HasSuffix(pkg.ID, "…"):
		return []string{"--id", pkg.ID, "--exact"}
	case !strings.HasSuffix(pkg.Name, "…"):
		return []string{"--name", pkg.Name, "--exact"}
	}
	return []string{"--id", strings.TrimSuffix(pkg.ID, "…")}
}

type wingetOps struct {
	w *WinGet
}

func (o wingetOps) OperationParameters(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType) ([]string, error) {
	verb, err := manager.VerbFor(op, "install", "upgrade", "uninstall")
	if err != nil {
		return nil, err
	}

	args := append([]string{verb}, wingetIDPiece(pkg)...)
	if src := pkg.Source; src != nil && src != o.w.local {
		name := src.Name
		if src.IsVirtualManager {
			name = o.w.DefaultSource().Name
		}
		args = append(args, "--source", name)
	}
	args = append(args, "--accept-source-agreements", "--disable-interactivity")

	switch opts.Scope {
	case manager.ScopeUser:
		args = append(args, "--scope", "user")
	case manager.ScopeMachine:
		args = append(args, "--scope", "machine")
	}

	switch {
	case op == manager.OperationUninstall && pkg.Version != "" && pkg.Version != "Unknown" && !manager.IsFalse(pkg.Overrides().SpecifyVersion):
		args = append(args, "--version", pkg.Version)
	case op == manager.OperationInstall && opts.Version != "":
		args = append(args, "--version", opts.Version)
	}

	if opts.Interactive {
		args = append(args, "--interactive")
	} else {
		args = append(args, "--silent")
	}

	if op == manager.OperationUpdate {
		id := strings.ToLower(pkg.ID)
		switch {
		case strings.Contains(pkg.Name, "64-bit") || strings.Contains(id, "x64"):
			opts.Architecture = manager.ArchX64
		case strings.Contains(pkg.Name, "32-bit") || strings.Contains(id, "x86"):
			opts.Architecture = manager.ArchX86
		}
		args = append(args, "--include-unknown")
	}

	if op != manager.OperationUninstall {
		args = append(args, "--accept-package-agreements", "--force")
		if opts.SkipHashCheck {
			args = append(args, "--ignore-security-hash")
		}
		if opts.InstallLocation != "" {
			args = append(args, "--location", opts.InstallLocation)
		}
		switch opts.Architecture {
		case manager.ArchX86, manager.ArchX64, manager.ArchArm64:
			args = append(args, "--architecture", string(opts.Architecture))
		}
	}

	return append(args, opts.CustomArgs(op)...), nil
}

func (o wingetOps) OperationResult(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType, output []string, exitCode int) manager.Verdict {
	code := uint32(exitCode)

	switch code {
	case wingetRebootRequired:
		if op == manager.OperationUpdate {
			o.w.markUpgraded(pkg)
		}
		return manager.VerdictRestartRequired
	case wingetUserCanceled, wingetInstallerCanceled, wingetInstallCanceled:
		return manager.VerdictCanceled
	}

	if op == manager.OperationUninstall && code == wingetNoApplicableManifest && !manager.IsFalse(pkg.Overrides().SpecifyVersion) {
		pkg.SetOverrides(func(ov *manager.Overrides) { ov.SpecifyVersion = manager.Ptr(false) })
		return manager.VerdictAutoRetry
	}

	switch code {
	case wingetIntegrityFailed:
		return manager.VerdictFailed
	case wingetUpdateNotApplicable:
		return o.notApplicable(pkg)
	case wingetAlreadyInstalled, wingetPackageAlreadyExists, wingetDowngradeBlocked, 0:
		if op == manager.OperationUpdate {
			o.w.markUpgraded(pkg)
		}
		return manager.VerdictSucceeded
	case wingetCannotRunElevated:
		if !manager.IsFalse(pkg.Overrides().RunAsAdministrator) && !o.w.IsAdmin() {
			pkg.SetOverrides(func(ov *manager.Overrides) { ov.RunAsAdministrator = manager.Ptr(false) })
			return manager.VerdictAutoRetry
		}
	case wingetNeedsElevation, appxNeedsElevation:
		if manager.ElevateOnce(pkg, opts) {
			return manager.VerdictAutoRetry
		}
	}
	return manager.VerdictFailed
}

// notApplicable ignores the update when the user asked for that.
func (o wingetOps) notApplicable(pkg *manager.Package) manager.Verdict {
	s, ignored := o.w.Settings(), o.w.Ignored()
	if s == nil || ignored == nil || !s.Bool(manager.SettingIgnoreUpdatesNotApplicable) {
		return manager.VerdictFailed
	}
	version := pkg.NewVersion()
	if version == "" {
		version = pkg.Version
	}
	o.w.Log().Warn("ignoring update not applicable to this system", "package", pkg.ID, "version", version)
	if err := ignored.Add(pkg.IgnoredID(), version); err != nil {
		o.w.Log().Error("failed to ignore update", "package", pkg.ID, "error", err)
	}
	return manager.VerdictSucceeded
}

// wingetSourceTypes are tried in turn when adding a source of unknown type.
var wingetSourceTypes = [][]string{
	{"--type", "Microsoft.PreIndexed.Package"},
	{"--type", "Microsoft.Rest"},
}

type wingetSources struct {
	w *WinGet

	mu        sync.Mutex
	attempted map[string]int
}

func newWingetSources(w *WinGet) *wingetSources {
	return &wingetSources{w: w, attempted: make(map[string]int)}
}

func (s *wingetSources) LoadSources(ctx context.Context) ([]*manager.ManagerSource, error) {
	lines, err := s.w.Query(ctx, "source", "list", "--disable-interactivity")
	if err != nil {
		return nil, err
	}
	dashes := false
	return manager.ParseSourceLines(lines, s.w.Log(), func(line string) (*manager.ManagerSource, error) {
		if !dashes {
			dashes = strings.HasPrefix(strings.TrimSpace(line), "---")
			return nil, nil
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, nil
		}
		if fields[0] == s.w.DefaultSource().Name {
			return s.w.DefaultSource(), nil
		}
		return manager.NewSource(s.w, fields[0], fields[1]), nil
	}), nil
}

func (s *wingetSources) AddSourceParameters(src *manager.ManagerSource) []string {
	args := []string{"source", "add", "--name", src.Name, "--arg", src.URL, "--accept-source-agreements", "--disable-interactivity"}
	if src.Name == s.w.DefaultSource().Name {
		return args
	}
	s.mu.Lock()
	i := s.attempted[src.Name]
	s.mu.Unlock()
	return append(args, wingetSourceTypes[i]...)
}

func (s *wingetSources) RemoveSourceParameters(src *manager.ManagerSource) []string {
	return []string{"source", "remove", "--name", src.Name, "--disable-interactivity"}
}

// AddSourceResult retries with the next source type until every type was tried.
func (s *wingetSources) AddSourceResult(src *manager.ManagerSource, output []string, exitCode int) manager.Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()

	if code := uint32(exitCode); code == 0 || code == wingetSourceExists {
		delete(s.attempted, src.Name)
		return manager.VerdictSucceeded
	}

	next := s.attempted[src.Name] + 1
	if src.Name == s.w.DefaultSource().Name || next >= len(wingetSourceTypes) {
		delete(s.attempted, src.Name)
		return manager.VerdictFailed
	}
	s.attempted[src.Name] = next
	return manager.VerdictAutoRetry
}

func (s *wingetSources) RemoveSourceResult(src *manager.ManagerSource, output []string, exitCode int) manager.Verdict {
	return exitVerdict(exitCode)
}

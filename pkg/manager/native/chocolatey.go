package native

import (
	"context"
	"strings"

	"unipkg/pkg/manager"
	"unipkg/pkg/manager/backend"
)

const chocoCommunityURL = "https://community.chocolatey.org/api/v2/"

// Chocolatey implements the Manager interface for Chocolatey.
type Chocolatey struct {
	*backend.Base
	helper  manager.OperationHelper
	sources *manager.SourceHelper
}

// NewChocolatey creates a new Chocolatey manager instance.
func NewChocolatey(deps backend.Deps) *Chocolatey {
	c := &Chocolatey{
		Base: backend.NewBase("chocolatey", "Chocolatey", "choco", manager.TypeNative, manager.Capabilities{
			CanRunAsAdmin:       true,
			CanSkipIntegrity:    true,
			CanRunInteractively: true,
			SupportsVersions:    true,
			SupportsPreRelease:  true,
			SupportsArch:        true,
			SupportsSources:     true,
			SourcesNeedAdmin:    true,
		}, deps),
	}
	c.SetDefaultSource(manager.NewSource(c, "community", chocoCommunityURL))
	c.helper = manager.NewOperationHelper(chocoOps{}, c.Log())
	c.sources = manager.NewSourceHelper(c, chocoSources{c}, c.SourceRetention(), c.Log())
	return c
}

// OperationHelper returns the Chocolatey parameter builder and classifier.
func (c *Chocolatey) OperationHelper() manager.OperationHelper {
	return c.helper
}

// SourceHelper returns the Chocolatey source registry.
func (c *Chocolatey) SourceHelper() *manager.SourceHelper {
	return c.sources
}

// FindPackages searches the configured feeds.
func (c *Chocolatey) FindPackages(ctx context.Context, query string) ([]*manager.Package, error) {
	lines, err := c.Query(ctx, "search", query, "--limit-output")
	if err != nil {
		return nil, err
	}
	return c.parseLimitOutput(lines, false), nil
}

// ListInstalled returns all installed packages.
func (c *Chocolatey) ListInstalled(ctx context.Context) ([]*manager.Package, error) {
	lines, err := c.Query(ctx, "list", "--limit-output")
	if err != nil {
		return nil, err
	}
	return c.parseLimitOutput(lines, false), nil
}

// ListUpdates returns outdated packages. Pinned packages are skipped.
func (c *Chocolatey) ListUpdates(ctx context.Context) ([]*manager.Package, error) {
	lines, err := c.Query(ctx, "outdated", "--limit-output")
	if err != nil {
		return nil, err
	}
	return c.parseLimitOutput(lines, true), nil
}

// InstallableVersions lists every version published for pkg.
func (c *Chocolatey) InstallableVersions(ctx context.Context, pkg *manager.Package) ([]string, error) {
	lines, err := c.Query(ctx, "search", pkg.ID, "--exact", "--all-versions", "--limit-output")
	if err != nil {
		return nil, err
	}
	var versions []string
	for _, line := range lines {
		if id, version, ok := strings.Cut(strings.TrimSpace(line), "|"); ok && strings.EqualFold(id, pkg.ID) {
			versions = append(versions, version)
		}
	}
	return versions, nil
}

// parseLimitOutput parses "id|version" rows, or "id|version|available|pinned"
// rows when outdated is set.
func (c *Chocolatey) parseLimitOutput(lines []string, outdated bool) []*manager.Package {
	return c.ParseRows(lines, func(line string) (*manager.Package, error) {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "|") {
			return nil, nil
		}
		fields := strings.Split(line, "|")
		if fields[0] == "" {
			return nil, backend.Rowf(line, "missing package id")
		}

		if !outdated {
			return manager.NewPackage(fields[0], fields[0], fields[1], c.DefaultSource(), c, manager.ScopeDefault), nil
		}
		if len(fields) < 3 {
			return nil, backend.Rowf(line, "missing available version")
		}
		if len(fields) > 3 && strings.EqualFold(fields[3], "true") {
			c.Log().Debug("skipping pinned package", "package", fields[0])
			return nil, nil
		}
		return manager.NewUpgradablePackage(fields[0], fields[0], fields[1], fields[2], c.DefaultSource(), c, manager.ScopeDefault), nil
	})
}

// chocoElevationPatterns appear in output when an operation needs administrator rights.
var chocoElevationPatterns = []string{
	"Run as administrator",
	"The requested operation requires elevation",
	"Access to the path",
	"Access denied",
	"is denied",
	"WARNING: Unable to create shortcut. Error captured was Unable to save shortcut",
	"access denied",
}

type chocoOps struct{}

func (chocoOps) OperationParameters(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType) ([]string, error) {
	verb, err := manager.VerbFor(op, "install", "upgrade", "uninstall")
	if err != nil {
		return nil, err
	}

	args := []string{verb, pkg.ID, "-y"}
	if opts.Interactive {
		args = append(args, "--notsilent")
	}

	if op != manager.OperationUninstall {
		args = append(args, "--no-progress")
		if opts.Architecture == manager.ArchX86 {
			args = append(args, "--forcex86")
		}
		if opts.PreRelease {
			args = append(args, "--prerelease")
		}
		if opts.SkipHashCheck {
			args = append(args, "--ignore-checksums", "--force")
		}
		if opts.Version != "" {
			args = append(args, "--version="+opts.Version, "--allow-downgrade")
		}
	}

	return append(args, opts.CustomArgs(op)...), nil
}

func (chocoOps) OperationResult(pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType, output []string, exitCode int) manager.Verdict {
	switch exitCode {
	case 3010:
		return manager.VerdictRestartRequired
	case 1641, 1614, 1605, 0:
		return manager.VerdictSucceeded
	}

	if manager.ContainsAny(manager.JoinOutput(output), chocoElevationPatterns...) && manager.ElevateOnce(pkg, opts) {
		return manager.VerdictAutoRetry
	}
	return manager.VerdictFailed
}

type chocoSources struct {
	c *Chocolatey
}

// LoadSources parses "name - url | Priority 0|Bypass Proxy - False|..." rows.
func (s chocoSources) LoadSources(ctx context.Context) ([]*manager.ManagerSource, error) {
	lines, err := s.c.Query(ctx, "source", "list")
	if err != nil {
		return nil, err
	}
	return manager.ParseSourceLines(lines, s.c.Log(), func(line string) (*manager.ManagerSource, error) {
		if !strings.Contains(line, " - ") || !strings.Contains(line, "| ") {
			return nil, nil
		}
		head, _, _ := strings.Cut(strings.TrimSpace(line), "|")
		name, rest, _ := strings.Cut(strings.TrimSpace(head), " - ")
		url := strings.Fields(rest)[0]
		if url == chocoCommunityURL || url == "https://chocolatey.org/api/v2/" {
			return s.c.DefaultSource(), nil
		}
		return manager.NewSource(s.c, strings.TrimSpace(name), url), nil
	}), nil
}

func (s chocoSources) AddSourceParameters(src *manager.ManagerSource) []string {
	return []string{"source", "add", "--name", src.Name, "--source", src.URL, "-y"}
}

func (s chocoSources) RemoveSourceParameters(src *manager.ManagerSource) []string {
	return []string{"source", "remove", "--name", src.Name, "-y"}
}

func (s chocoSources) AddSourceResult(src *manager.ManagerSource, output []string, exitCode int) manager.Verdict {
	return exitVerdict(exitCode)
}

func (s chocoSources) RemoveSourceResult(src *manager.ManagerSource, output []string, exitCode int) manager.Verdict {
	return exitVerdict(exitCode)
}

// exitVerdict maps exit code 0 to success and anything else to failure.
func exitVerdict(exitCode int) manager.Verdict {
	if exitCode == 0 {
		return manager.VerdictSucceeded
	}
	return manager.VerdictFailed
}

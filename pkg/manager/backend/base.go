// Package backend implements the functionality shared by every manager backend.
package backend

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"unipkg/internal/config"
	"unipkg/internal/executor"
	"unipkg/pkg/manager"
)

// Querier runs read-only manager commands and returns their stdout lines.
type Querier interface {
	// Output fails with *executor.ExitError on a non-zero exit.
	Output(ctx context.Context, name string, args ...string) ([]string, error)

	// OutputAny returns stdout whatever the exit code.
	OutputAny(ctx context.Context, name string, args ...string) ([]string, error)
}

// Deps are the collaborators handed to every backend constructor.
type Deps struct {
	Exec            Querier
	Log             *slog.Logger
	Settings        manager.Settings
	Ignored         manager.IgnoredUpdates
	Config          config.ManagerConfig
	SourceRetention time.Duration
}

// Base provides common functionality for all backends.
type Base struct {
	name          string
	displayName   string
	binary        string
	managerType   manager.ManagerType
	caps          manager.Capabilities
	exec          Querier
	log           *slog.Logger
	settings      manager.Settings
	ignored       manager.IgnoredUpdates
	cfg           config.ManagerConfig
	retention     time.Duration
	defaultSource *manager.ManagerSource

	// IsAdmin reports whether the process already runs elevated.
	IsAdmin func() bool
}

// NewBase creates a Base with the given identity.
func NewBase(name, displayName, binary string, typ manager.ManagerType, caps manager.Capabilities, deps Deps) *Base {
	b := &Base{
		name:        name,
		displayName: displayName,
		binary:      binary,
		managerType: typ,
		caps:        caps,
		exec:        deps.Exec,
		log:         deps.Log,
		settings:    deps.Settings,
		ignored:     deps.Ignored,
		cfg:         deps.Config,
		retention:   deps.SourceRetention,
		IsAdmin:     executor.IsRoot,
	}
	if b.exec == nil {
		b.exec = executor.New(false, false)
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	b.log = b.log.With("manager", name)
	return b
}

// Name returns the short identifier for this manager.
func (b *Base) Name() string {
	return b.name
}

// DisplayName returns the human-readable name.
func (b *Base) DisplayName() string {
	return b.displayName
}

// Type returns the manager type.
func (b *Base) Type() manager.ManagerType {
	return b.managerType
}

// Executable returns the configured executable, or the default binary.
func (b *Base) Executable() string {
	if b.cfg.Executable != "" {
		return b.cfg.Executable
	}
	return b.binary
}

// Capabilities describes what the backend supports.
func (b *Base) Capabilities() manager.Capabilities {
	return b.caps
}

// IsAvailable returns true if the executable is on PATH.
func (b *Base) IsAvailable() bool {
	_, err := exec.LookPath(b.Executable())
	return err == nil
}

// DefaultSource returns the source assigned to packages without one.
func (b *Base) DefaultSource() *manager.ManagerSource {
	return b.defaultSource
}

// SetDefaultSource sets the source returned by DefaultSource.
func (b *Base) SetDefaultSource(src *manager.ManagerSource) {
	b.defaultSource = src
}

// SourceHelper returns nil; backends with catalogs override it.
func (b *Base) SourceHelper() *manager.SourceHelper {
	return nil
}

// InstallableVersions is unsupported unless a backend overrides it.
func (b *Base) InstallableVersions(ctx context.Context, pkg *manager.Package) ([]string, error) {
	return nil, manager.ErrUnsupported
}

// Log returns the backend logger.
func (b *Base) Log() *slog.Logger {
	return b.log
}

// Settings returns the settings store; may be nil.
func (b *Base) Settings() manager.Settings {
	return b.settings
}

// Ignored returns the ignored-updates store; may be nil.
func (b *Base) Ignored() manager.IgnoredUpdates {
	return b.ignored
}

// Config returns the per-manager configuration.
func (b *Base) Config() config.ManagerConfig {
	return b.cfg
}

// SourceRetention returns how long source listings are cached.
func (b *Base) SourceRetention() time.Duration {
	return b.retention
}

// Query runs the executable and returns stdout, failing on non-zero exit.
func (b *Base) Query(ctx context.Context, args ...string) ([]string, error) {
	return b.exec.Output(ctx, b.Executable(), args...)
}

// QueryAny runs the executable and returns stdout whatever the exit code.
func (b *Base) QueryAny(ctx context.Context, args ...string) ([]string, error) {
	return b.exec.OutputAny(ctx, b.Executable(), args...)
}

// QueryWith runs a companion tool of the manager, such as dpkg-query for apt.
func (b *Base) QueryWith(ctx context.Context, name string, args ...string) ([]string, error) {
	return b.exec.Output(ctx, name, args...)
}

// ParseRows applies parse to every line, logging and skipping lines that
// fail or panic. A nil package with a nil error skips the line silently.
func (b *Base) ParseRows(lines []string, parse func(line string) (*manager.Package, error)) []*manager.Package {
	pkgs := make([]*manager.Package, 0, len(lines))
	for i, line := range lines {
		pkg, err := parseRow(line, parse)
		if err != nil {
			b.log.Warn("skipping unparsable line", "line", i+1, "text", line, "error", err)
			continue
		}
		if pkg != nil {
			pkgs = append(pkgs, pkg)
		}
	}
	return pkgs
}

func parseRow(line string, parse func(string) (*manager.Package, error)) (pkg *manager.Package, err error) {
	defer func() {
		if p := recover(); p != nil {
			pkg, err = nil, &ParseError{Line: line, Reason: "parser panicked"}
		}
	}()
	return parse(line)
}

// ParseError describes a row that could not be parsed.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return e.Reason + ": " + strings.TrimSpace(e.Line)
}

// Rowf builds a ParseError for line.
func Rowf(line, reason string) error {
	return &ParseError{Line: line, Reason: reason}
}

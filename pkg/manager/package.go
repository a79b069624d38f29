package manager

import (
	"strings"
	"sync"
)

// ManagerSource is a named catalog a manager fetches packages from.
// It is immutable once constructed.
type ManagerSource struct {
	Name string
	URL  string

	// Manager owns this source.
	Manager Manager

	// IsVirtualManager is set for sources that alias another backend
	// rather than a real remote.
	IsVirtualManager bool
}

// NewSource creates a source owned by mgr.
func NewSource(mgr Manager, name, url string) *ManagerSource {
	return &ManagerSource{Name: name, URL: url, Manager: mgr}
}

// String returns "manager: name", or just the name for virtual sources.
func (s *ManagerSource) String() string {
	if s == nil {
		return ""
	}
	if s.IsVirtualManager || s.Manager == nil {
		return s.Name
	}
	return s.Manager.DisplayName() + ": " + s.Name
}

// Overrides are per-package option values set by auto-retry classification.
// A nil field means "not overridden".
type Overrides struct {
	RunAsAdministrator *bool
	Scope              *Scope
	Architecture       *Architecture

	// SpecifyVersion controls whether the installed version is passed on
	// uninstall for disambiguation. Used by winget.
	SpecifyVersion *bool
}

// Apply merges the overrides into opts. An override wins when present.
func (o Overrides) Apply(opts InstallOptions) InstallOptions {
	if o.RunAsAdministrator != nil {
		opts.RunAsAdministrator = *o.RunAsAdministrator
	}
	if o.Scope != nil {
		opts.Scope = *o.Scope
	}
	if o.Architecture != nil {
		opts.Architecture = *o.Architecture
	}
	return opts
}

// Equal reports whether two override sets hold the same values.
func (o Overrides) Equal(other Overrides) bool {
	return eqPtr(o.RunAsAdministrator, other.RunAsAdministrator) &&
		eqPtr(o.Scope, other.Scope) &&
		eqPtr(o.Architecture, other.Architecture) &&
		eqPtr(o.SpecifyVersion, other.SpecifyVersion)
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// IsTrue reports whether b is set and true.
func IsTrue(b *bool) bool {
	return b != nil && *b
}

// IsFalse reports whether b is set and false.
func IsFalse(b *bool) bool {
	return b != nil && !*b
}

// Package is one unit known to one manager.
//
// Identity is (manager name, source name, id). Tag, NewVersion and the
// overrides are the only mutable state; the overrides are written by the
// classifier of the operation currently running against the package, and
// the runner serialises operations per package.
type Package struct {
	Name    string
	ID      string
	Version string
	Source  *ManagerSource
	Manager Manager
	Scope   Scope

	mu         sync.RWMutex
	newVersion string
	tag        Tag
	overrides  Overrides
}

// NewPackage creates a package owned by mgr and listed from src.
func NewPackage(name, id, version string, src *ManagerSource, mgr Manager, scope Scope) *Package {
	return &Package{
		Name:    name,
		ID:      id,
		Version: version,
		Source:  src,
		Manager: mgr,
		Scope:   scope,
	}
}

// NewUpgradablePackage creates a package that represents an available update.
func NewUpgradablePackage(name, id, version, newVersion string, src *ManagerSource, mgr Manager, scope Scope) *Package {
	p := NewPackage(name, id, version, src, mgr, scope)
	p.newVersion = newVersion
	p.tag = TagUpgradable
	return p
}

// Key returns manager\source\id. It names locks and cache entries; use
// Equals to compare packages.
func (p *Package) Key() string {
	return p.managerName() + `\` + p.sourceName() + `\` + p.ID
}

// IgnoredID returns manager\id, the key used by the ignored-updates store.
func (p *Package) IgnoredID() string {
	return strings.ToLower(p.managerName()) + `\` + p.ID
}

// Equals reports whether p and other are the same logical package.
// Versions do not take part in identity.
func (p *Package) Equals(other *Package) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.managerName() == other.managerName() &&
		p.sourceName() == other.sourceName() &&
		p.ID == other.ID
}

func (p *Package) managerName() string {
	if p.Manager == nil {
		return ""
	}
	return p.Manager.Name()
}

func (p *Package) sourceName() string {
	if p.Source == nil {
		return ""
	}
	return p.Source.Name
}

// NewVersion returns the available version, empty when no update is known.
func (p *Package) NewVersion() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.newVersion
}

// SetNewVersion records an available version.
func (p *Package) SetNewVersion(v string) {
	p.mu.Lock()
	p.newVersion = v
	p.mu.Unlock()
}

// IsUpgradable reports whether an update is known for the package.
func (p *Package) IsUpgradable() bool {
	return p.NewVersion() != ""
}

// Tag returns the current tag.
func (p *Package) Tag() Tag {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tag
}

// SetTag sets the current tag.
func (p *Package) SetTag(t Tag) {
	p.mu.Lock()
	p.tag = t
	p.mu.Unlock()
}

// Overrides returns a copy of the per-package overrides.
func (p *Package) Overrides() Overrides {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.overrides
}

// SetOverrides mutates the per-package overrides in place.
func (p *Package) SetOverrides(fn func(o *Overrides)) {
	p.mu.Lock()
	fn(&p.overrides)
	p.mu.Unlock()
}

// EffectiveOptions merges the per-package overrides into opts.
func (p *Package) EffectiveOptions(opts InstallOptions) InstallOptions {
	return p.Overrides().Apply(opts)
}

// String returns "name (id) version".
func (p *Package) String() string {
	s := p.Name + " (" + p.ID + ")"
	if p.Version != "" {
		s += " " + p.Version
	}
	if nv := p.NewVersion(); nv != "" {
		s += " -> " + nv
	}
	return s
}

package manager

import "context"

// Manager is the capability interface every backend implements.
// Callers never need to know which concrete tool sits behind it.
type Manager interface {
	// Metadata.

	// Name returns the short identifier for this manager (e.g., "winget", "npm").
	Name() string

	// DisplayName returns a human-readable name.
	DisplayName() string

	// Type returns the category of this manager.
	Type() ManagerType

	// Executable returns the program spawned for operations.
	Executable() string

	// Capabilities describes what the backend supports.
	Capabilities() Capabilities

	// IsAvailable returns true if the manager's executable can be found.
	IsAvailable() bool

	// DefaultSource is the source assigned to packages whose catalog is unknown.
	DefaultSource() *ManagerSource

	// Package discovery.

	// FindPackages searches the manager's catalogs.
	FindPackages(ctx context.Context, query string) ([]*Package, error)

	// ListInstalled returns installed packages.
	ListInstalled(ctx context.Context) ([]*Package, error)

	// ListUpdates returns installed packages with an available update.
	ListUpdates(ctx context.Context) ([]*Package, error)

	// InstallableVersions lists the versions that can be passed as InstallOptions.Version.
	InstallableVersions(ctx context.Context, pkg *Package) ([]string, error)

	// Operation support.

	// OperationHelper builds parameters and classifies results for operations.
	OperationHelper() OperationHelper

	// SourceHelper manages the manager's catalogs; nil when unsupported.
	SourceHelper() *SourceHelper
}

// Capabilities describes optional features of a backend.
type Capabilities struct {
	CanRunAsAdmin       bool
	CanSkipIntegrity    bool
	CanRunInteractively bool
	SupportsVersions    bool
	SupportsPreRelease  bool
	SupportsScope       bool
	SupportsArch        bool
	SupportsLocation    bool
	SupportsSources     bool

	// SourcesNeedAdmin runs add/remove source elevated.
	SourcesNeedAdmin bool
}

// ManagerInfo provides static information about a manager without requiring instantiation.
type ManagerInfo struct {
	Name        string
	DisplayName string
	Type        ManagerType
	Binary      string   // Primary binary to check for availability
	Platforms   []string // GOOS values the manager is native to
}

// Settings is the narrow view of the persistent settings store used by backends.
type Settings interface {
	// Bool returns a named flag, false when unset.
	Bool(key string) bool

	// MapItem returns one entry of a named mapping.
	MapItem(key, item string) (string, bool)

	// SetMapItem stores one entry of a named mapping.
	SetMapItem(key, item, value string) error
}

// IgnoredUpdates maps manager\id to a wildcard or a specific version.
type IgnoredUpdates interface {
	// Version returns the ignored version ("*" for all) for an id.
	Version(id string) (string, bool)

	// Add ignores updates for id. version "*" ignores every version.
	Add(id, version string) error

	// Remove stops ignoring updates for id.
	Remove(id string) error
}

// IgnoreAllVersions is the wildcard stored for "ignore every update".
const IgnoreAllVersions = "*"

// Setting keys read by backends.
const (
	SettingIgnoreUpdatesNotApplicable = "IgnoreUpdatesNotApplicable"
	SettingWinGetAlreadyUpgraded      = "WinGetAlreadyUpgradedPackages"
)

// Package manager provides the core abstraction over external package-manager tools.
package manager

import "fmt"

// ManagerType represents the category of package manager.
type ManagerType string

const (
	// TypeNative represents system package managers (apt, pacman, winget, etc.)
	TypeNative ManagerType = "native"
	// TypeUniversal represents cross-distribution package managers (flatpak)
	TypeUniversal ManagerType = "universal"
	// TypeLanguage represents language and tool package managers (npm, pip, cargo, dotnet)
	TypeLanguage ManagerType = "language"
)

// OperationType is the kind of change requested against a package.
type OperationType int

const (
	OperationInstall OperationType = iota
	OperationUpdate
	OperationUninstall
)

// String returns the lowercase operation name.
func (o OperationType) String() string {
	switch o {
	case OperationInstall:
		return "install"
	case OperationUpdate:
		return "update"
	case OperationUninstall:
		return "uninstall"
	}
	return fmt.Sprintf("operation(%d)", int(o))
}

// ParseOperation parses an operation name.
func ParseOperation(s string) (OperationType, error) {
	switch s {
	case "install":
		return OperationInstall, nil
	case "update", "upgrade":
		return OperationUpdate, nil
	case "uninstall", "remove":
		return OperationUninstall, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOperation, s)
}

// Verdict is the closed-set outcome of one execution attempt.
type Verdict int

const (
	// VerdictSucceeded means the operation completed.
	VerdictSucceeded Verdict = iota
	// VerdictFailed is a non-recoverable failure.
	VerdictFailed
	// VerdictCanceled means the user declined an elevation or consent prompt.
	VerdictCanceled
	// VerdictRestartRequired means the operation succeeded but needs a reboot.
	VerdictRestartRequired
	// VerdictAutoRetry means the classifier mutated the package overrides
	// and the attempt should be repeated.
	VerdictAutoRetry
)

// String returns the verdict name.
func (v Verdict) String() string {
	switch v {
	case VerdictSucceeded:
		return "succeeded"
	case VerdictFailed:
		return "failed"
	case VerdictCanceled:
		return "canceled"
	case VerdictRestartRequired:
		return "restart-required"
	case VerdictAutoRetry:
		return "auto-retry"
	}
	return fmt.Sprintf("verdict(%d)", int(v))
}

// MarshalText encodes the verdict by name.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText decodes a verdict name.
func (v *Verdict) UnmarshalText(b []byte) error {
	for c := VerdictSucceeded; c <= VerdictAutoRetry; c++ {
		if c.String() == string(b) {
			*v = c
			return nil
		}
	}
	return fmt.Errorf("unknown verdict %q", b)
}

// IsSuccess reports whether the verdict means the change was applied.
func (v Verdict) IsSuccess() bool {
	return v == VerdictSucceeded || v == VerdictRestartRequired
}

// IsTerminal reports whether the runner should stop on this verdict.
func (v Verdict) IsTerminal() bool {
	return v != VerdictAutoRetry
}

// Scope is where a package is installed.
type Scope string

const (
	ScopeDefault Scope = ""
	ScopeUser    Scope = "user"
	ScopeMachine Scope = "machine"
)

// ParseScope parses a scope name. Empty input yields ScopeDefault.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "":
		return ScopeDefault, nil
	case "user", "local":
		return ScopeUser, nil
	case "machine", "global", "system":
		return ScopeMachine, nil
	}
	return ScopeDefault, fmt.Errorf("unknown scope %q", s)
}

// Architecture is a CPU architecture qualifier.
type Architecture string

const (
	ArchDefault Architecture = ""
	ArchX86     Architecture = "x86"
	ArchX64     Architecture = "x64"
	ArchArm     Architecture = "arm"
	ArchArm64   Architecture = "arm64"
)

// ParseArchitecture parses an architecture name.
func ParseArchitecture(s string) (Architecture, error) {
	switch s {
	case "":
		return ArchDefault, nil
	case "x86", "386", "i386", "32bit":
		return ArchX86, nil
	case "x64", "amd64", "x86_64", "64bit":
		return ArchX64, nil
	case "arm", "arm32":
		return ArchArm, nil
	case "arm64", "aarch64":
		return ArchArm64, nil
	}
	return ArchDefault, fmt.Errorf("unknown architecture %q", s)
}

// Tag is the UI-facing state of a listed package.
type Tag int

const (
	TagDefault Tag = iota
	TagAlreadyInstalled
	TagUpgradable
	TagPinned
	TagQueued
	TagProcessing
	TagFailed
)

// String returns the tag name.
func (t Tag) String() string {
	switch t {
	case TagDefault:
		return "default"
	case TagAlreadyInstalled:
		return "installed"
	case TagUpgradable:
		return "upgradable"
	case TagPinned:
		return "pinned"
	case TagQueued:
		return "queued"
	case TagProcessing:
		return "processing"
	case TagFailed:
		return "failed"
	}
	return fmt.Sprintf("tag(%d)", int(t))
}

// InstallOptions is the manager-agnostic option set of an operation.
type InstallOptions struct {
	Version               string       // Target version; empty means latest
	PreRelease            bool         // Allow pre-release versions
	Architecture          Architecture // Architecture qualifier
	Scope                 Scope        // Installation scope
	InstallLocation       string       // Custom install location
	CustomArgsInstall     []string     // Extra arguments appended on install
	CustomArgsUpdate      []string     // Extra arguments appended on update
	CustomArgsUninstall   []string     // Extra arguments appended on uninstall
	SkipHashCheck         bool         // Skip integrity/hash verification
	Interactive           bool         // Let the installer show its own UI
	RunAsAdministrator    bool         // Run the tool elevated
	RemoveDataOnUninstall bool         // Purge data when uninstalling
}

// CustomArgs returns the custom arguments that apply to op.
func (o InstallOptions) CustomArgs(op OperationType) []string {
	switch op {
	case OperationUpdate:
		return o.CustomArgsUpdate
	case OperationUninstall:
		return o.CustomArgsUninstall
	default:
		return o.CustomArgsInstall
	}
}

package manager

import (
	"log/slog"
	"strings"
)

// Elevation-cancel sentinel: the elevator exits with this code and prints
// this line last when the user dismisses the privilege prompt.
const (
	CancelExitCode = 999
	CancelLine     = "Error: The operation was canceled by the user."
)

// OperationHelper turns a manager-agnostic request into an argument list
// and turns the raw process result into a Verdict.
type OperationHelper interface {
	// Parameters returns the argument list for op. It does not include the executable.
	Parameters(pkg *Package, opts InstallOptions, op OperationType) ([]string, error)

	// Result classifies one attempt. On VerdictAutoRetry the package
	// overrides have been mutated so the next attempt differs.
	Result(pkg *Package, opts InstallOptions, op OperationType, output []string, exitCode int) Verdict
}

// Explainer is implemented by managers that can describe a failed
// attempt in plain words.
type Explainer interface {
	Explain(output []string, exitCode int) string
}

// OperationBackend is the per-manager part of an OperationHelper.
// It always receives options with the package overrides already merged.
type OperationBackend interface {
	OperationParameters(pkg *Package, opts InstallOptions, op OperationType) ([]string, error)
	OperationResult(pkg *Package, opts InstallOptions, op OperationType, output []string, exitCode int) Verdict
}

type operationHelper struct {
	backend OperationBackend
	log     *slog.Logger
}

// NewOperationHelper wraps a backend with override merging and
// cancel-sentinel detection.
func NewOperationHelper(backend OperationBackend, log *slog.Logger) OperationHelper {
	if log == nil {
		log = slog.Default()
	}
	return &operationHelper{backend: backend, log: log}
}

func (h *operationHelper) Parameters(pkg *Package, opts InstallOptions, op OperationType) ([]string, error) {
	if op < OperationInstall || op > OperationUninstall {
		return nil, ErrInvalidOperation
	}
	return h.backend.OperationParameters(pkg, pkg.EffectiveOptions(opts), op)
}

func (h *operationHelper) Result(pkg *Package, opts InstallOptions, op OperationType, output []string, exitCode int) Verdict {
	if IsCancelSentinel(exitCode, output) {
		h.log.Warn("elevation prompt was canceled", "package", pkg.ID)
		return VerdictCanceled
	}
	return h.backend.OperationResult(pkg, pkg.EffectiveOptions(opts), op, output, exitCode)
}

// IsCancelSentinel reports whether the exit code and last output line
// mean the elevation prompt was dismissed by the user.
func IsCancelSentinel(exitCode int, output []string) bool {
	if exitCode != CancelExitCode || len(output) == 0 {
		return false
	}
	return strings.TrimSpace(output[len(output)-1]) == CancelLine
}

// JoinOutput concatenates captured lines for substring matching.
func JoinOutput(output []string) string {
	return strings.Join(output, "\n")
}

// ContainsAny reports whether s contains any of the patterns.
func ContainsAny(s string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// VerbFor maps an operation to one of three verbs.
func VerbFor(op OperationType, install, update, uninstall string) (string, error) {
	switch op {
	case OperationInstall:
		return install, nil
	case OperationUpdate:
		return update, nil
	case OperationUninstall:
		return uninstall, nil
	}
	return "", ErrInvalidOperation
}

// ElevateOnce sets the RunAsAdministrator override and reports true,
// unless the attempt already ran elevated or the override is already
// true, in which case it reports false and leaves the package alone.
// Classifiers use it to request at most one elevation retry per package.
func ElevateOnce(pkg *Package, opts InstallOptions) bool {
	if opts.RunAsAdministrator || IsTrue(pkg.Overrides().RunAsAdministrator) {
		return false
	}
	pkg.SetOverrides(func(o *Overrides) { o.RunAsAdministrator = Ptr(true) })
	return true
}

// SwitchScopeOnce sets the Scope override to s and reports true, unless
// the override already holds s.
func SwitchScopeOnce(pkg *Package, s Scope) bool {
	if cur := pkg.Overrides().Scope; cur != nil && *cur == s {
		return false
	}
	pkg.SetOverrides(func(o *Overrides) { o.Scope = Ptr(s) })
	return true
}

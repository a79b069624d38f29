package native

import (
	"fmt"
	"regexp"
	"strings"
)

// PacmanErrorType represents the type of pacman error.
type PacmanErrorType int

const (
	PacmanErrorUnknown PacmanErrorType = iota
	PacmanErrorDependencyConflict
	PacmanErrorPackageNotFound
	PacmanErrorDatabaseLocked
	PacmanErrorNotRoot
)

// PacmanError represents a structured failure read from pacman output.
type PacmanError struct {
	ErrorType  PacmanErrorType
	RawOutput  string
	Packages   []string // Affected packages
	ExitCode   int
	Suggestion string
}

// Error implements the error interface.
func (e *PacmanError) Error() string {
	switch e.ErrorType {
	case PacmanErrorDependencyConflict:
		return fmt.Sprintf("pacman: dependency conflict involving %s", strings.Join(e.Packages, ", "))
	case PacmanErrorPackageNotFound:
		return fmt.Sprintf("pacman: target not found: %s", strings.Join(e.Packages, ", "))
	case PacmanErrorDatabaseLocked:
		return "pacman: unable to lock database"
	case PacmanErrorNotRoot:
		return "pacman: operation requires root"
	}
	return fmt.Sprintf("pacman exited with status %d", e.ExitCode)
}

// IsDependencyConflict returns true if this is a dependency conflict error.
func (e *PacmanError) IsDependencyConflict() bool {
	return e.ErrorType == PacmanErrorDependencyConflict
}

// Regular expressions for parsing pacman errors
var (
	// Matches: "error: failed to prepare transaction (could not satisfy dependencies)"
	dependencyFailurePattern = regexp.MustCompile(`failed to prepare transaction.*could not satisfy dependencies`)

	// Matches: ":: installing pkg (1.2.3-4) breaks dependency 'pkg=1.2.3-1' required by other-pkg"
	breaksDepPattern = regexp.MustCompile(`:: installing (\S+) .* breaks dependency .* required by (\S+)`)

	// Matches: ":: pkg and other-pkg are in conflict"
	conflictPattern = regexp.MustCompile(`:: (\S+) and (\S+) are in conflict`)

	// Matches: "error: target not found: pkg"
	notFoundPattern = regexp.MustCompile(`error: target not found: (\S+)`)

	// Matches: "error: failed to init transaction (unable to lock database)"
	dbLockedPattern = regexp.MustCompile(`failed to init transaction.*unable to lock database`)

	// Matches: "error: you cannot perform this operation unless you are root."
	notRootPattern = regexp.MustCompile(`you cannot perform this operation unless you are root`)
)

// ParsePacmanError reads captured pacman output. It returns nil when the
// output holds no known failure.
func ParsePacmanError(output string, exitCode int) *PacmanError {
	if output == "" {
		return nil
	}

	pacErr := &PacmanError{
		ErrorType: PacmanErrorUnknown,
		RawOutput: output,
		ExitCode:  exitCode,
	}

	switch {
	case notRootPattern.MatchString(output):
		pacErr.ErrorType = PacmanErrorNotRoot
		pacErr.Suggestion = "Run the operation with --admin"
	case dependencyFailurePattern.MatchString(output), conflictPattern.MatchString(output):
		pacErr.ErrorType = PacmanErrorDependencyConflict
		pacErr.Packages = extractAffectedPackages(output)
		pacErr.Suggestion = "Run 'unipkg update --all -m pacman' to update your system first"
	case notFoundPattern.MatchString(output):
		pacErr.ErrorType = PacmanErrorPackageNotFound
		for _, m := range notFoundPattern.FindAllStringSubmatch(output, -1) {
			pacErr.Packages = append(pacErr.Packages, m[1])
		}
		pacErr.Suggestion = "Check the package name with 'unipkg search -m pacman'"
	case dbLockedPattern.MatchString(output):
		pacErr.ErrorType = PacmanErrorDatabaseLocked
		pacErr.Suggestion = "Another package manager may be running. Wait for it to finish or remove /var/lib/pacman/db.lck"
	default:
		return nil
	}
	return pacErr
}

// extractAffectedPackages extracts package names from dependency conflict messages.
func extractAffectedPackages(output string) []string {
	seen := make(map[string]bool)
	var packages []string

	add := func(matches [][]string) {
		for _, m := range matches {
			for _, name := range m[1:] {
				if !seen[name] {
					packages = append(packages, name)
					seen[name] = true
				}
			}
		}
	}
	add(breaksDepPattern.FindAllStringSubmatch(output, -1))
	add(conflictPattern.FindAllStringSubmatch(output, -1))

	return packages
}

// FormatPacmanError returns a user-friendly description of pacErr.
func FormatPacmanError(pacErr *PacmanError) string {
	var sb strings.Builder
	switch pacErr.ErrorType {
	case PacmanErrorDependencyConflict:
		sb.WriteString("Dependency conflict detected!\n")
		sb.WriteString("  This usually happens when packages in your system are out of date.\n")
	default:
		sb.WriteString(pacErr.Error())
		sb.WriteString("\n")
	}
	if pacErr.Suggestion != "" {
		sb.WriteString("-> Suggestion: ")
		sb.WriteString(pacErr.Suggestion)
		sb.WriteString("\n")
	}

	if len(pacErr.Packages) > 0 {
		sb.WriteString("  Affected packages:\n")
		for _, pkg := range pacErr.Packages {
			sb.WriteString("    - ")
			sb.WriteString(pkg)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

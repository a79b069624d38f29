package cli

import "errors"

var (
	// ErrNoManager is returned when no package manager is available.
	ErrNoManager = errors.New("no package manager available; install one or select one with --manager")

	// ErrPackageNotFound is returned when a package cannot be found.
	ErrPackageNotFound = errors.New("package not found")

	// ErrNoUpdate is returned when a package has no available update.
	ErrNoUpdate = errors.New("no update available")

	// ErrAborted is returned when the user aborts an operation.
	ErrAborted = errors.New("operation aborted by user")

	// ErrOperationFailed is returned when at least one operation did not succeed.
	ErrOperationFailed = errors.New("operation failed")
)

package manager

import "errors"

var (
	// ErrInvalidOperation is returned for an operation kind a backend does not know.
	ErrInvalidOperation = errors.New("invalid package operation")

	// ErrManagerNotFound is returned when no manager is registered under a name.
	ErrManagerNotFound = errors.New("package manager not found")

	// ErrManagerUnavailable is returned when a manager's executable is missing.
	ErrManagerUnavailable = errors.New("package manager is not available on this system")

	// ErrUnsupported is returned when a manager lacks a capability.
	ErrUnsupported = errors.New("operation not supported by this package manager")
)

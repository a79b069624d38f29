package executor

import "errors"

// ErrNoPrivileges is returned for an elevated request when the process is
// not elevated and no elevator program is installed.
var ErrNoPrivileges = errors.New("elevation requested, but the process is not elevated and neither sudo nor gsudo is installed")

// IsRoot reports whether the process already runs as root or administrator.
func IsRoot() bool {
	return isRoot()
}

// Elevator returns the path of the program used to run elevated commands.
func Elevator() (string, bool) {
	return findElevator()
}

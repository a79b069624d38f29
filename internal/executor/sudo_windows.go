//go:build windows

package executor

import (
	"os/exec"

	"golang.org/x/sys/windows"
)

// isRoot checks the elevation of the process token. A member of the
// Administrators group running under UAC is not elevated.
func isRoot() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// findElevator prefers gsudo, whose cancel report the operation helpers
// recognise, and falls back to the built-in sudo of Windows 11.
func findElevator() (string, bool) {
	for _, name := range []string{"gsudo", "sudo"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, true
		}
	}
	return "", false
}

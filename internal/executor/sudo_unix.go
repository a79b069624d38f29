//go:build !windows

package executor

import (
	"os"
	"os/exec"
)

func isRoot() bool {
	return os.Geteuid() == 0
}

func findElevator() (string, bool) {
	path, err := exec.LookPath("sudo")
	return path, err == nil
}

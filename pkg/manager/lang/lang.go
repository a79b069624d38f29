// Package lang implements language ecosystem package managers: npm, pip,
// cargo and the dotnet tool command.
package lang

import (
	"strings"

	"unipkg/pkg/manager"
)

// dashedRows returns the whitespace-separated fields of every non-blank
// line after the first "----" ruler. Rows shorter than minFields are dropped.
func dashedRows(lines []string, minFields int) [][]string {
	var rows [][]string
	passed := false
	for _, line := range lines {
		if !passed {
			passed = strings.Contains(line, "----")
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= minFields {
			rows = append(rows, fields)
		}
	}
	return rows
}

func exitVerdict(exitCode int) manager.Verdict {
	if exitCode == 0 {
		return manager.VerdictSucceeded
	}
	return manager.VerdictFailed
}

// Package history keeps a record of finished operations in BoltDB.
package history

import (
	"fmt"
	"strings"

	"unipkg/pkg/operation"
)

// Entry is one recorded operation.
type Entry struct {
	operation.Outcome
}

// Package returns the id part of the operation target.
func (e *Entry) Package() string {
	if i := strings.LastIndex(e.Target, `\`); i >= 0 {
		return e.Target[i+1:]
	}
	return e.Target
}

// FormatTime returns a human-readable start time.
func (e *Entry) FormatTime() string {
	return e.Started.Format("2006-01-02 15:04:05")
}

// Summary returns a one-line description of the operation.
func (e *Entry) Summary() string {
	s := fmt.Sprintf("%s %s %s [%s] (%s)", e.FormatTime(), e.Kind, e.Package(), e.Manager, e.Verdict)
	if n := len(e.Attempts); n > 1 {
		s += fmt.Sprintf(", %d attempts", n)
	}
	return s
}

// Matches reports whether the entry belongs to manager and, when given,
// to the package id.
func (e *Entry) Matches(manager, id string) bool {
	if manager != "" && !strings.EqualFold(e.Manager, manager) {
		return false
	}
	return id == "" || strings.EqualFold(e.Package(), id)
}

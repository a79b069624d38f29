// Package operation runs install, update, uninstall and source operations
// against a manager, retrying while the manager's classifier asks for it.
package operation

import (
	"fmt"
	"strings"
	"time"

	"unipkg/pkg/manager"
)

// Kinds of source operations.
const (
	KindAddSource    = "add-source"
	KindRemoveSource = "remove-source"
)

// Attempt is one process launch of an operation.
type Attempt struct {
	Number   int             `json:"number"`
	Command  []string        `json:"command"`
	Elevated bool            `json:"elevated"`
	ExitCode int             `json:"exit_code"`
	Output   []string        `json:"output"`
	Verdict  manager.Verdict `json:"verdict"`
	Err      string          `json:"error,omitempty"`
	Started  time.Time       `json:"started"`
	Finished time.Time       `json:"finished"`
}

// Outcome is the final result of an operation with every attempt it took.
type Outcome struct {
	ID       string          `json:"id"`
	Manager  string          `json:"manager"`
	Target   string          `json:"target"`
	Kind     string          `json:"kind"`
	Verdict  manager.Verdict `json:"verdict"`
	Attempts []Attempt       `json:"attempts"`
	Hint     string          `json:"hint,omitempty"`
	Started  time.Time       `json:"started"`
	Finished time.Time       `json:"finished"`
}

// Succeeded reports whether the operation took effect.
func (o *Outcome) Succeeded() bool {
	return o.Verdict.IsSuccess()
}

// Last returns the final attempt, or nil when nothing was launched.
func (o *Outcome) Last() *Attempt {
	if len(o.Attempts) == 0 {
		return nil
	}
	return &o.Attempts[len(o.Attempts)-1]
}

// Output returns the output of the final attempt.
func (o *Outcome) Output() []string {
	if last := o.Last(); last != nil {
		return last.Output
	}
	return nil
}

// Log renders every attempt in order, each under its own header.
func (o *Outcome) Log() string {
	var sb strings.Builder
	for _, a := range o.Attempts {
		fmt.Fprintf(&sb, "--- attempt %d", a.Number)
		if a.Elevated {
			sb.WriteString(" (elevated)")
		}
		fmt.Fprintf(&sb, ": %s\n", strings.Join(a.Command, " "))
		for _, line := range a.Output {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		if a.Err != "" {
			fmt.Fprintf(&sb, "error: %s\n", a.Err)
		}
		fmt.Fprintf(&sb, "--- exit code %d, %s\n", a.ExitCode, a.Verdict)
	}
	return sb.String()
}

// Duration returns the wall time of the whole operation.
func (o *Outcome) Duration() time.Duration {
	return o.Finished.Sub(o.Started)
}

// Recorder persists finished outcomes.
type Recorder interface {
	Record(o *Outcome) error
}

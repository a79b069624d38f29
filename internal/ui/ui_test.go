package ui

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"

	"unipkg/pkg/manager"
	"unipkg/pkg/operation"
)

func init() {
	color.NoColor = true
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"all", "[0 1 2]"},
		{" ALL ", "[0 1 2]"},
		{"1 3", "[0 2]"},
		{"3 3 1", "[2 0]"},
		{"0 4 x 2", "[1]"},
		{"", "[]"},
	}
	for _, tt := range tests {
		if got := fmt.Sprint(parseSelection(tt.input, 3)); got != tt.want {
			t.Errorf("parseSelection(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestSelectNeedsChoices(t *testing.T) {
	if _, err := SelectString(nil, "Version"); !errors.Is(err, ErrNoChoices) {
		t.Errorf("SelectString(nil) error = %v", err)
	}
	if v, err := SelectString([]string{"1.0.0"}, "Version"); err != nil || v != "1.0.0" {
		t.Errorf("SelectString(single) = %q, %v", v, err)
	}
	if _, err := SelectMultiple(nil, "Updates"); !errors.Is(err, ErrNoChoices) {
		t.Errorf("SelectMultiple(nil) error = %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("Microsoft Visual Studio Code", 10); got != "Microso..." {
		t.Errorf("truncate() = %q", got)
	}
}

func TestPrintOutcome(t *testing.T) {
	out := &operation.Outcome{
		Manager: "winget",
		Target:  `winget\winget\Git.Git`,
		Kind:    "install",
		Verdict: manager.VerdictFailed,
		Hint:    "close running instances first",
		Attempts: []operation.Attempt{
			{Number: 1, Command: []string{"winget", "install"}, ExitCode: 5, Output: []string{"denied"}, Verdict: manager.VerdictAutoRetry},
			{Number: 2, Elevated: true, Command: []string{"winget", "install"}, ExitCode: 5, Output: []string{"still denied"}, Verdict: manager.VerdictFailed},
		},
	}

	var buf bytes.Buffer
	PrintOutcome(&buf, out, false)
	got := buf.String()
	for _, want := range []string{
		"install Git.Git [winget]: failed after 2 attempts",
		"--- attempt 2 (elevated): winget install",
		"still denied",
		"hint: close running instances first",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	buf.Reset()
	out.Verdict = manager.VerdictSucceeded
	out.Hint = ""
	out.Attempts = out.Attempts[:1]
	PrintOutcome(&buf, out, false)
	if strings.Contains(buf.String(), "attempt") {
		t.Errorf("successful outcome should not print the log:\n%s", buf.String())
	}
}

func TestPrintIgnored(t *testing.T) {
	var buf bytes.Buffer
	PrintIgnored(&buf, map[string]string{`winget\Git.Git`: "*", `npm\typescript`: "5.6.3"})
	got := buf.String()
	if strings.Index(got, "npm") > strings.Index(got, "winget") {
		t.Errorf("entries not sorted:\n%s", got)
	}
	if !strings.Contains(got, "all versions") {
		t.Errorf("wildcard not rendered:\n%s", got)
	}
}

package ignored

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"unipkg/pkg/engine"
)

var _ engine.IgnoredStore = (*Store)(nil)

func TestStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ignored-updates.yaml")
	s := New(path, nil)

	if _, ok := s.Version(`winget\Git.Git`); ok {
		t.Fatal("empty store reported an entry")
	}
	if err := s.Add(`winget\Git.Git`, "*"); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(`npm\typescript`, "5.6.3"); err != nil {
		t.Fatal(err)
	}

	// A second store on the same file sees the changes.
	other := New(path, nil)
	if v, ok := other.Version(`npm\typescript`); !ok || v != "5.6.3" {
		t.Errorf("Version() = %q, %v", v, ok)
	}

	if err := other.Remove(`winget\Git.Git`); err != nil {
		t.Fatal(err)
	}
	all, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[`npm\typescript`] != "5.6.3" {
		t.Errorf("All() = %v", all)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "ignored_updates:") {
		t.Errorf("document = %s", data)
	}
}

func TestRejectsEmptyID(t *testing.T) {
	if err := New(filepath.Join(t.TempDir(), "x.yaml"), nil).Add("", "*"); err == nil {
		t.Error("expected error")
	}
}

func TestCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ignored-updates.yaml")
	if err := os.WriteFile(path, []byte("ignored_updates: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	s := New(path, slog.New(slog.NewTextHandler(&logs, nil)))
	if _, err := s.All(); err == nil {
		t.Error("expected parse error")
	}
	if v, ok := s.Version(`pip\requests`); ok || v != "" {
		t.Errorf("Version() = %q, %v on a corrupt document", v, ok)
	}
	if !strings.Contains(logs.String(), "cannot read ignored updates") {
		t.Errorf("read error was not logged: %q", logs.String())
	}
	if err := s.Add(`pip\requests`, "*"); err == nil {
		t.Error("a corrupt document must not be overwritten")
	}
}

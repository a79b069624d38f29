package history

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"unipkg/pkg/manager"
	"unipkg/pkg/operation"
)

var _ operation.Recorder = (*Store)(nil)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := OpenAt(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

var clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func outcome(id, mgr, target, kind string, v manager.Verdict, started time.Time) *operation.Outcome {
	return &operation.Outcome{
		ID:      id,
		Manager: mgr,
		Target:  target,
		Kind:    kind,
		Verdict: v,
		Attempts: []operation.Attempt{{
			Number:   1,
			Command:  []string{mgr, kind, target},
			ExitCode: 0,
			Output:   []string{"done"},
			Verdict:  v,
		}},
		Started:  started,
		Finished: started.Add(time.Second),
	}
}

func TestRecordAndList(t *testing.T) {
	store := setupTestStore(t)

	for i, id := range []string{"a", "b", "c", "d", "e"} {
		o := outcome(id, "apt", `apt\apt\pkg`+id, "install", manager.VerdictSucceeded, clock.Add(time.Duration(i)*time.Minute))
		if err := store.Record(o); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}

	entries, err := store.List(0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	if entries[0].ID != "e" || entries[4].ID != "a" {
		t.Errorf("List() should be newest first, got %s..%s", entries[0].ID, entries[4].ID)
	}

	limited, _ := store.List(3)
	if len(limited) != 3 {
		t.Errorf("expected 3 entries with limit, got %d", len(limited))
	}
}

func TestSameStartTimeKeepsBoth(t *testing.T) {
	store := setupTestStore(t)

	store.Record(outcome("one", "npm", `npm\npm\a`, "install", manager.VerdictSucceeded, clock))
	store.Record(outcome("two", "npm", `npm\npm\b`, "install", manager.VerdictSucceeded, clock))

	if count, _ := store.Count(); count != 2 {
		t.Errorf("expected 2 entries, got %d", count)
	}
}

func TestEntryRoundTrip(t *testing.T) {
	store := setupTestStore(t)

	o := outcome("x1", "winget", `winget\winget\Git.Git`, "update", manager.VerdictAutoRetry, clock)
	o.Attempts = append(o.Attempts, operation.Attempt{Number: 2, Elevated: true, Verdict: manager.VerdictFailed, ExitCode: 1})
	o.Verdict = manager.VerdictFailed
	o.Hint = "run as administrator"
	store.Record(o)

	got, err := store.Get("x1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Verdict != manager.VerdictFailed || got.Hint != o.Hint || len(got.Attempts) != 2 || !got.Attempts[1].Elevated {
		t.Errorf("Get() = %+v", got.Outcome)
	}
	if got.Package() != "Git.Git" {
		t.Errorf("Package() = %q", got.Package())
	}
	if s := got.Summary(); !strings.Contains(s, "update Git.Git [winget] (failed), 2 attempts") {
		t.Errorf("Summary() = %q", s)
	}

	if _, err := store.Get("nonexistent"); err == nil {
		t.Error("Get() should error for non-existent ID")
	}
}

func TestFind(t *testing.T) {
	store := setupTestStore(t)

	store.Record(outcome("1", "apt", `apt\apt\vim`, "install", manager.VerdictSucceeded, clock))
	store.Record(outcome("2", "pip", `pip\pip\requests`, "install", manager.VerdictSucceeded, clock.Add(time.Minute)))
	store.Record(outcome("3", "apt", `apt\apt\git`, "uninstall", manager.VerdictSucceeded, clock.Add(2*time.Minute)))

	apt, err := store.Find(0, func(e *Entry) bool { return e.Matches("APT", "") })
	if err != nil || len(apt) != 2 || apt[0].ID != "3" {
		t.Errorf("Find(apt) = %v, %v", apt, err)
	}
	vim, _ := store.Find(0, func(e *Entry) bool { return e.Matches("", "vim") })
	if len(vim) != 1 || vim[0].ID != "1" {
		t.Errorf("Find(vim) = %v", vim)
	}
}

func TestLast(t *testing.T) {
	store := setupTestStore(t)

	entry, err := store.Last()
	if err != nil || entry != nil {
		t.Fatalf("Last() on empty store = %v, %v", entry, err)
	}

	// The last recorded wins even when it started earlier.
	store.Record(outcome("late", "apt", `apt\apt\vim`, "install", manager.VerdictSucceeded, clock.Add(time.Hour)))
	store.Record(outcome("early", "apt", `apt\apt\git`, "install", manager.VerdictSucceeded, clock))

	last, err := store.Last()
	if err != nil {
		t.Fatalf("Last() error: %v", err)
	}
	if last.ID != "early" {
		t.Errorf("Last() = %s, want early", last.ID)
	}
}

func TestClearAndPrune(t *testing.T) {
	store := setupTestStore(t)

	store.Record(outcome("old", "apt", `apt\apt\old`, "install", manager.VerdictSucceeded, time.Now().Add(-48*time.Hour)))
	store.Record(outcome("new", "apt", `apt\apt\new`, "install", manager.VerdictSucceeded, time.Now()))

	deleted, err := store.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune() error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted entry, got %d", deleted)
	}
	if count, _ := store.Count(); count != 1 {
		t.Errorf("expected 1 entry after prune, got %d", count)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if count, _ := store.Count(); count != 0 {
		t.Errorf("expected count 0 after Clear(), got %d", count)
	}
	if last, _ := store.Last(); last != nil {
		t.Errorf("Last() after Clear() = %v", last)
	}
}

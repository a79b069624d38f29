// Package backendtest provides in-memory collaborators for backend tests.
package backendtest

import (
	"context"
	"strings"
	"sync"

	"unipkg/internal/executor"
)

// Querier answers commands from a table keyed by the joined argument list.
type Querier struct {
	mu      sync.Mutex
	replies map[string]Reply
	calls   []string
}

// Reply is the canned result of one command.
type Reply struct {
	Lines    []string
	ExitCode int
	Err      error
}

// NewQuerier returns an empty Querier. Unknown commands yield no output.
func NewQuerier() *Querier {
	return &Querier{replies: make(map[string]Reply)}
}

// On registers the reply for args. Output is split on newlines.
func (q *Querier) On(output string, args ...string) *Querier {
	return q.Reply(Reply{Lines: strings.Split(output, "\n")}, args...)
}

// Reply registers a full reply for args.
func (q *Querier) Reply(r Reply, args ...string) *Querier {
	q.mu.Lock()
	q.replies[strings.Join(args, " ")] = r
	q.mu.Unlock()
	return q
}

// Calls returns every command seen so far, as "name arg arg...".
func (q *Querier) Calls() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.calls...)
}

func (q *Querier) lookup(name string, args []string) Reply {
	key := strings.Join(args, " ")
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls = append(q.calls, strings.TrimSpace(name+" "+key))
	return q.replies[key]
}

// Output implements backend.Querier.
func (q *Querier) Output(ctx context.Context, name string, args ...string) ([]string, error) {
	r := q.lookup(name, args)
	if r.Err != nil {
		return nil, r.Err
	}
	if r.ExitCode != 0 {
		return r.Lines, &executor.ExitError{Name: name, Code: r.ExitCode, Output: r.Lines}
	}
	return r.Lines, nil
}

// OutputAny implements backend.Querier.
func (q *Querier) OutputAny(ctx context.Context, name string, args ...string) ([]string, error) {
	r := q.lookup(name, args)
	return r.Lines, r.Err
}

// Settings is a map-backed manager.Settings.
type Settings struct {
	mu    sync.Mutex
	Bools map[string]bool
	Maps  map[string]map[string]string
}

// NewSettings returns empty settings.
func NewSettings() *Settings {
	return &Settings{Bools: map[string]bool{}, Maps: map[string]map[string]string{}}
}

func (s *Settings) Bool(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Bools[key]
}

func (s *Settings) MapItem(key, item string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.Maps[key][item]
	return v, ok
}

func (s *Settings) SetMapItem(key, item, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Maps[key] == nil {
		s.Maps[key] = map[string]string{}
	}
	s.Maps[key][item] = value
	return nil
}

// Ignored is a map-backed manager.IgnoredUpdates.
type Ignored struct {
	mu      sync.Mutex
	Entries map[string]string
}

// NewIgnored returns an empty store.
func NewIgnored() *Ignored {
	return &Ignored{Entries: map[string]string{}}
}

func (i *Ignored) Version(id string) (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	v, ok := i.Entries[id]
	return v, ok
}

func (i *Ignored) Add(id, version string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Entries[id] = version
	return nil
}

func (i *Ignored) Remove(id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.Entries, id)
	return nil
}

// All returns a copy of every entry.
func (i *Ignored) All() (map[string]string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make(map[string]string, len(i.Entries))
	for k, v := range i.Entries {
		out[k] = v
	}
	return out, nil
}

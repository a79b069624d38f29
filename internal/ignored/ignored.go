// Package ignored keeps the list of updates the user chose to skip.
//
// The list is a YAML document mapping manager\id to "*" (every version)
// or to one specific version. It is read on every access and rewritten
// on every change, so concurrent processes see each other's edits.
package ignored

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

type document struct {
	Updates map[string]string `yaml:"ignored_updates"`
}

// Store is a file-backed ignored-updates store.
type Store struct {
	path string
	log  *slog.Logger
	mu   sync.Mutex
}

// New returns a store for the document at path. The file is created on
// the first change.
func New(path string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{path: path, log: log}
}

// Version returns the ignored version for id ("*" for all). An unreadable
// document is logged and ignores nothing.
func (s *Store) Version(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		s.log.Warn("cannot read ignored updates", "id", id, "error", err)
		return "", false
	}
	v, ok := doc.Updates[id]
	return v, ok
}

// All returns every entry.
func (s *Store) All() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return doc.Updates, nil
}

// Add ignores updates for id.
func (s *Store) Add(id, version string) error {
	if id == "" {
		return errors.New("empty package id")
	}
	return s.edit(func(m map[string]string) { m[id] = version })
}

// Remove stops ignoring updates for id. Removing an unknown id is not an error.
func (s *Store) Remove(id string) error {
	return s.edit(func(m map[string]string) { delete(m, id) })
}

func (s *Store) edit(fn func(map[string]string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	fn(doc.Updates)
	return s.write(doc)
}

func (s *Store) read() (*document, error) {
	doc := &document{}
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read ignored updates: %w", err)
	default:
		if err := yaml.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
		}
	}
	if doc.Updates == nil {
		doc.Updates = map[string]string{}
	}
	return doc, nil
}

func (s *Store) write(doc *document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode ignored updates: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write ignored updates: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Package settings persists user settings in a BoltDB file.
//
// Values live in one bucket per kind: flags, strings, lists and maps.
// Lists and maps are stored as JSON documents under their key.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketBools   = []byte("bools")
	bucketStrings = []byte("strings")
	bucketLists   = []byte("lists")
	bucketMaps    = []byte("maps")
)

// Store is a bbolt-backed settings store. It implements manager.Settings.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the settings database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketBools, bucketStrings, bucketLists, bucketMaps} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Bool returns a named flag, false when unset or unreadable.
func (s *Store) Bool(key string) bool {
	v, _ := s.get(bucketBools, key) //nolint:errcheck
	return string(v) == "1"
}

// SetBool stores a flag. Clearing a flag deletes it.
func (s *Store) SetBool(key string, value bool) error {
	if !value {
		return s.delete(bucketBools, key)
	}
	return s.put(bucketBools, key, []byte("1"))
}

// String returns a named string, empty when unset.
func (s *Store) String(key string) string {
	v, _ := s.get(bucketStrings, key) //nolint:errcheck
	return string(v)
}

// SetString stores a string. The empty string deletes the key.
func (s *Store) SetString(key, value string) error {
	if value == "" {
		return s.delete(bucketStrings, key)
	}
	return s.put(bucketStrings, key, []byte(value))
}

// List returns a named list.
func (s *Store) List(key string) ([]string, error) {
	var list []string
	if err := s.getJSON(bucketLists, key, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// AppendList adds value to a named list unless it is already present.
func (s *Store) AppendList(key, value string) error {
	return s.updateJSON(bucketLists, key, func(raw []byte) ([]byte, error) {
		var list []string
		if raw != nil {
			if err := json.Unmarshal(raw, &list); err != nil {
				return nil, err
			}
		}
		for _, v := range list {
			if v == value {
				return raw, nil
			}
		}
		return json.Marshal(append(list, value))
	})
}

// RemoveFromList removes every occurrence of value from a named list.
func (s *Store) RemoveFromList(key, value string) error {
	return s.updateJSON(bucketLists, key, func(raw []byte) ([]byte, error) {
		if raw == nil {
			return nil, nil
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		kept := list[:0]
		for _, v := range list {
			if v != value {
				kept = append(kept, v)
			}
		}
		return json.Marshal(kept)
	})
}

// Map returns a named mapping; never nil.
func (s *Store) Map(key string) (map[string]string, error) {
	m := map[string]string{}
	if err := s.getJSON(bucketMaps, key, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// MapItem returns one entry of a named mapping.
func (s *Store) MapItem(key, item string) (string, bool) {
	m, err := s.Map(key)
	if err != nil {
		return "", false
	}
	v, ok := m[item]
	return v, ok
}

// SetMapItem stores one entry of a named mapping.
func (s *Store) SetMapItem(key, item, value string) error {
	return s.editMap(key, func(m map[string]string) { m[item] = value })
}

// DeleteMapItem removes one entry of a named mapping.
func (s *Store) DeleteMapItem(key, item string) error {
	return s.editMap(key, func(m map[string]string) { delete(m, item) })
}

func (s *Store) editMap(key string, edit func(map[string]string)) error {
	return s.updateJSON(bucketMaps, key, func(raw []byte) ([]byte, error) {
		m := map[string]string{}
		if raw != nil {
			if err := json.Unmarshal(raw, &m); err != nil {
				return nil, err
			}
		}
		edit(m)
		return json.Marshal(m)
	})
}

func (s *Store) get(bucket []byte, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

func (s *Store) getJSON(bucket []byte, key string, v any) error {
	raw, err := s.get(bucket, key)
	if err != nil || raw == nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("setting %s is corrupt: %w", key, err)
	}
	return nil
}

func (s *Store) put(bucket []byte, key string, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), value)
	})
}

func (s *Store) delete(bucket []byte, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
}

// updateJSON rewrites a value inside one transaction. A nil result deletes it.
func (s *Store) updateJSON(bucket []byte, key string, fn func(raw []byte) ([]byte, error)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		var raw []byte
		if v := b.Get([]byte(key)); v != nil {
			raw = append([]byte(nil), v...)
		}
		next, err := fn(raw)
		if err != nil {
			return fmt.Errorf("failed to update setting %s: %w", key, err)
		}
		if next == nil {
			return b.Delete([]byte(key))
		}
		return b.Put([]byte(key), next)
	})
}

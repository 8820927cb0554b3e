package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/vistav/site-api/internal/models"
)

// DocumentStore persists one JSON document in a single file.
// Writes are whole-file replacements (temp file + rename) and read-modify-write
// cycles hold an exclusive advisory lock, so concurrent request handlers from
// any process cannot lose each other's updates.
type DocumentStore struct {
	path string
}

// NewDocumentStore creates a store for the document at path. The parent
// directory is created if missing.
func NewDocumentStore(path string) (*DocumentStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &DocumentStore{path: path}, nil
}

// Path returns the backing file path.
func (s *DocumentStore) Path() string {
	return s.path
}

// Exists reports whether the document has been written yet.
func (s *DocumentStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load unmarshals the document into v.
// Returns models.ErrNotFound when the document does not exist.
func (s *DocumentStore) Load(v any) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", s.path, err)
	}
	return nil
}

// Save atomically replaces the document with the JSON encoding of v.
func (s *DocumentStore) Save(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", s.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// Remove deletes the document. Removing a missing document is not an error.
func (s *DocumentStore) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", s.path, err)
	}
	return nil
}

// Update runs a locked read-modify-write cycle: the document is loaded into v
// (v is left untouched when it does not exist yet), fn mutates it, and the
// result is saved when fn returns nil. The advisory lock is held on a sidecar
// file because Save replaces the document itself.
func (s *DocumentStore) Update(v any, fn func(exists bool) error) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	exists := true
	if err := s.Load(v); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return err
		}
		exists = false
	}

	if err := fn(exists); err != nil {
		return err
	}

	return s.Save(v)
}

// lock takes an exclusive advisory lock scoped to this document.
func (s *DocumentStore) lock() (func(), error) {
	f, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to lock %s: %w", s.path, err)
	}
	return func() {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
	}, nil
}

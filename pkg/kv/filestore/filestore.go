// Package filestore provides a [kv.Store] backed by a single local JSON file.
// It is the default storage backend for voxkit running on a workstation:
// small, human-inspectable, and dependency-free.
//
// The whole map is rewritten on every Set/Delete, which is fine for the
// handful of keys the settings layer uses. For server deployments use
// the postgres backend instead.
package filestore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/voxkit/voxkit/pkg/kv"
)

// Compile-time interface check.
var _ kv.Store = (*Store)(nil)

// Store persists key-value pairs as a JSON object in a local file.
// Thread-safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a Store that reads and writes the given path.
// The file is created on first write; a missing file reads as empty.
func New(path string) *Store {
	return &Store{path: path}
}

// Get implements [kv.Store].
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return nil, err
	}
	enc, ok := m[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	val, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, fmt.Errorf("filestore: decode %q: %w", key, err)
	}
	return val, nil
}

// Set implements [kv.Store].
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return err
	}
	m[key] = base64.StdEncoding.EncodeToString(value)
	return s.write(m)
}

// Delete implements [kv.Store].
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return s.write(m)
}

// Keys implements [kv.Store].
func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// read loads the backing file into a map. A missing file is an empty store.
// Callers must hold s.mu.
func (s *Store) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: read %q: %w", s.path, err)
	}

	m := map[string]string{}
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("filestore: parse %q: %w", s.path, err)
	}
	return m, nil
}

// write atomically replaces the backing file via a temp-file rename.
// Callers must hold s.mu.
func (s *Store) write(m map[string]string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".voxkit-kv-*")
	if err != nil {
		return fmt.Errorf("filestore: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("filestore: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("filestore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("filestore: rename: %w", err)
	}
	return nil
}

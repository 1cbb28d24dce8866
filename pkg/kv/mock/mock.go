// Package mock provides an in-memory mock implementation of [kv.Store] for
// use in unit tests.
//
// The mock is safe for concurrent use. It records every method call so that
// tests can assert on call counts, and exposes error fields the test can set
// to simulate storage failures.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/voxkit/voxkit/pkg/kv"
)

// Compile-time interface check.
var _ kv.Store = (*Store)(nil)

// Store is a mock implementation of [kv.Store].
// Set the exported error fields before use; inspect the CallCount fields after.
type Store struct {
	mu sync.Mutex

	// Data is the backing map. Initialised lazily on first use; tests may
	// pre-populate it to simulate existing state.
	Data map[string][]byte

	// GetError, when non-nil, is returned by every Get call.
	GetError error

	// SetError, when non-nil, is returned by every Set call.
	SetError error

	// DeleteError, when non-nil, is returned by every Delete call.
	DeleteError error

	// KeysError, when non-nil, is returned by every Keys call.
	KeysError error

	// CallCountGet records how many times Get was called.
	CallCountGet int

	// CallCountSet records how many times Set was called.
	CallCountSet int

	// CallCountDelete records how many times Delete was called.
	CallCountDelete int

	// SetKeys records the keys passed to Set, in call order.
	SetKeys []string
}

// Get implements [kv.Store].
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountGet++
	if s.GetError != nil {
		return nil, s.GetError
	}
	val, ok := s.Data[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// Set implements [kv.Store].
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountSet++
	s.SetKeys = append(s.SetKeys, key)
	if s.SetError != nil {
		return s.SetError
	}
	if s.Data == nil {
		s.Data = make(map[string][]byte)
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	s.Data[key] = stored
	return nil
}

// Delete implements [kv.Store].
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountDelete++
	if s.DeleteError != nil {
		return s.DeleteError
	}
	delete(s.Data, key)
	return nil
}

// Keys implements [kv.Store].
func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.KeysError != nil {
		return nil, s.KeysError
	}
	var keys []string
	for k := range s.Data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

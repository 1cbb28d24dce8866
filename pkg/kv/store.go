// Package kv defines the persistent key-value primitive voxkit persists
// user-facing state through: voice settings under "voice_settings" and
// per-language selected voices under "selected_voice_<language>".
//
// Implementations live in subpackages (filestore, postgres). The interface is
// intentionally narrow so that the settings layer stays independent of where
// the bytes actually land.
//
// This package lives under pkg/ because embedding applications are expected
// to supply their own [Store] implementation when neither bundled backend fits.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by [Store.Get] when the key has never been set or
// has been deleted.
var ErrNotFound = errors.New("kv: key not found")

// Store is a persistent string-keyed byte store.
//
// Implementations must be safe for concurrent use. Writes are last-writer-wins;
// no multi-key transaction is offered or assumed by callers.
type Store interface {
	// Get returns the value stored under key, or [ErrNotFound].
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is a no-op, not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns all keys with the given prefix, in unspecified order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

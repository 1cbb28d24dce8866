package health

import (
	"context"

	"github.com/voxkit/voxkit/internal/backend"
	"github.com/voxkit/voxkit/pkg/kv"
)

// StorageChecker probes the settings store with a cheap prefix scan. It works
// for both the file and the postgres backend.
func StorageChecker(store kv.Store) Checker {
	return Checker{
		Name: "storage",
		Check: func(ctx context.Context) error {
			_, err := store.Keys(ctx, "voice_settings")
			return err
		},
	}
}

// BackendChecker reports whether the voice backend answers API calls. It
// lists voices, so after the first success the cached catalog keeps the
// check cheap until the entry expires.
func BackendChecker(client *backend.Client) Checker {
	return Checker{
		Name: "backend",
		Check: func(ctx context.Context) error {
			_, err := client.ListVoices(ctx, "")
			return err
		},
	}
}

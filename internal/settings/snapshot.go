package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/voxkit/voxkit/pkg/kv"
	"github.com/voxkit/voxkit/pkg/types"
)

// Snapshot is an exportable capture of the local voice state: the settings
// blob plus every per-language selected-voice entry. The map key is the
// language tag; "" is the language-independent selection.
type Snapshot struct {
	Settings       types.VoiceSettings `json:"settings"`
	SelectedVoices map[string]string   `json:"selectedVoices"`
	ExportedAt     time.Time           `json:"exportedAt"`
}

// ValidationError is the full list of violations that made an import
// unacceptable. The whole snapshot is rejected; nothing is persisted.
type ValidationError []string

// Error implements the error interface.
func (e ValidationError) Error() string {
	return "settings: import rejected: " + strings.Join(e, "; ")
}

// Export snapshots the current settings and all selected-voice entries.
func Export(ctx context.Context, store kv.Store) (Snapshot, error) {
	snap := Snapshot{
		Settings:       Load(ctx, store),
		SelectedVoices: map[string]string{},
		ExportedAt:     time.Now().UTC(),
	}

	keys, err := store.Keys(ctx, keySelectedVoice)
	if err != nil {
		return Snapshot{}, fmt.Errorf("settings: export: list keys: %w", err)
	}
	for _, k := range keys {
		data, err := store.Get(ctx, k)
		if err != nil {
			return Snapshot{}, fmt.Errorf("settings: export: read %q: %w", k, err)
		}
		snap.SelectedVoices[languageFromKey(k)] = string(data)
	}
	return snap, nil
}

// Import validates snap and, when clean, persists the settings followed by
// each selected-voice entry. Any violation rejects the whole snapshot with a
// [ValidationError]. Persistence is sequential, not transactional: a storage
// failure partway leaves earlier writes in place.
func Import(ctx context.Context, store kv.Store, snap Snapshot) error {
	if violations := ValidateSettings(snap.Settings); len(violations) > 0 {
		return ValidationError(violations)
	}

	if err := Save(ctx, store, snap.Settings); err != nil {
		return err
	}
	for language, voiceID := range snap.SelectedVoices {
		if err := SetSelectedVoice(ctx, store, language, voiceID); err != nil {
			return err
		}
	}
	return nil
}

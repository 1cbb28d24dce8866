// Package settings persists and validates per-user voice preferences locally,
// independent of network state, and hosts the deterministic voice
// recommendation cascade.
//
// The package is a set of stateless functions over a [kv.Store] — there is no
// constructed store object and no lifecycle. Stored settings merge over the
// baseline defaults field-by-field on load, so blobs written by older
// versions keep working as fields are added.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voxkit/voxkit/pkg/kv"
	"github.com/voxkit/voxkit/pkg/types"
)

// Storage keys. Per-language selected voices append "_<language>" to
// keySelectedVoice.
const (
	keySettings      = "voice_settings"
	keySelectedVoice = "selected_voice"
)

// Defaults returns the fixed baseline settings used before the user has
// stored anything.
func Defaults() types.VoiceSettings {
	return types.VoiceSettings{
		DefaultVoice:       "en-US-neural-female-1",
		DefaultSpeed:       1.0,
		DefaultFormat:      types.FormatMP3,
		DefaultLanguage:    "en-US",
		AutoDetectLanguage: true,
		VoicePreferences: types.VoicePreferences{
			PreferredGender: "female",
			UseCase:         "assistant",
			EmotionalTone:   "friendly",
		},
	}
}

// Load reads the persisted settings blob. Missing or corrupt data yields the
// defaults without an error; otherwise the stored object is merged over the
// defaults field-by-field.
func Load(ctx context.Context, store kv.Store) types.VoiceSettings {
	s := Defaults()
	data, err := store.Get(ctx, keySettings)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			slog.Warn("loading voice settings failed, using defaults", "error", err)
		}
		return s
	}
	// Unmarshalling over the defaults leaves absent fields at their baseline,
	// which is exactly the field-by-field merge we want.
	if err := json.Unmarshal(data, &s); err != nil {
		slog.Warn("stored voice settings are corrupt, using defaults", "error", err)
		return Defaults()
	}
	return s
}

// Save overwrites the persisted settings blob.
func Save(ctx context.Context, store kv.Store, s types.VoiceSettings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	if err := store.Set(ctx, keySettings, data); err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	return nil
}

// UpdateField sets a single top-level settings field by its JSON name, merging
// over the currently stored value, and returns the new settings.
func UpdateField(ctx context.Context, store kv.Store, key string, value any) (types.VoiceSettings, error) {
	s := Load(ctx, store)

	switch key {
	case "defaultVoice":
		v, ok := value.(string)
		if !ok {
			return s, fmt.Errorf("settings: %s expects a string", key)
		}
		s.DefaultVoice = v
	case "defaultSpeed":
		v, ok := toFloat(value)
		if !ok {
			return s, fmt.Errorf("settings: %s expects a number", key)
		}
		s.DefaultSpeed = v
	case "defaultFormat":
		switch v := value.(type) {
		case string:
			s.DefaultFormat = types.AudioFormat(v)
		case types.AudioFormat:
			s.DefaultFormat = v
		default:
			return s, fmt.Errorf("settings: %s expects a format string", key)
		}
	case "defaultLanguage":
		v, ok := value.(string)
		if !ok {
			return s, fmt.Errorf("settings: %s expects a string", key)
		}
		s.DefaultLanguage = v
	case "autoDetectLanguage":
		v, ok := value.(bool)
		if !ok {
			return s, fmt.Errorf("settings: %s expects a bool", key)
		}
		s.AutoDetectLanguage = v
	default:
		return s, fmt.Errorf("settings: unknown field %q", key)
	}

	if err := Save(ctx, store, s); err != nil {
		return s, err
	}
	return s, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// PreferencesPartial is a partial update of [types.VoicePreferences]; nil
// fields leave the stored value untouched.
type PreferencesPartial struct {
	PreferredGender *string
	UseCase         *string
	EmotionalTone   *string
}

// UpdatePreferences shallow-merges partial over the stored voice preferences
// and returns the new settings.
func UpdatePreferences(ctx context.Context, store kv.Store, partial PreferencesPartial) (types.VoiceSettings, error) {
	s := Load(ctx, store)
	if partial.PreferredGender != nil {
		s.VoicePreferences.PreferredGender = *partial.PreferredGender
	}
	if partial.UseCase != nil {
		s.VoicePreferences.UseCase = *partial.UseCase
	}
	if partial.EmotionalTone != nil {
		s.VoicePreferences.EmotionalTone = *partial.EmotionalTone
	}
	if err := Save(ctx, store, s); err != nil {
		return s, err
	}
	return s, nil
}

// SelectedVoice returns the persisted voice id selected for language, or ""
// when none is stored. language "" addresses the language-independent entry.
func SelectedVoice(ctx context.Context, store kv.Store, language string) string {
	data, err := store.Get(ctx, selectedVoiceKey(language))
	if err != nil {
		return ""
	}
	return string(data)
}

// SetSelectedVoice persists voiceID as the selection for language.
func SetSelectedVoice(ctx context.Context, store kv.Store, language, voiceID string) error {
	if err := store.Set(ctx, selectedVoiceKey(language), []byte(voiceID)); err != nil {
		return fmt.Errorf("settings: save selected voice: %w", err)
	}
	return nil
}

func selectedVoiceKey(language string) string {
	if language == "" {
		return keySelectedVoice
	}
	return keySelectedVoice + "_" + language
}

// languageFromKey inverts selectedVoiceKey.
func languageFromKey(key string) string {
	return strings.TrimPrefix(strings.TrimPrefix(key, keySelectedVoice), "_")
}

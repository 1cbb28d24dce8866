package settings

import (
	"context"
	"errors"
	"testing"

	kvmock "github.com/voxkit/voxkit/pkg/kv/mock"
	"github.com/voxkit/voxkit/pkg/types"
)

func TestLoadEmptyStoreReturnsDefaults(t *testing.T) {
	got := Load(context.Background(), &kvmock.Store{})
	want := Defaults()
	if got != want {
		t.Errorf("Load() on empty store = %+v, want defaults %+v", got, want)
	}
}

func TestLoadCorruptBlobReturnsDefaults(t *testing.T) {
	store := &kvmock.Store{Data: map[string][]byte{
		"voice_settings": []byte("{not json"),
	}}
	got := Load(context.Background(), store)
	if got != Defaults() {
		t.Errorf("Load() on corrupt blob = %+v, want defaults", got)
	}
}

func TestLoadStorageErrorReturnsDefaults(t *testing.T) {
	store := &kvmock.Store{GetError: errors.New("disk on fire")}
	got := Load(context.Background(), store)
	if got != Defaults() {
		t.Errorf("Load() on storage error = %+v, want defaults", got)
	}
}

func TestLoadMergesStoredOverDefaults(t *testing.T) {
	// A blob written before autoDetectLanguage existed: absent fields keep
	// their baseline values.
	store := &kvmock.Store{Data: map[string][]byte{
		"voice_settings": []byte(`{"defaultVoice":"de-DE-neural-male-2","defaultSpeed":1.5}`),
	}}
	got := Load(context.Background(), store)
	if got.DefaultVoice != "de-DE-neural-male-2" {
		t.Errorf("DefaultVoice = %q", got.DefaultVoice)
	}
	if got.DefaultSpeed != 1.5 {
		t.Errorf("DefaultSpeed = %v", got.DefaultSpeed)
	}
	if got.DefaultFormat != Defaults().DefaultFormat {
		t.Errorf("DefaultFormat = %q, want baseline %q", got.DefaultFormat, Defaults().DefaultFormat)
	}
	if !got.AutoDetectLanguage {
		t.Error("AutoDetectLanguage lost its baseline value")
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := &kvmock.Store{}

	s := Defaults()
	s.DefaultVoice = "fr-FR-neural-female-3"
	s.AutoDetectLanguage = false
	if err := Save(ctx, store, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := Load(ctx, store); got != s {
		t.Errorf("Load() = %+v, want %+v", got, s)
	}
}

func TestUpdateFieldPreservesOtherFields(t *testing.T) {
	ctx := context.Background()
	store := &kvmock.Store{}

	got, err := UpdateField(ctx, store, "defaultSpeed", 1.25)
	if err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	if got.DefaultSpeed != 1.25 {
		t.Errorf("DefaultSpeed = %v, want 1.25", got.DefaultSpeed)
	}
	want := Defaults()
	want.DefaultSpeed = 1.25
	if got != want {
		t.Errorf("other fields changed: %+v, want %+v", got, want)
	}
	if reloaded := Load(ctx, store); reloaded != want {
		t.Errorf("persisted value = %+v, want %+v", reloaded, want)
	}
}

func TestUpdateField(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		value   any
		wantErr bool
		check   func(types.VoiceSettings) bool
	}{
		{
			name:  "voice",
			key:   "defaultVoice",
			value: "ja-JP-neural-male-1",
			check: func(s types.VoiceSettings) bool { return s.DefaultVoice == "ja-JP-neural-male-1" },
		},
		{
			name:  "format as string",
			key:   "defaultFormat",
			value: "wav",
			check: func(s types.VoiceSettings) bool { return s.DefaultFormat == types.FormatWAV },
		},
		{
			name:  "format as typed value",
			key:   "defaultFormat",
			value: types.FormatOGG,
			check: func(s types.VoiceSettings) bool { return s.DefaultFormat == types.FormatOGG },
		},
		{
			name:  "speed from int",
			key:   "defaultSpeed",
			value: 2,
			check: func(s types.VoiceSettings) bool { return s.DefaultSpeed == 2.0 },
		},
		{
			name:  "language",
			key:   "defaultLanguage",
			value: "de-DE",
			check: func(s types.VoiceSettings) bool { return s.DefaultLanguage == "de-DE" },
		},
		{
			name:  "auto detect",
			key:   "autoDetectLanguage",
			value: false,
			check: func(s types.VoiceSettings) bool { return !s.AutoDetectLanguage },
		},
		{
			name:    "unknown field",
			key:     "volume",
			value:   0.5,
			wantErr: true,
		},
		{
			name:    "wrong type",
			key:     "defaultSpeed",
			value:   "fast",
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &kvmock.Store{}
			got, err := UpdateField(ctx, store, tc.key, tc.value)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if store.CallCountSet != 0 {
					t.Error("rejected update still wrote to storage")
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateField: %v", err)
			}
			if !tc.check(got) {
				t.Errorf("unexpected result %+v", got)
			}
		})
	}
}

func TestUpdatePreferencesPartialMerge(t *testing.T) {
	ctx := context.Background()
	store := &kvmock.Store{}

	gender := "male"
	got, err := UpdatePreferences(ctx, store, PreferencesPartial{PreferredGender: &gender})
	if err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}
	if got.VoicePreferences.PreferredGender != "male" {
		t.Errorf("PreferredGender = %q", got.VoicePreferences.PreferredGender)
	}
	// Unset fields keep the stored values.
	if got.VoicePreferences.UseCase != Defaults().VoicePreferences.UseCase {
		t.Errorf("UseCase = %q, want untouched", got.VoicePreferences.UseCase)
	}
	if got.VoicePreferences.EmotionalTone != Defaults().VoicePreferences.EmotionalTone {
		t.Errorf("EmotionalTone = %q, want untouched", got.VoicePreferences.EmotionalTone)
	}
}

func TestSelectedVoicePerLanguage(t *testing.T) {
	ctx := context.Background()
	store := &kvmock.Store{}

	if err := SetSelectedVoice(ctx, store, "", "voice-any"); err != nil {
		t.Fatal(err)
	}
	if err := SetSelectedVoice(ctx, store, "de-DE", "voice-de"); err != nil {
		t.Fatal(err)
	}

	if got := SelectedVoice(ctx, store, ""); got != "voice-any" {
		t.Errorf("SelectedVoice(\"\") = %q", got)
	}
	if got := SelectedVoice(ctx, store, "de-DE"); got != "voice-de" {
		t.Errorf("SelectedVoice(de-DE) = %q", got)
	}
	if got := SelectedVoice(ctx, store, "fr-FR"); got != "" {
		t.Errorf("SelectedVoice(fr-FR) = %q, want empty", got)
	}
}

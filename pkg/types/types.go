// Package types defines the shared types used across all voxkit packages.
//
// These types form the lingua franca between the device session, the backend
// channel, the settings store, and the orchestrator. They are intentionally
// minimal — each package defines its own domain types, but cross-cutting data
// structures live here to avoid circular imports.
package types

import "time"

// AudioFormat identifies an audio container/codec family used for recording
// and synthesis output.
type AudioFormat string

const (
	FormatMP3 AudioFormat = "mp3"
	FormatWAV AudioFormat = "wav"
	FormatAAC AudioFormat = "aac"
	FormatOGG AudioFormat = "ogg"
)

// Voice describes a single synthesis voice offered by the backend.
type Voice struct {
	// ID is the backend-assigned voice identifier (e.g., "en-US-neural-female-1").
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Language is the BCP-47 language tag the voice is tuned for.
	Language string `json:"language"`

	// Gender is "male" or "female".
	Gender string `json:"gender"`

	// Description is free-form marketing copy from the catalog.
	Description string `json:"description"`

	// IsDefault marks the backend's recommended voice for its language.
	IsDefault bool `json:"isDefault"`

	// IsCustom marks user-trained voices created via the custom-voice API.
	IsCustom bool `json:"isCustom"`
}

// VoicePreferences narrows voice recommendation beyond the default voice ID.
// All fields are optional; empty means "no preference".
type VoicePreferences struct {
	// PreferredGender is "male" or "female".
	PreferredGender string `json:"preferredGender,omitempty"`

	// UseCase is one of "assistant", "narrator" or "casual".
	UseCase string `json:"useCase,omitempty"`

	// EmotionalTone is one of "neutral", "friendly" or "professional".
	EmotionalTone string `json:"emotionalTone,omitempty"`
}

// VoiceSettings holds a user's persisted voice preferences.
// Partial updates merge field-by-field over the stored value; zero-valued
// fields in a partial update leave the stored field untouched.
type VoiceSettings struct {
	// DefaultVoice is the voice ID used when a synthesis call does not name one.
	DefaultVoice string `json:"defaultVoice"`

	// DefaultSpeed is the playback-rate multiplier, valid range [0.5, 2.0].
	DefaultSpeed float64 `json:"defaultSpeed"`

	// DefaultFormat is the synthesis output format: mp3, wav or ogg.
	DefaultFormat AudioFormat `json:"defaultFormat"`

	// DefaultLanguage is the BCP-47 tag used for transcription and recommendation.
	DefaultLanguage string `json:"defaultLanguage"`

	// AutoDetectLanguage lets the backend pick the transcription language.
	AutoDetectLanguage bool `json:"autoDetectLanguage"`

	// VoicePreferences tunes voice recommendation.
	VoicePreferences VoicePreferences `json:"voicePreferences"`
}

// TranscriptionAlternative is a lower-ranked hypothesis attached to a
// streaming transcription result.
type TranscriptionAlternative struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// TranscriptionResult is one message of the live transcription stream.
// A session yields an ordered sequence of these; IsFinal closes an utterance
// segment, non-final results are provisional and may be superseded.
type TranscriptionResult struct {
	// Text is the transcribed speech content.
	Text string `json:"text"`

	// IsFinal indicates whether this is a final (authoritative) or interim result.
	IsFinal bool `json:"isFinal"`

	// Confidence is the overall confidence score (0.0–1.0).
	Confidence float64 `json:"confidence"`

	// Timestamp marks when the backend produced the result.
	Timestamp time.Time `json:"timestamp"`

	// Alternatives holds lower-ranked hypotheses, best first. May be nil.
	Alternatives []TranscriptionAlternative `json:"alternatives,omitempty"`
}

// TranscribeResult is the response of a batch transcription upload.
type TranscribeResult struct {
	Text           string   `json:"text"`
	Language       string   `json:"language"`
	Confidence     float64  `json:"confidence"`
	Duration       float64  `json:"duration"`
	Segments       []string `json:"segments,omitempty"`
	ProcessingTime float64  `json:"processingTime"`
}

// SynthesisResult is the response of a synthesis request. AudioURL points at a
// fetchable artifact that expires at ExpiresAt.
type SynthesisResult struct {
	AudioURL  string      `json:"audioUrl"`
	Duration  float64     `json:"duration"`
	Format    AudioFormat `json:"format"`
	Size      int64       `json:"size"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// Analytics summarises a user's voice feature usage.
type Analytics struct {
	TotalTranscriptions int     `json:"totalTranscriptions"`
	TotalSynthesis      int     `json:"totalSynthesis"`
	AverageConfidence   float64 `json:"averageConfidence"`
	MostUsedVoice       string  `json:"mostUsedVoice"`
	TotalAudioDuration  float64 `json:"totalAudioDuration"`
}

// CustomVoiceRequest describes a voice-cloning job submission.
type CustomVoiceRequest struct {
	Name           string
	Description    string
	TargetLanguage string

	// AudioSamples are raw recorded samples of the target speaker.
	AudioSamples [][]byte
}

// CustomVoiceStatus reports the state of a voice-cloning job.
type CustomVoiceStatus struct {
	VoiceID             string     `json:"voiceId"`
	Status              string     `json:"status"`
	EstimatedCompletion *time.Time `json:"estimatedCompletion,omitempty"`
	Message             string     `json:"message,omitempty"`
}

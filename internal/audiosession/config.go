package audiosession

import (
	"time"

	"github.com/voxkit/voxkit/pkg/device"
	"github.com/voxkit/voxkit/pkg/types"
)

// Quality selects the capture fidelity tier. It deterministically fixes the
// sample rate and bit rate; the format only selects the platform encoder.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// IsValid reports whether q is a recognised quality tier.
func (q Quality) IsValid() bool {
	switch q {
	case QualityLow, QualityMedium, QualityHigh:
		return true
	}
	return false
}

// RecordingConfig configures one microphone capture.
type RecordingConfig struct {
	// Format is the container format: mp3, wav or aac.
	Format types.AudioFormat

	// Quality fixes sample rate and bit rate per the tier table.
	Quality Quality

	// MaxDuration, when positive, arms a deadline that stops the recording
	// through the same path as a manual stop.
	MaxDuration time.Duration

	// Streaming requests a chunk-delivering handle for live transcription.
	Streaming bool
}

// DefaultRecordingConfig returns the capture configuration used when the
// caller does not specify one: mp3 at high quality, no deadline.
func DefaultRecordingConfig() RecordingConfig {
	return RecordingConfig{Format: types.FormatMP3, Quality: QualityHigh}
}

// PlaybackConfig configures one playback operation. Start from
// [DefaultPlaybackConfig] — the zero value does not auto-play.
type PlaybackConfig struct {
	// AutoPlay starts playback immediately after the source loads.
	AutoPlay bool

	// Loop restarts from the beginning when the source ends.
	Loop bool

	// Volume in [0, 1]. Zero means "unset" and is normalised to 1.0.
	Volume float64

	// Rate is the playback-speed multiplier. Zero or negative is normalised to 1.0.
	Rate float64
}

// DefaultPlaybackConfig returns the playback configuration used when the
// caller does not specify one: auto-play, full volume, natural speed.
func DefaultPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{AutoPlay: true, Volume: 1.0, Rate: 1.0}
}

// normalized fills unset numeric fields and clamps volume into range.
func (c PlaybackConfig) normalized() PlaybackConfig {
	if c.Volume <= 0 {
		c.Volume = 1.0
	}
	if c.Volume > 1 {
		c.Volume = 1.0
	}
	if c.Rate <= 0 {
		c.Rate = 1.0
	}
	return c
}

// qualityParams is the fixed tier table: quality alone decides sample rate
// and bit rate, independent of format and platform.
var qualityParams = map[Quality]struct {
	sampleRate int
	bitRate    int
}{
	QualityLow:    {sampleRate: 16000, bitRate: 64000},
	QualityMedium: {sampleRate: 22050, bitRate: 128000},
	QualityHigh:   {sampleRate: 44100, bitRate: 256000},
}

// EncoderParams maps (format, quality, platform) to the concrete recorder
// parameters. It is a pure function so the table is unit-testable without a
// device; platform is a GOOS value and only influences the encoder identifier.
func EncoderParams(format types.AudioFormat, quality Quality, platform string) device.RecorderParams {
	qp, ok := qualityParams[quality]
	if !ok {
		qp = qualityParams[QualityHigh]
	}

	var encoder string
	switch format {
	case types.FormatWAV:
		encoder = "pcm-16"
	case types.FormatAAC:
		if platform == "darwin" || platform == "ios" {
			encoder = "aac-lc"
		} else {
			encoder = "aac"
		}
	default: // mp3 and anything unrecognised
		if platform == "android" {
			encoder = "mpeg"
		} else {
			encoder = "mp3"
		}
	}

	return device.RecorderParams{
		Encoder:    encoder,
		SampleRate: qp.sampleRate,
		BitRate:    qp.bitRate,
	}
}

// Package device defines the interfaces voxkit uses to talk to the native
// audio hardware: microphone capture, speaker playback, and the permission
// primitive guarding microphone access.
//
// The two primary abstractions are:
//
//   - [Device] — opens recorder and player handles on the platform hardware.
//   - [Recorder] / [Player] — one active capture or playback operation each.
//
// Implementations of these interfaces are provided by platform-specific
// adapter packages. The interfaces are intentionally narrow to keep the
// session layer decoupled from driver details.
//
// This package lives under pkg/ because external code (third-party platform
// adapters) is expected to implement [Device].
package device

import (
	"context"
	"errors"
	"time"
)

// ErrPermissionDenied is returned by [Device.RequestPermission] (and by
// OpenRecorder on platforms that re-check) when the user has denied
// microphone access. It is surfaced to callers as-is and never retried.
var ErrPermissionDenied = errors.New("device: microphone permission denied")

// RecorderParams configures a capture handle at open time.
// Values come from the session layer's format/quality table.
type RecorderParams struct {
	// Encoder is the platform encoder identifier (e.g., "mpeg4-aac", "pcm-16").
	Encoder string

	// SampleRate in Hz.
	SampleRate int

	// BitRate in bits per second.
	BitRate int

	// Streaming requests a handle that delivers raw chunks while recording,
	// for live transcription. Non-streaming handles only produce a file.
	Streaming bool
}

// PlayerParams configures a playback handle at load time.
type PlayerParams struct {
	// Volume in [0, 1].
	Volume float64

	// Rate is the playback-speed multiplier; 1.0 is natural speed.
	Rate float64

	// Loop restarts playback from the beginning when the source ends.
	Loop bool
}

// FileInfo describes a stored audio artifact.
type FileInfo struct {
	// Duration is the playable length of the artifact.
	Duration time.Duration

	// Size in bytes.
	Size int64

	// Format is the container format inferred from the artifact.
	Format string
}

// Recorder is one active microphone capture. Handles are single-use: once
// stopped, a new recording requires a fresh handle from [Device.OpenRecorder].
//
// Implementations must be safe for concurrent use.
type Recorder interface {
	// Elapsed returns the capture duration so far. It must not fail while the
	// handle is live; after Stop the value is frozen.
	Elapsed() time.Duration

	// Chunks returns the stream of raw audio chunks for handles opened with
	// Streaming=true. For non-streaming handles it returns nil.
	// The channel is closed when the recording stops.
	Chunks() <-chan []byte

	// Stop ends the capture, finalises the artifact, and returns its URI.
	// Stop is idempotent; subsequent calls return the same URI and nil error.
	Stop(ctx context.Context) (uri string, err error)
}

// Player is one active playback operation.
//
// Implementations must be safe for concurrent use.
type Player interface {
	// Play begins or resumes playback.
	Play(ctx context.Context) error

	// Pause halts playback, keeping the position. Pausing a paused or
	// finished player is a no-op.
	Pause(ctx context.Context) error

	// Position returns the current playback position.
	Position() time.Duration

	// Duration returns the total length of the loaded source.
	Duration() time.Duration

	// OnComplete registers cb to be invoked once when playback naturally
	// reaches the end of the source (not on Stop). Only one callback may be
	// registered at a time; subsequent calls replace the previous one.
	// The callback is invoked on an internal goroutine — callers must not block.
	OnComplete(cb func())

	// Stop releases the handle. It is safe to call Stop more than once;
	// subsequent calls are no-ops and return nil.
	Stop(ctx context.Context) error
}

// Device is the entry point for a platform audio adapter.
//
// Implementations must be safe for concurrent use.
type Device interface {
	// RequestPermission ensures microphone access has been granted, prompting
	// the user if the platform requires it. It is idempotent: once granted it
	// returns nil immediately. Returns [ErrPermissionDenied] if refused.
	RequestPermission(ctx context.Context) error

	// OpenRecorder acquires a fresh capture handle. The session layer
	// guarantees at most one live recorder per session.
	OpenRecorder(ctx context.Context, params RecorderParams) (Recorder, error)

	// OpenPlayer loads source (a file URI or fetchable URL) and returns a
	// playback handle positioned at the start.
	OpenPlayer(ctx context.Context, source string, params PlayerParams) (Player, error)

	// Probe briefly opens the artifact at uri read-only and reports its
	// duration and size. The format is inferred from the URI extension.
	Probe(ctx context.Context, uri string) (FileInfo, error)
}

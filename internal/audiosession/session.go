// Package audiosession owns the device microphone and speaker resources and
// exposes the two independent slot state machines on top of them:
//
//   - recording: Idle → Recording → Idle, producing an artifact URI
//   - playback:  Idle → Loading → Playing ⇄ Paused → Idle
//
// Each slot holds at most one live native handle. Starting a new operation on
// a slot releases that slot's existing handle first and never touches the
// other slot — the session does not impose mutual exclusion between recording
// and playback; whether the hardware supports full duplex is the platform
// adapter's concern.
//
// Duration/position polling and the max-duration deadline run on an injected
// [clock.Clock]; every exit path (stop, error, cleanup) cancels its timers.
package audiosession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxkit/voxkit/internal/clock"
	"github.com/voxkit/voxkit/pkg/device"
)

// pollInterval is how often the recording and playback tick callbacks fire.
const pollInterval = 100 * time.Millisecond

// RecordingState enumerates the recording slot's states.
type RecordingState int

const (
	RecordingIdle RecordingState = iota
	RecordingActive
)

// PlaybackState enumerates the playback slot's states.
type PlaybackState int

const (
	PlaybackIdle PlaybackState = iota
	PlaybackLoading
	PlaybackPlaying
	PlaybackPaused
)

// Artifact identifies a finished recording.
type Artifact struct {
	// ID is a fresh identifier assigned when the recording stops.
	ID string

	// URI locates the stored audio data.
	URI string

	// Elapsed is the captured duration.
	Elapsed time.Duration
}

// Option is a functional option for configuring a [Session].
type Option func(*Session)

// WithClock replaces the system clock; used by tests to advance virtual time.
func WithClock(c clock.Clock) Option {
	return func(s *Session) { s.clk = c }
}

// WithRecordingTick registers cb to receive the elapsed recording duration
// roughly every 100ms while a recording is active.
func WithRecordingTick(cb func(elapsed time.Duration)) Option {
	return func(s *Session) { s.onRecordingTick = cb }
}

// WithPlaybackTick registers cb to receive the playback position and total
// duration roughly every 100ms while playback is active.
func WithPlaybackTick(cb func(position, duration time.Duration)) Option {
	return func(s *Session) { s.onPlaybackTick = cb }
}

// Session is the audio-resource state machine. One Session exists per
// orchestrator and lives for its lifetime.
//
// Session is safe for concurrent use.
type Session struct {
	dev device.Device
	clk clock.Clock

	onRecordingTick func(time.Duration)
	onPlaybackTick  func(position, duration time.Duration)

	mu           sync.Mutex
	rec          *recordingSlot
	play         *playbackSlot
	playState    PlaybackState
	lastArtifact Artifact
}

// recordingSlot holds the live state of one capture.
type recordingSlot struct {
	handle   device.Recorder
	deadline clock.Timer
	done     chan struct{} // closed on release; cancels polling
}

// playbackSlot holds the live state of one playback operation.
type playbackSlot struct {
	handle device.Player
	done   chan struct{}
}

// New creates a Session on top of dev.
func New(dev device.Device, opts ...Option) *Session {
	s := &Session{
		dev: dev,
		clk: clock.System(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ─── Recording ────────────────────────────────────────────────────────────────

// StartRecording acquires a fresh capture handle and transitions the
// recording slot to active. If a recording is already running the call is a
// no-op with a warning, not an error. Requires microphone permission;
// returns [device.ErrPermissionDenied] wrapped if denied.
func (s *Session) StartRecording(ctx context.Context, cfg RecordingConfig) error {
	s.mu.Lock()
	if s.rec != nil {
		s.mu.Unlock()
		slog.Warn("recording already in progress, ignoring start")
		return nil
	}
	s.mu.Unlock()

	if err := s.dev.RequestPermission(ctx); err != nil {
		return fmt.Errorf("audiosession: request permission: %w", err)
	}

	params := EncoderParams(cfg.Format, cfg.Quality, runtime.GOOS)
	params.Streaming = cfg.Streaming
	handle, err := s.dev.OpenRecorder(ctx, params)
	if err != nil {
		return fmt.Errorf("audiosession: open recorder: %w", err)
	}

	slot := &recordingSlot{
		handle: handle,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	if s.rec != nil {
		// Lost the race against a concurrent start; release the fresh handle.
		s.mu.Unlock()
		_, _ = handle.Stop(ctx)
		slog.Warn("recording already in progress, ignoring start")
		return nil
	}
	s.rec = slot
	if cfg.MaxDuration > 0 {
		slot.deadline = s.clk.AfterFunc(cfg.MaxDuration, func() {
			if _, err := s.StopRecording(context.Background()); err != nil {
				slog.Error("max-duration stop failed", "error", err)
			}
		})
	}
	s.mu.Unlock()

	if s.onRecordingTick != nil {
		go s.pollRecording(slot)
	}

	slog.Debug("recording started",
		"format", cfg.Format, "quality", cfg.Quality,
		"sample_rate", params.SampleRate, "bit_rate", params.BitRate)
	return nil
}

// StopRecording releases the capture handle and returns the finished
// artifact. With no active recording it returns a zero Artifact and nil
// error — stopping when already stopped is a successful no-op.
func (s *Session) StopRecording(ctx context.Context) (Artifact, error) {
	s.mu.Lock()
	slot := s.rec
	s.rec = nil
	s.mu.Unlock()

	if slot == nil {
		return Artifact{}, nil
	}
	slot.release()

	elapsed := slot.handle.Elapsed()
	uri, err := slot.handle.Stop(ctx)
	if err != nil {
		return Artifact{}, fmt.Errorf("audiosession: stop recording: %w", err)
	}

	art := Artifact{
		ID:      uuid.NewString(),
		URI:     uri,
		Elapsed: elapsed,
	}
	s.mu.Lock()
	s.lastArtifact = art
	s.mu.Unlock()

	slog.Debug("recording stopped", "uri", uri, "elapsed", elapsed)
	return art, nil
}

// release cancels the slot's deadline and polling timers. Idempotent.
func (slot *recordingSlot) release() {
	if slot.deadline != nil {
		slot.deadline.Stop()
		slot.deadline = nil
	}
	select {
	case <-slot.done:
	default:
		close(slot.done)
	}
}

// pollRecording delivers elapsed-duration ticks until the slot is released.
func (s *Session) pollRecording(slot *recordingSlot) {
	t := s.clk.NewTicker(pollInterval)
	defer t.Stop()
	for {
		select {
		case <-t.Chan():
			s.onRecordingTick(slot.handle.Elapsed())
		case <-slot.done:
			return
		}
	}
}

// RecordingState returns the recording slot's current state.
func (s *Session) RecordingState() RecordingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec != nil {
		return RecordingActive
	}
	return RecordingIdle
}

// RecordingElapsed returns the duration captured so far, or 0 when the
// recording slot is idle. It never fails.
func (s *Session) RecordingElapsed() time.Duration {
	s.mu.Lock()
	slot := s.rec
	s.mu.Unlock()
	if slot == nil {
		return 0
	}
	return slot.handle.Elapsed()
}

// Chunks returns the live chunk stream of the active streaming recording, or
// nil when no streaming recording is active.
func (s *Session) Chunks() <-chan []byte {
	s.mu.Lock()
	slot := s.rec
	s.mu.Unlock()
	if slot == nil {
		return nil
	}
	return slot.handle.Chunks()
}

// LastArtifact returns the most recently finished recording, if any.
func (s *Session) LastArtifact() (Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastArtifact, s.lastArtifact.URI != ""
}

// ─── Playback ─────────────────────────────────────────────────────────────────

// PlayAudio releases any existing playback handle, loads source, and — when
// cfg.AutoPlay is set — starts playing. A completion observer flips the slot
// back to idle when the source naturally finishes.
func (s *Session) PlayAudio(ctx context.Context, source string, cfg PlaybackConfig) error {
	cfg = cfg.normalized()

	// Same-slot invariant: a new playback first releases the old handle.
	if err := s.StopPlayback(ctx); err != nil {
		slog.Warn("releasing previous playback failed", "error", err)
	}

	s.mu.Lock()
	s.playState = PlaybackLoading
	s.mu.Unlock()

	handle, err := s.dev.OpenPlayer(ctx, source, device.PlayerParams{
		Volume: cfg.Volume,
		Rate:   cfg.Rate,
		Loop:   cfg.Loop,
	})
	if err != nil {
		s.mu.Lock()
		s.playState = PlaybackIdle
		s.mu.Unlock()
		return fmt.Errorf("audiosession: load %q: %w", source, err)
	}

	slot := &playbackSlot{
		handle: handle,
		done:   make(chan struct{}),
	}
	handle.OnComplete(func() { s.finishPlayback(slot) })

	s.mu.Lock()
	s.play = slot
	s.playState = PlaybackPaused
	s.mu.Unlock()

	if !cfg.AutoPlay {
		return nil
	}
	if err := s.resume(ctx, slot); err != nil {
		_ = s.StopPlayback(ctx)
		return err
	}
	return nil
}

// resume starts or resumes playback on slot and begins position polling.
func (s *Session) resume(ctx context.Context, slot *playbackSlot) error {
	if err := slot.handle.Play(ctx); err != nil {
		return fmt.Errorf("audiosession: play: %w", err)
	}
	s.mu.Lock()
	s.playState = PlaybackPlaying
	s.mu.Unlock()
	if s.onPlaybackTick != nil {
		go s.pollPlayback(slot)
	}
	return nil
}

// finishPlayback handles natural end-of-source for slot. Stale callbacks from
// an already-replaced handle are ignored.
func (s *Session) finishPlayback(slot *playbackSlot) {
	s.mu.Lock()
	if s.play != slot {
		s.mu.Unlock()
		return
	}
	s.play = nil
	s.playState = PlaybackIdle
	s.mu.Unlock()

	slot.release()
	slog.Debug("playback finished")
}

// PausePlayback pauses a playing source. Valid only while playing; otherwise
// a no-op.
func (s *Session) PausePlayback(ctx context.Context) error {
	s.mu.Lock()
	slot := s.play
	if slot == nil || s.playState != PlaybackPlaying {
		s.mu.Unlock()
		return nil
	}
	s.playState = PlaybackPaused
	s.mu.Unlock()

	if err := slot.handle.Pause(ctx); err != nil {
		return fmt.Errorf("audiosession: pause: %w", err)
	}
	return nil
}

// ResumePlayback resumes a paused source. Valid only while paused; otherwise
// a no-op.
func (s *Session) ResumePlayback(ctx context.Context) error {
	s.mu.Lock()
	slot := s.play
	paused := s.playState == PlaybackPaused
	s.mu.Unlock()
	if slot == nil || !paused {
		return nil
	}
	return s.resume(ctx, slot)
}

// StopPlayback releases the playback handle unconditionally and returns the
// slot to idle. Idempotent: stopping an idle slot is a successful no-op.
func (s *Session) StopPlayback(ctx context.Context) error {
	s.mu.Lock()
	slot := s.play
	s.play = nil
	s.playState = PlaybackIdle
	s.mu.Unlock()

	if slot == nil {
		return nil
	}
	slot.release()
	if err := slot.handle.Stop(ctx); err != nil {
		return fmt.Errorf("audiosession: stop playback: %w", err)
	}
	return nil
}

// release cancels the slot's polling timer. Idempotent.
func (slot *playbackSlot) release() {
	select {
	case <-slot.done:
	default:
		close(slot.done)
	}
}

// pollPlayback delivers position ticks until the slot is released.
func (s *Session) pollPlayback(slot *playbackSlot) {
	t := s.clk.NewTicker(pollInterval)
	defer t.Stop()
	for {
		select {
		case <-t.Chan():
			s.onPlaybackTick(slot.handle.Position(), slot.handle.Duration())
		case <-slot.done:
			return
		}
	}
}

// PlaybackState returns the playback slot's current state.
func (s *Session) PlaybackState() PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playState
}

// PlaybackPosition returns the current playback position, or 0 when the slot
// is idle. It never fails.
func (s *Session) PlaybackPosition() time.Duration {
	s.mu.Lock()
	slot := s.play
	s.mu.Unlock()
	if slot == nil {
		return 0
	}
	return slot.handle.Position()
}

// PlaybackProgress returns the playback position as a percentage of the
// source duration, or 0 when idle or the duration is unknown.
func (s *Session) PlaybackProgress() float64 {
	s.mu.Lock()
	slot := s.play
	s.mu.Unlock()
	if slot == nil {
		return 0
	}
	dur := slot.handle.Duration()
	if dur <= 0 {
		return 0
	}
	return float64(slot.handle.Position()) / float64(dur) * 100
}

// ─── Artifacts & lifecycle ────────────────────────────────────────────────────

// FileInfo probes the artifact at uri read-only. The format is inferred from
// the URI extension when the platform adapter does not report one.
func (s *Session) FileInfo(ctx context.Context, uri string) (device.FileInfo, error) {
	info, err := s.dev.Probe(ctx, uri)
	if err != nil {
		return device.FileInfo{}, fmt.Errorf("audiosession: probe %q: %w", uri, err)
	}
	if info.Format == "" {
		info.Format = FormatFromURI(uri)
	}
	return info, nil
}

// FormatFromURI infers the audio format from the URI's file extension.
// Returns "unknown" when the URI carries no extension.
func FormatFromURI(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		p = u.Path
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	if ext == "" {
		return "unknown"
	}
	return ext
}

// Cleanup stops any active recording and playback. Safe to call from any
// state, including repeatedly.
func (s *Session) Cleanup(ctx context.Context) error {
	_, recErr := s.StopRecording(ctx)
	playErr := s.StopPlayback(ctx)
	return errors.Join(recErr, playErr)
}

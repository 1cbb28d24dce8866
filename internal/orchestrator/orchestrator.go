// Package orchestrator composes the audio session, the backend channel, and
// the settings store into the end-to-end voice use cases presentation code
// calls: record-then-transcribe, synthesize-then-play, settings access with
// remote-first/local-fallback reconciliation, and live transcription.
//
// Presentation code talks to the [Orchestrator] only; it never reaches the
// device or the network directly. The orchestrator reports observable
// moments through [Callbacks] and never renders UI.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/voxkit/voxkit/internal/audiosession"
	"github.com/voxkit/voxkit/internal/backend"
	"github.com/voxkit/voxkit/internal/clock"
	"github.com/voxkit/voxkit/internal/observe"
	"github.com/voxkit/voxkit/internal/settings"
	"github.com/voxkit/voxkit/pkg/kv"
	"github.com/voxkit/voxkit/pkg/types"
)

// ErrNotInitialized is returned when an operation runs before [Orchestrator.Initialize].
var ErrNotInitialized = errors.New("orchestrator: not initialized")

// defaultRecordWindow is the fixed wait between starting and stopping a
// record-and-transcribe capture when the caller does not pass one.
const defaultRecordWindow = 3 * time.Second

// Callbacks are the observation hooks presentation code registers to render
// progress. All fields are optional; callbacks run on the calling goroutine
// of the operation that triggered them unless noted otherwise.
type Callbacks struct {
	// OnStart fires when an operation ("record", "play", "live") begins.
	OnStart func(op string)

	// OnStop fires when an operation ends, naturally or by request.
	OnStop func(op string)

	// OnError fires when a user-initiated operation fails. The error is also
	// returned to the caller; background reconciliation failures do not fire it.
	OnError func(op string, err error)

	// OnLiveResult fires for every live transcription result, alongside any
	// per-session callback passed to StartLiveTranscription. Runs on the
	// socket read goroutine — must not block.
	OnLiveResult func(types.TranscriptionResult)
}

// Option is a functional option for configuring the [Orchestrator].
type Option func(*Orchestrator)

// WithClock replaces the system clock; used by tests to advance virtual time.
func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) { o.clk = c }
}

// WithCallbacks registers the presentation observation hooks.
func WithCallbacks(cb Callbacks) Option {
	return func(o *Orchestrator) { o.cb = cb }
}

// WithLiveDefaults sets the model and chunk size used for every live
// transcription session. Zero values fall back to the backend defaults.
func WithLiveDefaults(model string, chunkSize int) Option {
	return func(o *Orchestrator) {
		o.liveModel = model
		o.liveChunkSize = chunkSize
	}
}

// RecordResult is the outcome of [Orchestrator.RecordAndTranscribe].
type RecordResult struct {
	// Text is the transcribed speech.
	Text string

	// AudioURI locates the recorded artifact.
	AudioURI string

	// Duration is the artifact's playable length.
	Duration time.Duration
}

// Orchestrator is the single entry point for voice use cases. Build one at
// application start and thread it through explicitly; construct a fresh one
// per test for isolation.
//
// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	session *audiosession.Session
	client  *backend.Client
	store   kv.Store
	clk     clock.Clock
	cb      Callbacks

	liveModel     string
	liveChunkSize int

	mu          sync.Mutex
	initialized bool
}

// New creates an Orchestrator over its three collaborators.
func New(session *audiosession.Session, client *backend.Client, store kv.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		session: session,
		client:  client,
		store:   store,
		clk:     clock.System(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Initialize prepares the orchestrator for use. It must run before any other
// call; subsequent calls are no-ops.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.initialized {
		return nil
	}
	// Warm the local settings so the first remote-failure fallback is instant.
	s := settings.Load(ctx, o.store)
	slog.Info("voice orchestrator initialized",
		"default_voice", s.DefaultVoice, "default_language", s.DefaultLanguage)
	o.initialized = true
	return nil
}

// ensureInitialized gates every operation behind Initialize.
func (o *Orchestrator) ensureInitialized() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.initialized {
		return ErrNotInitialized
	}
	return nil
}

// ─── Record & transcribe ──────────────────────────────────────────────────────

// RecordAndTranscribe records for the fixed window (default 3s), stops, reads
// the artifact info, and uploads it for batch transcription. It fails fast on
// the first failing step with no retry of earlier steps; cancelling ctx stops
// the recording through the normal stop path.
func (o *Orchestrator) RecordAndTranscribe(ctx context.Context, cfg audiosession.RecordingConfig, window time.Duration) (RecordResult, error) {
	if err := o.ensureInitialized(); err != nil {
		return RecordResult{}, err
	}
	ctx, span := observe.StartSpan(ctx, "orchestrator.RecordAndTranscribe")
	defer span.End()
	if window <= 0 {
		window = defaultRecordWindow
	}
	if cfg == (audiosession.RecordingConfig{}) {
		cfg = audiosession.DefaultRecordingConfig()
	}

	o.emitStart("record")
	if err := o.session.StartRecording(ctx, cfg); err != nil {
		return RecordResult{}, o.fail(ctx, "record", err)
	}

	// Fixed-window wait standing in for an explicit user stop.
	elapsed := make(chan struct{})
	timer := o.clk.AfterFunc(window, func() { close(elapsed) })
	select {
	case <-elapsed:
	case <-ctx.Done():
		timer.Stop()
		_, _ = o.session.StopRecording(context.Background())
		o.emitStop("record")
		return RecordResult{}, o.fail(ctx, "record", ctx.Err())
	}

	artifact, err := o.session.StopRecording(ctx)
	o.emitStop("record")
	if err != nil {
		return RecordResult{}, o.fail(ctx, "record", err)
	}

	info, err := o.session.FileInfo(ctx, artifact.URI)
	if err != nil {
		return RecordResult{}, o.fail(ctx, "record", err)
	}

	audio, err := readArtifact(artifact.URI)
	if err != nil {
		return RecordResult{}, o.fail(ctx, "record", err)
	}

	s := settings.Load(ctx, o.store)
	language := ""
	if !s.AutoDetectLanguage {
		language = s.DefaultLanguage
	}
	result, err := o.client.Transcribe(ctx, audio, "recording."+info.Format, language)
	if err != nil {
		return RecordResult{}, o.fail(ctx, "record", err)
	}

	return RecordResult{
		Text:     result.Text,
		AudioURI: artifact.URI,
		Duration: info.Duration,
	}, nil
}

// readArtifact loads the recorded bytes behind a file URI or plain path.
func readArtifact(uri string) ([]byte, error) {
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Scheme == "file" {
		p = u.Path
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: read artifact %q: %w", uri, err)
	}
	return data, nil
}

// ─── Synthesize & play ────────────────────────────────────────────────────────

// SynthesizeAndPlay converts text to speech and plays the resulting audio URL
// through the audio session. Empty voice and zero speed resolve from the
// current settings.
func (o *Orchestrator) SynthesizeAndPlay(ctx context.Context, text, voice string, speed float64, playCfg audiosession.PlaybackConfig) error {
	if err := o.ensureInitialized(); err != nil {
		return err
	}
	ctx, span := observe.StartSpan(ctx, "orchestrator.SynthesizeAndPlay")
	defer span.End()

	s := o.loadSettings(ctx)
	if voice == "" {
		voice = s.DefaultVoice
	}
	if speed <= 0 {
		speed = s.DefaultSpeed
	}

	res, err := o.client.Synthesize(ctx, text, voice, speed, s.DefaultFormat)
	if err != nil {
		return o.fail(ctx, "play", err)
	}

	if playCfg == (audiosession.PlaybackConfig{}) {
		playCfg = audiosession.DefaultPlaybackConfig()
	}
	o.emitStart("play")
	if err := o.session.PlayAudio(ctx, res.AudioURL, playCfg); err != nil {
		return o.fail(ctx, "play", err)
	}
	return nil
}

// ─── Settings reconciliation ──────────────────────────────────────────────────

// GetVoiceSettings fetches settings remote-first: a successful fetch is
// mirrored to local storage and returned; any remote failure is logged and
// transparently falls back to the locally persisted value. The only error it
// returns is [ErrNotInitialized].
func (o *Orchestrator) GetVoiceSettings(ctx context.Context) (types.VoiceSettings, error) {
	if err := o.ensureInitialized(); err != nil {
		return types.VoiceSettings{}, err
	}
	return o.loadSettings(ctx), nil
}

// loadSettings is the remote-first fetch behind [Orchestrator.GetVoiceSettings],
// shared by operations that have already passed the initialize gate.
func (o *Orchestrator) loadSettings(ctx context.Context) types.VoiceSettings {
	remote, err := o.client.GetSettings(ctx)
	if err != nil {
		slog.Warn("remote settings fetch failed, falling back to local", "error", err)
		return settings.Load(ctx, o.store)
	}
	if err := settings.Save(ctx, o.store, remote); err != nil {
		slog.Warn("mirroring remote settings locally failed", "error", err)
	}
	return remote
}

// SettingsPatch is a partial settings update; nil fields preserve the stored
// value.
type SettingsPatch struct {
	DefaultVoice       *string
	DefaultSpeed       *float64
	DefaultFormat      *types.AudioFormat
	DefaultLanguage    *string
	AutoDetectLanguage *bool
	Preferences        *settings.PreferencesPartial
}

// applyTo merges the patch over s field-by-field.
func (p SettingsPatch) applyTo(s types.VoiceSettings) types.VoiceSettings {
	if p.DefaultVoice != nil {
		s.DefaultVoice = *p.DefaultVoice
	}
	if p.DefaultSpeed != nil {
		s.DefaultSpeed = *p.DefaultSpeed
	}
	if p.DefaultFormat != nil {
		s.DefaultFormat = *p.DefaultFormat
	}
	if p.DefaultLanguage != nil {
		s.DefaultLanguage = *p.DefaultLanguage
	}
	if p.AutoDetectLanguage != nil {
		s.AutoDetectLanguage = *p.AutoDetectLanguage
	}
	if p.Preferences != nil {
		if p.Preferences.PreferredGender != nil {
			s.VoicePreferences.PreferredGender = *p.Preferences.PreferredGender
		}
		if p.Preferences.UseCase != nil {
			s.VoicePreferences.UseCase = *p.Preferences.UseCase
		}
		if p.Preferences.EmotionalTone != nil {
			s.VoicePreferences.EmotionalTone = *p.Preferences.EmotionalTone
		}
	}
	return s
}

// UpdateVoiceSettings merges patch over the current settings and writes
// remote-first: a successful remote update is mirrored locally; a remote
// failure is logged and the merged value is persisted locally only. The
// merged settings are returned either way.
func (o *Orchestrator) UpdateVoiceSettings(ctx context.Context, patch SettingsPatch) (types.VoiceSettings, error) {
	if err := o.ensureInitialized(); err != nil {
		return types.VoiceSettings{}, err
	}

	merged := patch.applyTo(settings.Load(ctx, o.store))

	stored, err := o.client.UpdateSettings(ctx, merged)
	if err != nil {
		slog.Warn("remote settings update failed, persisting locally only", "error", err)
		if err := settings.Save(ctx, o.store, merged); err != nil {
			return merged, err
		}
		return merged, nil
	}
	if err := settings.Save(ctx, o.store, stored); err != nil {
		slog.Warn("mirroring updated settings locally failed", "error", err)
	}
	return stored, nil
}

// ─── Recommendation ───────────────────────────────────────────────────────────

// GetRecommendedVoice fetches the voice catalog and the user settings
// concurrently, then applies the recommendation cascade. The second return
// value is false when the catalog is empty.
func (o *Orchestrator) GetRecommendedVoice(ctx context.Context, language string) (types.Voice, bool, error) {
	if err := o.ensureInitialized(); err != nil {
		return types.Voice{}, false, err
	}

	var (
		voices []types.Voice
		prefs  types.VoicePreferences
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		voices, err = o.client.ListVoices(gctx, language)
		return err
	})
	g.Go(func() error {
		prefs = o.loadSettings(gctx).VoicePreferences
		return nil
	})
	if err := g.Wait(); err != nil {
		return types.Voice{}, false, err
	}

	voice, ok := settings.Recommend(voices, prefs, language)
	return voice, ok, nil
}

// ─── Lifecycle ────────────────────────────────────────────────────────────────

// Cleanup releases the audio session's resources, force-closes any open live
// session, and resets the initialized flag. Safe to call from any state.
func (o *Orchestrator) Cleanup(ctx context.Context) error {
	o.client.StopLive()
	err := o.session.Cleanup(ctx)

	o.mu.Lock()
	o.initialized = false
	o.mu.Unlock()
	return err
}

// ─── callback helpers ─────────────────────────────────────────────────────────

func (o *Orchestrator) emitStart(op string) {
	if o.cb.OnStart != nil {
		o.cb.OnStart(op)
	}
}

func (o *Orchestrator) emitStop(op string) {
	if o.cb.OnStop != nil {
		o.cb.OnStop(op)
	}
}

// fail records err on the active span, reports it through OnError, and
// returns it unchanged.
func (o *Orchestrator) fail(ctx context.Context, op string, err error) error {
	trace.SpanFromContext(ctx).RecordError(err)
	if o.cb.OnError != nil {
		o.cb.OnError(op, err)
	}
	return err
}

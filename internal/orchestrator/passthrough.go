package orchestrator

import (
	"context"
	"time"

	"github.com/voxkit/voxkit/internal/audiosession"
	"github.com/voxkit/voxkit/internal/settings"
	"github.com/voxkit/voxkit/pkg/device"
	"github.com/voxkit/voxkit/pkg/types"
)

// Playback control, analytics, custom voices, and snapshot transfer are thin
// delegations: the orchestrator is the only surface presentation code sees,
// so every operation is reachable through it.

// PlayAudio plays an arbitrary audio source through the audio session.
func (o *Orchestrator) PlayAudio(ctx context.Context, source string) error {
	if err := o.ensureInitialized(); err != nil {
		return err
	}
	o.emitStart("play")
	if err := o.session.PlayAudio(ctx, source, audiosession.DefaultPlaybackConfig()); err != nil {
		return o.fail(ctx, "play", err)
	}
	return nil
}

// PausePlayback pauses playback; a no-op unless playing.
func (o *Orchestrator) PausePlayback(ctx context.Context) error {
	return o.session.PausePlayback(ctx)
}

// ResumePlayback resumes paused playback; a no-op unless paused.
func (o *Orchestrator) ResumePlayback(ctx context.Context) error {
	return o.session.ResumePlayback(ctx)
}

// StopPlayback stops playback unconditionally; idempotent.
func (o *Orchestrator) StopPlayback(ctx context.Context) error {
	err := o.session.StopPlayback(ctx)
	o.emitStop("play")
	return err
}

// RecordingElapsed returns the active recording's duration, or 0 when idle.
func (o *Orchestrator) RecordingElapsed() time.Duration {
	return o.session.RecordingElapsed()
}

// PlaybackPosition returns the playback position, or 0 when idle.
func (o *Orchestrator) PlaybackPosition() time.Duration {
	return o.session.PlaybackPosition()
}

// PlaybackProgress returns playback progress as a percentage.
func (o *Orchestrator) PlaybackProgress() float64 {
	return o.session.PlaybackProgress()
}

// AudioFileInfo probes a stored artifact.
func (o *Orchestrator) AudioFileInfo(ctx context.Context, uri string) (device.FileInfo, error) {
	return o.session.FileInfo(ctx, uri)
}

// GetAnalytics returns backend usage analytics.
func (o *Orchestrator) GetAnalytics(ctx context.Context) (types.Analytics, error) {
	if err := o.ensureInitialized(); err != nil {
		return types.Analytics{}, err
	}
	return o.client.GetAnalytics(ctx)
}

// CreateCustomVoice submits a voice-cloning job.
func (o *Orchestrator) CreateCustomVoice(ctx context.Context, req types.CustomVoiceRequest) (types.CustomVoiceStatus, error) {
	if err := o.ensureInitialized(); err != nil {
		return types.CustomVoiceStatus{}, err
	}
	return o.client.CreateCustomVoice(ctx, req)
}

// GetCustomVoiceStatus reports the state of a voice-cloning job.
func (o *Orchestrator) GetCustomVoiceStatus(ctx context.Context, id string) (types.CustomVoiceStatus, error) {
	if err := o.ensureInitialized(); err != nil {
		return types.CustomVoiceStatus{}, err
	}
	return o.client.GetCustomVoiceStatus(ctx, id)
}

// DeleteCustomVoice removes a custom voice and refreshes the catalog cache.
func (o *Orchestrator) DeleteCustomVoice(ctx context.Context, id string) error {
	if err := o.ensureInitialized(); err != nil {
		return err
	}
	return o.client.DeleteCustomVoice(ctx, id)
}

// ExportSettings snapshots the local voice state.
func (o *Orchestrator) ExportSettings(ctx context.Context) (settings.Snapshot, error) {
	if err := o.ensureInitialized(); err != nil {
		return settings.Snapshot{}, err
	}
	return settings.Export(ctx, o.store)
}

// ImportSettings validates and persists a snapshot; any violation rejects the
// whole import.
func (o *Orchestrator) ImportSettings(ctx context.Context, snap settings.Snapshot) error {
	if err := o.ensureInitialized(); err != nil {
		return err
	}
	return settings.Import(ctx, o.store, snap)
}

package orchestrator

import (
	"context"

	"github.com/voxkit/voxkit/internal/audiosession"
	"github.com/voxkit/voxkit/internal/backend"
	"github.com/voxkit/voxkit/internal/observe"
	"github.com/voxkit/voxkit/pkg/types"
)

// liveRecordingConfig tunes the capture for streaming: uncompressed wav at
// the medium tier keeps chunks small enough for the socket without resampling.
func liveRecordingConfig() audiosession.RecordingConfig {
	return audiosession.RecordingConfig{
		Format:    types.FormatWAV,
		Quality:   audiosession.QualityMedium,
		Streaming: true,
	}
}

// StartLiveTranscription registers onResult, opens the live session, and then
// starts a streaming recording feeding the socket. The channel is open before
// recording begins; if the recording cannot start the session is closed again.
func (o *Orchestrator) StartLiveTranscription(ctx context.Context, onResult func(types.TranscriptionResult), language string) error {
	if err := o.ensureInitialized(); err != nil {
		return err
	}
	ctx, span := observe.StartSpan(ctx, "orchestrator.StartLiveTranscription")
	defer span.End()

	o.client.OnLiveResult(func(r types.TranscriptionResult) {
		if onResult != nil {
			onResult(r)
		}
		if o.cb.OnLiveResult != nil {
			o.cb.OnLiveResult(r)
		}
	})

	liveCfg := backend.LiveConfig{
		Language:  language,
		Model:     o.liveModel,
		ChunkSize: o.liveChunkSize,
	}
	if err := o.client.StartLive(ctx, liveCfg); err != nil {
		return o.fail(ctx, "live", err)
	}

	o.emitStart("live")
	if err := o.session.StartRecording(ctx, liveRecordingConfig()); err != nil {
		o.client.StopLive()
		o.emitStop("live")
		return o.fail(ctx, "live", err)
	}

	if chunks := o.session.Chunks(); chunks != nil {
		go o.pumpChunks(chunks)
	}
	return nil
}

// pumpChunks forwards recorded chunks to the live socket until the recording
// stops. SendChunk drops on a closed socket, so the pump never blocks on it.
func (o *Orchestrator) pumpChunks(chunks <-chan []byte) {
	for chunk := range chunks {
		o.client.SendChunk(chunk)
	}
}

// StopLiveTranscription stops the recording first, then closes the live
// session. It returns the recorded artifact's URI, or "" when the stop failed
// to produce one. Idempotent: with nothing running it closes cleanly.
func (o *Orchestrator) StopLiveTranscription(ctx context.Context) (string, error) {
	if err := o.ensureInitialized(); err != nil {
		return "", err
	}
	ctx, span := observe.StartSpan(ctx, "orchestrator.StopLiveTranscription")
	defer span.End()

	artifact, err := o.session.StopRecording(ctx)
	o.client.StopLive()
	o.emitStop("live")
	if err != nil {
		return "", o.fail(ctx, "live", err)
	}
	if artifact.URI == "" {
		// No active recording; fall back to the last finished one, if any.
		if last, ok := o.session.LastArtifact(); ok {
			return last.URI, nil
		}
		return "", nil
	}
	return artifact.URI, nil
}

// LiveState reports the live session's lifecycle state.
func (o *Orchestrator) LiveState() backend.SessionState {
	return o.client.LiveState()
}

// IsLiveActive reports whether a live session is currently open.
func (o *Orchestrator) IsLiveActive() bool {
	return o.client.LiveState() == backend.SessionOpen
}

// Package mock provides in-memory mock implementations of the [device.Device],
// [device.Recorder], and [device.Player] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so that
// tests can assert on call counts and arguments, and they expose exported
// fields that the test can set to control return values.
//
// Typical usage:
//
//	rec := &mock.Recorder{StopURI: "file:///tmp/rec-1.wav"}
//	dev := &mock.Device{OpenRecorderResult: rec}
//	r, err := dev.OpenRecorder(ctx, params)
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/voxkit/voxkit/pkg/device"
)

// ─── Recorder ─────────────────────────────────────────────────────────────────

// Recorder is a mock implementation of [device.Recorder].
type Recorder struct {
	mu sync.Mutex

	// ElapsedResult is returned by [Recorder.Elapsed].
	ElapsedResult time.Duration

	// ChunksResult is returned by [Recorder.Chunks]. Leave nil to mimic a
	// non-streaming handle.
	ChunksResult chan []byte

	// StopURI and StopError are returned by [Recorder.Stop].
	StopURI   string
	StopError error

	// CallCountStop records how many times Stop was called.
	CallCountStop int
}

var _ device.Recorder = (*Recorder)(nil)

// Elapsed implements [device.Recorder].
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ElapsedResult
}

// Chunks implements [device.Recorder].
func (r *Recorder) Chunks() <-chan []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ChunksResult == nil {
		return nil
	}
	return r.ChunksResult
}

// Stop implements [device.Recorder].
func (r *Recorder) Stop(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CallCountStop++
	if r.ChunksResult != nil && r.CallCountStop == 1 {
		close(r.ChunksResult)
	}
	return r.StopURI, r.StopError
}

// ─── Player ───────────────────────────────────────────────────────────────────

// Player is a mock implementation of [device.Player].
type Player struct {
	mu sync.Mutex

	// PlayError is returned by [Player.Play].
	PlayError error

	// PositionResult is returned by [Player.Position].
	PositionResult time.Duration

	// DurationResult is returned by [Player.Duration].
	DurationResult time.Duration

	// CallCountPlay, CallCountPause, CallCountStop record method invocations.
	CallCountPlay  int
	CallCountPause int
	CallCountStop  int

	// CompleteCallback holds the callback registered via OnComplete.
	CompleteCallback func()
}

var _ device.Player = (*Player)(nil)

// Play implements [device.Player].
func (p *Player) Play(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountPlay++
	return p.PlayError
}

// Pause implements [device.Player].
func (p *Player) Pause(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountPause++
	return nil
}

// Position implements [device.Player].
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.PositionResult
}

// Duration implements [device.Player].
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.DurationResult
}

// OnComplete implements [device.Player].
func (p *Player) OnComplete(cb func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCallback = cb
}

// FireComplete invokes the registered completion callback, simulating the
// source naturally reaching its end. Safe to call when none is registered.
func (p *Player) FireComplete() {
	p.mu.Lock()
	cb := p.CompleteCallback
	p.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Stop implements [device.Player].
func (p *Player) Stop(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountStop++
	return nil
}

// ─── Device ───────────────────────────────────────────────────────────────────

// Device is a mock implementation of [device.Device].
type Device struct {
	mu sync.Mutex

	// PermissionError is returned by [Device.RequestPermission].
	PermissionError error

	// OpenRecorderResult and OpenRecorderError are returned by OpenRecorder.
	OpenRecorderResult device.Recorder
	OpenRecorderError  error

	// OpenPlayerResult and OpenPlayerError are returned by OpenPlayer.
	OpenPlayerResult device.Player
	OpenPlayerError  error

	// ProbeResult and ProbeError are returned by Probe.
	ProbeResult device.FileInfo
	ProbeError  error

	// CallCountRequestPermission records how many times RequestPermission was called.
	CallCountRequestPermission int

	// CallCountOpenRecorder records how many times OpenRecorder was called.
	CallCountOpenRecorder int

	// CallCountOpenPlayer records how many times OpenPlayer was called.
	CallCountOpenPlayer int

	// RecordedRecorderParams holds the params passed to OpenRecorder, in order.
	RecordedRecorderParams []device.RecorderParams

	// RecordedPlayerSources holds the sources passed to OpenPlayer, in order.
	RecordedPlayerSources []string
}

var _ device.Device = (*Device)(nil)

// RequestPermission implements [device.Device].
func (d *Device) RequestPermission(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountRequestPermission++
	return d.PermissionError
}

// OpenRecorder implements [device.Device].
func (d *Device) OpenRecorder(_ context.Context, params device.RecorderParams) (device.Recorder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountOpenRecorder++
	d.RecordedRecorderParams = append(d.RecordedRecorderParams, params)
	if d.OpenRecorderError != nil {
		return nil, d.OpenRecorderError
	}
	if d.OpenRecorderResult == nil {
		return &Recorder{StopURI: "file:///mock/recording.wav"}, nil
	}
	return d.OpenRecorderResult, nil
}

// OpenPlayer implements [device.Device].
func (d *Device) OpenPlayer(_ context.Context, source string, _ device.PlayerParams) (device.Player, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountOpenPlayer++
	d.RecordedPlayerSources = append(d.RecordedPlayerSources, source)
	if d.OpenPlayerError != nil {
		return nil, d.OpenPlayerError
	}
	if d.OpenPlayerResult == nil {
		return &Player{}, nil
	}
	return d.OpenPlayerResult, nil
}

// Probe implements [device.Device].
func (d *Device) Probe(context.Context, string) (device.FileInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ProbeResult, d.ProbeError
}

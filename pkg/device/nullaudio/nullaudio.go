// Package nullaudio provides a headless [device.Device] implementation for
// environments without audio hardware: CI, servers, and the voxkit demo
// binary. Recording produces a silent artifact of the elapsed wall-clock
// length; playback advances a position without emitting sound.
package nullaudio

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/voxkit/voxkit/pkg/device"
)

// Compile-time interface check.
var _ device.Device = (*Device)(nil)

// Device is a no-hardware audio device. Permission is always granted.
type Device struct {
	// Dir is where recorded artifacts are written. Defaults to os.TempDir().
	Dir string
}

// RequestPermission implements [device.Device]; always granted.
func (d *Device) RequestPermission(context.Context) error { return nil }

// OpenRecorder implements [device.Device].
func (d *Device) OpenRecorder(_ context.Context, params device.RecorderParams) (device.Recorder, error) {
	dir := d.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, "voxkit-rec-*."+extFor(params.Encoder))
	if err != nil {
		return nil, fmt.Errorf("nullaudio: create artifact: %w", err)
	}
	r := &recorder{
		file:    f,
		started: time.Now(),
	}
	if params.Streaming {
		r.chunks = make(chan []byte)
	}
	return r, nil
}

func extFor(encoder string) string {
	switch encoder {
	case "pcm-16":
		return "wav"
	case "aac", "aac-lc":
		return "aac"
	default:
		return "mp3"
	}
}

type recorder struct {
	file    *os.File
	started time.Time
	chunks  chan []byte

	mu      sync.Mutex
	stopped bool
	elapsed time.Duration
	uri     string
}

func (r *recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return r.elapsed
	}
	return time.Since(r.started)
}

func (r *recorder) Chunks() <-chan []byte {
	if r.chunks == nil {
		return nil
	}
	return r.chunks
}

func (r *recorder) Stop(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return r.uri, nil
	}
	r.stopped = true
	r.elapsed = time.Since(r.started)
	if r.chunks != nil {
		close(r.chunks)
	}
	name := r.file.Name()
	if err := r.file.Close(); err != nil {
		return "", fmt.Errorf("nullaudio: close artifact: %w", err)
	}
	r.uri = "file://" + name
	return r.uri, nil
}

// OpenPlayer implements [device.Device]. The source is not fetched; the
// player simulates a fixed-length clip.
func (d *Device) OpenPlayer(_ context.Context, source string, _ device.PlayerParams) (device.Player, error) {
	return &player{duration: 3 * time.Second, source: source}, nil
}

type player struct {
	source   string
	duration time.Duration

	mu        sync.Mutex
	playing   bool
	pos       time.Duration
	resumedAt time.Time
	timer     *time.Timer
	complete  func()
}

func (p *player) Play(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return nil
	}
	p.playing = true
	p.resumedAt = time.Now()
	remaining := p.duration - p.pos
	p.timer = time.AfterFunc(remaining, func() {
		p.mu.Lock()
		p.playing = false
		p.pos = p.duration
		cb := p.complete
		p.mu.Unlock()
		if cb != nil {
			cb()
		}
	})
	return nil
}

func (p *player) Pause(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return nil
	}
	p.playing = false
	p.pos += time.Since(p.resumedAt)
	if p.timer != nil {
		p.timer.Stop()
	}
	return nil
}

func (p *player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return p.pos + time.Since(p.resumedAt)
	}
	return p.pos
}

func (p *player) Duration() time.Duration { return p.duration }

func (p *player) OnComplete(cb func()) {
	p.mu.Lock()
	p.complete = cb
	p.mu.Unlock()
}

func (p *player) Stop(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	if p.timer != nil {
		p.timer.Stop()
	}
	return nil
}

// Probe implements [device.Device].
func (d *Device) Probe(_ context.Context, uri string) (device.FileInfo, error) {
	p := uri
	if len(p) > 7 && p[:7] == "file://" {
		p = p[7:]
	}
	st, err := os.Stat(p)
	if err != nil {
		return device.FileInfo{}, fmt.Errorf("nullaudio: probe %q: %w", uri, err)
	}
	return device.FileInfo{Size: st.Size()}, nil
}

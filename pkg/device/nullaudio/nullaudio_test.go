package nullaudio

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/voxkit/voxkit/pkg/device"
)

func TestRecorderProducesAnArtifact(t *testing.T) {
	d := &Device{Dir: t.TempDir()}
	ctx := context.Background()

	if err := d.RequestPermission(ctx); err != nil {
		t.Fatalf("RequestPermission: %v", err)
	}
	rec, err := d.OpenRecorder(ctx, device.RecorderParams{Encoder: "pcm-16"})
	if err != nil {
		t.Fatalf("OpenRecorder: %v", err)
	}

	uri, err := rec.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !strings.HasPrefix(uri, "file://") || !strings.HasSuffix(uri, ".wav") {
		t.Errorf("uri = %q, want a file URI with a wav extension", uri)
	}

	// The artifact is probeable.
	if _, err := d.Probe(ctx, uri); err != nil {
		t.Errorf("Probe(%q): %v", uri, err)
	}

	// A second stop returns the same URI without error.
	again, err := rec.Stop(ctx)
	if err != nil || again != uri {
		t.Errorf("second Stop = %q, %v; want %q, nil", again, err, uri)
	}
}

func TestRecorderExtensionFollowsEncoder(t *testing.T) {
	tests := []struct {
		encoder string
		wantExt string
	}{
		{"pcm-16", ".wav"},
		{"aac", ".aac"},
		{"aac-lc", ".aac"},
		{"mp3", ".mp3"},
		{"mpeg", ".mp3"},
	}
	d := &Device{Dir: t.TempDir()}
	ctx := context.Background()
	for _, tc := range tests {
		rec, err := d.OpenRecorder(ctx, device.RecorderParams{Encoder: tc.encoder})
		if err != nil {
			t.Fatalf("OpenRecorder(%s): %v", tc.encoder, err)
		}
		uri, err := rec.Stop(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasSuffix(uri, tc.wantExt) {
			t.Errorf("encoder %q produced %q, want extension %q", tc.encoder, uri, tc.wantExt)
		}
	}
}

func TestStreamingRecorderClosesChunksOnStop(t *testing.T) {
	d := &Device{Dir: t.TempDir()}
	ctx := context.Background()

	rec, err := d.OpenRecorder(ctx, device.RecorderParams{Encoder: "pcm-16", Streaming: true})
	if err != nil {
		t.Fatal(err)
	}
	chunks := rec.Chunks()
	if chunks == nil {
		t.Fatal("streaming recorder has no chunk channel")
	}
	if _, err := rec.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	select {
	case _, open := <-chunks:
		if open {
			t.Error("chunk channel delivered data after stop")
		}
	case <-time.After(time.Second):
		t.Error("chunk channel not closed on stop")
	}
}

func TestNonStreamingRecorderHasNoChunks(t *testing.T) {
	d := &Device{Dir: t.TempDir()}
	rec, err := d.OpenRecorder(context.Background(), device.RecorderParams{Encoder: "mp3"})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Chunks() != nil {
		t.Error("non-streaming recorder exposes a chunk channel")
	}
	rec.Stop(context.Background())
}

func TestPlayerLifecycle(t *testing.T) {
	d := &Device{}
	ctx := context.Background()

	p, err := d.OpenPlayer(ctx, "file:///tmp/whatever.mp3", device.PlayerParams{})
	if err != nil {
		t.Fatalf("OpenPlayer: %v", err)
	}
	if got := p.Duration(); got <= 0 {
		t.Errorf("Duration() = %v, want a positive simulated length", got)
	}
	if got := p.Position(); got != 0 {
		t.Errorf("Position() before play = %v", got)
	}

	if err := p.Play(ctx); err != nil {
		t.Fatalf("Play: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if got := p.Position(); got <= 0 {
		t.Errorf("Position() while playing = %v, want > 0", got)
	}

	if err := p.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	frozen := p.Position()
	time.Sleep(20 * time.Millisecond)
	if got := p.Position(); got != frozen {
		t.Errorf("Position() advanced while paused: %v then %v", frozen, got)
	}

	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestPlayerCompletionCallback(t *testing.T) {
	p := &player{duration: 10 * time.Millisecond}
	done := make(chan struct{})
	p.OnComplete(func() { close(done) })

	if err := p.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("completion callback never fired")
	}
	if got := p.Position(); got != p.Duration() {
		t.Errorf("Position() after completion = %v, want the full duration", got)
	}
}

func TestProbeMissingFile(t *testing.T) {
	d := &Device{}
	if _, err := d.Probe(context.Background(), "file:///nonexistent/file.mp3"); err == nil {
		t.Error("Probe on a missing file succeeded")
	}
}

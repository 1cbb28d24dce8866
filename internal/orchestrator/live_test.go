package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coder/websocket"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/voxkit/voxkit/internal/audiosession"
	"github.com/voxkit/voxkit/internal/backend"
	"github.com/voxkit/voxkit/internal/observe"
	devmock "github.com/voxkit/voxkit/pkg/device/mock"
	kvmock "github.com/voxkit/voxkit/pkg/kv/mock"
	"github.com/voxkit/voxkit/pkg/types"
)

// newLiveHarness builds an orchestrator against a backend that upgrades
// /voice/transcribe/live to a websocket echoing every received audio chunk
// back as a final transcription result.
func newLiveHarness(t *testing.T, dev *devmock.Device) *Orchestrator {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voice/transcribe/live" {
			http.NotFound(w, r)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		for {
			typ, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}
			if typ != websocket.MessageBinary {
				continue
			}
			msg, _ := json.Marshal(types.TranscriptionResult{Text: string(data), IsFinal: true})
			if err := conn.Write(r.Context(), websocket.MessageText, msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	orch := New(audiosession.New(dev), backend.New(srv.URL, "k", backend.WithMetrics(m)), &kvmock.Store{})
	if err := orch.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return orch
}

func TestLiveTranscriptionRoundTrip(t *testing.T) {
	chunks := make(chan []byte, 4)
	rec := &devmock.Recorder{
		ChunksResult: chunks,
		StopURI:      "file:///tmp/live-rec.wav",
	}
	dev := &devmock.Device{OpenRecorderResult: rec}
	orch := newLiveHarness(t, dev)

	results := make(chan types.TranscriptionResult, 4)
	err := orch.StartLiveTranscription(context.Background(), func(r types.TranscriptionResult) {
		results <- r
	}, "en-US")
	if err != nil {
		t.Fatalf("StartLiveTranscription: %v", err)
	}
	if !orch.IsLiveActive() {
		t.Fatal("IsLiveActive() = false after start")
	}
	// The capture was opened for streaming so chunks flow to the socket.
	if params := dev.RecordedRecorderParams; len(params) != 1 || !params[0].Streaming {
		t.Fatalf("recorder params = %+v, want streaming", params)
	}

	chunks <- []byte("spoken words")
	select {
	case got := <-results:
		if got.Text != "spoken words" || !got.IsFinal {
			t.Errorf("result = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered for the streamed chunk")
	}

	uri, err := orch.StopLiveTranscription(context.Background())
	if err != nil {
		t.Fatalf("StopLiveTranscription: %v", err)
	}
	if uri != "file:///tmp/live-rec.wav" {
		t.Errorf("uri = %q", uri)
	}
	if orch.IsLiveActive() {
		t.Error("IsLiveActive() = true after stop")
	}
	if got := orch.LiveState(); got != backend.SessionClosed {
		t.Errorf("LiveState() = %v, want SessionClosed", got)
	}
}

func TestLiveResultsReachSessionAndGlobalCallbacks(t *testing.T) {
	chunks := make(chan []byte, 1)
	dev := &devmock.Device{OpenRecorderResult: &devmock.Recorder{
		ChunksResult: chunks,
		StopURI:      "file:///tmp/live-rec.wav",
	}}
	global := make(chan types.TranscriptionResult, 2)
	perSession := make(chan types.TranscriptionResult, 2)

	orch := newLiveHarness(t, dev)
	WithCallbacks(Callbacks{OnLiveResult: func(r types.TranscriptionResult) { global <- r }})(orch)

	err := orch.StartLiveTranscription(context.Background(), func(r types.TranscriptionResult) {
		perSession <- r
	}, "")
	if err != nil {
		t.Fatalf("StartLiveTranscription: %v", err)
	}
	defer orch.StopLiveTranscription(context.Background())

	chunks <- []byte("both")
	for name, ch := range map[string]chan types.TranscriptionResult{"per-session": perSession, "global": global} {
		select {
		case got := <-ch:
			if got.Text != "both" {
				t.Errorf("%s result = %+v", name, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s callback never fired", name)
		}
	}
}

func TestStartLiveClosesSessionWhenRecordingFails(t *testing.T) {
	recorderErr := errors.New("no capture device")
	dev := &devmock.Device{OpenRecorderError: recorderErr}
	orch := newLiveHarness(t, dev)

	err := orch.StartLiveTranscription(context.Background(), nil, "")
	if !errors.Is(err, recorderErr) {
		t.Fatalf("error = %v, want wrapped recorder failure", err)
	}
	// No half-open state: the socket opened before the recording is torn down.
	if orch.IsLiveActive() {
		t.Error("live session left open after the recording failed to start")
	}
}

func TestStartLiveTwiceFails(t *testing.T) {
	dev := &devmock.Device{OpenRecorderResult: &devmock.Recorder{
		ChunksResult: make(chan []byte, 1),
		StopURI:      "file:///tmp/a.wav",
	}}
	orch := newLiveHarness(t, dev)

	if err := orch.StartLiveTranscription(context.Background(), nil, ""); err != nil {
		t.Fatalf("first start: %v", err)
	}
	defer orch.StopLiveTranscription(context.Background())

	if err := orch.StartLiveTranscription(context.Background(), nil, ""); !errors.Is(err, backend.ErrLiveSessionActive) {
		t.Errorf("second start error = %v, want ErrLiveSessionActive", err)
	}
}

func TestStopLiveTranscriptionWithNothingRunning(t *testing.T) {
	orch := newLiveHarness(t, &devmock.Device{})
	uri, err := orch.StopLiveTranscription(context.Background())
	if err != nil {
		t.Fatalf("StopLiveTranscription: %v", err)
	}
	if uri != "" {
		t.Errorf("uri = %q, want empty", uri)
	}
}

func TestCleanupClosesLiveSession(t *testing.T) {
	dev := &devmock.Device{OpenRecorderResult: &devmock.Recorder{
		ChunksResult: make(chan []byte, 1),
		StopURI:      "file:///tmp/a.wav",
	}}
	orch := newLiveHarness(t, dev)

	if err := orch.StartLiveTranscription(context.Background(), nil, ""); err != nil {
		t.Fatalf("StartLiveTranscription: %v", err)
	}
	if err := orch.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if orch.IsLiveActive() {
		t.Error("live session survived Cleanup")
	}
}

func TestLiveDefaultsReachTheSocketURL(t *testing.T) {
	queries := make(chan url.Values, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.Query()
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		conn.Read(r.Context())
	}))
	t.Cleanup(srv.Close)

	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	dev := &devmock.Device{OpenRecorderResult: &devmock.Recorder{
		ChunksResult: make(chan []byte, 1),
		StopURI:      "file:///tmp/a.wav",
	}}
	orch := New(audiosession.New(dev), backend.New(srv.URL, "k", backend.WithMetrics(m)), &kvmock.Store{},
		WithLiveDefaults("accurate-v1", 2048))
	if err := orch.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if err := orch.StartLiveTranscription(context.Background(), nil, "en-US"); err != nil {
		t.Fatalf("StartLiveTranscription: %v", err)
	}
	defer orch.Cleanup(context.Background())

	select {
	case q := <-queries:
		if got := q.Get("model"); got != "accurate-v1" {
			t.Errorf("model = %q, want %q", got, "accurate-v1")
		}
		if got := q.Get("chunkSize"); got != "2048" {
			t.Errorf("chunkSize = %q, want %q", got, "2048")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the socket request")
	}
}

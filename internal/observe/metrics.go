// Package observe provides application-wide observability primitives for
// voxkit: OpenTelemetry metrics and the Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxkit metrics.
const meterName = "github.com/voxkit/voxkit"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// TranscriptionDuration tracks batch transcription round-trip latency.
	TranscriptionDuration metric.Float64Histogram

	// SynthesisDuration tracks synthesis round-trip latency.
	SynthesisDuration metric.Float64Histogram

	// --- Counters ---

	// BackendRequests counts backend API calls. Use with attributes:
	//   attribute.String("endpoint", ...), attribute.String("status", ...)
	BackendRequests metric.Int64Counter

	// CacheLookups counts response-cache lookups. Use with attributes:
	//   attribute.String("endpoint", ...), attribute.String("result", "hit"|"miss")
	CacheLookups metric.Int64Counter

	// LiveResults counts transcription results delivered by the live socket.
	LiveResults metric.Int64Counter

	// DroppedChunks counts audio chunks discarded because the live socket
	// was not open.
	DroppedChunks metric.Int64Counter

	// --- Error counters ---

	// BackendErrors counts backend failures. Use with attribute:
	//   attribute.String("endpoint", ...)
	BackendErrors metric.Int64Counter

	// --- Gauges ---

	// LiveSessions tracks the number of currently open live transcription
	// sessions (0 or 1 per orchestrator).
	LiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for backend round-trip latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranscriptionDuration, err = m.Float64Histogram("voxkit.transcription.duration",
		metric.WithDescription("Latency of batch speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("voxkit.synthesis.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.BackendRequests, err = m.Int64Counter("voxkit.backend.requests",
		metric.WithDescription("Total backend API requests by endpoint and status."),
	); err != nil {
		return nil, err
	}
	if met.CacheLookups, err = m.Int64Counter("voxkit.cache.lookups",
		metric.WithDescription("Response-cache lookups by endpoint and result."),
	); err != nil {
		return nil, err
	}
	if met.LiveResults, err = m.Int64Counter("voxkit.live.results",
		metric.WithDescription("Transcription results delivered by the live socket."),
	); err != nil {
		return nil, err
	}
	if met.DroppedChunks, err = m.Int64Counter("voxkit.live.dropped_chunks",
		metric.WithDescription("Audio chunks dropped because the live socket was not open."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.BackendErrors, err = m.Int64Counter("voxkit.backend.errors",
		metric.WithDescription("Total backend failures by endpoint."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.LiveSessions, err = m.Int64UpDownCounter("voxkit.live.sessions",
		metric.WithDescription("Number of currently open live transcription sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: default metrics init: " + err.Error())
		}
	})
	return defaultMetrics
}

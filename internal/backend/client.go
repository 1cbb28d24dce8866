// Package backend wraps every network operation of the voxkit voice backend:
// the REST endpoints under /voice (batch transcription, synthesis, the voice
// catalog, settings, analytics, custom voices) and the persistent live
// transcription socket at /voice/transcribe/live.
//
// GET responses for the voices, settings, and analytics endpoints are cached
// with per-endpoint TTLs; mutating calls invalidate the matching entries
// before returning. Failures surface as [*APIError] — the client never
// retries on its own.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/voxkit/voxkit/internal/observe"
	"github.com/voxkit/voxkit/pkg/types"
)

// Option is a functional option for configuring the [Client].
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpc = c }
}

// WithMetrics replaces the default metrics instance; tests pass one built
// from a private meter provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// WithNow replaces the cache's time source; used by tests to expire entries
// without sleeping.
func WithNow(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

// Client talks to the voice backend. One Client exists per orchestrator and
// lives for its lifetime.
//
// Client is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	metrics *observe.Metrics
	now     func() time.Time
	cache   *responseCache

	mu       sync.Mutex
	live     *LiveSession
	onResult func(types.TranscriptionResult)
}

// New creates a Client for the backend at baseURL (e.g., "https://api.example.com").
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	c.cache = newResponseCache(c.now)
	return c
}

// ─── Batch transcription & synthesis ──────────────────────────────────────────

// Transcribe uploads recorded audio for batch transcription. language is
// optional; empty lets the backend auto-detect.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename, language string) (types.TranscribeResult, error) {
	start := c.now()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audio", filename)
	if err != nil {
		return types.TranscribeResult{}, &APIError{Endpoint: "transcribe", Message: "build form", Err: err}
	}
	if _, err := part.Write(audio); err != nil {
		return types.TranscribeResult{}, &APIError{Endpoint: "transcribe", Message: "write audio", Err: err}
	}
	if language != "" {
		if err := w.WriteField("language", language); err != nil {
			return types.TranscribeResult{}, &APIError{Endpoint: "transcribe", Message: "write language", Err: err}
		}
	}
	if err := w.Close(); err != nil {
		return types.TranscribeResult{}, &APIError{Endpoint: "transcribe", Message: "close form", Err: err}
	}

	var out types.TranscribeResult
	if err := c.do(ctx, http.MethodPost, "/voice/transcribe", "transcribe", w.FormDataContentType(), &buf, &out); err != nil {
		return types.TranscribeResult{}, err
	}
	c.metrics.TranscriptionDuration.Record(ctx, c.now().Sub(start).Seconds())
	return out, nil
}

// synthesizeRequest is the JSON payload of POST /voice/synthesize.
type synthesizeRequest struct {
	Text   string  `json:"text"`
	Voice  string  `json:"voice,omitempty"`
	Speed  float64 `json:"speed,omitempty"`
	Format string  `json:"format"`
}

// Synthesize converts text to speech. voice and speed are optional; format
// defaults to mp3.
func (c *Client) Synthesize(ctx context.Context, text, voice string, speed float64, format types.AudioFormat) (types.SynthesisResult, error) {
	start := c.now()
	if format == "" {
		format = types.FormatMP3
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:   text,
		Voice:  voice,
		Speed:  speed,
		Format: string(format),
	})
	if err != nil {
		return types.SynthesisResult{}, &APIError{Endpoint: "synthesize", Message: "marshal request", Err: err}
	}

	var out types.SynthesisResult
	if err := c.do(ctx, http.MethodPost, "/voice/synthesize", "synthesize", "application/json", bytes.NewReader(body), &out); err != nil {
		return types.SynthesisResult{}, err
	}
	c.metrics.SynthesisDuration.Record(ctx, c.now().Sub(start).Seconds())
	return out, nil
}

// ─── Catalog, settings, analytics ─────────────────────────────────────────────

// ListVoices returns the voice catalog, optionally filtered by language.
// Responses are cached for an hour.
func (c *Client) ListVoices(ctx context.Context, language string) ([]types.Voice, error) {
	p := "/voice/voices"
	key := "voices"
	if language != "" {
		p += "?language=" + url.QueryEscape(language)
		key += "?language=" + language
	}
	var out []types.Voice
	if err := c.getCached(ctx, p, "voices", key, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSettings fetches the user's remote voice settings.
func (c *Client) GetSettings(ctx context.Context) (types.VoiceSettings, error) {
	var out types.VoiceSettings
	if err := c.getCached(ctx, "/voice/settings", "settings", "settings", &out); err != nil {
		return types.VoiceSettings{}, err
	}
	return out, nil
}

// UpdateSettings replaces the user's remote voice settings and returns the
// stored value. The settings cache entry is invalidated before returning.
func (c *Client) UpdateSettings(ctx context.Context, s types.VoiceSettings) (types.VoiceSettings, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return types.VoiceSettings{}, &APIError{Endpoint: "settings", Message: "marshal settings", Err: err}
	}
	var out types.VoiceSettings
	if err := c.do(ctx, http.MethodPut, "/voice/settings", "settings", "application/json", bytes.NewReader(body), &out); err != nil {
		return types.VoiceSettings{}, err
	}
	c.cache.invalidate("settings")
	return out, nil
}

// GetAnalytics returns usage analytics, cached for five minutes.
func (c *Client) GetAnalytics(ctx context.Context) (types.Analytics, error) {
	var out types.Analytics
	if err := c.getCached(ctx, "/voice/analytics", "analytics", "analytics", &out); err != nil {
		return types.Analytics{}, err
	}
	return out, nil
}

// ─── Custom voices ────────────────────────────────────────────────────────────

// CreateCustomVoice submits a voice-cloning job with the attached samples.
func (c *Client) CreateCustomVoice(ctx context.Context, req types.CustomVoiceRequest) (types.CustomVoiceStatus, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"name":           req.Name,
		"description":    req.Description,
		"targetLanguage": req.TargetLanguage,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return types.CustomVoiceStatus{}, &APIError{Endpoint: "custom", Message: "write " + k, Err: err}
		}
	}
	for i, sample := range req.AudioSamples {
		part, err := w.CreateFormFile("audioSample_"+strconv.Itoa(i), fmt.Sprintf("sample_%d.wav", i))
		if err != nil {
			return types.CustomVoiceStatus{}, &APIError{Endpoint: "custom", Message: "build sample part", Err: err}
		}
		if _, err := part.Write(sample); err != nil {
			return types.CustomVoiceStatus{}, &APIError{Endpoint: "custom", Message: "write sample", Err: err}
		}
	}
	if err := w.Close(); err != nil {
		return types.CustomVoiceStatus{}, &APIError{Endpoint: "custom", Message: "close form", Err: err}
	}

	var out types.CustomVoiceStatus
	if err := c.do(ctx, http.MethodPost, "/voice/custom", "custom", w.FormDataContentType(), &buf, &out); err != nil {
		return types.CustomVoiceStatus{}, err
	}
	return out, nil
}

// GetCustomVoiceStatus reports the state of the voice-cloning job id.
func (c *Client) GetCustomVoiceStatus(ctx context.Context, id string) (types.CustomVoiceStatus, error) {
	var out types.CustomVoiceStatus
	if err := c.do(ctx, http.MethodGet, "/voice/custom/"+url.PathEscape(id), "custom", "", nil, &out); err != nil {
		return types.CustomVoiceStatus{}, err
	}
	return out, nil
}

// DeleteCustomVoice removes the custom voice id. The voices cache is
// invalidated before returning so the next catalog read refetches.
func (c *Client) DeleteCustomVoice(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/voice/custom/"+url.PathEscape(id), "custom", "", nil, nil); err != nil {
		return err
	}
	c.cache.invalidate("voices")
	return nil
}

// ─── HTTP plumbing ────────────────────────────────────────────────────────────

// getCached runs a GET through the response cache: a fresh entry is decoded
// without touching the network, a miss fetches, caches, and decodes.
func (c *Client) getCached(ctx context.Context, path, endpoint, key string, out any) error {
	if body, ok := c.cache.get(key); ok {
		c.metrics.CacheLookups.Add(ctx, 1, metric.WithAttributes(
			attribute.String("endpoint", endpoint), attribute.String("result", "hit")))
		if err := json.Unmarshal(body, out); err == nil {
			return nil
		}
		// A cached body that no longer decodes is dropped and refetched.
		c.cache.invalidate(key)
	}
	c.metrics.CacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint), attribute.String("result", "miss")))

	body, err := c.roundTrip(ctx, http.MethodGet, path, endpoint, "", nil)
	if err != nil {
		return err
	}
	c.cache.put(key, body, ttlFor(endpoint))
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Endpoint: endpoint, Message: "decode response", Err: err}
	}
	return nil
}

// do runs one request and decodes the JSON response into out (skipped when
// out is nil).
func (c *Client) do(ctx context.Context, method, path, endpoint, contentType string, body io.Reader, out any) error {
	respBody, err := c.roundTrip(ctx, method, path, endpoint, contentType, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &APIError{Endpoint: endpoint, Message: "decode response", Err: err}
	}
	return nil
}

// roundTrip performs the HTTP exchange and the request/error accounting. Each
// exchange runs inside a client span; the trace ID travels to the backend as
// X-Correlation-ID so server logs can be matched to a client operation.
func (c *Client) roundTrip(ctx context.Context, method, path, endpoint, contentType string, body io.Reader) ([]byte, error) {
	ctx, span := observe.StartSpan(ctx, "backend "+method+" "+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(method),
			attribute.String("voxkit.endpoint", endpoint),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		span.RecordError(err)
		return nil, &APIError{Endpoint: endpoint, Message: "build request", Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if cid := observe.CorrelationID(ctx); cid != "" {
		req.Header.Set("X-Correlation-ID", cid)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		span.RecordError(err)
		c.countRequest(ctx, endpoint, "error")
		c.metrics.BackendErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", endpoint)))
		return nil, &APIError{Endpoint: endpoint, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		c.countRequest(ctx, endpoint, "error")
		return nil, &APIError{Endpoint: endpoint, Status: resp.StatusCode, Message: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, resp.Status)
		c.countRequest(ctx, endpoint, strconv.Itoa(resp.StatusCode))
		c.metrics.BackendErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", endpoint)))
		return nil, &APIError{Endpoint: endpoint, Status: resp.StatusCode, Message: truncate(string(respBody), 256)}
	}

	c.countRequest(ctx, endpoint, "ok")
	return respBody, nil
}

func (c *Client) countRequest(ctx context.Context, endpoint, status string) {
	c.metrics.BackendRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("status", status),
	))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

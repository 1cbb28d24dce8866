package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/coder/websocket"

	"github.com/voxkit/voxkit/pkg/types"
)

// LiveConfig configures one live transcription session.
type LiveConfig struct {
	// Language is the BCP-47 tag to transcribe. Empty lets the backend detect.
	Language string

	// Model selects the backend recognition model. Empty uses the default.
	Model string

	// ChunkSize is the audio chunk size in bytes the client intends to send.
	ChunkSize int
}

const (
	defaultLiveModel     = "streaming-v2"
	defaultLiveChunkSize = 4096
)

// SessionState enumerates a live session's lifecycle states.
type SessionState int

const (
	SessionOpening SessionState = iota
	SessionOpen
	SessionClosing
	SessionClosed
)

// String returns the human-readable name of the state.
func (s SessionState) String() string {
	switch s {
	case SessionOpening:
		return "OPENING"
	case SessionOpen:
		return "OPEN"
	case SessionClosing:
		return "CLOSING"
	case SessionClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// LiveSession is one open live transcription socket. At most one exists per
// [Client] at a time; it is bound to exactly one concurrent recording while
// open. Sessions are not restartable — a new [Client.StartLive] call creates
// a fresh one.
type LiveSession struct {
	conn  *websocket.Conn
	audio chan []byte
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup

	mu    sync.Mutex
	state SessionState
}

// OnLiveResult registers cb as the single result-callback slot, replacing any
// previous registration. Pass nil to clear.
func (c *Client) OnLiveResult(cb func(types.TranscriptionResult)) {
	c.mu.Lock()
	c.onResult = cb
	c.mu.Unlock()
}

// StartLive opens the live transcription socket. Returns
// [ErrLiveSessionActive] if a prior session has not been closed.
func (c *Client) StartLive(ctx context.Context, cfg LiveConfig) error {
	c.mu.Lock()
	if c.live != nil {
		c.mu.Unlock()
		return ErrLiveSessionActive
	}
	c.mu.Unlock()

	wsURL, err := c.liveURL(cfg)
	if err != nil {
		return fmt.Errorf("backend: live URL: %w", err)
	}

	headers := http.Header{}
	if c.apiKey != "" {
		headers.Set("Authorization", "Bearer "+c.apiKey)
	}
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return &APIError{Endpoint: "live", Message: "dial: " + err.Error(), Err: err}
	}

	sess := &LiveSession{
		conn:  conn,
		audio: make(chan []byte, 256),
		done:  make(chan struct{}),
		state: SessionOpen,
	}

	c.mu.Lock()
	if c.live != nil {
		// Lost the race against a concurrent StartLive.
		c.mu.Unlock()
		sess.close()
		return ErrLiveSessionActive
	}
	c.live = sess
	c.mu.Unlock()

	sess.wg.Add(2)
	go c.readLoop(sess)
	go sess.writeLoop()

	c.metrics.LiveSessions.Add(ctx, 1)
	slog.Debug("live transcription session opened", "language", cfg.Language, "model", cfg.Model)
	return nil
}

// liveURL builds the streaming endpoint URL with the session query parameters.
func (c *Client) liveURL(cfg LiveConfig) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/voice/transcribe/live"

	model := cfg.Model
	if model == "" {
		model = defaultLiveModel
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultLiveChunkSize
	}

	q := u.Query()
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	q.Set("enableRealTime", "true")
	q.Set("chunkSize", strconv.Itoa(chunkSize))
	q.Set("model", model)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SendChunk queues raw audio for the live socket. Chunks sent while no
// session is open are silently dropped — there is no backpressure signal.
func (c *Client) SendChunk(chunk []byte) {
	c.mu.Lock()
	sess := c.live
	c.mu.Unlock()

	if sess == nil || sess.State() != SessionOpen {
		c.metrics.DroppedChunks.Add(context.Background(), 1)
		return
	}
	select {
	case sess.audio <- chunk:
	case <-sess.done:
		c.metrics.DroppedChunks.Add(context.Background(), 1)
	default:
		// Send buffer full; drop rather than block the capture path.
		c.metrics.DroppedChunks.Add(context.Background(), 1)
	}
}

// StopLive closes the live session and clears the result callback.
// Idempotent: stopping with no open session is a no-op.
func (c *Client) StopLive() {
	c.mu.Lock()
	sess := c.live
	c.live = nil
	c.onResult = nil
	c.mu.Unlock()

	if sess == nil {
		return
	}
	sess.close()
	c.metrics.LiveSessions.Add(context.Background(), -1)
	slog.Debug("live transcription session closed")
}

// LiveState returns the current live session state, or [SessionClosed] when
// none is open.
func (c *Client) LiveState() SessionState {
	c.mu.Lock()
	sess := c.live
	c.mu.Unlock()
	if sess == nil {
		return SessionClosed
	}
	return sess.State()
}

// State returns the session's lifecycle state.
func (s *LiveSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *LiveSession) setState(st SessionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// close tears the socket down exactly once and waits for both loops to exit.
func (s *LiveSession) close() {
	s.once.Do(func() {
		s.setState(SessionClosing)
		close(s.done)
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
		s.wg.Wait()
		s.setState(SessionClosed)
	})
}

// writeLoop drains the audio channel into binary socket messages.
func (s *LiveSession) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case chunk := <-s.audio:
			if err := s.conn.Write(context.Background(), websocket.MessageBinary, chunk); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

// readLoop receives JSON messages from the socket and dispatches them to the
// registered callback. Malformed messages are dropped and logged — they never
// crash the channel or close the socket. A read failure forces the session
// closed; the caller must explicitly start a new one.
func (c *Client) readLoop(sess *LiveSession) {
	defer sess.wg.Done()
	for {
		_, msg, err := sess.conn.Read(context.Background())
		if err != nil {
			select {
			case <-sess.done:
				// Normal close.
			default:
				slog.Error("live socket read failed, session closed", "error", err)
				sess.setState(SessionClosed)
			}
			return
		}

		var result types.TranscriptionResult
		if err := json.Unmarshal(msg, &result); err != nil {
			slog.Warn("dropping malformed live message", "error", err)
			continue
		}

		c.mu.Lock()
		cb := c.onResult
		c.mu.Unlock()
		if cb != nil {
			c.metrics.LiveResults.Add(context.Background(), 1)
			cb(result)
		}
	}
}

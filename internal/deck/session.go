package deck

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openreel/deckbridge/internal/infrastructure/config"
	"github.com/openreel/deckbridge/internal/infrastructure/logging"
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// defaultProperties is the built-in set of property paths subscribed on the
// device event stream. Overridable via deck.properties in config.
var defaultProperties = []string{
	"/media/active",
	"/media/external",
	"/media/external/selected",
	"/media/nas/bookmarks",
	"/media/nas/discovered",
	"/media/workingset",
	"/system",
	"/system/codecFormat",
	"/system/product",
	"/system/supportedVideoFormats",
	"/system/videoFormat",
	"/timelines/0",
	"/timelines/0/defaultVideoFormat",
	"/timelines/0/videoFormat",
	"/transports/0",
	"/transports/0/clipIndex",
	"/transports/0/inputVideoFormat",
	"/transports/0/inputVideoSource",
	"/transports/0/play",
	"/transports/0/playback",
	"/transports/0/record",
	"/transports/0/stop",
	"/transports/0/timecode",
	"/transports/0/timecode/source",
}

// SessionState is the connection state of the upstream event session.
type SessionState int32

// Session states.
const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateSubscribed
)

// String returns the lowercase state name.
func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	default:
		return "disconnected"
	}
}

// Publisher receives normalized records from the session.
// Implementations must be safe for concurrent use and must not block for
// extended periods; the session delivers records from its single read loop.
type Publisher interface {
	Publish(record Record)
}

// SessionStats holds operational statistics for the upstream session.
type SessionStats struct {
	FramesRx         uint64
	FramesDropped    uint64 // frames that failed to parse
	RecordsPublished uint64
	ReconnectsTotal  uint64
	LastEventAt      time.Time
	Connected        bool
}

// subscribeRequest is the one-time handshake frame sent after connecting.
type subscribeRequest struct {
	Type string        `json:"type"`
	Data subscribeData `json:"data"`
}

type subscribeData struct {
	Action     string   `json:"action"`
	Properties []string `json:"properties"`
}

// eventFrame is the wire shape of an inbound event stream frame.
// Frames without a data.property (subscribe acks, heartbeats) carry a nil
// or empty Notification and are ignored.
type eventFrame struct {
	Data *Notification `json:"data"`
}

// Session owns the single long-lived WebSocket connection to the device
// event stream. It performs the subscribe handshake on connect, decodes
// inbound frames, normalizes them and hands the resulting records to the
// Publisher.
//
// Thread Safety: all methods are safe for concurrent use. Records are
// published from a single goroutine, preserving device event order.
//
// Auto-Reconnection: when the connection drops, the session reconnects with
// exponential backoff (deck.reconnect in config) until Close() is called or
// the Run context is cancelled.
type Session struct {
	cfg       config.DeckConfig
	url       string
	props     []string
	publisher Publisher
	logger    *logging.Logger
	dialer    *websocket.Dialer

	conn   *websocket.Conn
	connMu sync.Mutex

	state atomic.Int32

	done *closeOnce
	wg   sync.WaitGroup

	// Statistics (atomic for lock-free reads)
	framesRx         atomic.Uint64
	framesDropped    atomic.Uint64
	recordsPublished atomic.Uint64
	reconnectsTotal  atomic.Uint64
	lastEvent        atomic.Int64 // Unix timestamp
}

// NewSession creates a session for the configured device. Call Run to start.
func NewSession(cfg config.DeckConfig, publisher Publisher, logger *logging.Logger) *Session {
	props := cfg.Properties
	if len(props) == 0 {
		props = defaultProperties
	}

	return &Session{
		cfg:       cfg,
		url:       "ws://" + cfg.Host + cfg.EventPath,
		props:     props,
		publisher: publisher,
		logger:    logger,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.GetConnectTimeout(),
		},
		done: newCloseOnce(),
	}
}

// Run connects to the device event stream and processes frames until the
// context is cancelled or Close() is called. Connection drops trigger
// reconnection with exponential backoff; Run itself never returns an error
// for a lost connection.
func (s *Session) Run(ctx context.Context) {
	s.wg.Add(1)
	defer s.wg.Done()

	delay := s.cfg.GetReconnectInitialDelay()
	if delay <= 0 {
		delay = 5 * time.Second
	}
	maxDelay := s.cfg.GetReconnectMaxDelay()
	if maxDelay < delay {
		maxDelay = delay
	}

	attempts := 0
	for {
		if s.closed(ctx) {
			return
		}

		s.state.Store(int32(StateConnecting))
		conn, err := s.connect(ctx)
		if err != nil {
			s.state.Store(int32(StateDisconnected))
			if s.closed(ctx) {
				return
			}
			s.logWarn("event stream connect failed", "url", s.url, "error", err, "retry_in", delay.String())
			if !s.sleep(ctx, delay) {
				return
			}
			// Exponential backoff, capped
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
			continue
		}

		if attempts > 0 {
			s.reconnectsTotal.Add(1)
		}
		attempts++
		delay = s.cfg.GetReconnectInitialDelay()
		if delay <= 0 {
			delay = 5 * time.Second
		}

		s.state.Store(int32(StateSubscribed))
		s.logInfo("subscribed to device event stream", "url", s.url, "properties", len(s.props))

		s.readLoop(conn)

		s.state.Store(int32(StateDisconnected))
		if s.closed(ctx) {
			return
		}
		s.logWarn("event stream closed, reconnecting", "url", s.url)
	}
}

// connect dials the event endpoint and performs the subscribe handshake.
func (s *Session) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	sub := subscribeRequest{
		Type: "request",
		Data: subscribeData{
			Action:     "subscribe",
			Properties: s.props,
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, err
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	return conn, nil
}

// readLoop consumes frames until the connection fails or the session closes.
func (s *Session) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		select {
		case <-s.done.Done():
			return
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleFrame(raw)
	}
}

// handleFrame parses one inbound frame, normalizes it and publishes the
// resulting record. Malformed frames are dropped with a local diagnostic;
// they never tear down the session.
func (s *Session) handleFrame(raw []byte) {
	s.framesRx.Add(1)
	s.lastEvent.Store(time.Now().Unix())

	var frame eventFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.framesDropped.Add(1)
		s.logDebug("dropping malformed event frame", "error", err)
		return
	}

	// Frames without a property (subscribe acks, responses) are not
	// notifications.
	if frame.Data == nil || frame.Data.Property == "" {
		return
	}

	record := Normalize(*frame.Data)
	if len(record) == 0 {
		return
	}

	s.recordsPublished.Add(1)
	if s.publisher != nil {
		s.publisher.Publish(record)
	}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Stats returns a snapshot of the session statistics.
func (s *Session) Stats() SessionStats {
	stats := SessionStats{
		FramesRx:         s.framesRx.Load(),
		FramesDropped:    s.framesDropped.Load(),
		RecordsPublished: s.recordsPublished.Load(),
		ReconnectsTotal:  s.reconnectsTotal.Load(),
		Connected:        s.State() == StateSubscribed,
	}
	if ts := s.lastEvent.Load(); ts > 0 {
		stats.LastEventAt = time.Unix(ts, 0)
	}
	return stats
}

// Close shuts down the session and waits for the read loop to exit.
// Safe to call more than once.
func (s *Session) Close() error {
	s.done.Close()

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	s.state.Store(int32(StateDisconnected))
	return nil
}

// closed reports whether the session or its context is done.
func (s *Session) closed(ctx context.Context) bool {
	select {
	case <-s.done.Done():
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// sleep waits for d, returning false if the session closed meanwhile.
func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-s.done.Done():
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Session) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Session) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Session) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

package deck

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openreel/deckbridge/internal/infrastructure/config"
)

// capturePublisher collects published records and signals each arrival.
type capturePublisher struct {
	mu      sync.Mutex
	records []Record
	arrived chan struct{}
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{arrived: make(chan struct{}, 64)}
}

func (p *capturePublisher) Publish(record Record) {
	p.mu.Lock()
	p.records = append(p.records, record)
	p.mu.Unlock()
	p.arrived <- struct{}{}
}

func (p *capturePublisher) snapshot() []Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Record(nil), p.records...)
}

func (p *capturePublisher) waitFor(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-p.arrived:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for record %d of %d", i+1, n)
		}
	}
}

func TestHandleFrame(t *testing.T) {
	pub := newCapturePublisher()
	s := NewSession(config.DeckConfig{Host: "deck.local", EventPath: "/events"}, pub, nil)

	frames := []string{
		`{"data":{"property":"/transports/0/play","value":true}}`,
		`{not json at all`,
		`{"data":{"property":"/media/active","value":{"workingSetIndex":0}}}`,
		`{"type":"response","data":{"action":"subscribe"}}`,
		`{"data":{"property":"/transports/0/timecode","value":{"display":"10:00:00:01"}}}`,
	}
	for _, f := range frames {
		s.handleFrame([]byte(f))
	}

	got := pub.snapshot()
	if len(got) != 2 {
		t.Fatalf("published %d records %v, want 2", len(got), got)
	}
	if got[0]["playing"] != true {
		t.Errorf("record 0 = %v, want playing=true", got[0])
	}
	if got[1]["timecode"] != "10:00:00:01" {
		t.Errorf("record 1 = %v, want timecode=10:00:00:01", got[1])
	}

	stats := s.Stats()
	if stats.FramesRx != uint64(len(frames)) {
		t.Errorf("FramesRx = %d, want %d", stats.FramesRx, len(frames))
	}
	if stats.FramesDropped != 1 {
		t.Errorf("FramesDropped = %d, want 1", stats.FramesDropped)
	}
	if stats.RecordsPublished != 2 {
		t.Errorf("RecordsPublished = %d, want 2", stats.RecordsPublished)
	}
}

// stubEventStream is a fake device event endpoint.
type stubEventStream struct {
	mu         sync.Mutex
	upgrader   websocket.Upgrader
	subscribes []subscribeData
	conns      int
	frames     []string // frames written to the first connection
}

func (e *stubEventStream) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := e.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		e.mu.Lock()
		e.conns++
		first := e.conns == 1
		e.mu.Unlock()

		// Expect the subscribe handshake.
		var sub subscribeRequest
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		e.mu.Lock()
		e.subscribes = append(e.subscribes, sub.Data)
		e.mu.Unlock()

		if !first {
			// Keep reconnections open until the client goes away.
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}

		for _, f := range e.frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Close after the scripted frames; the session should reconnect.
	})
}

func TestSession_SubscribeAndPublish(t *testing.T) {
	stream := &stubEventStream{
		frames: []string{
			`{"data":{"property":"/transports/0/play","value":true}}`,
			`{"data":{"property":"/transports/0/clipIndex","value":2}}`,
		},
	}
	server := httptest.NewServer(stream.handler())
	defer server.Close()

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parsing stub URL: %v", err)
	}

	pub := newCapturePublisher()
	session := NewSession(config.DeckConfig{
		Host:           u.Host,
		EventPath:      "/",
		ConnectTimeout: 5,
		Reconnect:      config.DeckReconnectConfig{InitialDelay: 1, MaxDelay: 1},
	}, pub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go session.Run(ctx)
	defer session.Close()

	pub.waitFor(t, 2)

	got := pub.snapshot()
	if got[0]["playing"] != true {
		t.Errorf("record 0 = %v, want playing=true", got[0])
	}
	if got[1]["clipIndex"] != float64(2) {
		t.Errorf("record 1 = %v, want clipIndex=2", got[1])
	}

	// Subscribe handshake carried the default property list.
	stream.mu.Lock()
	subs := append([]subscribeData(nil), stream.subscribes...)
	stream.mu.Unlock()
	if len(subs) == 0 {
		t.Fatal("device never saw a subscribe request")
	}
	if subs[0].Action != "subscribe" {
		t.Errorf("subscribe action = %q, want subscribe", subs[0].Action)
	}
	if len(subs[0].Properties) != len(defaultProperties) {
		t.Errorf("subscribed to %d properties, want %d", len(subs[0].Properties), len(defaultProperties))
	}
}

func TestSession_ReconnectsAfterDrop(t *testing.T) {
	stream := &stubEventStream{
		frames: []string{`{"data":{"property":"/transports/0/stop","value":true}}`},
	}
	server := httptest.NewServer(stream.handler())
	defer server.Close()

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parsing stub URL: %v", err)
	}

	pub := newCapturePublisher()
	session := NewSession(config.DeckConfig{
		Host:           u.Host,
		EventPath:      "/",
		ConnectTimeout: 5,
		Reconnect:      config.DeckReconnectConfig{InitialDelay: 1, MaxDelay: 1},
	}, pub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go session.Run(ctx)
	defer session.Close()

	pub.waitFor(t, 1)

	// The stub closes the first connection after its scripted frame; the
	// session must dial again and resubscribe.
	deadline := time.After(5 * time.Second)
	for {
		stream.mu.Lock()
		conns := stream.conns
		stream.mu.Unlock()
		if conns >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("session never reconnected (connections = %d)", conns)
		case <-time.After(50 * time.Millisecond):
		}
	}

	if stats := session.Stats(); stats.ReconnectsTotal < 1 {
		t.Errorf("ReconnectsTotal = %d, want >= 1", stats.ReconnectsTotal)
	}
}

func TestSessionState_String(t *testing.T) {
	tests := []struct {
		state SessionState
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateSubscribed, "subscribed"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestSession_CloseIdempotent(t *testing.T) {
	s := NewSession(config.DeckConfig{Host: "deck.local", EventPath: "/events"}, nil, nil)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

// Guard: the custom property list from config must replace the default set.
func TestSession_PropertyOverride(t *testing.T) {
	s := NewSession(config.DeckConfig{
		Host:       "deck.local",
		EventPath:  "/events",
		Properties: []string{"/transports/0/play"},
	}, nil, nil)

	if len(s.props) != 1 || s.props[0] != "/transports/0/play" {
		t.Errorf("props = %v, want the configured override", s.props)
	}

	raw, err := json.Marshal(subscribeRequest{Type: "request", Data: subscribeData{Action: "subscribe", Properties: s.props}})
	if err != nil {
		t.Fatalf("marshal subscribe: %v", err)
	}
	want := `{"type":"request","data":{"action":"subscribe","properties":["/transports/0/play"]}}`
	if string(raw) != want {
		t.Errorf("subscribe frame = %s, want %s", raw, want)
	}
}

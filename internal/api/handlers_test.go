package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/openreel/deckbridge/internal/deck"
	"github.com/openreel/deckbridge/internal/infrastructure/config"
	"github.com/openreel/deckbridge/internal/infrastructure/logging"
)

// stubDevice records control requests and serves scripted responses.
type stubDevice struct {
	mu    sync.Mutex
	calls []string // "METHOD path"
}

func (d *stubDevice) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		d.calls = append(d.calls, r.Method+" "+r.URL.Path)
		d.mu.Unlock()

		switch r.URL.Path {
		case "/clips":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"clips":[{"clipUniqueId":1,"filePath":"intro.mp4"}]}`))
		case "/system/codecFormat":
			if r.Method == http.MethodPut {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"codec":"H.264","container":"MP4"}`))
		case "/transports/0/record":
			// Scripted rejection: no media inserted.
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"code":"noMedia","message":"no media inserted"}`))
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
}

func (d *stubDevice) callList() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// newTestAPI builds a full router backed by the stub device and serves it
// over httptest. Start() is intentionally not called; the hub is injected.
func newTestAPI(t *testing.T, device *httptest.Server) (*httptest.Server, *Server) {
	t.Helper()

	u, err := url.Parse(device.URL)
	if err != nil {
		t.Fatalf("parsing device URL: %v", err)
	}

	deckCfg := config.DeckConfig{
		Host:             u.Host,
		RequestTimeout:   5,
		SettleIntervalMS: 1,
		PlayPolicy:       config.PlayPolicyBestEffort,
	}
	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")
	proxy := deck.NewProxy(deckCfg, logger)
	wsCfg := config.WebSocketConfig{MaxMessageSize: 1024, PingInterval: 30, PongTimeout: 60, SendBufferSize: 8}
	hub := NewHub(wsCfg, logger)

	s, err := New(Deps{
		Config:    config.APIConfig{},
		WS:        wsCfg,
		Logger:    logger,
		Proxy:     proxy,
		Sequencer: deck.NewSequencer(proxy, deckCfg, logger),
		Hub:       hub,
		Relay:     NewStateRelay(hub, nil, nil, deckCfg.Host, logger),
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ts := httptest.NewServer(s.buildRouter())
	t.Cleanup(ts.Close)
	return ts, s
}

func decodeEnvelope(t *testing.T, resp *http.Response) deck.Response {
	t.Helper()
	defer resp.Body.Close()
	var env deck.Response
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	return env
}

func decodeError(t *testing.T, resp *http.Response) Error {
	t.Helper()
	defer resp.Body.Close()
	var apiErr Error
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return apiErr
}

func TestHandleGetProxy(t *testing.T) {
	device := httptest.NewServer((&stubDevice{}).handler())
	defer device.Close()
	ts, _ := newTestAPI(t, device)

	t.Run("missing path", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/get-proxy")
		if err != nil {
			t.Fatalf("GET error: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		if apiErr := decodeError(t, resp); apiErr.Code != ErrCodeInvalidRequest {
			t.Errorf("code = %q, want %q", apiErr.Code, ErrCodeInvalidRequest)
		}
	})

	t.Run("envelope round trip", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/get-proxy?path=/clips")
		if err != nil {
			t.Fatalf("GET error: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		env := decodeEnvelope(t, resp)
		if !env.OK || env.Status != http.StatusOK {
			t.Errorf("envelope = %+v, want ok with status 200", env)
		}
		if env.Method != http.MethodGet {
			t.Errorf("envelope method = %q, want GET", env.Method)
		}
	})
}

func TestHandlePostProxy(t *testing.T) {
	device := httptest.NewServer((&stubDevice{}).handler())
	defer device.Close()
	ts, _ := newTestAPI(t, device)

	post := func(body string) *http.Response {
		t.Helper()
		resp, err := http.Post(ts.URL+"/api/post-proxy", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST error: %v", err)
		}
		return resp
	}

	t.Run("invalid JSON", func(t *testing.T) {
		resp := post(`{not json`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		resp.Body.Close()
	})

	t.Run("method not allowed through proxy", func(t *testing.T) {
		resp := post(`{"path":"/clips","method":"DELETE"}`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		if apiErr := decodeError(t, resp); apiErr.Code != ErrCodeInvalidRequest {
			t.Errorf("code = %q, want %q", apiErr.Code, ErrCodeInvalidRequest)
		}
	})

	t.Run("device rejection passes through", func(t *testing.T) {
		resp := post(`{"path":"/transports/0/record","method":"POST"}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200 (rejection travels in envelope)", resp.StatusCode)
		}
		env := decodeEnvelope(t, resp)
		if env.OK || env.Status != http.StatusConflict {
			t.Errorf("envelope = %+v, want ok=false status=409", env)
		}
		body, ok := env.Body.(map[string]any)
		if !ok || body["code"] != "noMedia" {
			t.Errorf("envelope body = %v, want device diagnostics", env.Body)
		}
	})

	t.Run("default method is POST", func(t *testing.T) {
		resp := post(`{"path":"/transports/0/play"}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		env := decodeEnvelope(t, resp)
		if env.Method != http.MethodPost {
			t.Errorf("envelope method = %q, want POST", env.Method)
		}
	})
}

func TestUpstreamUnreachable(t *testing.T) {
	device := httptest.NewServer((&stubDevice{}).handler())
	ts, _ := newTestAPI(t, device)
	device.Close()

	resp, err := http.Get(ts.URL + "/api/get-proxy?path=/clips")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if apiErr := decodeError(t, resp); apiErr.Code != ErrCodeUpstreamUnreachable {
		t.Errorf("code = %q, want %q", apiErr.Code, ErrCodeUpstreamUnreachable)
	}
}

func TestHandlePlayClip(t *testing.T) {
	stub := &stubDevice{}
	device := httptest.NewServer(stub.handler())
	defer device.Close()
	ts, _ := newTestAPI(t, device)

	t.Run("happy path", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/play/7", "application/json", nil)
		if err != nil {
			t.Fatalf("POST error: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}

		var result deck.PlayResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decoding result: %v", err)
		}
		if result.Status != "playing" || result.ClipID != 7 {
			t.Errorf("result = %+v, want playing clip 7", result)
		}

		want := []string{"POST /timelines/0/clear", "POST /timelines/0", "POST /transports/0/play"}
		got := stub.callList()
		if len(got) != len(want) {
			t.Fatalf("device calls = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("device call %d = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("non-integer clip id", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/play/intro", "application/json", nil)
		if err != nil {
			t.Fatalf("POST error: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestConvenienceEndpoints(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		endpoint string
		body     string
		wantCall string
	}{
		{"play", http.MethodPost, "/api/play", "", "POST /transports/0/play"},
		{"stop", http.MethodPost, "/api/stop", "", "POST /transports/0/stop"},
		{"clips", http.MethodGet, "/api/clips", "", "GET /clips"},
		{"supported codecs", http.MethodGet, "/api/supported-codecs", "", "GET /system/supportedCodecFormats"},
		{"system info", http.MethodGet, "/api/system-info", "", "GET /system"},
		{"get codec format", http.MethodGet, "/api/codec-format", "", "GET /system/codecFormat"},
		{"set codec format", http.MethodPut, "/api/codec-format", `{"codec":"H.265"}`, "PUT /system/codecFormat"},
		{"get audio format", http.MethodGet, "/api/audio-record-format", "", "GET /audio/recordFormat"},
		{"set audio format", http.MethodPost, "/api/audio-record-format", `{"codec":"PCM","numChannels":2}`, "PUT /audio/recordFormat"},
		{"audio supported formats", http.MethodGet, "/api/audio-supported-record-formats", "", "GET /audio/supportedRecordFormats"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubDevice{}
			device := httptest.NewServer(stub.handler())
			defer device.Close()
			ts, _ := newTestAPI(t, device)

			var body *strings.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			} else {
				body = strings.NewReader("")
			}
			req, err := http.NewRequest(tt.method, ts.URL+tt.endpoint, body)
			if err != nil {
				t.Fatalf("building request: %v", err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("%s %s error: %v", tt.method, tt.endpoint, err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}

			calls := stub.callList()
			if len(calls) != 1 || calls[0] != tt.wantCall {
				t.Errorf("device calls = %v, want [%s]", calls, tt.wantCall)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	device := httptest.NewServer((&stubDevice{}).handler())
	defer device.Close()
	ts, _ := newTestAPI(t, device)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("health body = %v, want status=ok version=test", body)
	}
}

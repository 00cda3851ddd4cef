package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/openreel/deckbridge/internal/deck"
)

// postProxyRequest is the body accepted by POST /api/post-proxy.
type postProxyRequest struct {
	Path   string `json:"path"`
	Method string `json:"method"`
	Body   any    `json:"body"`
}

// deviceCall executes a proxied device request and writes the uniform
// response envelope.
//
// A device rejection is not an HTTP error here: the envelope goes back
// with OK false and the device's own status and body, so callers see the
// deck's diagnostics verbatim. Only transport and validation failures map
// to error responses.
func (s *Server) deviceCall(w http.ResponseWriter, r *http.Request, req deck.Request) {
	resp, err := s.proxy.Execute(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, deck.ErrInvalidRequest):
			writeInvalidRequest(w, err.Error())
		case errors.Is(err, deck.ErrUpstreamUnreachable):
			writeUpstreamUnreachable(w, err.Error())
		default:
			writeInternalError(w, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleGetProxy proxies an arbitrary GET to the device.
// The target path comes from the "path" query parameter.
func (s *Server) handleGetProxy(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeInvalidRequest(w, "path query parameter is required")
		return
	}

	s.deviceCall(w, r, deck.Request{Path: path, Method: http.MethodGet})
}

// handlePostProxy proxies an arbitrary mutating request to the device.
// Only POST and PUT are accepted; reads belong on get-proxy.
func (s *Server) handlePostProxy(w http.ResponseWriter, r *http.Request) {
	var req postProxyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodPost
	}
	if method != http.MethodPost && method != http.MethodPut {
		writeInvalidRequest(w, "method must be POST or PUT")
		return
	}

	s.deviceCall(w, r, deck.Request{Path: req.Path, Method: method, Body: req.Body})
}

// Transport shortcuts. Thin aliases over the proxy so UIs don't need to
// know device paths for the common buttons.

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.deviceCall(w, r, deck.Request{Path: "/transports/0/play", Method: http.MethodPost})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.deviceCall(w, r, deck.Request{Path: "/transports/0/stop", Method: http.MethodPost})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	s.deviceCall(w, r, deck.Request{Path: "/transports/0/record", Method: http.MethodPost})
}

// handlePlayClip runs the timeline sequence for a single clip: clear the
// timeline, wait for the deck to settle, set the plan, then play.
func (s *Server) handlePlayClip(w http.ResponseWriter, r *http.Request) {
	clipID, err := strconv.Atoi(chi.URLParam(r, "clipId"))
	if err != nil {
		writeInvalidRequest(w, "clipId must be an integer")
		return
	}

	result, err := s.sequencer.PlayClip(r.Context(), clipID)
	if err != nil {
		switch {
		case errors.Is(err, deck.ErrUpstreamUnreachable):
			writeUpstreamUnreachable(w, err.Error())
		case errors.Is(err, deck.ErrDeviceRejected):
			if s.relay != nil {
				s.relay.PlaybackEvent(clipID, false)
			}
			writeError(w, http.StatusConflict, "device_rejected", err.Error())
		default:
			writeInternalError(w, err.Error())
		}
		return
	}

	if s.relay != nil {
		s.relay.PlaybackEvent(clipID, true)
	}
	writeJSON(w, http.StatusOK, result)
}

// Media and capability reads.

func (s *Server) handleClips(w http.ResponseWriter, r *http.Request) {
	s.deviceCall(w, r, deck.Request{Path: "/clips", Method: http.MethodGet})
}

func (s *Server) handleSupportedCodecs(w http.ResponseWriter, r *http.Request) {
	s.deviceCall(w, r, deck.Request{Path: "/system/supportedCodecFormats", Method: http.MethodGet})
}

func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	s.deviceCall(w, r, deck.Request{Path: "/system", Method: http.MethodGet})
}

// Format configuration.

func (s *Server) handleGetCodecFormat(w http.ResponseWriter, r *http.Request) {
	s.deviceCall(w, r, deck.Request{Path: "/system/codecFormat", Method: http.MethodGet})
}

func (s *Server) handleSetCodecFormat(w http.ResponseWriter, r *http.Request) {
	var body any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	s.deviceCall(w, r, deck.Request{Path: "/system/codecFormat", Method: http.MethodPut, Body: body})
}

func (s *Server) handleGetAudioRecordFormat(w http.ResponseWriter, r *http.Request) {
	s.deviceCall(w, r, deck.Request{Path: "/audio/recordFormat", Method: http.MethodGet})
}

func (s *Server) handleSetAudioRecordFormat(w http.ResponseWriter, r *http.Request) {
	var body any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	s.deviceCall(w, r, deck.Request{Path: "/audio/recordFormat", Method: http.MethodPut, Body: body})
}

func (s *Server) handleAudioSupportedRecordFormats(w http.ResponseWriter, r *http.Request) {
	s.deviceCall(w, r, deck.Request{Path: "/audio/supportedRecordFormats", Method: http.MethodGet})
}

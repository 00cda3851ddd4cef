package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Generic control proxy
		r.Get("/get-proxy", s.handleGetProxy)
		r.Post("/post-proxy", s.handlePostProxy)

		// Transport shortcuts
		r.Post("/play", s.handlePlay)
		r.Post("/play/{clipId}", s.handlePlayClip)
		r.Post("/stop", s.handleStop)
		r.Post("/record", s.handleRecord)

		// Media and capability reads
		r.Get("/clips", s.handleClips)
		r.Get("/supported-codecs", s.handleSupportedCodecs)
		r.Get("/system-info", s.handleSystemInfo)

		// Format configuration
		r.Get("/codec-format", s.handleGetCodecFormat)
		r.Put("/codec-format", s.handleSetCodecFormat)
		r.Get("/audio-record-format", s.handleGetAudioRecordFormat)
		r.Post("/audio-record-format", s.handleSetAudioRecordFormat)
		r.Get("/audio-supported-record-formats", s.handleAudioSupportedRecordFormats)

		// Live state stream
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status, including the upstream
// event session state when a session is wired in.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"version": s.version,
	}
	if s.hub != nil {
		body["ws_clients"] = s.hub.ClientCount()
	}
	if s.session != nil {
		stats := s.session.Stats()
		body["deck"] = map[string]any{
			"session":           s.session.State().String(),
			"frames_rx":         stats.FramesRx,
			"frames_dropped":    stats.FramesDropped,
			"records_published": stats.RecordsPublished,
			"reconnects_total":  stats.ReconnectsTotal,
		}
	}
	writeJSON(w, http.StatusOK, body)
}

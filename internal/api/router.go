package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// buildRouter constructs the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/sensors", s.handleSensors)
		r.Get("/sensors/history", s.handleSensorHistory)

		r.Get("/devices", s.handleDevices)
		r.Post("/control", s.handleControl)
		r.Post("/voice-command", s.handleVoiceCommand)

		r.Route("/fridge", func(r chi.Router) {
			r.Get("/inventory", s.handleFridgeInventory)
			r.Post("/update", s.handleFridgeUpdate)
			r.Post("/upload-image", s.handleFridgeUploadImage)
			r.Get("/image/{filename}", s.handleFridgeImage)
		})

		r.Route("/face", func(r chi.Router) {
			r.Get("/recent", s.handleFaceRecent)
			r.Get("/known", s.handleFaceKnown)
			r.Post("/add-known", s.handleFaceAddKnown)
			r.Get("/stats", s.handleFaceStats)
		})
	})

	// WebSocket endpoint (outside /api, path from config)
	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = "/ws"
	}
	r.Get(wsPath, s.handleWebSocket)

	return r
}

// handleHealth returns the service health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"ws_clients": s.Hub().ClientCount(),
	})
}

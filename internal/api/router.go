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

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Get("/discovered", s.handleListDiscovered)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/scan", s.handleScan)

			r.Route("/{address}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Get("/history", s.handleDeviceHistory)
				r.Post("/connect", s.handleConnect)
				r.Post("/disconnect", s.handleDisconnect)
				r.Post("/toggle", s.handleToggle)
				r.Post("/pair", s.handlePair)
				r.Delete("/", s.handleForget)
			})
		})

		// WebSocket event stream
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleStatus returns a snapshot of the reconciler and hub state.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	known := s.reconciler.KnownDevices()
	connected := 0
	for i := range known {
		if known[i].Connected {
			connected++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"known":      len(known),
		"connected":  connected,
		"discovered": len(s.reconciler.DiscoveredDevices()),
		"scanning":   s.reconciler.Scanning(),
		"ws_clients": s.hub.ClientCount(),
	})
}

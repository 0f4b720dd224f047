package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sadesguy/eblu/internal/bluetooth"
)

// handleListDevices returns the known device list, fuzzy-filtered by the
// optional query.
//
// Query parameters:
//   - q: whitespace-separated search terms, matched as subsequences against
//     device name and type
//   - max: override for the empty-query display cap
//
// An empty query returns at most the display cap; a non-empty query returns
// every match without truncation.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	maxDevices := s.maxDevices
	if v := r.URL.Query().Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "max must be a positive integer")
			return
		}
		maxDevices = n
	}

	devices := s.reconciler.KnownDevices()
	filtered := bluetooth.FilterDevices(devices, query, maxDevices)

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": filtered,
		"count":   len(filtered),
		"total":   len(devices),
	})
}

// handleListDiscovered returns unpaired devices found by the last scan.
func (s *Server) handleListDiscovered(w http.ResponseWriter, _ *http.Request) {
	discovered := s.reconciler.DiscoveredDevices()
	writeJSON(w, http.StatusOK, map[string]any{
		"discovered": discovered,
		"count":      len(discovered),
	})
}

// handleGetDevice returns a single known device with its lifecycle state.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	dev, err := s.reconciler.Device(address)
	if err != nil {
		writeBluetoothError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device": dev,
		"state":  s.controller.StateOf(address),
	})
}

// handleDeviceHistory returns recent connection events for a device.
//
// Query parameters:
//   - limit: maximum number of entries to return
func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "history is not enabled")
		return
	}

	address := chi.URLParam(r, "address")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.history.History(r.Context(), address, limit)
	if err != nil {
		s.logger.Error("history query failed", "address", address, "error", err)
		writeInternalError(w, "failed to query history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"history": entries,
		"count":   len(entries),
	})
}

// handleRefresh re-fetches the paired snapshot and returns the reconciled list.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.reconciler.Refresh(r.Context()); err != nil {
		s.logger.Error("refresh failed", "error", err)
		writeBluetoothError(w, err)
		return
	}

	devices := s.reconciler.KnownDevices()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleScan runs a discovery scan and returns the devices it found.
// The request blocks for the configured scan duration; a concurrent scan
// request is rejected with 409.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	discovered, err := s.reconciler.Scan(r.Context())
	if err != nil {
		writeBluetoothError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"discovered": discovered,
		"count":      len(discovered),
	})
}

// handleConnect asks the device to connect. The confirmed state arrives with
// the follow-up snapshot refresh, broadcast to WebSocket subscribers.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	s.handleAction(w, r, "connect", s.controller.Connect)
}

// handleDisconnect asks the device to disconnect.
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.handleAction(w, r, "disconnect", s.controller.Disconnect)
}

// handleToggle connects or disconnects based on the device's current state.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.handleAction(w, r, "toggle", s.controller.Toggle)
}

// handleAction runs a connect-style controller action and writes the shared
// accepted response. The real state change is confirmed asynchronously.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request, verb string, action func(context.Context, string) error) {
	address := chi.URLParam(r, "address")

	if err := action(r.Context(), address); err != nil {
		writeBluetoothError(w, err)
		return
	}

	s.logger.Info("device action issued", "action", verb, "address", address)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "accepted",
		"message": "command issued, state update will follow via WebSocket",
	})
}

// handlePair pairs a discovered device and promotes it to the known list.
func (s *Server) handlePair(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	if err := s.controller.Pair(r.Context(), address); err != nil {
		writeBluetoothError(w, err)
		return
	}

	s.logger.Info("device paired", "address", address)
	writeJSON(w, http.StatusOK, map[string]any{"status": "paired"})
}

// ForgetRequest is the body for DELETE /devices/{address}.
type ForgetRequest struct {
	Confirm bool `json:"confirm"`
}

// handleForget unpairs a device. The request body must carry confirm: true;
// without it the request is rejected and no command is issued.
func (s *Server) handleForget(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	var req ForgetRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	if err := s.controller.Forget(r.Context(), address, req.Confirm); err != nil {
		writeBluetoothError(w, err)
		return
	}

	s.logger.Info("device forgotten", "address", address)
	w.WriteHeader(http.StatusNoContent)
}

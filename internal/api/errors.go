package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sadesguy/eblu/internal/bluetooth"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeToolFailure    = "tool_failure"
	ErrCodeScanInProgress = "scan_in_progress"
	ErrCodeConfirmation   = "confirmation_required"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeBluetoothError maps a bluetooth package error to the matching HTTP
// response. Errors with no sentinel mapping fall through to a 500.
func writeBluetoothError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bluetooth.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
	case errors.Is(err, bluetooth.ErrScanInProgress):
		writeError(w, http.StatusConflict, ErrCodeScanInProgress, "a scan is already in progress")
	case errors.Is(err, bluetooth.ErrConfirmationRequired):
		writeError(w, http.StatusConflict, ErrCodeConfirmation, "forget requires confirm: true")
	case errors.Is(err, bluetooth.ErrCommandFailed):
		writeError(w, http.StatusBadGateway, ErrCodeToolFailure, err.Error())
	case errors.Is(err, bluetooth.ErrToolUnavailable):
		writeError(w, http.StatusServiceUnavailable, ErrCodeToolFailure, err.Error())
	case errors.Is(err, bluetooth.ErrSourceUnparsable):
		writeError(w, http.StatusBadGateway, ErrCodeToolFailure, err.Error())
	default:
		writeInternalError(w, "internal server error")
	}
}

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dayli-app/dayli"
)

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError maps a gateway or storage error onto the response status.
// Unclassified errors become a plain 500 so internal details never reach
// the client.
func HandleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dayli.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, dayli.ErrForbidden):
		WriteError(w, http.StatusForbidden, "not allowed")
	case errors.Is(err, dayli.ErrRateLimited):
		WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
	case errors.Is(err, dayli.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dayli.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not found")
	default:
		slog.Error("request error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/auth"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/database"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/ratelimit"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// handleGuardError maps authentication and authorization failures to HTTP
// responses. Returns true if the error was handled.
func handleGuardError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		http.Error(w, "Authentication required", http.StatusUnauthorized)
	case errors.Is(err, auth.ErrNotOwner):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, database.ErrAlertNotFound):
		http.Error(w, "Alert not found", http.StatusNotFound)
	default:
		slog.Error("Authorization check failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
	return true
}

// handleRateLimit maps a rate limit rejection to 429 with a Retry-After
// header. Returns true if the request was throttled.
func (h *Handlers) handleRateLimit(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}
	h.metrics.RecordThrottled()
	var rlErr *ratelimit.Error
	if errors.As(err, &rlErr) {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rlErr.RetryAfter.Seconds())+1))
	}
	http.Error(w, "Too many requests", http.StatusTooManyRequests)
	return true
}

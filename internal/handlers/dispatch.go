package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/database"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/events"
)

// DispatchRequest represents a request to run a notification wave for an
// existing alert.
type DispatchRequest struct {
	AlertID  string         `json:"alert_id"`
	Wave     string         `json:"wave"`
	Contacts []ContactInput `json:"contacts"`
}

// DispatchAlert runs one notification wave for an alert the caller owns.
// Partial channel failures come back in a 200 aggregate; only pre-flight
// rejections and systemic store failures are error responses.
func (h *Handlers) DispatchAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	subject, err := h.guard.Authenticate(r)
	if handleGuardError(w, err) {
		return
	}
	if h.handleRateLimit(w, h.limiter.Allow(r.Context(), subject)) {
		return
	}

	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.AlertID == "" {
		http.Error(w, "alert_id is required", http.StatusBadRequest)
		return
	}
	if !validateWave(w, req.Wave) {
		return
	}
	contacts, ok := validateContacts(w, subject, req.Contacts)
	if !ok {
		return
	}

	ctx := r.Context()
	alert, err := h.guard.AuthorizeAlert(ctx, subject, req.AlertID)
	if handleGuardError(w, err) {
		return
	}
	if alert.Status == database.StatusResolved {
		http.Error(w, "Alert already resolved", http.StatusConflict)
		return
	}

	result, err := h.dispatcher.DispatchWave(ctx, alert, req.Wave, contacts)
	if err != nil {
		slog.Error("Dispatch failed", "alert_id", req.AlertID, "wave", req.Wave, "error", err)
		http.Error(w, "Dispatch failed", http.StatusServiceUnavailable)
		return
	}

	h.publishLifecycle(ctx, events.TypeDispatchCompleted, alert, req.Wave, result)

	writeJSON(w, http.StatusOK, result)
}

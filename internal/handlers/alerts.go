package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/database"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/dispatch"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/events"
)

// CreateAlertRequest represents a request to raise an alert.
type CreateAlertRequest struct {
	EmergencyType string         `json:"emergency_type"`
	Situation     string         `json:"situation"`
	Latitude      float64        `json:"latitude"`
	Longitude     float64        `json:"longitude"`
	Contacts      []ContactInput `json:"contacts"`
	EvidenceRefs  []string       `json:"evidence_refs"`
}

// CreateAlertResponse is the alert plus the initial dispatch outcome.
type CreateAlertResponse struct {
	Alert    *database.Alert  `json:"alert"`
	Dispatch *dispatch.Result `json:"dispatch"`
}

// CreateAlert raises a new alert and immediately runs the initial
// notification wave against the contacts supplied in the request.
func (h *Handlers) CreateAlert(w http.ResponseWriter, r *http.Request) {
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

	var req CreateAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !validateAlertContent(w, req.EmergencyType, req.Situation, req.Latitude, req.Longitude) {
		return
	}
	if !validateEvidenceRefs(w, req.EvidenceRefs) {
		return
	}
	contacts, ok := validateContacts(w, subject, req.Contacts)
	if !ok {
		return
	}

	ctx := r.Context()
	alert, err := h.db.CreateAlert(ctx, subject, req.EmergencyType, req.Situation, req.Latitude, req.Longitude, req.EvidenceRefs)
	if err != nil {
		slog.Error("Failed to create alert", "owner_id", subject, "error", err)
		http.Error(w, "Alert store unavailable", http.StatusServiceUnavailable)
		return
	}

	h.publishLifecycle(ctx, events.TypeAlertCreated, alert, "", nil)

	result, err := h.dispatcher.DispatchWave(ctx, alert, "initial", contacts)
	if err != nil {
		slog.Error("Initial dispatch failed", "alert_id", alert.AlertID, "error", err)
		http.Error(w, "Dispatch failed", http.StatusServiceUnavailable)
		return
	}
	h.publishLifecycle(ctx, events.TypeDispatchCompleted, alert, "initial", result)

	writeJSON(w, http.StatusCreated, CreateAlertResponse{Alert: alert, Dispatch: result})
}

// ResolveAlertRequest represents a request to resolve an alert.
type ResolveAlertRequest struct {
	AlertID string `json:"alert_id"`
}

// ResolveAlertResponse reports the resolve outcome. Resolved is false when
// the alert was already resolved; that is a no-op, not an error.
type ResolveAlertResponse struct {
	AlertID  string `json:"alert_id"`
	Status   string `json:"status"`
	Resolved bool   `json:"resolved"`
}

// ResolveAlert transitions an alert to resolved. Resolving an already
// resolved alert succeeds without effect.
func (h *Handlers) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	subject, err := h.guard.Authenticate(r)
	if handleGuardError(w, err) {
		return
	}

	var req ResolveAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.AlertID == "" {
		http.Error(w, "alert_id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	alert, err := h.guard.AuthorizeAlert(ctx, subject, req.AlertID)
	if handleGuardError(w, err) {
		return
	}

	applied, err := h.db.Resolve(ctx, req.AlertID)
	if err != nil {
		if errors.Is(err, database.ErrAlertNotFound) {
			http.Error(w, "Alert not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to resolve alert", "alert_id", req.AlertID, "error", err)
		http.Error(w, "Alert store unavailable", http.StatusServiceUnavailable)
		return
	}

	if applied {
		alert.Status = database.StatusResolved
		h.publishLifecycle(ctx, events.TypeAlertResolved, alert, "", nil)
		slog.Info("Alert resolved", "alert_id", req.AlertID, "owner_id", subject)
	}

	writeJSON(w, http.StatusOK, ResolveAlertResponse{
		AlertID:  req.AlertID,
		Status:   database.StatusResolved,
		Resolved: applied,
	})
}

// GetAlert retrieves an alert by ID. Owner only.
func (h *Handlers) GetAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	subject, err := h.guard.Authenticate(r)
	if handleGuardError(w, err) {
		return
	}

	alertID := r.URL.Query().Get("alert_id")
	if alertID == "" {
		http.Error(w, "alert_id query parameter is required", http.StatusBadRequest)
		return
	}

	alert, err := h.guard.AuthorizeAlert(r.Context(), subject, alertID)
	if handleGuardError(w, err) {
		return
	}

	writeJSON(w, http.StatusOK, alert)
}

// publishLifecycle emits an alert lifecycle event. Publish failures are
// logged, never surfaced to the caller.
func (h *Handlers) publishLifecycle(ctx context.Context, eventType string, alert *database.Alert, wave string, result *dispatch.Result) {
	event := &events.AlertEvent{
		EventType:     eventType,
		AlertID:       alert.AlertID,
		OwnerID:       alert.OwnerID,
		EmergencyType: alert.EmergencyType,
		Status:        alert.Status,
		Wave:          wave,
		OccurredAt:    time.Now().Unix(),
		SchemaVersion: events.SchemaVersion,
	}
	if result != nil {
		event.Sent = result.EmailSent + result.SMSSent
		event.Failed = result.EmailFailed + result.SMSFailed
		event.Skipped = result.Skipped
	}
	if err := h.publisher.Publish(ctx, event); err != nil {
		slog.Error("Failed to publish lifecycle event",
			"alert_id", alert.AlertID, "event_type", eventType, "error", err)
	}
}

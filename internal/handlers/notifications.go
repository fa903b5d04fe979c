package handlers

import (
	"log/slog"
	"net/http"

	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/database"
)

// NotificationListResponse is the ledger audit trail for one alert.
type NotificationListResponse struct {
	AlertID string                         `json:"alert_id"`
	Records []*database.NotificationRecord `json:"records"`
	Total   int                            `json:"total"`
}

// ListNotifications returns the notification ledger entries for an alert the
// caller owns, oldest first.
func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
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

	ctx := r.Context()
	if _, err := h.guard.AuthorizeAlert(ctx, subject, alertID); handleGuardError(w, err) {
		return
	}

	records, err := h.db.ListByAlert(ctx, alertID)
	if err != nil {
		slog.Error("Failed to list notifications", "alert_id", alertID, "error", err)
		http.Error(w, "Ledger unavailable", http.StatusServiceUnavailable)
		return
	}
	if records == nil {
		records = []*database.NotificationRecord{}
	}

	writeJSON(w, http.StatusOK, NotificationListResponse{
		AlertID: alertID,
		Records: records,
		Total:   len(records),
	})
}

// Package database provides Postgres operations for the alerts, contacts,
// and notification_log tables.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Alert status values. Transitions are one-directional: an active alert may
// become resolved or escalated, an escalated alert may only become resolved,
// and nothing ever leaves resolved.
const (
	StatusActive    = "active"
	StatusResolved  = "resolved"
	StatusEscalated = "escalated"
)

// Alert represents an alert record in the database.
type Alert struct {
	AlertID       string
	OwnerID       string
	EmergencyType string
	Situation     string
	Latitude      float64
	Longitude     float64
	Status        string
	EvidenceRefs  []string
	CreatedAt     time.Time
	ResolvedAt    *time.Time
}

const alertColumns = `alert_id, owner_id, emergency_type, situation, latitude, longitude, status, evidence_refs, created_at, resolved_at`

// scanAlert scans one alert row from a row scanner.
func scanAlert(row interface{ Scan(...interface{}) error }) (*Alert, error) {
	var alert Alert
	var resolvedAt sql.NullTime
	err := row.Scan(
		&alert.AlertID,
		&alert.OwnerID,
		&alert.EmergencyType,
		&alert.Situation,
		&alert.Latitude,
		&alert.Longitude,
		&alert.Status,
		pq.Array(&alert.EvidenceRefs),
		&alert.CreatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}
	return &alert, nil
}

// CreateAlert creates a new alert with status active.
func (db *DB) CreateAlert(ctx context.Context, ownerID, emergencyType, situation string, latitude, longitude float64, evidenceRefs []string) (*Alert, error) {
	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, 'active', $7, NOW(), NULL)
		RETURNING ` + alertColumns + `
	`
	if evidenceRefs == nil {
		evidenceRefs = []string{}
	}
	alertID := uuid.NewString()
	row := db.conn.QueryRowContext(ctx, query, alertID, ownerID, emergencyType, situation, latitude, longitude, pq.Array(evidenceRefs))
	alert, err := scanAlert(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	slog.Info("Created alert",
		"alert_id", alert.AlertID,
		"owner_id", alert.OwnerID,
		"emergency_type", alert.EmergencyType,
	)
	return alert, nil
}

// GetAlert retrieves an alert by ID.
func (db *DB) GetAlert(ctx context.Context, alertID string) (*Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE alert_id = $1
	`
	alert, err := scanAlert(db.conn.QueryRowContext(ctx, query, alertID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrAlertNotFound, alertID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

// Resolve transitions an alert to resolved and stamps resolved_at. The update
// is conditional on the current status being active or escalated, so a
// concurrent escalation cannot be overwritten with a stale state.
// Returns (true, nil) when the transition was applied, (false, nil) when the
// alert is already resolved (a no-op, not an error), and ErrAlertNotFound
// when the alert does not exist.
func (db *DB) Resolve(ctx context.Context, alertID string) (bool, error) {
	query := `
		UPDATE alerts
		SET status = 'resolved', resolved_at = NOW()
		WHERE alert_id = $1 AND status IN ('active', 'escalated')
	`
	result, err := db.conn.ExecContext(ctx, query, alertID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve alert: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		slog.Info("Resolved alert", "alert_id", alertID)
		return true, nil
	}

	// The guarded update matched nothing: either the alert is already
	// resolved or it does not exist. Look it up to tell the two apart.
	alert, err := db.GetAlert(ctx, alertID)
	if err != nil {
		return false, err
	}
	slog.Debug("Resolve is a no-op, alert already resolved",
		"alert_id", alertID,
		"status", alert.Status,
	)
	return false, nil
}

// Escalate transitions an alert from active to escalated, conditional on the
// alert having been created at least threshold ago. Returns (false, nil) when
// the condition no longer holds, e.g. the alert was concurrently resolved or
// is younger than the threshold. The single guarded update guarantees exactly
// one winner between a user resolving and the poller escalating.
func (db *DB) Escalate(ctx context.Context, alertID string, threshold time.Duration) (bool, error) {
	query := `
		UPDATE alerts
		SET status = 'escalated'
		WHERE alert_id = $1
		  AND status = 'active'
		  AND created_at <= NOW() - ($2 * INTERVAL '1 second')
	`
	result, err := db.conn.ExecContext(ctx, query, alertID, threshold.Seconds())
	if err != nil {
		return false, fmt.Errorf("failed to escalate alert: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, nil
	}

	slog.Info("Escalated alert", "alert_id", alertID, "threshold", threshold)
	return true, nil
}

// ListOverdueActive returns all alerts that are still active and older than
// the escalation threshold, oldest first.
func (db *DB) ListOverdueActive(ctx context.Context, threshold time.Duration) ([]*Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE status = 'active'
		  AND created_at <= NOW() - ($1 * INTERVAL '1 second')
		ORDER BY created_at ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, threshold.Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return alerts, nil
}

package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Notification outcomes recorded in the ledger.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// NotificationRecord is an append-only ledger entry for one notification
// attempt. The (alert_id, contact_id, channel, wave) tuple is the dedup key:
// a partial unique index on rows with outcome = 'success' guarantees at most
// one successful entry per key. Failed entries are not a dedup barrier, so a
// retried wave may re-attempt previously failed sends.
//
//	CREATE UNIQUE INDEX notification_log_success_key
//	ON notification_log (alert_id, contact_id, channel, wave)
//	WHERE outcome = 'success';
type NotificationRecord struct {
	RecordID    string
	AlertID     string
	ContactID   string
	Channel     string
	Wave        string
	Outcome     string
	ErrorDetail string
	SentAt      time.Time
}

// HasSuccess reports whether a successful notification has already been
// recorded for the dedup key.
func (db *DB) HasSuccess(ctx context.Context, alertID, contactID, channel, wave string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notification_log
			WHERE alert_id = $1 AND contact_id = $2 AND channel = $3 AND wave = $4
			  AND outcome = 'success'
		)
	`
	var exists bool
	if err := db.conn.QueryRowContext(ctx, query, alertID, contactID, channel, wave).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check notification ledger: %w", err)
	}
	return exists, nil
}

// Record appends a notification outcome to the ledger. Returns (false, nil)
// when a successful entry for the same dedup key already exists; the write is
// rejected rather than overwritten, which makes the last concurrent writer
// for the same key lose deterministically.
func (db *DB) Record(ctx context.Context, rec *NotificationRecord) (bool, error) {
	query := `
		INSERT INTO notification_log (record_id, alert_id, contact_id, channel, wave, outcome, error_detail, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NOW())
		ON CONFLICT (alert_id, contact_id, channel, wave) WHERE outcome = 'success'
		DO NOTHING
	`
	if rec.RecordID == "" {
		rec.RecordID = uuid.NewString()
	}
	result, err := db.conn.ExecContext(ctx, query,
		rec.RecordID, rec.AlertID, rec.ContactID, rec.Channel, rec.Wave, rec.Outcome, rec.ErrorDetail)
	if err != nil {
		return false, fmt.Errorf("failed to record notification: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		slog.Debug("Duplicate success entry rejected by ledger",
			"alert_id", rec.AlertID,
			"contact_id", rec.ContactID,
			"channel", rec.Channel,
			"wave", rec.Wave,
		)
		return false, nil
	}
	return true, nil
}

// ListByAlert returns the full notification audit trail for an alert, oldest
// first.
func (db *DB) ListByAlert(ctx context.Context, alertID string) ([]*NotificationRecord, error) {
	query := `
		SELECT record_id, alert_id, contact_id, channel, wave, outcome, COALESCE(error_detail, ''), sent_at
		FROM notification_log
		WHERE alert_id = $1
		ORDER BY sent_at ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var records []*NotificationRecord
	for rows.Next() {
		var rec NotificationRecord
		if err := rows.Scan(
			&rec.RecordID,
			&rec.AlertID,
			&rec.ContactID,
			&rec.Channel,
			&rec.Wave,
			&rec.Outcome,
			&rec.ErrorDetail,
			&rec.SentAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification record: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification records: %w", err)
	}
	return records, nil
}

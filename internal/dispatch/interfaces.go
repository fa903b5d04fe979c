package dispatch

import (
	"context"

	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/database"
)

// ContactSource resolves the contacts to notify for an alert owner.
type ContactSource interface {
	ListContactsByOwner(ctx context.Context, ownerID string) ([]*database.Contact, error)
}

// Ledger records notification outcomes and answers dedup queries.
type Ledger interface {
	HasSuccess(ctx context.Context, alertID, contactID, channel, wave string) (bool, error)
	Record(ctx context.Context, rec *database.NotificationRecord) (bool, error)
}

// Package handlers provides HTTP handlers for the alert API.
package handlers

import (
	"context"
	"net/http"

	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/database"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/dispatch"
)

// Repository defines the interface for database operations.
// This allows handlers to be tested without a real database.
type Repository interface {
	CreateAlert(ctx context.Context, ownerID, emergencyType, situation string, latitude, longitude float64, evidenceRefs []string) (*database.Alert, error)
	GetAlert(ctx context.Context, alertID string) (*database.Alert, error)
	Resolve(ctx context.Context, alertID string) (bool, error)
	ListByAlert(ctx context.Context, alertID string) ([]*database.NotificationRecord, error)
}

// Authenticator verifies the caller's identity and alert ownership.
type Authenticator interface {
	// Authenticate extracts and verifies the bearer token, returning the
	// caller's subject.
	Authenticate(r *http.Request) (string, error)

	// AuthorizeAlert loads the alert and verifies the subject owns it.
	AuthorizeAlert(ctx context.Context, subject, alertID string) (*database.Alert, error)
}

// RateLimiter gates dispatch-triggering requests per caller.
type RateLimiter interface {
	Allow(ctx context.Context, key string) error
}

// WaveDispatcher sends one notification wave for an alert.
type WaveDispatcher interface {
	DispatchWave(ctx context.Context, alert *database.Alert, wave string, contacts []*database.Contact) (*dispatch.Result, error)
}

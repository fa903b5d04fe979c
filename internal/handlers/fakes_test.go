package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/auth"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/database"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/dispatch"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/events"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/ratelimit"
)

type fakeRepo struct {
	alerts    map[string]*database.Alert
	records   []*database.NotificationRecord
	createErr error
	listErr   error
}

func newFakeRepo(alerts ...*database.Alert) *fakeRepo {
	r := &fakeRepo{alerts: make(map[string]*database.Alert)}
	for _, a := range alerts {
		r.alerts[a.AlertID] = a
	}
	return r
}

func (f *fakeRepo) CreateAlert(ctx context.Context, ownerID, emergencyType, situation string, latitude, longitude float64, evidenceRefs []string) (*database.Alert, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	a := &database.Alert{
		AlertID:       "alert-new",
		OwnerID:       ownerID,
		EmergencyType: emergencyType,
		Situation:     situation,
		Latitude:      latitude,
		Longitude:     longitude,
		Status:        database.StatusActive,
		EvidenceRefs:  evidenceRefs,
	}
	f.alerts[a.AlertID] = a
	return a, nil
}

func (f *fakeRepo) GetAlert(ctx context.Context, alertID string) (*database.Alert, error) {
	a, ok := f.alerts[alertID]
	if !ok {
		return nil, database.ErrAlertNotFound
	}
	return a, nil
}

func (f *fakeRepo) Resolve(ctx context.Context, alertID string) (bool, error) {
	a, ok := f.alerts[alertID]
	if !ok {
		return false, database.ErrAlertNotFound
	}
	if a.Status == database.StatusResolved {
		return false, nil
	}
	a.Status = database.StatusResolved
	return true, nil
}

func (f *fakeRepo) ListByAlert(ctx context.Context, alertID string) ([]*database.NotificationRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.records, nil
}

// fakeGuard authenticates "Bearer good-token" as user-1 and enforces
// ownership against the repo.
type fakeGuard struct {
	repo *fakeRepo
}

func (g *fakeGuard) Authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", auth.ErrUnauthenticated
	}
	switch strings.TrimPrefix(header, "Bearer ") {
	case "good-token":
		return "user-1", nil
	case "other-token":
		return "user-2", nil
	default:
		return "", auth.ErrUnauthenticated
	}
}

func (g *fakeGuard) AuthorizeAlert(ctx context.Context, subject, alertID string) (*database.Alert, error) {
	a, err := g.repo.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if a.OwnerID != subject {
		return nil, auth.ErrNotOwner
	}
	return a, nil
}

type fakeLimiter struct {
	err   error
	calls int
	keys  []string
}

func (l *fakeLimiter) Allow(ctx context.Context, key string) error {
	l.calls++
	l.keys = append(l.keys, key)
	return l.err
}

type fakeDispatcher struct {
	result   *dispatch.Result
	err      error
	calls    int
	lastWave string
	contacts []*database.Contact
}

func (d *fakeDispatcher) DispatchWave(ctx context.Context, alert *database.Alert, wave string, contacts []*database.Contact) (*dispatch.Result, error) {
	d.calls++
	d.lastWave = wave
	d.contacts = contacts
	if d.err != nil {
		return nil, d.err
	}
	if d.result != nil {
		return d.result, nil
	}
	return &dispatch.Result{AlertID: alert.AlertID, Wave: wave}, nil
}

type fakePublisher struct {
	events []*events.AlertEvent
}

func (p *fakePublisher) Publish(ctx context.Context, event *events.AlertEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func throttledErr() error {
	return &ratelimit.Error{Limit: 10, Window: time.Minute, RetryAfter: 30 * time.Second}
}

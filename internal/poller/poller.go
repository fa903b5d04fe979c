// Package poller handles periodic escalation of overdue active alerts.
package poller

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/database"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/dispatch"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/events"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/metrics"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/producer"
)

// AlertStore is the alert state the poller reads and transitions.
type AlertStore interface {
	ListOverdueActive(ctx context.Context, threshold time.Duration) ([]*database.Alert, error)
	Escalate(ctx context.Context, alertID string, threshold time.Duration) (bool, error)
}

// WaveDispatcher sends one notification wave for an alert.
type WaveDispatcher interface {
	DispatchWave(ctx context.Context, alert *database.Alert, wave string, contacts []*database.Contact) (*dispatch.Result, error)
}

// Poller escalates active alerts that stay unresolved past the threshold and
// triggers the escalated notification wave for each one.
type Poller struct {
	alerts     AlertStore
	dispatcher WaveDispatcher
	publisher  producer.Publisher
	metrics    metrics.Recorder
	interval   time.Duration
	threshold  time.Duration

	running atomic.Bool
}

// NewPoller creates a poller with the given dependencies.
func NewPoller(alerts AlertStore, dispatcher WaveDispatcher, publisher producer.Publisher, recorder metrics.Recorder, interval, threshold time.Duration) *Poller {
	if publisher == nil {
		publisher = producer.NoOp{}
	}
	if recorder == nil {
		recorder = &metrics.NoOp{}
	}
	return &Poller{
		alerts:     alerts,
		dispatcher: dispatcher,
		publisher:  publisher,
		metrics:    recorder,
		interval:   interval,
		threshold:  threshold,
	}
}

// Start begins the escalation loop in a background goroutine.
// The goroutine exits when ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	slog.Info("Starting escalation poller",
		"interval", p.interval,
		"threshold", p.threshold,
	)
	go p.pollLoop(ctx)
}

func (p *Poller) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Escalation poller stopped")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one escalation sweep. A sweep still in progress makes the next
// tick a no-op, so a slow dispatch never stacks sweeps.
func (p *Poller) Tick(ctx context.Context) {
	if !p.running.CompareAndSwap(false, true) {
		slog.Warn("Previous escalation sweep still running, skipping tick")
		return
	}
	defer p.running.Store(false)

	overdue, err := p.alerts.ListOverdueActive(ctx, p.threshold)
	if err != nil {
		slog.Error("Failed to list overdue alerts", "error", err)
		return
	}
	if len(overdue) == 0 {
		return
	}

	slog.Info("Escalation sweep found overdue alerts", "count", len(overdue))

	for _, alert := range overdue {
		// Alerts are escalated independently; one failure must not block
		// the rest of the sweep.
		p.escalateOne(ctx, alert)
	}
}

// escalateOne transitions a single alert to escalated and dispatches the
// escalated wave. The guarded update makes concurrent sweeps and concurrent
// resolves safe: exactly one actor wins the transition.
func (p *Poller) escalateOne(ctx context.Context, alert *database.Alert) {
	applied, err := p.alerts.Escalate(ctx, alert.AlertID, p.threshold)
	if err != nil {
		slog.Error("Failed to escalate alert", "alert_id", alert.AlertID, "error", err)
		return
	}
	if !applied {
		// Resolved or already escalated since the list query.
		slog.Info("Alert no longer eligible for escalation", "alert_id", alert.AlertID)
		return
	}

	alert.Status = database.StatusEscalated
	p.metrics.RecordEscalated()
	slog.Info("Alert escalated",
		"alert_id", alert.AlertID,
		"owner_id", alert.OwnerID,
		"created_at", alert.CreatedAt,
	)

	if err := p.publisher.Publish(ctx, &events.AlertEvent{
		EventType:     events.TypeAlertEscalated,
		AlertID:       alert.AlertID,
		OwnerID:       alert.OwnerID,
		EmergencyType: alert.EmergencyType,
		Status:        database.StatusEscalated,
		OccurredAt:    time.Now().Unix(),
		SchemaVersion: events.SchemaVersion,
	}); err != nil {
		slog.Error("Failed to publish escalation event", "alert_id", alert.AlertID, "error", err)
	}

	result, err := p.dispatcher.DispatchWave(ctx, alert, "escalated", nil)
	if err != nil {
		slog.Error("Escalated wave dispatch failed", "alert_id", alert.AlertID, "error", err)
		return
	}

	if err := p.publisher.Publish(ctx, &events.AlertEvent{
		EventType:     events.TypeDispatchCompleted,
		AlertID:       alert.AlertID,
		OwnerID:       alert.OwnerID,
		EmergencyType: alert.EmergencyType,
		Status:        database.StatusEscalated,
		Wave:          "escalated",
		Sent:          result.EmailSent + result.SMSSent,
		Failed:        result.EmailFailed + result.SMSFailed,
		Skipped:       result.Skipped,
		OccurredAt:    time.Now().Unix(),
		SchemaVersion: events.SchemaVersion,
	}); err != nil {
		slog.Error("Failed to publish dispatch event", "alert_id", alert.AlertID, "error", err)
	}
}

package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/channel"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/database"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/metrics"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/retry"
)

const (
	// defaultSendTimeout bounds a single channel send, retries included.
	defaultSendTimeout = 5 * time.Second
	// defaultMaxInFlight bounds concurrent sends per dispatch.
	defaultMaxInFlight = 8
)

// Detail describes the outcome of a single contact/channel attempt.
type Detail struct {
	ContactID   string `json:"contact_id"`
	ContactName string `json:"contact_name"`
	Channel     string `json:"channel"`
	Outcome     string `json:"outcome"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

// Result aggregates the outcomes of one dispatch wave.
type Result struct {
	AlertID     string   `json:"alert_id"`
	Wave        string   `json:"wave"`
	EmailSent   int      `json:"email_sent"`
	EmailFailed int      `json:"email_failed"`
	SMSSent     int      `json:"sms_sent"`
	SMSFailed   int      `json:"sms_failed"`
	Skipped     int      `json:"skipped"`
	Details     []Detail `json:"details"`
}

// Dispatcher fans an alert out to the owner's contacts over every applicable
// channel, deduplicating against the notification ledger.
type Dispatcher struct {
	contacts    ContactSource
	ledger      Ledger
	channels    *channel.Registry
	metrics     metrics.Recorder
	retryConfig retry.Config
	sendTimeout time.Duration
	maxInFlight int
}

// NewDispatcher creates a dispatcher with default timeout and concurrency.
func NewDispatcher(contacts ContactSource, ledger Ledger, channels *channel.Registry, recorder metrics.Recorder) *Dispatcher {
	if recorder == nil {
		recorder = &metrics.NoOp{}
	}
	return &Dispatcher{
		contacts:    contacts,
		ledger:      ledger,
		channels:    channels,
		metrics:     recorder,
		retryConfig: retry.DefaultConfig(),
		sendTimeout: defaultSendTimeout,
		maxInFlight: defaultMaxInFlight,
	}
}

// SetSendTimeout sets the per-send deadline.
func (d *Dispatcher) SetSendTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.sendTimeout = timeout
	}
}

// SetMaxInFlight sets the concurrent send limit.
func (d *Dispatcher) SetMaxInFlight(n int) {
	if n > 0 {
		d.maxInFlight = n
	}
}

// DispatchWave notifies every applicable contact/channel pair for the alert.
// When contacts is nil they are resolved from the alert owner's contact list.
// A send that already succeeded for the same alert, contact, channel and wave
// is skipped. Individual send failures are recorded in the result, not
// returned as errors; the returned error covers systemic failures only.
func (d *Dispatcher) DispatchWave(ctx context.Context, alert *database.Alert, wave string, contacts []*database.Contact) (*Result, error) {
	if contacts == nil {
		var err error
		contacts, err = d.contacts.ListContactsByOwner(ctx, alert.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("resolving contacts for alert %s: %w", alert.AlertID, err)
		}
	}

	d.metrics.RecordDispatch(wave)

	result := &Result{AlertID: alert.AlertID, Wave: wave, Details: []Detail{}}
	if len(contacts) == 0 {
		slog.Warn("Dispatch requested with no contacts", "alert_id", alert.AlertID, "wave", wave)
		return result, nil
	}

	payload := channel.Payload{
		AlertID:       alert.AlertID,
		Wave:          wave,
		EmergencyType: alert.EmergencyType,
		Situation:     alert.Situation,
		Latitude:      alert.Latitude,
		Longitude:     alert.Longitude,
		EvidenceRefs:  alert.EvidenceRefs,
		CreatedAt:     alert.CreatedAt,
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, d.maxInFlight)
	)

	for _, contact := range contacts {
		for _, ch := range d.channels.List() {
			if !ch.Applies(contact) {
				continue
			}

			// Stop queueing new sends once the caller is gone. Sends
			// already in flight run to completion so the ledger stays
			// consistent with what actually went out.
			if ctx.Err() != nil {
				mu.Lock()
				result.Skipped++
				result.Details = append(result.Details, Detail{
					ContactID:   contact.ContactID,
					ContactName: contact.Name,
					Channel:     ch.Name(),
					Outcome:     "skipped",
					ErrorDetail: "dispatch cancelled",
				})
				mu.Unlock()
				d.metrics.RecordSkipped()
				continue
			}

			wg.Add(1)
			sem <- struct{}{}
			go func(contact *database.Contact, ch channel.Channel) {
				defer wg.Done()
				defer func() { <-sem }()

				detail := d.sendOne(ctx, alert, wave, contact, ch, payload)

				mu.Lock()
				defer mu.Unlock()
				result.Details = append(result.Details, detail)
				switch {
				case detail.Outcome == "skipped":
					result.Skipped++
				case detail.Outcome == database.OutcomeSuccess && ch.Name() == channel.NameEmail:
					result.EmailSent++
				case detail.Outcome == database.OutcomeSuccess && ch.Name() == channel.NameSMS:
					result.SMSSent++
				case ch.Name() == channel.NameEmail:
					result.EmailFailed++
				default:
					result.SMSFailed++
				}
			}(contact, ch)
		}
	}

	wg.Wait()

	slog.Info("Dispatch wave completed",
		"alert_id", alert.AlertID,
		"wave", wave,
		"email_sent", result.EmailSent,
		"email_failed", result.EmailFailed,
		"sms_sent", result.SMSSent,
		"sms_failed", result.SMSFailed,
		"skipped", result.Skipped)

	return result, nil
}

// sendOne delivers to a single contact over a single channel, with dedup
// before and ledger recording after.
func (d *Dispatcher) sendOne(ctx context.Context, alert *database.Alert, wave string, contact *database.Contact, ch channel.Channel, payload channel.Payload) Detail {
	detail := Detail{
		ContactID:   contact.ContactID,
		ContactName: contact.Name,
		Channel:     ch.Name(),
	}

	done, err := d.ledger.HasSuccess(ctx, alert.AlertID, contact.ContactID, ch.Name(), wave)
	if err != nil {
		slog.Error("Ledger dedup check failed",
			"alert_id", alert.AlertID, "contact_id", contact.ContactID, "error", err)
	}
	if done {
		detail.Outcome = "skipped"
		detail.ErrorDetail = "already delivered"
		d.metrics.RecordSkipped()
		return detail
	}

	// The send keeps going even if the caller's request is cancelled, so the
	// ledger row matches what the provider actually received.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.sendTimeout)
	defer cancel()

	operation := fmt.Sprintf("%s to %s", ch.Name(), contact.ContactID)
	success, errDetail := retry.Do(sendCtx, d.retryConfig, operation, func() (bool, string) {
		res := ch.Send(sendCtx, contact, &payload)
		return res.Success, res.ErrorDetail
	})

	d.metrics.RecordSend(ch.Name(), success)

	rec := &database.NotificationRecord{
		AlertID:     alert.AlertID,
		ContactID:   contact.ContactID,
		Channel:     ch.Name(),
		Wave:        wave,
		Outcome:     database.OutcomeSuccess,
		ErrorDetail: errDetail,
	}
	if !success {
		rec.Outcome = database.OutcomeFailed
	}

	applied, err := d.ledger.Record(sendCtx, rec)
	if err != nil {
		slog.Error("Failed to record notification outcome",
			"alert_id", alert.AlertID, "contact_id", contact.ContactID,
			"channel", ch.Name(), "error", err)
		// A success with no ledger row would break the audit trail and let
		// a repeat dispatch re-deliver, so it is reported as a failure.
		detail.Outcome = database.OutcomeFailed
		detail.ErrorDetail = errDetail
		if success {
			detail.ErrorDetail = fmt.Sprintf("delivered but not recorded: %v", err)
		}
		return detail
	}
	if !applied && success {
		// A concurrent dispatch already recorded a success for this pair.
		detail.Outcome = "skipped"
		detail.ErrorDetail = "already delivered"
		d.metrics.RecordSkipped()
		return detail
	}

	detail.Outcome = rec.Outcome
	detail.ErrorDetail = errDetail
	return detail
}

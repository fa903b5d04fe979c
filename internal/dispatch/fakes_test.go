package dispatch

import (
	"context"
	"sync"

	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/channel"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/database"
)

type fakeContactSource struct {
	contacts []*database.Contact
	err      error
}

func (f *fakeContactSource) ListContactsByOwner(ctx context.Context, ownerID string) ([]*database.Contact, error) {
	return f.contacts, f.err
}

// fakeLedger mimics the partial unique index: only the first success per
// (alert, contact, channel, wave) is applied.
type fakeLedger struct {
	mu        sync.Mutex
	successes map[string]bool
	records   []database.NotificationRecord
	checkErr  error
	recordErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{successes: make(map[string]bool)}
}

func ledgerKey(alertID, contactID, channelName, wave string) string {
	return alertID + "|" + contactID + "|" + channelName + "|" + wave
}

func (f *fakeLedger) HasSuccess(ctx context.Context, alertID, contactID, channelName, wave string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.successes[ledgerKey(alertID, contactID, channelName, wave)], nil
}

func (f *fakeLedger) Record(ctx context.Context, rec *database.NotificationRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return false, f.recordErr
	}
	if rec.Outcome == database.OutcomeSuccess {
		key := ledgerKey(rec.AlertID, rec.ContactID, rec.Channel, rec.Wave)
		if f.successes[key] {
			return false, nil
		}
		f.successes[key] = true
	}
	f.records = append(f.records, *rec)
	return true, nil
}

func (f *fakeLedger) recorded() []database.NotificationRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]database.NotificationRecord, len(f.records))
	copy(out, f.records)
	return out
}

// fakeChannel sends succeed or fail per contact ID.
type fakeChannel struct {
	name    string
	applies func(*database.Contact) bool
	failFor map[string]string

	mu    sync.Mutex
	sends []string
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Applies(contact *database.Contact) bool {
	if f.applies != nil {
		return f.applies(contact)
	}
	return true
}

func (f *fakeChannel) Send(ctx context.Context, contact *database.Contact, p *channel.Payload) channel.Result {
	f.mu.Lock()
	f.sends = append(f.sends, contact.ContactID)
	f.mu.Unlock()
	if detail, ok := f.failFor[contact.ContactID]; ok {
		return channel.Result{Success: false, ErrorDetail: detail}
	}
	return channel.Result{Success: true}
}

func (f *fakeChannel) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

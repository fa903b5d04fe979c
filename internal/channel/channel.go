// Package channel defines the interface for notification channels.
// It uses the strategy pattern so the dispatcher can fan out across
// email and SMS without knowing provider details.
package channel

import (
	"context"
	"time"

	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/database"
)

// Channel names used as the channel component of the ledger dedup key.
const (
	NameEmail = "email"
	NameSMS   = "sms"
)

// Payload carries the alert content a channel renders and delivers.
type Payload struct {
	AlertID       string
	Wave          string
	EmergencyType string
	Situation     string
	Latitude      float64
	Longitude     float64
	EvidenceRefs  []string
	CreatedAt     time.Time
}

// Result is the uniform outcome of one send attempt. Channels never panic or
// return errors past their boundary; a failed provider call becomes a Result
// with Success false so the dispatcher can aggregate across partial outages.
type Result struct {
	Success     bool
	ErrorDetail string
}

// Channel is the interface all notification channels implement.
type Channel interface {
	// Name returns the channel name ("email" or "sms").
	Name() string

	// Applies reports whether the contact can be reached on this channel,
	// e.g. the email channel applies only when the contact has an email
	// address.
	Applies(contact *database.Contact) bool

	// Send renders and delivers the payload to one contact. The context
	// carries the per-call deadline; a timed-out provider call must resolve
	// to a failed Result, never hang.
	Send(ctx context.Context, contact *database.Contact, p *Payload) Result
}

// Registry manages the available channels.
type Registry struct {
	channels map[string]Channel
	order    []string
}

// NewRegistry creates a new channel registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]Channel),
	}
}

// Register registers a channel.
func (r *Registry) Register(ch Channel) {
	if _, ok := r.channels[ch.Name()]; !ok {
		r.order = append(r.order, ch.Name())
	}
	r.channels[ch.Name()] = ch
}

// Get retrieves a channel by name.
func (r *Registry) Get(name string) (Channel, bool) {
	ch, ok := r.channels[name]
	return ch, ok
}

// List returns all registered channels in registration order.
func (r *Registry) List() []Channel {
	channels := make([]Channel, 0, len(r.order))
	for _, name := range r.order {
		channels = append(channels, r.channels[name])
	}
	return channels
}

// Package email implements the email notification channel.
package email

import (
	"context"
	"log/slog"

	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/channel"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/channel/email/provider"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/channel/payload"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/database"
)

// Channel sends alert notifications by email through a provider registry.
type Channel struct {
	providers *provider.Registry
	from      string
}

// NewChannel creates the email channel.
func NewChannel(providers *provider.Registry, from string) *Channel {
	return &Channel{
		providers: providers,
		from:      from,
	}
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return channel.NameEmail
}

// Applies reports whether the contact has an email address.
func (c *Channel) Applies(contact *database.Contact) bool {
	return contact.Email != ""
}

// Send renders and delivers the alert email to one contact. Provider errors
// are folded into the Result; they never propagate.
func (c *Channel) Send(ctx context.Context, contact *database.Contact, p *channel.Payload) channel.Result {
	msg := payload.BuildEmailMessage(contact, p)

	err := c.providers.Send(ctx, &provider.EmailRequest{
		From:    c.from,
		To:      []string{contact.Email},
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
	})
	if err != nil {
		slog.Error("Failed to send alert email",
			"error", err,
			"alert_id", p.AlertID,
			"wave", p.Wave,
			"contact_id", contact.ContactID,
		)
		return channel.Result{Success: false, ErrorDetail: err.Error()}
	}

	slog.Info("Sent alert email",
		"alert_id", p.AlertID,
		"wave", p.Wave,
		"contact_id", contact.ContactID,
	)
	return channel.Result{Success: true}
}

package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// ResendProvider implements email sending via the Resend API.
type ResendProvider struct {
	client *resend.Client
}

// NewResendProvider creates a new Resend email provider. With an empty API
// key the provider registers as unconfigured and is skipped by the registry.
func NewResendProvider(apiKey string) *ResendProvider {
	if apiKey == "" {
		slog.Warn("Resend API key not set, Resend provider will be unavailable")
		return &ResendProvider{}
	}
	return &ResendProvider{client: resend.NewClient(apiKey)}
}

// Name returns the provider name.
func (p *ResendProvider) Name() string {
	return "resend"
}

// IsConfigured returns true if Resend is properly configured.
func (p *ResendProvider) IsConfigured() bool {
	return p.client != nil
}

// Send sends an email via the Resend API.
func (p *ResendProvider) Send(ctx context.Context, req *EmailRequest) error {
	if p.client == nil {
		return fmt.Errorf("Resend client not initialized")
	}
	if len(req.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	params := &resend.SendEmailRequest{
		From:    req.From,
		To:      req.To,
		Subject: req.Subject,
		Text:    req.Text,
	}
	if req.HTML != "" {
		params.Html = req.HTML
	}

	result, err := p.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("Resend send failed: %w", err)
	}

	slog.Info("Email sent via Resend",
		"email_id", result.Id,
		"to", req.To,
		"subject", req.Subject,
	)
	return nil
}

package provider

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"
)

// SMTPProvider implements email sending via plain SMTP. It is intended for
// local development against MailHog-style servers; hosted providers go
// through Resend or SES.
type SMTPProvider struct {
	host     string
	port     string
	user     string
	password string
}

// NewSMTPProvider creates a new SMTP email provider. With an empty host the
// provider registers as unconfigured.
func NewSMTPProvider(host, port, user, password string) *SMTPProvider {
	return &SMTPProvider{
		host:     host,
		port:     port,
		user:     user,
		password: password,
	}
}

// Name returns the provider name.
func (p *SMTPProvider) Name() string {
	return "smtp"
}

// IsConfigured returns true if an SMTP host is set.
func (p *SMTPProvider) IsConfigured() bool {
	return p.host != ""
}

// Send sends an email via SMTP.
func (p *SMTPProvider) Send(ctx context.Context, req *EmailRequest) error {
	if p.host == "" {
		return fmt.Errorf("SMTP host not configured")
	}
	if len(req.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	var auth smtp.Auth
	if p.user != "" && p.password != "" {
		auth = smtp.PlainAuth("", p.user, p.password, p.host)
	}

	addr := fmt.Sprintf("%s:%s", p.host, p.port)
	msg := buildMessage(req)

	// net/smtp has no context support; run the blocking send in a goroutine
	// so the caller's deadline still bounds the call.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, req.From, req.To, msg)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("SMTP send timed out: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("SMTP send failed: %w", err)
		}
	}

	slog.Info("Email sent via SMTP",
		"smtp_server", addr,
		"to", strings.Join(req.To, ", "),
		"subject", req.Subject,
	)
	return nil
}

// buildMessage builds a complete email message in RFC 822 format, with an
// HTML part when one is present.
func buildMessage(req *EmailRequest) []byte {
	var msg bytes.Buffer
	msg.WriteString(fmt.Sprintf("From: %s\r\n", req.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(req.To, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", req.Subject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	if req.HTML != "" {
		msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	} else {
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	}
	msg.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	msg.WriteString("\r\n")
	if req.HTML != "" {
		msg.WriteString(req.HTML)
	} else {
		msg.WriteString(req.Text)
	}
	return msg.Bytes()
}

// Package sms implements the SMS notification channel via an HTTP gateway.
// The gateway is any provider exposing a JSON send endpoint (Semaphore,
// Twilio-compatible bridges, or a local stub in development).
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/channel"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/channel/payload"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/database"
)

// Channel sends alert notifications as SMS through an HTTP gateway.
type Channel struct {
	gatewayURL string
	apiKey     string
	from       string
	httpClient *http.Client
}

// gatewayRequest is the JSON body posted to the gateway.
type gatewayRequest struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Message string `json:"message"`
}

// gatewayResponse is the JSON body the gateway answers with. Only the error
// field matters here; everything else is provider-specific.
type gatewayResponse struct {
	Error string `json:"error,omitempty"`
}

// NewChannel creates the SMS channel.
func NewChannel(gatewayURL, apiKey, from string) *Channel {
	return &Channel{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		from:       from,
		httpClient: &http.Client{
			// The dispatcher bounds each call with its own deadline; this is
			// a backstop against a gateway that never answers.
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return channel.NameSMS
}

// Applies reports whether the contact has a phone number.
func (c *Channel) Applies(contact *database.Contact) bool {
	return contact.Phone != ""
}

// Send renders and delivers the alert SMS to one contact. Gateway errors and
// timeouts are folded into the Result; they never propagate.
func (c *Channel) Send(ctx context.Context, contact *database.Contact, p *channel.Payload) channel.Result {
	if c.gatewayURL == "" {
		return channel.Result{Success: false, ErrorDetail: "SMS gateway not configured"}
	}

	body, err := json.Marshal(gatewayRequest{
		From:    c.from,
		To:      contact.Phone,
		Message: payload.BuildSMSText(p),
	})
	if err != nil {
		return channel.Result{Success: false, ErrorDetail: fmt.Sprintf("failed to marshal SMS request: %s", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return channel.Result{Success: false, ErrorDetail: fmt.Sprintf("failed to create SMS request: %s", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Failed to reach SMS gateway",
			"error", err,
			"alert_id", p.AlertID,
			"wave", p.Wave,
			"contact_id", contact.ContactID,
		)
		return channel.Result{Success: false, ErrorDetail: fmt.Sprintf("SMS gateway unreachable: %s", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := fmt.Sprintf("SMS gateway returned status %d", resp.StatusCode)
		if msg := readGatewayError(resp.Body); msg != "" {
			detail = fmt.Sprintf("%s: %s", detail, msg)
		}
		slog.Error("SMS gateway rejected message",
			"status_code", resp.StatusCode,
			"alert_id", p.AlertID,
			"wave", p.Wave,
			"contact_id", contact.ContactID,
		)
		return channel.Result{Success: false, ErrorDetail: detail}
	}

	slog.Info("Sent alert SMS",
		"alert_id", p.AlertID,
		"wave", p.Wave,
		"contact_id", contact.ContactID,
	)
	return channel.Result{Success: true}
}

// readGatewayError extracts the error message from a gateway error response,
// if it has one.
func readGatewayError(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var resp gatewayResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return ""
	}
	return resp.Error
}

// Package payload provides payload builders for the email and SMS channels.
package payload

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/channel"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/database"
)

// SMSMaxLen is the gateway's message length limit. Longer bodies are
// truncated with an ellipsis rather than rejected.
const SMSMaxLen = 480

// EmailMessage represents rendered email content.
type EmailMessage struct {
	Subject string
	Text    string
	HTML    string
}

// BuildEmailMessage builds the email subject, plain-text body, and HTML body
// for an alert. All user-supplied fields (situation, contact name) are
// HTML-escaped before being embedded in markup.
func BuildEmailMessage(contact *database.Contact, p *channel.Payload) EmailMessage {
	subject := fmt.Sprintf("EMERGENCY: %s alert", p.EmergencyType)
	if p.Wave == "escalated" {
		subject = fmt.Sprintf("EMERGENCY (ESCALATED): %s alert - still unacknowledged", p.EmergencyType)
	}
	return EmailMessage{
		Subject: subject,
		Text:    buildEmailText(contact, p),
		HTML:    buildEmailHTML(contact, p),
	}
}

// buildEmailText builds the plain-text alternative body.
func buildEmailText(contact *database.Contact, p *channel.Payload) string {
	var sb strings.Builder
	sb.WriteString("Emergency Alert\n")
	sb.WriteString("===============\n\n")
	sb.WriteString(fmt.Sprintf("Dear %s,\n\n", contact.Name))
	sb.WriteString("Someone listed you as an emergency contact and needs help.\n\n")
	sb.WriteString(fmt.Sprintf("Emergency type: %s\n", p.EmergencyType))
	if p.Situation != "" {
		sb.WriteString(fmt.Sprintf("Situation: %s\n", p.Situation))
	}
	sb.WriteString(fmt.Sprintf("Location: %s\n", MapsLink(p.Latitude, p.Longitude)))
	sb.WriteString(fmt.Sprintf("Raised at: %s\n", p.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC")))
	if len(p.EvidenceRefs) > 0 {
		sb.WriteString("\nEvidence:\n")
		for _, ref := range p.EvidenceRefs {
			sb.WriteString(fmt.Sprintf("  %s\n", ref))
		}
	}
	sb.WriteString(fmt.Sprintf("\nAlert ID: %s (wave: %s)\n", p.AlertID, p.Wave))
	return sb.String()
}

// buildEmailHTML builds the rich HTML body.
func buildEmailHTML(contact *database.Contact, p *channel.Payload) string {
	var sb strings.Builder
	sb.WriteString(`<div style="font-family:sans-serif;max-width:600px">`)
	sb.WriteString(`<h2 style="color:#c0392b">Emergency Alert</h2>`)
	sb.WriteString(fmt.Sprintf("<p>Dear %s,</p>", html.EscapeString(contact.Name)))
	sb.WriteString("<p>Someone listed you as an emergency contact and needs help.</p>")
	sb.WriteString("<table cellpadding=\"4\">")
	sb.WriteString(fmt.Sprintf("<tr><td><b>Emergency type</b></td><td>%s</td></tr>", html.EscapeString(p.EmergencyType)))
	if p.Situation != "" {
		sb.WriteString(fmt.Sprintf("<tr><td><b>Situation</b></td><td>%s</td></tr>", html.EscapeString(p.Situation)))
	}
	sb.WriteString(fmt.Sprintf("<tr><td><b>Location</b></td><td><a href=\"%s\">open map</a></td></tr>", MapsLink(p.Latitude, p.Longitude)))
	sb.WriteString(fmt.Sprintf("<tr><td><b>Raised at</b></td><td>%s</td></tr>", p.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC")))
	sb.WriteString("</table>")
	if len(p.EvidenceRefs) > 0 {
		sb.WriteString("<p><b>Evidence:</b></p><ul>")
		for _, ref := range p.EvidenceRefs {
			escaped := html.EscapeString(ref)
			sb.WriteString(fmt.Sprintf("<li><a href=\"%s\">%s</a></li>", escaped, escaped))
		}
		sb.WriteString("</ul>")
	}
	if p.Wave == "escalated" {
		sb.WriteString(`<p style="color:#c0392b"><b>This alert has not been acknowledged and was escalated automatically.</b></p>`)
	}
	sb.WriteString(fmt.Sprintf(`<p style="color:#888;font-size:12px">Alert %s, wave %s</p>`,
		html.EscapeString(p.AlertID), html.EscapeString(p.Wave)))
	sb.WriteString("</div>")
	return sb.String()
}

// BuildSMSText builds the plain-text SMS body, truncated to SMSMaxLen.
func BuildSMSText(p *channel.Payload) string {
	var sb strings.Builder
	if p.Wave == "escalated" {
		sb.WriteString("ESCALATED ")
	}
	sb.WriteString(fmt.Sprintf("EMERGENCY (%s): ", p.EmergencyType))
	if p.Situation != "" {
		sb.WriteString(p.Situation)
		sb.WriteString(" ")
	}
	sb.WriteString("Location: ")
	sb.WriteString(MapsLink(p.Latitude, p.Longitude))
	return Truncate(sb.String(), SMSMaxLen)
}

// MapsLink returns a map URL for the alert coordinates.
func MapsLink(latitude, longitude float64) string {
	return fmt.Sprintf("https://maps.google.com/?q=%.6f,%.6f", latitude, longitude)
}

// Truncate shortens s to at most max characters, appending an ellipsis when
// anything was cut. The cut always lands on a rune boundary so multi-byte
// characters are never split.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	keep := max - 3
	if max <= 3 {
		keep = max
	}
	end := 0
	for i := 0; i < keep; i++ {
		_, size := utf8.DecodeRuneInString(s[end:])
		end += size
	}
	if max <= 3 {
		return s[:end]
	}
	return s[:end] + "..."
}

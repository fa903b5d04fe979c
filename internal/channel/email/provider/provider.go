// Package provider defines the email provider interface and registry.
// It uses the strategy pattern to support multiple email backends
// (Resend, SES, plain SMTP) with fallback.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// EmailRequest represents an email to be sent.
type EmailRequest struct {
	From    string
	To      []string
	Subject string
	Text    string // Plain text body
	HTML    string // HTML body (optional)
}

// Provider is the interface that all email providers must implement.
type Provider interface {
	// Name returns the provider name (e.g., "resend", "ses", "smtp").
	Name() string

	// Send sends an email using this provider.
	Send(ctx context.Context, req *EmailRequest) error

	// IsConfigured returns true if the provider is properly configured.
	IsConfigured() bool
}

// Registry manages email providers with fallback support. The first
// registered configured provider is the primary; on failure the remaining
// configured providers are tried in registration order.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
}

// NewRegistry creates a new email provider registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
	slog.Info("Registered email provider", "name", p.Name(), "configured", p.IsConfigured())
}

// Send sends an email using the first configured provider, falling back to
// the others on failure. Returns the first error when every configured
// provider fails.
func (r *Registry) Send(ctx context.Context, req *EmailRequest) error {
	r.mu.RLock()
	providers := make([]Provider, len(r.providers))
	copy(providers, r.providers)
	r.mu.RUnlock()

	var firstErr error
	tried := 0
	for _, p := range providers {
		if !p.IsConfigured() {
			continue
		}
		tried++
		err := p.Send(ctx, req)
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		} else {
			slog.Warn("Fallback email provider failed too",
				"provider", p.Name(),
				"error", err,
			)
		}
	}
	if tried == 0 {
		return fmt.Errorf("no configured email provider available")
	}
	return firstErr
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name())
	}
	return names
}

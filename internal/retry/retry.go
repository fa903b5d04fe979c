// Package retry provides retry logic with exponential backoff for transient
// provider failures.
package retry

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"
)

// Config defines retry behavior.
type Config struct {
	MaxRetries     int           // Maximum number of retry attempts (0 = no retries)
	InitialBackoff time.Duration // Initial backoff duration
	MaxBackoff     time.Duration // Maximum backoff duration
	BackoffFactor  float64       // Multiplier for exponential backoff
}

// DefaultConfig returns retry defaults tuned for notification sends: a wave
// must finish promptly, so retries are few and the backoff cap is short.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     2,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		BackoffFactor:  2.0,
	}
}

// IsRetryable checks if an error detail describes a transient failure.
// Network errors, rate limits, and temporary unavailability are retryable;
// validation errors and permanent rejections are not.
func IsRetryable(detail string) bool {
	if detail == "" {
		return false
	}

	lower := strings.ToLower(detail)

	nonRetryable := []string{
		"not verified",
		"invalid",
		"malformed",
		"not configured",
		"insufficient credits",
		"unsubscribed",
	}
	for _, s := range nonRetryable {
		if strings.Contains(lower, s) {
			return false
		}
	}

	retryable := []string{
		"timeout",
		"timed out",
		"deadline exceeded",
		"connection refused",
		"connection reset",
		"temporary",
		"rate limit",
		"throttl",
		"502",
		"503",
		"504",
		"too many requests",
		"unreachable",
		"try again",
	}
	for _, s := range retryable {
		if strings.Contains(lower, s) {
			return true
		}
	}

	return false
}

// Do executes fn with retry on transient failure. fn reports its outcome as
// (success, errorDetail); the final outcome is returned the same way so the
// caller can fold it into an aggregate without error plumbing.
func Do(ctx context.Context, cfg Config, operation string, fn func() (bool, string)) (bool, string) {
	var lastDetail string

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		ok, detail := fn()
		if ok {
			if attempt > 0 {
				slog.Info("Operation succeeded after retry",
					"operation", operation,
					"attempt", attempt+1,
				)
			}
			return true, ""
		}

		lastDetail = detail
		if !IsRetryable(detail) {
			return false, detail
		}
		if attempt >= cfg.MaxRetries {
			slog.Warn("Max retries exceeded",
				"operation", operation,
				"attempts", attempt+1,
				"detail", detail,
			)
			return false, detail
		}

		backoff := calculateBackoff(cfg, attempt)
		slog.Warn("Operation failed, retrying",
			"operation", operation,
			"attempt", attempt+1,
			"backoff", backoff,
			"detail", detail,
		)

		select {
		case <-ctx.Done():
			return false, lastDetail
		case <-time.After(backoff):
		}
	}

	return false, lastDetail
}

// calculateBackoff calculates the backoff duration with jitter.
func calculateBackoff(cfg Config, attempt int) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(attempt))
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}

	// ±25% jitter
	jitter := backoff * 0.25 * (rand.Float64()*2 - 1)
	backoff += jitter

	return time.Duration(backoff)
}

// Package ratelimit provides a fixed-window request limiter for the dispatch
// entry point. The counter store is injectable: in-process for single-node
// deployments, Redis when multiple instances must share a window.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Error is returned when a caller exceeds its window allowance.
type Error struct {
	Limit      int64
	Window     time.Duration
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate limit of %d per %s exceeded, retry after %s", e.Limit, e.Window, e.RetryAfter.Round(time.Second))
}

// Store counts requests per key within a fixed window.
type Store interface {
	// Incr atomically increments the counter for key, starting a new window
	// when none is active, and returns the post-increment count and the time
	// the current window resets.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Limiter rejects callers that exceed limit requests per window.
type Limiter struct {
	store  Store
	limit  int64
	window time.Duration
}

// NewLimiter creates a fixed-window limiter over the given store.
func NewLimiter(store Store, limit int64, window time.Duration) *Limiter {
	return &Limiter{
		store:  store,
		limit:  limit,
		window: window,
	}
}

// Allow records one request for key and returns a *Error when the caller has
// exhausted its window. A store failure fails open: losing throttle state
// must never block an emergency dispatch.
func (l *Limiter) Allow(ctx context.Context, key string) error {
	count, resetAt, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		slog.Warn("Rate limit store unavailable, allowing request",
			"key", key,
			"error", err,
		)
		return nil
	}
	if count > l.limit {
		retryAfter := time.Until(resetAt)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return &Error{
			Limit:      l.limit,
			Window:     l.window,
			RetryAfter: retryAfter,
		}
	}
	return nil
}

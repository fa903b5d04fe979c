// Package handlers provides HTTP handlers for the alert API.
package handlers

import (
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/metrics"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/producer"
)

// Handlers wraps dependencies for HTTP handlers.
type Handlers struct {
	db         Repository
	guard      Authenticator
	limiter    RateLimiter
	dispatcher WaveDispatcher
	publisher  producer.Publisher
	metrics    metrics.Recorder
}

// NewHandlers creates a new handlers instance. A nil publisher or metrics
// recorder falls back to a no-op implementation, never nil.
func NewHandlers(db Repository, guard Authenticator, limiter RateLimiter, dispatcher WaveDispatcher, publisher producer.Publisher, recorder metrics.Recorder) *Handlers {
	if publisher == nil {
		publisher = producer.NoOp{}
	}
	if recorder == nil {
		recorder = metrics.NewNoOp()
	}
	return &Handlers{
		db:         db,
		guard:      guard,
		limiter:    limiter,
		dispatcher: dispatcher,
		publisher:  publisher,
		metrics:    recorder,
	}
}

// Package metrics provides metrics recording for the alert service.
// It uses the null object pattern to avoid nil checks throughout the codebase.
package metrics

// Recorder defines the interface for recording alert-lifecycle metrics.
type Recorder interface {
	// RecordDispatch counts one fan-out run for a wave ("initial" or "escalated").
	RecordDispatch(wave string)

	// RecordSend counts one channel send outcome.
	RecordSend(channel string, success bool)

	// RecordSkipped counts a send skipped by the ledger dedup check.
	RecordSkipped()

	// RecordEscalated counts one alert transitioned to escalated.
	RecordEscalated()

	// RecordThrottled counts one request rejected by the rate limiter.
	RecordThrottled()
}

// NoOp is a no-op implementation of Recorder that discards all metrics.
// Use this when metrics collection is not configured.
type NoOp struct{}

// NewNoOp creates a new no-op metrics recorder.
func NewNoOp() *NoOp {
	return &NoOp{}
}

func (n *NoOp) RecordDispatch(string)   {}
func (n *NoOp) RecordSend(string, bool) {}
func (n *NoOp) RecordSkipped()          {}
func (n *NoOp) RecordEscalated()        {}
func (n *NoOp) RecordThrottled()        {}

// Ensure NoOp implements Recorder
var _ Recorder = (*NoOp)(nil)

// Package events defines the alert lifecycle events published to Kafka.
package events

// Event types published to the alert events topic.
const (
	TypeAlertCreated      = "ALERT_CREATED"
	TypeAlertResolved     = "ALERT_RESOLVED"
	TypeAlertEscalated    = "ALERT_ESCALATED"
	TypeDispatchCompleted = "DISPATCH_COMPLETED"
)

// SchemaVersion is the current event schema version.
const SchemaVersion = 1

// AlertEvent represents one alert lifecycle transition. Dispatch counters are
// populated only for DISPATCH_COMPLETED events.
type AlertEvent struct {
	EventType     string `json:"event_type"`
	AlertID       string `json:"alert_id"`
	OwnerID       string `json:"owner_id"`
	EmergencyType string `json:"emergency_type"`
	Status        string `json:"status"`
	Wave          string `json:"wave,omitempty"`
	Sent          int    `json:"sent,omitempty"`
	Failed        int    `json:"failed,omitempty"`
	Skipped       int    `json:"skipped,omitempty"`
	OccurredAt    int64  `json:"occurred_at"` // Unix timestamp
	SchemaVersion int    `json:"schema_version"`
}

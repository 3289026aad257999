package models

import "time"

type EventKind string

const (
	EventConnected      EventKind = "connected"
	EventHeartbeat      EventKind = "heartbeat"
	EventFeedbackUpdate EventKind = "feedback_update"
)

// DomainEvent is wire-only; it is never persisted.
type DomainEvent struct {
	Kind      EventKind `json:"type"`
	Feedback  *Feedback `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

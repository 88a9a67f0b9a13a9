// Package queue defines the registration domain events exchanged over the
// message broker, the publisher used by the API and the audit consumer.
package queue

// Routing keys, also used as queue names.
const (
	RegistrationCreated   = "registration.created"
	RegistrationCancelled = "registration.cancelled"
)

// RegistrationEvent is published after a seat is claimed or released.  It
// carries enough for downstream consumers to log or notify without querying
// the primary database.
type RegistrationEvent struct {
	Type            string `json:"type"`
	EventID         uint64 `json:"event_id"`
	EventName       string `json:"event_name,omitempty"`
	UserID          string `json:"user_id"`
	RegisteredCount int    `json:"registered_count,omitempty"`
	Capacity        int    `json:"capacity,omitempty"`
	OccurredAt      string `json:"occurred_at"`
}

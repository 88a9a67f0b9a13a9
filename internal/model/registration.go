package model

import "time"

// Registration is a holder record: durable proof that a user occupies one
// seat of one event.  The (EventID, UserID) pair is unique in storage.
type Registration struct {
	ID        uint64    `json:"id"`
	EventID   uint64    `json:"event_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Availability is the derived seat view of an event.  It is computed from
// the holder records on every read and never persisted.
type Availability struct {
	RegisteredCount int  `json:"registered_count"`
	AvailableSeats  int  `json:"available_seats"`
	IsRegistered    bool `json:"is_registered"`
}

// NewAvailability derives the seat view for an event with the given
// capacity and occupancy.  AvailableSeats never goes below zero.
func NewAvailability(capacity, occupancy int, registered bool) Availability {
	left := capacity - occupancy
	if left < 0 {
		left = 0
	}
	return Availability{
		RegisteredCount: occupancy,
		AvailableSeats:  left,
		IsRegistered:    registered,
	}
}

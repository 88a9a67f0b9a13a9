package model

import "time"

// Event represents a scheduled event that users can register for.  The
// seat admission core only reads events; they are created and edited
// through an administrative path (the seed command in development).
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name of the event.
//  Organizer   – person or organisation running the event.
//  Location    – free-form venue or city.
//  Description – long description, may be empty.
//  Category    – free-form category used by listing filters.
//  Tags        – optional keywords, matched by free-text search.
//  Capacity    – number of seats; always >= 1.
//  StartsAt    – when the event begins (UTC).  Registration closes at
//                this instant.
//  CreatedAt   – creation timestamp.
type Event struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Organizer   string    `json:"organizer"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	Capacity    int       `json:"capacity"`
	StartsAt    time.Time `json:"starts_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasStarted reports whether registration for the event is closed at now.
// An event whose start time equals now counts as started.
func (e Event) HasStarted(now time.Time) bool {
	return !now.Before(e.StartsAt)
}

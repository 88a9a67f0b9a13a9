package service

import (
	"context"

	"github.com/iliyamo/event-registration/internal/model"
)

// HolderCounter answers batched occupancy questions.
type HolderCounter interface {
	CountHoldersBatch(ctx context.Context, eventIDs []uint64) (map[uint64]int, error)
	HoldsFor(ctx context.Context, eventIDs []uint64, userID string) (map[uint64]bool, error)
}

// EventView is an event annotated with its current availability.
type EventView struct {
	model.Event
	model.Availability
}

// Projector derives availability for a page of events.
type Projector struct {
	holders HolderCounter
}

func NewProjector(holders HolderCounter) *Projector {
	return &Projector{holders: holders}
}

// Project annotates events with occupancy and, when userID is set, whether
// the caller holds a seat.  It issues one grouped count and at most one
// holder lookup whatever the number of events.
func (p *Projector) Project(ctx context.Context, events []model.Event, userID string) ([]EventView, error) {
	out := make([]EventView, 0, len(events))
	if len(events) == 0 {
		return out, nil
	}
	ids := make([]uint64, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}

	counts, err := p.holders.CountHoldersBatch(ctx, ids)
	if err != nil {
		return nil, err
	}
	held := map[uint64]bool{}
	if userID != "" {
		if held, err = p.holders.HoldsFor(ctx, ids, userID); err != nil {
			return nil, err
		}
	}

	for _, ev := range events {
		out = append(out, EventView{
			Event:        ev,
			Availability: model.NewAvailability(ev.Capacity, counts[ev.ID], held[ev.ID]),
		})
	}
	return out, nil
}

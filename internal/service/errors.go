package service

import (
	"errors"

	"github.com/iliyamo/event-registration/internal/repository"
)

// Outcomes of the registration operations.  Callers match them with
// errors.Is; anything else is an internal failure.
var (
	ErrEventNotFound     = repository.ErrEventNotFound
	ErrStoreUnavailable  = repository.ErrStoreUnavailable
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrEventFull         = errors.New("event is full")
	ErrEventInPast       = errors.New("event has already started")
	ErrNotRegistered     = errors.New("not registered for this event")
)

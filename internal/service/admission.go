// Package service holds the registration core: admission and cancellation
// against the capacity ledger, availability projection and the catalog
// queries built on top of them.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/event-registration/internal/clock"
	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/queue"
	"github.com/iliyamo/event-registration/internal/repository"
)

// AdmissionStore is the capacity ledger as seen by the admission service.
// Calls made with the context handed to WithTx's callback share one
// transaction.
type AdmissionStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockEvent(ctx context.Context, eventID uint64) (model.Event, error)
	TryClaim(ctx context.Context, eventID uint64, userID string, at time.Time) (model.Registration, error)
	CountHolders(ctx context.Context, eventID uint64) (int, error)
	Release(ctx context.Context, eventID uint64, userID string) (bool, error)
}

// Publisher receives a domain event after every committed claim or release.
type Publisher interface {
	PublishRegistration(ctx context.Context, ev queue.RegistrationEvent) error
}

// Invalidator drops cached read responses that may show stale occupancy.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Admission describes a successful registration.
type Admission struct {
	Registration    model.Registration
	Event           model.Event
	RegisteredCount int
}

// AdmissionService admits and cancels registrations.  It holds no state of
// its own; the store is the only shared state, so any number of instances
// may run against the same database.
type AdmissionService struct {
	store       AdmissionStore
	clock       clock.Clock
	publisher   Publisher
	invalidator Invalidator
}

// NewAdmissionService wires the service.  publisher and invalidator are
// optional.
func NewAdmissionService(store AdmissionStore, clk clock.Clock, publisher Publisher, invalidator Invalidator) *AdmissionService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &AdmissionService{store: store, clock: clk, publisher: publisher, invalidator: invalidator}
}

// Register claims one seat of eventID for userID.  The claim, the occupancy
// check and the rollback of an over-capacity claim run in one transaction,
// so no holder record survives a failed attempt.
func (s *AdmissionService) Register(ctx context.Context, eventID uint64, userID string) (Admission, error) {
	var adm Admission
	err := retryOnce(ctx, "register", func() error {
		var err error
		adm, err = s.register(ctx, eventID, userID)
		return err
	})
	if err != nil {
		return Admission{}, err
	}

	s.afterChange(ctx, queue.RegistrationEvent{
		Type:            queue.RegistrationCreated,
		EventID:         eventID,
		EventName:       adm.Event.Name,
		UserID:          userID,
		RegisteredCount: adm.RegisteredCount,
		Capacity:        adm.Event.Capacity,
		OccurredAt:      adm.Registration.CreatedAt.Format(time.RFC3339),
	})
	return adm, nil
}

func (s *AdmissionService) register(ctx context.Context, eventID uint64, userID string) (Admission, error) {
	var adm Admission
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		ev, err := s.store.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if ev.HasStarted(now) {
			return ErrEventInPast
		}

		reg, err := s.store.TryClaim(ctx, eventID, userID, now)
		if errors.Is(err, repository.ErrAlreadyHeld) {
			return ErrAlreadyRegistered
		}
		if err != nil {
			return err
		}

		occupancy, err := s.store.CountHolders(ctx, eventID)
		if err != nil {
			return err
		}
		if occupancy > ev.Capacity {
			return ErrEventFull
		}
		adm = Admission{Registration: reg, Event: ev, RegisteredCount: occupancy}
		return nil
	})
	return adm, err
}

// Cancel releases userID's seat for eventID.  Cancelling is allowed after
// the event has started.  A second cancel returns ErrNotRegistered.
func (s *AdmissionService) Cancel(ctx context.Context, eventID uint64, userID string) error {
	var released bool
	err := retryOnce(ctx, "cancel", func() error {
		var err error
		released, err = s.store.Release(ctx, eventID, userID)
		return err
	})
	if err != nil {
		return err
	}
	if !released {
		return ErrNotRegistered
	}

	s.afterChange(ctx, queue.RegistrationEvent{
		Type:       queue.RegistrationCancelled,
		EventID:    eventID,
		UserID:     userID,
		OccurredAt: s.clock.Now().Format(time.RFC3339),
	})
	return nil
}

// afterChangeTimeout bounds the cache and broker calls made after commit.
const afterChangeTimeout = 5 * time.Second

// afterChange runs once the ledger change is committed.  It is detached from
// the caller's cancellation: a client that hangs up after the commit must
// not leave stale cached counts behind.  Failures are only logged.
func (s *AdmissionService) afterChange(ctx context.Context, ev queue.RegistrationEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), afterChangeTimeout)
	defer cancel()
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			log.Printf("admission: cache invalidation failed: %v", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishRegistration(ctx, ev); err != nil {
			log.Printf("admission: publish %s for event %d failed: %v", ev.Type, ev.EventID, err)
		}
	}
}

// retryOnce runs op and repeats it a single time when the store reported a
// transient failure and the caller is still waiting.
func retryOnce(ctx context.Context, name string, op func() error) error {
	err := op()
	if err == nil || !errors.Is(err, ErrStoreUnavailable) || ctx.Err() != nil {
		return err
	}
	log.Printf("admission: %s hit transient store error, retrying: %v", name, err)
	return op()
}

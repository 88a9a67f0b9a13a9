package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/event-registration/internal/database"
	"github.com/iliyamo/event-registration/internal/model"
)

// Ledger is the capacity ledger used by the admission service: the event
// rows plus their holder records, with a transactional boundary around
// claim, verify and rollback.
type Ledger struct {
	store
	Events        *EventRepo
	Registrations *RegistrationRepo
}

// NewLedger builds a Ledger over db.
func NewLedger(db *sql.DB, dialect database.Dialect) *Ledger {
	return &Ledger{
		store:         store{db: db, dialect: dialect},
		Events:        NewEventRepo(db, dialect),
		Registrations: NewRegistrationRepo(db, dialect),
	}
}

// WithTx runs fn in one transaction; ledger calls made with the context
// passed to fn join it.
func (l *Ledger) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return l.withTx(ctx, fn)
}

// LockEvent loads the event and, inside a transaction, locks its row.
func (l *Ledger) LockEvent(ctx context.Context, eventID uint64) (model.Event, error) {
	return l.Events.GetForUpdate(ctx, eventID)
}

func (l *Ledger) TryClaim(ctx context.Context, eventID uint64, userID string, at time.Time) (model.Registration, error) {
	return l.Registrations.TryClaim(ctx, eventID, userID, at)
}

func (l *Ledger) CountHolders(ctx context.Context, eventID uint64) (int, error) {
	return l.Registrations.CountHolders(ctx, eventID)
}

func (l *Ledger) Release(ctx context.Context, eventID uint64, userID string) (bool, error) {
	return l.Registrations.Release(ctx, eventID, userID)
}

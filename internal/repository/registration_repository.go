package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/event-registration/internal/database"
	"github.com/iliyamo/event-registration/internal/model"
)

// RegistrationRepo stores holder records.  Uniqueness of (event_id,
// user_id) is enforced by the schema, not by a read before the insert, so
// it holds across any number of processes.
type RegistrationRepo struct {
	store
}

// NewRegistrationRepo returns a new RegistrationRepo bound to the given database.
func NewRegistrationRepo(db *sql.DB, dialect database.Dialect) *RegistrationRepo {
	return &RegistrationRepo{store{db: db, dialect: dialect}}
}

// RegistrationDetail pairs a holder record with the event it occupies.
type RegistrationDetail struct {
	Registration model.Registration
	Event        model.Event
}

// TryClaim inserts a holder record for (eventID, userID).  It returns
// ErrAlreadyHeld when the pair already holds a seat.
func (r *RegistrationRepo) TryClaim(ctx context.Context, eventID uint64, userID string, at time.Time) (model.Registration, error) {
	const q = `INSERT INTO registrations (event_id, user_id, created_at) VALUES (?, ?, ?)`
	res, err := r.q(ctx).ExecContext(ctx, q, eventID, userID, toMillis(at))
	if err != nil {
		if isDuplicateKey(err) {
			return model.Registration{}, ErrAlreadyHeld
		}
		return model.Registration{}, classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Registration{}, classify(err)
	}
	return model.Registration{
		ID:        uint64(id),
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: fromMillis(toMillis(at)),
	}, nil
}

// Release deletes the holder record for (eventID, userID).  It reports
// false when no record existed, so a repeated call is harmless.
func (r *RegistrationRepo) Release(ctx context.Context, eventID uint64, userID string) (bool, error) {
	const q = `DELETE FROM registrations WHERE event_id = ? AND user_id = ?`
	res, err := r.q(ctx).ExecContext(ctx, q, eventID, userID)
	if err != nil {
		return false, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}

// CountHolders returns the current occupancy of one event.
func (r *RegistrationRepo) CountHolders(ctx context.Context, eventID uint64) (int, error) {
	var n int
	err := r.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = ?`, eventID).Scan(&n)
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// CountHoldersBatch returns occupancy for every given event with a single
// grouped query.  Events without holders are absent from the map.
func (r *RegistrationRepo) CountHoldersBatch(ctx context.Context, eventIDs []uint64) (map[uint64]int, error) {
	out := make(map[uint64]int, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	in, args := inClause(eventIDs)
	rows, err := r.q(ctx).QueryContext(ctx,
		`SELECT event_id, COUNT(*) FROM registrations WHERE event_id IN (`+in+`) GROUP BY event_id`, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id uint64
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// HoldsFor returns which of the given events userID currently holds.
func (r *RegistrationRepo) HoldsFor(ctx context.Context, eventIDs []uint64, userID string) (map[uint64]bool, error) {
	out := make(map[uint64]bool)
	if len(eventIDs) == 0 || userID == "" {
		return out, nil
	}
	in, args := inClause(eventIDs)
	args = append([]any{userID}, args...)
	rows, err := r.q(ctx).QueryContext(ctx,
		`SELECT event_id FROM registrations WHERE user_id = ? AND event_id IN (`+in+`)`, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// ListByUser returns all holder records of userID joined with their events,
// newest registration first.
func (r *RegistrationRepo) ListByUser(ctx context.Context, userID string) ([]RegistrationDetail, error) {
	q := `SELECT r.id, r.event_id, r.user_id, r.created_at, ` + eventColumns + `
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		WHERE r.user_id = ?
		ORDER BY r.created_at DESC, r.id DESC`
	rows, err := r.q(ctx).QueryContext(ctx, q, userID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []RegistrationDetail{}
	for rows.Next() {
		var (
			d         RegistrationDetail
			createdAt int64
			tags      string
			startsAt  int64
			evCreated int64
		)
		ev := &d.Event
		if err := rows.Scan(&d.Registration.ID, &d.Registration.EventID, &d.Registration.UserID, &createdAt,
			&ev.ID, &ev.Name, &ev.Organizer, &ev.Location, &ev.Description, &ev.Category, &tags,
			&ev.Capacity, &startsAt, &evCreated); err != nil {
			return nil, err
		}
		d.Registration.CreatedAt = fromMillis(createdAt)
		ev.Tags = splitTags(tags)
		ev.StartsAt = fromMillis(startsAt)
		ev.CreatedAt = fromMillis(evCreated)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func inClause(ids []uint64) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}

// Package repository contains data access logic for events and their holder
// records.  Timestamps are stored as UTC unix milliseconds so both supported
// dialects compare and sort them the same way.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/event-registration/internal/database"
	"github.com/iliyamo/event-registration/internal/model"
)

const eventColumns = `e.id, e.name, e.organizer, e.location, e.description, e.category, e.tags, e.capacity, e.starts_at, e.created_at`

// EventRepo manages persistence for events.  The admission core only
// reads events; Create exists for the administrative seed path.
type EventRepo struct {
	store
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB, dialect database.Dialect) *EventRepo {
	return &EventRepo{store{db: db, dialect: dialect}}
}

// Create inserts a new event and assigns the generated ID back to ev.  A
// zero CreatedAt is set to the current time.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO events (name, organizer, location, description, category, tags, capacity, starts_at, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.q(ctx).ExecContext(ctx, q,
		ev.Name, ev.Organizer, ev.Location, ev.Description, ev.Category,
		joinTags(ev.Tags), ev.Capacity, toMillis(ev.StartsAt), toMillis(ev.CreatedAt))
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	return nil
}

// GetByID retrieves an event by its ID.  It returns ErrEventNotFound if
// there is no matching row.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate is GetByID with a row lock held until the surrounding
// transaction ends.  Concurrent admissions for the same event queue here.
func (r *EventRepo) GetForUpdate(ctx context.Context, id uint64) (model.Event, error) {
	return r.get(ctx, id, r.dialect.ForUpdate())
}

func (r *EventRepo) get(ctx context.Context, id uint64, suffix string) (model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events e WHERE e.id = ?` + suffix
	ev, err := scanEvent(r.q(ctx).QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, ErrEventNotFound
		}
		return model.Event{}, classify(err)
	}
	return ev, nil
}

// FilterOptions returns the distinct locations and categories across all
// events, each sorted ascending.
func (r *EventRepo) FilterOptions(ctx context.Context) (locations, categories []string, err error) {
	if locations, err = r.distinct(ctx, "location"); err != nil {
		return nil, nil, err
	}
	if categories, err = r.distinct(ctx, "category"); err != nil {
		return nil, nil, err
	}
	return locations, categories, nil
}

func (r *EventRepo) distinct(ctx context.Context, column string) ([]string, error) {
	rows, err := r.q(ctx).QueryContext(ctx, `SELECT DISTINCT `+column+` FROM events WHERE `+column+` <> ''`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	sort.Strings(out)
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (model.Event, error) {
	var (
		ev        model.Event
		tags      string
		startsAt  int64
		createdAt int64
	)
	if err := row.Scan(&ev.ID, &ev.Name, &ev.Organizer, &ev.Location, &ev.Description,
		&ev.Category, &tags, &ev.Capacity, &startsAt, &createdAt); err != nil {
		return model.Event{}, err
	}
	ev.Tags = splitTags(tags)
	ev.StartsAt = fromMillis(startsAt)
	ev.CreatedAt = fromMillis(createdAt)
	return ev, nil
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

func joinTags(tags []string) string {
	clean := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(strings.ReplaceAll(t, ",", " "))
		if t != "" {
			clean = append(clean, t)
		}
	}
	return strings.Join(clean, ",")
}

func splitTags(s string) []string {
	out := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

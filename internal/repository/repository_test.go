package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-registration/internal/database"
	"github.com/iliyamo/event-registration/internal/model"
)

var base = time.Date(2030, 6, 1, 18, 0, 0, 0, time.UTC)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))
	return NewLedger(db, database.SQLite)
}

func seedEvent(t *testing.T, l *Ledger, ev model.Event) model.Event {
	t.Helper()
	if ev.Name == "" {
		ev.Name = "Go Meetup"
	}
	if ev.Capacity == 0 {
		ev.Capacity = 10
	}
	if ev.StartsAt.IsZero() {
		ev.StartsAt = base
	}
	require.NoError(t, l.Events.Create(context.Background(), &ev))
	return ev
}

func TestEventRepoCreateAndGet(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	ev := seedEvent(t, l, model.Event{
		Name:      "Gophercon",
		Organizer: "Go Team",
		Location:  "Berlin",
		Category:  "Conference",
		Tags:      []string{"go", " cloud ", ""},
		Capacity:  3,
	})
	require.NotZero(t, ev.ID)

	got, err := l.Events.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gophercon", got.Name)
	assert.Equal(t, []string{"go", "cloud"}, got.Tags)
	assert.Equal(t, 3, got.Capacity)
	assert.True(t, got.StartsAt.Equal(base))

	_, err = l.Events.GetByID(ctx, ev.ID+100)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestFilterOptionsDistinctSorted(t *testing.T) {
	l := newLedger(t)
	seedEvent(t, l, model.Event{Location: "Paris", Category: "Music"})
	seedEvent(t, l, model.Event{Location: "Berlin", Category: "Tech"})
	seedEvent(t, l, model.Event{Location: "Paris", Category: "Tech"})

	locs, cats, err := l.Events.FilterOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Berlin", "Paris"}, locs)
	assert.Equal(t, []string{"Music", "Tech"}, cats)
}

func TestSearchFiltersAndOrdering(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	late := seedEvent(t, l, model.Event{Name: "Rust Night", Location: "Berlin", Category: "Tech", StartsAt: base.Add(48 * time.Hour)})
	early := seedEvent(t, l, model.Event{Name: "Go Night", Location: "Berlin", Category: "Tech", Tags: []string{"golang"}})
	seedEvent(t, l, model.Event{Name: "Jazz", Location: "Paris", Category: "Music", StartsAt: base.Add(24 * time.Hour)})

	items, total, err := l.Events.Search(ctx, EventSearchQuery{Location: "berlin", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, early.ID, items[0].ID)
	assert.Equal(t, late.ID, items[1].ID)

	items, total, err = l.Events.Search(ctx, EventSearchQuery{Text: "GOLANG", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, early.ID, items[0].ID)

	from := base.Add(time.Hour)
	items, total, err = l.Events.Search(ctx, EventSearchQuery{From: &from, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Jazz", items[0].Name)
}

func TestSearchEscapesWildcards(t *testing.T) {
	l := newLedger(t)
	seedEvent(t, l, model.Event{Name: "100% Go"})
	seedEvent(t, l, model.Event{Name: "1000 Gophers"})

	items, total, err := l.Events.Search(context.Background(), EventSearchQuery{Text: "100%", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "100% Go", items[0].Name)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%a!%b!_c!!%", likePattern("  A%b_C! "))
}

func TestTryClaimRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	ev := seedEvent(t, l, model.Event{})

	reg, err := l.TryClaim(ctx, ev.ID, "alice", base)
	require.NoError(t, err)
	assert.Equal(t, "alice", reg.UserID)

	_, err = l.TryClaim(ctx, ev.ID, "alice", base)
	assert.ErrorIs(t, err, ErrAlreadyHeld)

	n, err := l.CountHolders(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReleaseReportsMissingRecord(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	ev := seedEvent(t, l, model.Event{})
	_, err := l.TryClaim(ctx, ev.ID, "bob", base)
	require.NoError(t, err)

	ok, err := l.Release(ctx, ev.ID, "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Release(ctx, ev.ID, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	ev := seedEvent(t, l, model.Event{})
	boom := errors.New("boom")

	err := l.WithTx(ctx, func(ctx context.Context) error {
		if _, err := l.LockEvent(ctx, ev.ID); err != nil {
			return err
		}
		if _, err := l.TryClaim(ctx, ev.ID, "carol", base); err != nil {
			return err
		}
		n, err := l.CountHolders(ctx, ev.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, 1, n, "claim is visible inside the transaction")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := l.CountHolders(ctx, ev.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBatchCountsAndHolds(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	a := seedEvent(t, l, model.Event{Name: "A"})
	b := seedEvent(t, l, model.Event{Name: "B"})
	c := seedEvent(t, l, model.Event{Name: "C"})
	for _, u := range []string{"u1", "u2"} {
		_, err := l.TryClaim(ctx, a.ID, u, base)
		require.NoError(t, err)
	}
	_, err := l.TryClaim(ctx, b.ID, "u1", base)
	require.NoError(t, err)

	counts, err := l.Registrations.CountHoldersBatch(ctx, []uint64{a.ID, b.ID, c.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint64]int{a.ID: 2, b.ID: 1}, counts)

	holds, err := l.Registrations.HoldsFor(ctx, []uint64{a.ID, b.ID, c.ID}, "u2")
	require.NoError(t, err)
	assert.Equal(t, map[uint64]bool{a.ID: true}, holds)

	holds, err = l.Registrations.HoldsFor(ctx, []uint64{a.ID}, "")
	require.NoError(t, err)
	assert.Empty(t, holds)
}

func TestListByUserNewestFirst(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	a := seedEvent(t, l, model.Event{Name: "A"})
	b := seedEvent(t, l, model.Event{Name: "B"})
	_, err := l.TryClaim(ctx, a.ID, "dave", base.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = l.TryClaim(ctx, b.ID, "dave", base.Add(-time.Hour))
	require.NoError(t, err)
	_, err = l.TryClaim(ctx, a.ID, "erin", base)
	require.NoError(t, err)

	list, err := l.Registrations.ListByUser(ctx, "dave")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].Event.Name)
	assert.Equal(t, "A", list[1].Event.Name)
	assert.Equal(t, a.ID, list[1].Registration.EventID)

	list, err = l.Registrations.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestClassifyPassesContextErrors(t *testing.T) {
	assert.Equal(t, context.Canceled, classify(context.Canceled))
	assert.Nil(t, classify(nil))
	assert.False(t, errors.Is(classify(errors.New("syntax")), ErrStoreUnavailable))
}

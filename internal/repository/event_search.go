package repository

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/event-registration/internal/model"
)

// EventSearchQuery defines filters & pagination for searching events.
// From and To are inclusive bounds on StartsAt; nil means unbounded.
type EventSearchQuery struct {
	Text     string
	Location string
	Category string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// textColumns are matched by free-text search.  The MySQL FULLTEXT index
// ft_events_text covers exactly these columns.
var textColumns = []string{"name", "description", "organizer", "location", "category", "tags"}

// Search returns one page of events matching q, ordered by start time, and
// the total number of matches.  Free text goes through the FULLTEXT index
// when the dialect has one; when the index is missing the query is re-run
// with substring matching over the same columns.
func (r *EventRepo) Search(ctx context.Context, q EventSearchQuery) ([]model.Event, int64, error) {
	fullText := q.Text != "" && r.dialect.SupportsFullText()
	items, total, err := r.search(ctx, q, fullText)
	if err != nil && fullText && isFullTextMissing(err) {
		log.Printf("event search: full-text index unavailable, falling back to substring match")
		items, total, err = r.search(ctx, q, false)
	}
	if err != nil {
		return nil, 0, classify(err)
	}
	return items, total, nil
}

func (r *EventRepo) search(ctx context.Context, q EventSearchQuery, fullText bool) ([]model.Event, int64, error) {
	where := []string{}
	args := []any{}

	if q.Text != "" {
		if fullText {
			cols := make([]string, len(textColumns))
			for i, c := range textColumns {
				cols[i] = "e." + c
			}
			where = append(where, "MATCH("+strings.Join(cols, ", ")+") AGAINST (? IN NATURAL LANGUAGE MODE)")
			args = append(args, q.Text)
		} else {
			pattern := likePattern(q.Text)
			ors := make([]string, len(textColumns))
			for i, c := range textColumns {
				ors[i] = "LOWER(e." + c + ") LIKE ? ESCAPE '!'"
				args = append(args, pattern)
			}
			where = append(where, "("+strings.Join(ors, " OR ")+")")
		}
	}
	if q.Location != "" {
		where = append(where, "LOWER(e.location) LIKE ? ESCAPE '!'")
		args = append(args, likePattern(q.Location))
	}
	if q.Category != "" {
		where = append(where, "LOWER(e.category) LIKE ? ESCAPE '!'")
		args = append(args, likePattern(q.Category))
	}
	if q.From != nil {
		where = append(where, "e.starts_at >= ?")
		args = append(args, toMillis(*q.From))
	}
	if q.To != nil {
		where = append(where, "e.starts_at <= ?")
		args = append(args, toMillis(*q.To))
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM events e WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT ` + eventColumns + `
		FROM events e
		WHERE ` + cond + `
		ORDER BY e.starts_at ASC, e.id ASC
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), q.Limit, q.Offset)

	rows, err := r.q(ctx).QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Event, 0, q.Limit)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// likePattern builds a case-insensitive substring pattern, escaping LIKE
// wildcards in the user's input with '!'.
func likePattern(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
	return "%" + s + "%"
}

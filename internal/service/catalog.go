package service

import (
	"context"
	"math"
	"time"

	"github.com/iliyamo/event-registration/internal/clock"
	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/repository"
)

const (
	DefaultPageLimit = 12
	MaxPageLimit     = 50
)

// EventStore is the read side of the event catalog.
type EventStore interface {
	Search(ctx context.Context, q repository.EventSearchQuery) ([]model.Event, int64, error)
	GetByID(ctx context.Context, id uint64) (model.Event, error)
	FilterOptions(ctx context.Context) (locations, categories []string, err error)
}

// RegistrationLister lists a user's holder records with their events.
type RegistrationLister interface {
	ListByUser(ctx context.Context, userID string) ([]repository.RegistrationDetail, error)
}

// ListQuery carries the listing filters.  Zero values mean "not given".
type ListQuery struct {
	Search   string
	Location string
	Category string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	Limit    int
}

// Pagination describes the page that was returned.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Page is one page of projected events.
type Page struct {
	Events     []EventView `json:"events"`
	Pagination Pagination  `json:"pagination"`
}

// FilterOptions lists the values the listing filters can take.
type FilterOptions struct {
	Locations  []string `json:"locations"`
	Categories []string `json:"categories"`
}

// RegistrationView is one entry on a user's dashboard.
type RegistrationView struct {
	RegisteredAt time.Time `json:"registered_at"`
	Event        EventView `json:"event"`
}

// Dashboard groups a user's registrations.  Registrations is newest first;
// Upcoming and Past keep that order.
type Dashboard struct {
	Registrations []RegistrationView `json:"registrations"`
	Upcoming      []RegistrationView `json:"upcoming"`
	Past          []RegistrationView `json:"past"`
}

// CatalogService answers the read-only queries.
type CatalogService struct {
	events    EventStore
	regs      RegistrationLister
	projector *Projector
	clock     clock.Clock
}

func NewCatalogService(events EventStore, regs RegistrationLister, projector *Projector, clk clock.Clock) *CatalogService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &CatalogService{events: events, regs: regs, projector: projector, clock: clk}
}

// List returns one page of events matching q, sorted by start time.  When
// neither date bound is given only events that have not started are listed.
func (s *CatalogService) List(ctx context.Context, q ListQuery, userID string) (Page, error) {
	page, limit := normalizePage(q.Page, q.Limit)
	sq := repository.EventSearchQuery{
		Text:     q.Search,
		Location: q.Location,
		Category: q.Category,
		From:     q.DateFrom,
		To:       q.DateTo,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
	if sq.From == nil && sq.To == nil {
		now := s.clock.Now()
		sq.From = &now
	}

	events, total, err := s.events.Search(ctx, sq)
	if err != nil {
		return Page{}, err
	}
	views, err := s.projector.Project(ctx, events, userID)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Events: views,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages(total, limit),
		},
	}, nil
}

// Get returns a single projected event.
func (s *CatalogService) Get(ctx context.Context, id uint64, userID string) (EventView, error) {
	ev, err := s.events.GetByID(ctx, id)
	if err != nil {
		return EventView{}, err
	}
	views, err := s.projector.Project(ctx, []model.Event{ev}, userID)
	if err != nil {
		return EventView{}, err
	}
	return views[0], nil
}

func (s *CatalogService) FilterOptions(ctx context.Context) (FilterOptions, error) {
	locs, cats, err := s.events.FilterOptions(ctx)
	if err != nil {
		return FilterOptions{}, err
	}
	return FilterOptions{Locations: locs, Categories: cats}, nil
}

// MyRegistrations returns every registration held by userID, split into
// events that have not started yet and events that have.
func (s *CatalogService) MyRegistrations(ctx context.Context, userID string) (Dashboard, error) {
	details, err := s.regs.ListByUser(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	events := make([]model.Event, len(details))
	for i, d := range details {
		events[i] = d.Event
	}
	views, err := s.projector.Project(ctx, events, userID)
	if err != nil {
		return Dashboard{}, err
	}

	now := s.clock.Now()
	dash := Dashboard{
		Registrations: make([]RegistrationView, 0, len(details)),
		Upcoming:      []RegistrationView{},
		Past:          []RegistrationView{},
	}
	for i, d := range details {
		rv := RegistrationView{RegisteredAt: d.Registration.CreatedAt, Event: views[i]}
		dash.Registrations = append(dash.Registrations, rv)
		if d.Event.StartsAt.Before(now) {
			dash.Past = append(dash.Past, rv)
		} else {
			dash.Upcoming = append(dash.Upcoming, rv)
		}
	}
	return dash, nil
}

// maxPage keeps (page-1)*limit within int for every allowed limit.
const maxPage = math.MaxInt / MaxPageLimit

// normalizePage applies the listing defaults: page starts at 1, a missing
// limit means DefaultPageLimit and any limit is clamped to [1, MaxPageLimit].
// Pages beyond maxPage are clamped so the offset cannot overflow.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	switch {
	case limit == 0:
		limit = DefaultPageLimit
	case limit < 1:
		limit = 1
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}
	return page, limit
}

func totalPages(total int64, limit int) int {
	if total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

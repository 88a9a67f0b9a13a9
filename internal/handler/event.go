// Package handler exposes the HTTP API: public event browsing and the
// authenticated registration endpoints.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/middleware"
	"github.com/iliyamo/event-registration/internal/service"
)

// EventCatalog is the read side used by the handlers.
type EventCatalog interface {
	List(ctx context.Context, q service.ListQuery, userID string) (service.Page, error)
	Get(ctx context.Context, id uint64, userID string) (service.EventView, error)
	FilterOptions(ctx context.Context) (service.FilterOptions, error)
	MyRegistrations(ctx context.Context, userID string) (service.Dashboard, error)
}

// EventHandler serves the public browsing API.  A bearer token is optional;
// when present the events are annotated with is_registered.
type EventHandler struct {
	Catalog EventCatalog
}

func NewEventHandler(catalog EventCatalog) *EventHandler {
	return &EventHandler{Catalog: catalog}
}

// ListEvents handles GET /v1/events.
//
// Query: search, location, category, date_from, date_to (RFC3339 or
// YYYY-MM-DD, inclusive), page, limit.  Without date bounds only upcoming
// events are listed.
func (h *EventHandler) ListEvents(c echo.Context) error {
	from, err := parseDateParam(c.QueryParam("date_from"), false)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_from"})
	}
	to, err := parseDateParam(c.QueryParam("date_to"), true)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_to"})
	}
	if from != nil && to != nil && to.Before(*from) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date_to is before date_from"})
	}

	// Unparseable page/limit fall back to the defaults.
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	q := service.ListQuery{
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Location: strings.TrimSpace(c.QueryParam("location")),
		Category: strings.TrimSpace(c.QueryParam("category")),
		DateFrom: from,
		DateTo:   to,
		Page:     page,
		Limit:    limit,
	}
	res, err := h.Catalog.List(c.Request().Context(), q, middleware.UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// GetEvent handles GET /v1/events/:id.
func (h *EventHandler) GetEvent(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	view, err := h.Catalog.Get(c.Request().Context(), id, middleware.UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// FilterOptions handles GET /v1/events/filters.
func (h *EventHandler) FilterOptions(c echo.Context) error {
	opts, err := h.Catalog.FilterOptions(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, opts)
}

// parseDateParam accepts RFC3339 or a bare date.  A bare date used as an
// upper bound covers the whole day.
func parseDateParam(v string, endOfDay bool) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, nil
}

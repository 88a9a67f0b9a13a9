package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/middleware"
	"github.com/iliyamo/event-registration/internal/service"
)

// Registrar admits and cancels registrations.
type Registrar interface {
	Register(ctx context.Context, eventID uint64, userID string) (service.Admission, error)
	Cancel(ctx context.Context, eventID uint64, userID string) error
}

// RegistrationHandler serves the authenticated registration endpoints.
// JWTAuth must run first so the caller is known.
type RegistrationHandler struct {
	Registrar Registrar
	Catalog   EventCatalog
}

func NewRegistrationHandler(registrar Registrar, catalog EventCatalog) *RegistrationHandler {
	return &RegistrationHandler{Registrar: registrar, Catalog: catalog}
}

type registrationResponse struct {
	EventID         uint64    `json:"event_id"`
	UserID          string    `json:"user_id"`
	CreatedAt       time.Time `json:"created_at"`
	RegisteredCount int       `json:"registered_count"`
	Capacity        int       `json:"capacity"`
}

// Register handles POST /v1/registrations/:eventId.
func (h *RegistrationHandler) Register(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := eventIDParam(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}

	adm, err := h.Registrar.Register(c.Request().Context(), eventID, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "successfully registered for " + adm.Event.Name,
		"registration": registrationResponse{
			EventID:         adm.Registration.EventID,
			UserID:          adm.Registration.UserID,
			CreatedAt:       adm.Registration.CreatedAt,
			RegisteredCount: adm.RegisteredCount,
			Capacity:        adm.Event.Capacity,
		},
	})
}

// Cancel handles DELETE /v1/registrations/:eventId.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := eventIDParam(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": service.ErrNotRegistered.Error()})
	}
	if err := h.Registrar.Cancel(c.Request().Context(), eventID, userID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "registration cancelled"})
}

// MyRegistrations handles GET /v1/registrations/my.
func (h *RegistrationHandler) MyRegistrations(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	dash, err := h.Catalog.MyRegistrations(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dash)
}

func eventIDParam(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("eventId"), 10, 64)
	return id, err == nil && id != 0
}

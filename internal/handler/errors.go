package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/service"
)

// writeError maps service outcomes to HTTP responses.  Rejections the
// caller can act on are 400 with a readable reason; unexpected failures are
// logged and reported without detail.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case errors.Is(err, service.ErrNotRegistered):
		return c.JSON(http.StatusNotFound, echo.Map{"error": service.ErrNotRegistered.Error()})
	case errors.Is(err, service.ErrAlreadyRegistered),
		errors.Is(err, service.ErrEventFull),
		errors.Is(err, service.ErrEventInPast):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		c.Logger().Warnf("store unavailable: %v", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service temporarily unavailable, please retry"})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

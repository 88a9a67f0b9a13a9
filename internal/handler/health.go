package handler // declare the package name; contains HTTP handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is a liveness endpoint for load balancers and monitoring.  It
// writes a plain text "ok" with status 200 and touches no dependency.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

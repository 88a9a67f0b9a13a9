package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/handler"
	"github.com/iliyamo/event-registration/internal/middleware"
)

// Deps bundles what the routes need.  Cache and RateLimit may be nil.
type Deps struct {
	Events        *handler.EventHandler
	Registrations *handler.RegistrationHandler
	JWTSecret     string
	Cache         *middleware.ResponseCache
	RateLimit     echo.MiddlewareFunc
}

// RegisterRoutes registers non-authenticated routes.  It exposes only the
// health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the browse endpoints.  A bearer token is
// optional; guest responses go through the response cache.
func RegisterPublic(e *echo.Echo, d Deps) {
	g := e.Group("/v1/events", middleware.OptionalJWTAuth(d.JWTSecret), d.Cache.Middleware())
	g.GET("", d.Events.ListEvents)
	g.GET("/filters", d.Events.FilterOptions)
	g.GET("/:id", d.Events.GetEvent)
}

// RegisterRegistrations registers the endpoints that require a valid access
// token.  Seat claims and releases are rate limited per caller.
func RegisterRegistrations(e *echo.Echo, d Deps) {
	g := e.Group("/v1/registrations", middleware.JWTAuth(d.JWTSecret))
	g.GET("/my", d.Registrations.MyRegistrations)

	mutate := []echo.MiddlewareFunc{}
	if d.RateLimit != nil {
		mutate = append(mutate, d.RateLimit)
	}
	g.POST("/:eventId", d.Registrations.Register, mutate...)
	g.DELETE("/:eventId", d.Registrations.Cancel, mutate...)
}

// Register wires every route.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e)
	RegisterPublic(e, d)
	RegisterRegistrations(e, d)
}

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/event-registration/internal/handler"
)

func TestRegisterRoutes(t *testing.T) {
	e := echo.New()
	Register(e, Deps{
		Events:        handler.NewEventHandler(nil),
		Registrations: handler.NewRegistrationHandler(nil, nil),
		JWTSecret:     "secret",
	})

	want := map[string]bool{
		"GET /healthz":                      true,
		"GET /v1/events":                    true,
		"GET /v1/events/filters":            true,
		"GET /v1/events/:id":                true,
		"GET /v1/registrations/my":          true,
		"POST /v1/registrations/:eventId":   true,
		"DELETE /v1/registrations/:eventId": true,
	}
	for _, r := range e.Routes() {
		delete(want, r.Method+" "+r.Path)
	}
	assert.Empty(t, want, "routes not registered")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/registrations/1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

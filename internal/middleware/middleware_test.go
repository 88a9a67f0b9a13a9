package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-registration/internal/config"
	"github.com/iliyamo/event-registration/internal/utils"
)

const secret = "test-secret"

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, userID, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func do(e *echo.Echo, method, target, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c))
	}, JWTAuth(secret))

	rec := do(e, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing bearer token"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/me", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/me", bearer(t, strings.Repeat("x", utils.MaxSubjectLen+1)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/me", bearer(t, "alice"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Body.String())
}

func TestOptionalJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/who", func(c echo.Context) error {
		return c.String(http.StatusOK, keyUserID(c))
	}, OptionalJWTAuth(secret))

	assert.Equal(t, "anon", do(e, http.MethodGet, "/who", "").Body.String())
	assert.Equal(t, "anon", do(e, http.MethodGet, "/who", "Bearer broken").Body.String())
	assert.Equal(t, "bob", do(e, http.MethodGet, "/who", bearer(t, "bob")).Body.String())
}

func newCacheEcho(t *testing.T, rc *ResponseCache, hits *int) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.GET("/v1/events/:id", func(c echo.Context) error {
		*hits++
		return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "user": UserID(c)})
	}, OptionalJWTAuth(secret), rc.Middleware())
	return e
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{http.MethodGet: true},
		TTL:         time.Minute,
		KeyStrategy: "route_query",
		Prefix:      "cache",
	}
}

func TestResponseCacheGuestHitAndInvalidate(t *testing.T) {
	_, rdb := newRedis(t)
	rc := NewRedisCache(cacheConfig(), rdb)
	hits := 0
	e := newCacheEcho(t, rc, &hits)

	first := do(e, http.MethodGet, "/v1/events/1", "")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := do(e, http.MethodGet, "/v1/events/1", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, hits)

	other := do(e, http.MethodGet, "/v1/events/2", "")
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.Equal(t, 2, hits)

	require.NoError(t, rc.Invalidate(context.Background()))
	again := do(e, http.MethodGet, "/v1/events/1", "")
	assert.Equal(t, "MISS", again.Header().Get("X-Cache"))
	assert.Equal(t, 3, hits)
}

func TestResponseCacheSkipsAuthenticatedCallers(t *testing.T) {
	_, rdb := newRedis(t)
	rc := NewRedisCache(cacheConfig(), rdb)
	hits := 0
	e := newCacheEcho(t, rc, &hits)

	auth := bearer(t, "alice")
	do(e, http.MethodGet, "/v1/events/1", auth)
	rec := do(e, http.MethodGet, "/v1/events/1", auth)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Contains(t, rec.Body.String(), "alice")
	assert.Equal(t, 2, hits)
}

func TestResponseCacheDisabled(t *testing.T) {
	rc := NewRedisCache(cacheConfig(), nil)
	assert.NoError(t, rc.Invalidate(context.Background()))
	hits := 0
	e := newCacheEcho(t, rc, &hits)
	do(e, http.MethodGet, "/v1/events/1", "")
	do(e, http.MethodGet, "/v1/events/1", "")
	assert.Equal(t, 2, hits)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)
	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            2 * time.Hour,
		KeyStrategy:    "user_route",
		Prefix:         "rl",
	}
	e := echo.New()
	e.POST("/v1/registrations/:eventId", func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	}, JWTAuth(secret), NewTokenBucket(cfg, rdb))

	alice := bearer(t, "alice")
	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/v1/registrations/1", alice).Code)
	rec := do(e, http.MethodPost, "/v1/registrations/2", alice)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do(e, http.MethodPost, "/v1/registrations/3", alice)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/v1/registrations/1", bearer(t, "bob")).Code)
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute}
	e := echo.New()
	e.POST("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb))

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/x", "").Code)
	assert.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/x", "").Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/registrations/5", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/registrations/:eventId")
	c.SetParamNames("eventId")
	c.SetParamValues("5")
	c.Set(userIDKey, "alice")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}
	assert.Equal(t, "rl:user:alice", buildRateKey(cfg, c))
	cfg.KeyStrategy = "ip_user_route"
	assert.Equal(t, "rl:ip:10.0.0.1:user:alice:route:POST /v1/registrations/:eventId", buildRateKey(cfg, c))
	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:user:alice:event:5", buildRateKey(cfg, c))
}

func TestTokenBucketPerUserAndEvent(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       1,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            2 * time.Hour,
		KeyStrategy:    "user_event",
		Prefix:         "rl",
	}
	limit := NewTokenBucket(cfg, rdb)
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.POST("/v1/registrations/:eventId", ok, JWTAuth(secret), limit)
	e.DELETE("/v1/registrations/:eventId", ok, JWTAuth(secret), limit)

	alice := bearer(t, "alice")
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/v1/registrations/1", alice).Code)
	rec := do(e, http.MethodDelete, "/v1/registrations/1", alice)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "register and cancel share the event bucket")
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/v1/registrations/2", alice).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/v1/registrations/1", bearer(t, "bob")).Code)
}

func TestBucketDecisionRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 0, bucketDecision{}.RetryAfterSeconds())
	assert.Equal(t, 1, bucketDecision{RetryAfter: time.Millisecond}.RetryAfterSeconds())
	assert.Equal(t, 2, bucketDecision{RetryAfter: 1500 * time.Millisecond}.RetryAfterSeconds())
}

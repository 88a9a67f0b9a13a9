package middleware

import "github.com/labstack/echo/v4"

// userIDKey is the echo context key holding the authenticated subject.
const userIDKey = "user_id"

// UserID returns the authenticated caller set by JWTAuth or OptionalJWTAuth,
// or "" for guests.
func UserID(c echo.Context) string {
	if s, ok := c.Get(userIDKey).(string); ok {
		return s
	}
	return ""
}

// keyUserID is UserID with a placeholder for guests, for use in cache and
// rate-limit keys.
func keyUserID(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}

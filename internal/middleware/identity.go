package middleware

// identity.go holds the context keys set by JWTAuth and the accessors that
// handlers and other middleware use to read them back.

import "github.com/labstack/echo/v4"

const (
	ctxUserID        = "user_id"
	ctxEmailVerified = "email_verified"
)

// UserID returns the authenticated user's id, or "" for anonymous requests.
func UserID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok {
		return s
	}
	return ""
}

// EmailVerified reports the email_verified claim of the access token.
func EmailVerified(c echo.Context) bool {
	v, _ := c.Get(ctxEmailVerified).(bool)
	return v
}

// rateUserID is UserID with a placeholder for anonymous callers, so they
// share one rate-limit bucket per IP.
func rateUserID(c echo.Context) string {
	if uid := UserID(c); uid != "" {
		return uid
	}
	return "anon"
}

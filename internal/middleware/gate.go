package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/authz"
)

// AdminLookup resolves the is_admin flag of a user.
type AdminLookup func(ctx context.Context, userID string) (bool, error)

// Gate turns authz decisions into HTTP responses.  It must run after
// JWTAuth or OptionalJWT.
type Gate struct {
	isAdmin AdminLookup
	timeout time.Duration
	logger  *slog.Logger
}

// NewGate returns a Gate that gives the admin lookup at most timeout.  A
// lookup that runs out of time leaves the decision pending.
func NewGate(isAdmin AdminLookup, timeout time.Duration, logger *slog.Logger) *Gate {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Gate{isAdmin: isAdmin, timeout: timeout, logger: logger.With("component", "gate")}
}

// Identity builds the gate's view of the caller.  The admin flag is only
// looked up for admin views.
func (g *Gate) Identity(c echo.Context, v authz.View) authz.Identity {
	uid := UserID(c)
	if uid == "" {
		return authz.Identity{State: authz.Anonymous}
	}
	id := authz.Identity{State: authz.Authenticated, UserID: uid, EmailVerified: EmailVerified(c)}
	if v.Audience != authz.Admin {
		return id
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), g.timeout)
	defer cancel()
	admin, err := g.isAdmin(ctx, uid)
	if errors.Is(err, context.DeadlineExceeded) {
		g.logger.Warn("admin lookup timed out", "user_id", uid)
		id.Admin = authz.AdminLoading
		return id
	}
	if err != nil {
		g.logger.Error("admin lookup failed", "user_id", uid, "error", err)
	}
	id.Admin = authz.AdminFromLookup(admin, err)
	return id
}

// Decide evaluates v for the current request.  location is where a login
// should return to.
func (g *Gate) Decide(c echo.Context, v authz.View, location string) authz.Decision {
	return authz.AuthorizeAt(v, g.Identity(c, v), location)
}

// RequireView blocks requests the gate does not allow: 401 for anonymous
// callers, 403 for unverified or non-admin ones, and 503 with Retry-After
// while the decision is still pending.  Denials carry the redirect target.
func (g *Gate) RequireView(v authz.View) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := g.Decide(c, v, c.Request().URL.RequestURI())
			switch d.Outcome {
			case authz.Allow:
				return next(c)
			case authz.Pending:
				c.Response().Header().Set("Retry-After", strconv.Itoa(1))
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "authorization pending", "reason": d.Reason})
			}
			status := http.StatusForbidden
			if d.Reason == authz.ReasonUnauthenticated {
				status = http.StatusUnauthorized
			}
			return c.JSON(status, echo.Map{"error": denyMessage(d.Reason), "reason": d.Reason, "redirect": d.Redirect})
		}
	}
}

func denyMessage(r authz.Reason) string {
	switch r {
	case authz.ReasonUnauthenticated:
		return "sign in required"
	case authz.ReasonUnverified:
		return "email address not verified"
	case authz.ReasonAdminCheckFailed:
		return "could not verify admin access"
	}
	return "forbidden"
}

package handler // handler defines http handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/middleware"
	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/repository"
	"github.com/iliyamo/travel-booking/internal/service"
	"github.com/iliyamo/travel-booking/internal/session"
)

// errorStatus maps the sentinels of the lower layers to HTTP statuses.
// Their messages are written to the client unchanged.
var errorStatus = []struct {
	err    error
	status int
}{
	{repository.ErrNotFound, http.StatusNotFound},
	{repository.ErrForbidden, http.StatusForbidden},
	{repository.ErrConflict, http.StatusConflict},
	{repository.ErrInsufficientSlots, http.StatusConflict},
	{repository.ErrInUse, http.StatusConflict},
	{repository.ErrEmailExists, http.StatusConflict},
	{repository.ErrInvalidToken, http.StatusUnauthorized},

	{model.ErrInvalidTransition, http.StatusConflict},
	{model.ErrNotEditable, http.StatusConflict},
	{model.ErrNotCancellable, http.StatusConflict},
	{model.ErrNotDeletable, http.StatusConflict},
	{model.ErrNotReviewable, http.StatusConflict},
	{model.ErrReviewExists, http.StatusConflict},
	{model.ErrInvalidTravelers, http.StatusBadRequest},
	{model.ErrInvalidRating, http.StatusBadRequest},
	{model.ErrInvalidPackage, http.StatusBadRequest},

	{service.ErrNameRequired, http.StatusBadRequest},
	{service.ErrInvalidDates, http.StatusBadRequest},
	{service.ErrInvalidPayment, http.StatusBadRequest},
	{service.ErrMissingReservation, http.StatusBadRequest},
	{service.ErrSelfDemotion, http.StatusConflict},

	{session.ErrInvalidCredentials, http.StatusUnauthorized},
	{session.ErrEmailNotVerified, http.StatusForbidden},
	{session.ErrAlreadyRegistered, http.StatusConflict},
	{session.ErrInvalidSignUp, http.StatusBadRequest},
	{session.ErrInvalidSession, http.StatusUnauthorized},
	{session.ErrInvalidVerification, http.StatusBadRequest},
}

// fail writes the error response for err.  Known rejections are reported
// verbatim with their kind; anything else is a transport failure and is
// handed to echo's error handler with the cause attached for the request
// log, while the client only sees a generic message.
func fail(c echo.Context, err error) error {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return c.JSON(e.status, echo.Map{"error": err.Error(), "kind": service.Classify(err).String()})
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return echo.NewHTTPError(http.StatusGatewayTimeout, echo.Map{"error": "request timed out"}).SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, echo.Map{"error": "internal error"}).SetInternal(err)
}

// Timeout bounds the backend work of a single request.
var Timeout = 5 * time.Second

// reqCtx derives the per-request context used for service calls.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), Timeout)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// currentUser returns the authenticated user id.  Routes using it sit
// behind JWTAuth, so an empty id means the middleware chain is wrong.
func currentUser(c echo.Context) (string, error) {
	uid := middleware.UserID(c)
	if uid == "" {
		return "", c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return uid, nil
}

// idParam returns the trimmed ":id" path parameter.
func idParam(c echo.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	return id, id != ""
}

// parseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// optionalDate parses s when it is not blank.
func optionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// priceToCents converts a decimal price ("1499.99") to cents.  Prices
// whose cents do not fit an int64 are rejected.
func priceToCents(s string) (int64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, errors.New("invalid price")
	}
	cents := math.Round(f * 100)
	if cents >= math.MaxInt64 {
		return 0, errors.New("price out of range")
	}
	return int64(cents), nil
}

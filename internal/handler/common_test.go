package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/repository"
	"github.com/iliyamo/travel-booking/internal/session"
)

func TestFailStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{repository.ErrNotFound, http.StatusNotFound, "rejected"},
		{fmt.Errorf("ReservationRepo.Create: %w", repository.ErrInsufficientSlots), http.StatusConflict, "rejected"},
		{repository.ErrInUse, http.StatusConflict, "rejected"},
		{model.ErrInvalidTravelers, http.StatusBadRequest, "precondition"},
		{session.ErrEmailNotVerified, http.StatusForbidden, "rejected"},
		{session.ErrInvalidCredentials, http.StatusUnauthorized, "rejected"},
	}
	for _, tt := range tests {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		if err := fail(c, tt.err); err != nil {
			t.Fatalf("fail(%v) returned %v", tt.err, err)
		}
		if rec.Code != tt.status {
			t.Errorf("fail(%v) status = %d, want %d", tt.err, rec.Code, tt.status)
		}
		var body map[string]string
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if body["error"] != tt.err.Error() || body["kind"] != tt.kind {
			t.Errorf("fail(%v) body = %v", tt.err, body)
		}
	}
}

func TestFailHidesTransportErrors(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	err := fail(c, errors.New("dial tcp 10.0.0.3:3306: connection refused"))
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("fail returned %T, want *echo.HTTPError", err)
	}
	if he.Code != http.StatusInternalServerError || he.Internal == nil {
		t.Errorf("HTTPError = %+v", he)
	}
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Error("transport failure was written directly")
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2027-07-01", "2027-07-01T00:00:00Z", " 2027-07-01 "} {
		d, err := parseDate(s)
		if err != nil || d.Year() != 2027 || d.Month() != 7 || d.Day() != 1 {
			t.Errorf("parseDate(%q) = %v, %v", s, d, err)
		}
	}
	if _, err := parseDate("07/01/2027"); err == nil {
		t.Error("parseDate accepted a US date")
	}
}

func TestPriceToCents(t *testing.T) {
	tests := map[string]int64{"1499.99": 149999, "700": 70000, "0.1": 10}
	for in, want := range tests {
		if got, err := priceToCents(in); err != nil || got != want {
			t.Errorf("priceToCents(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"-1", "abc", "NaN", "1e17", "1e300"} {
		if _, err := priceToCents(in); err == nil {
			t.Errorf("priceToCents(%q) accepted", in)
		}
	}
}

package handler

import (
	"net/http" // HTTP status codes
	"strings"

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/travel-booking/internal/repository"
	"github.com/iliyamo/travel-booking/internal/service"
)

// CustomerHandler serves the signed-in traveler: bookings, reviews and the
// profile.  All methods assume that JWT authentication and the view gate
// have already run, and return 401 if the user ID cannot be extracted from
// the context.
type CustomerHandler struct {
	Reservations *service.ReservationService
	Reviews      *service.ReviewService
	Profiles     *service.ProfileService
}

type createReservationReq struct {
	PackageID    string `json:"package_id"`
	NumTravelers int    `json:"num_travelers"`
}

type updateReservationReq struct {
	NumTravelers int    `json:"num_travelers"`
	BookingDate  string `json:"booking_date"` // optional, keeps the stored date when empty
}

type reviewReq struct {
	HotelRating   *int    `json:"hotel_rating"`
	AirlineRating *int    `json:"airline_rating"`
	Comments      *string `json:"comments"`
}

type profileReq struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// ListReservations handles GET /v1/my-reservations.
func (h *CustomerHandler) ListReservations(c echo.Context) error {
	uid, err := currentUser(c)
	if uid == "" {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rs, err := h.Reservations.List(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rs})
}

// GetReservation handles GET /v1/reservations/:id.  Other users'
// reservations answer 404.
func (h *CustomerHandler) GetReservation(c echo.Context) error {
	uid, err := currentUser(c)
	if uid == "" {
		return err
	}
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Reservations.Get(ctx, uid, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// CreateReservation handles POST /v1/reservations.  The body carries the
// package and the number of travelers; the total price is computed from
// the package price and the slots are taken in the same step.
func (h *CustomerHandler) CreateReservation(c echo.Context) error {
	uid, err := currentUser(c)
	if uid == "" {
		return err
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.PackageID = strings.TrimSpace(req.PackageID)
	if req.PackageID == "" {
		return badRequest(c, "package_id required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Reservations.Create(ctx, uid, req.PackageID, req.NumTravelers)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// UpdateReservation handles PATCH /v1/reservations/:id.
func (h *CustomerHandler) UpdateReservation(c echo.Context) error {
	uid, err := currentUser(c)
	if uid == "" {
		return err
	}
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req updateReservationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	date, err := optionalDate(req.BookingDate)
	if err != nil {
		return badRequest(c, "invalid booking_date")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Reservations.Update(ctx, uid, id, repository.ReservationEdit{NumTravelers: req.NumTravelers, BookingDate: date})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// CancelReservation handles POST /v1/reservations/:id/cancel.  The booked
// slots return to the package.
func (h *CustomerHandler) CancelReservation(c echo.Context) error {
	uid, err := currentUser(c)
	if uid == "" {
		return err
	}
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Reservations.Cancel(ctx, uid, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// DeleteReservation handles DELETE /v1/reservations/:id.  Only cancelled,
// unpaid reservations can be deleted.
func (h *CustomerHandler) DeleteReservation(c echo.Context) error {
	uid, err := currentUser(c)
	if uid == "" {
		return err
	}
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Reservations.Delete(ctx, uid, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateReview handles POST /v1/reservations/:id/review.
func (h *CustomerHandler) CreateReview(c echo.Context) error {
	uid, err := currentUser(c)
	if uid == "" {
		return err
	}
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rv, err := h.Reviews.Create(ctx, uid, repository.NewReview{
		ReservationID: id,
		HotelRating:   req.HotelRating,
		AirlineRating: req.AirlineRating,
		Comments:      req.Comments,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, rv)
}

// ListMyReviews handles GET /v1/my-reviews.
func (h *CustomerHandler) ListMyReviews(c echo.Context) error {
	uid, err := currentUser(c)
	if uid == "" {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rvs, err := h.Reviews.Mine(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rvs})
}

// GetProfile handles GET /v1/profile.
func (h *CustomerHandler) GetProfile(c echo.Context) error {
	uid, err := currentUser(c)
	if uid == "" {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Profiles.Get(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// UpdateProfile handles PATCH /v1/profile.  Blank names clear the field.
func (h *CustomerHandler) UpdateProfile(c echo.Context) error {
	uid, err := currentUser(c)
	if uid == "" {
		return err
	}
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Profiles.UpdateNames(ctx, uid, req.FirstName, req.LastName)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/service"
)

// AdminHandler serves the back office: dashboard, reservations, reviews
// and users.  Routes are gated on the admin views.
type AdminHandler struct {
	Admin *service.AdminService
}

type statusReq struct {
	Status model.Status `json:"status"`
}

type paymentReq struct {
	PaymentStatus model.PaymentStatus `json:"payment_status"`
}

type adminFlagReq struct {
	IsAdmin *bool `json:"is_admin"`
}

// Stats handles GET /v1/admin/stats.
func (h *AdminHandler) Stats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	st, err := h.Admin.Stats(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// ListReservations handles GET /v1/admin/reservations?status=.
func (h *AdminHandler) ListReservations(c echo.Context) error {
	status := model.Status(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return badRequest(c, "invalid status")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rs, err := h.Admin.Reservations(ctx, status)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rs})
}

func (h *AdminHandler) GetReservation(c echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Admin.Reservation(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// SetStatus handles PATCH /v1/admin/reservations/:id/status.
func (h *AdminHandler) SetStatus(c echo.Context) error {
	uid, err := currentUser(c)
	if uid == "" {
		return err
	}
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Admin.SetStatus(ctx, uid, id, req.Status)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// SetPayment handles PATCH /v1/admin/reservations/:id/payment.
func (h *AdminHandler) SetPayment(c echo.Context) error {
	uid, err := currentUser(c)
	if uid == "" {
		return err
	}
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Admin.SetPayment(ctx, uid, id, req.PaymentStatus)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// CancelReservation handles POST /v1/admin/reservations/:id/cancel.
func (h *AdminHandler) CancelReservation(c echo.Context) error {
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

	r, err := h.Admin.Cancel(ctx, uid, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *AdminHandler) ListReviews(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	rvs, err := h.Admin.Reviews(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rvs})
}

func (h *AdminHandler) GetReview(c echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rv, err := h.Admin.Review(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rv)
}

func (h *AdminHandler) DeleteReview(c echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Admin.DeleteReview(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	ps, err := h.Admin.Users(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": ps})
}

// SetAdmin handles PATCH /v1/admin/users/:id/admin with {"is_admin": bool}.
func (h *AdminHandler) SetAdmin(c echo.Context) error {
	uid, err := currentUser(c)
	if uid == "" {
		return err
	}
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req adminFlagReq
	if err := c.Bind(&req); err != nil || req.IsAdmin == nil {
		return badRequest(c, "is_admin required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Admin.SetAdmin(ctx, uid, id, *req.IsAdmin)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

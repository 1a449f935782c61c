package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/service"
)

// AdminCatalogHandler exposes catalog maintenance for administrators.
// Reads reuse CatalogHandler.
type AdminCatalogHandler struct {
	Catalog *service.CatalogService
}

// packageReq is the admin package form.  Dates accept 2006-01-02 or
// RFC 3339; duration_days is derived from the dates when omitted.
type packageReq struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Destination    string  `json:"destination"`
	PriceCents     int64   `json:"price_cents"`
	AvailableSlots int     `json:"available_slots"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	DurationDays   *int    `json:"duration_days"`
	HotelID        *string `json:"hotel_id"`
	AirlineID      *string `json:"airline_id"`
	ConventionID   *string `json:"convention_id"`
	ImageURL       *string `json:"image_url"`
}

func (r packageReq) model() (*model.Package, error) {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(r.EndDate)
	if err != nil {
		return nil, err
	}
	return &model.Package{
		Title:          r.Title,
		Description:    r.Description,
		Destination:    r.Destination,
		PriceCents:     r.PriceCents,
		AvailableSlots: r.AvailableSlots,
		StartDate:      start,
		EndDate:        end,
		DurationDays:   r.DurationDays,
		HotelID:        blank(r.HotelID),
		AirlineID:      blank(r.AirlineID),
		ConventionID:   blank(r.ConventionID),
		ImageURL:       blank(r.ImageURL),
	}, nil
}

type conventionReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
}

func (r conventionReq) model() (*model.Convention, error) {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(r.EndDate)
	if err != nil {
		return nil, err
	}
	return &model.Convention{Name: r.Name, Description: r.Description, Location: r.Location, StartDate: start, EndDate: end}, nil
}

// blank maps an empty optional reference to nil so that "" never ends up
// in a foreign key column.
func blank(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// CreatePackage handles POST /v1/admin/packages.
func (h *AdminCatalogHandler) CreatePackage(c echo.Context) error {
	var req packageReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := req.model()
	if err != nil {
		return badRequest(c, "invalid start_date/end_date")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.CreatePackage(ctx, p); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// UpdatePackage handles PUT /v1/admin/packages/:id.  Every field is
// overwritten.
func (h *AdminCatalogHandler) UpdatePackage(c echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req packageReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := req.model()
	if err != nil {
		return badRequest(c, "invalid start_date/end_date")
	}
	p.ID = id
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.UpdatePackage(ctx, p); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// DeletePackage handles DELETE /v1/admin/packages/:id.  A package that
// still has reservations answers 409.
func (h *AdminCatalogHandler) DeletePackage(c echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.DeletePackage(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminCatalogHandler) CreateHotel(c echo.Context) error {
	var hotel model.Hotel
	if err := c.Bind(&hotel); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.CreateHotel(ctx, &hotel); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, hotel)
}

func (h *AdminCatalogHandler) UpdateHotel(c echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var hotel model.Hotel
	if err := c.Bind(&hotel); err != nil {
		return badRequest(c, "invalid body")
	}
	hotel.ID = id
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.UpdateHotel(ctx, &hotel); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, hotel)
}

// DeleteHotel handles DELETE /v1/admin/hotels/:id.  Packages referencing
// the hotel keep existing without one.
func (h *AdminCatalogHandler) DeleteHotel(c echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.DeleteHotel(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminCatalogHandler) CreateAirline(c echo.Context) error {
	var a model.Airline
	if err := c.Bind(&a); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.CreateAirline(ctx, &a); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *AdminCatalogHandler) UpdateAirline(c echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var a model.Airline
	if err := c.Bind(&a); err != nil {
		return badRequest(c, "invalid body")
	}
	a.ID = id
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.UpdateAirline(ctx, &a); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AdminCatalogHandler) DeleteAirline(c echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.DeleteAirline(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminCatalogHandler) CreateConvention(c echo.Context) error {
	var req conventionReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	conv, err := req.model()
	if err != nil {
		return badRequest(c, "invalid start_date/end_date")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.CreateConvention(ctx, conv); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, conv)
}

func (h *AdminCatalogHandler) UpdateConvention(c echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req conventionReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	conv, err := req.model()
	if err != nil {
		return badRequest(c, "invalid start_date/end_date")
	}
	conv.ID = id
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.UpdateConvention(ctx, conv); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

func (h *AdminCatalogHandler) DeleteConvention(c echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.DeleteConvention(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

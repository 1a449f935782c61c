// This file defines handlers for the public browsing API.  These routes
// allow anonymous visitors to search packages and look at the hotels,
// airlines and conventions that make them up.

package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/service"
)

// CatalogHandler serves the read side of the catalog.
type CatalogHandler struct {
	Catalog *service.CatalogService
}

// packageFilter reads the search query: destination, from, to (dates) and
// max_price (decimal currency units).
func packageFilter(c echo.Context) (model.PackageFilter, error) {
	f := model.PackageFilter{Destination: strings.TrimSpace(c.QueryParam("destination"))}
	if s := c.QueryParam("from"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			return f, err
		}
		f.From = t
	}
	if s := c.QueryParam("to"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			return f, err
		}
		f.To = t
	}
	if s := c.QueryParam("max_price"); s != "" {
		cents, err := priceToCents(s)
		if err != nil {
			return f, err
		}
		f.MaxPriceCents = cents
	}
	return f, nil
}

// ListPackages handles GET /v1/packages.  Without query parameters it
// returns the whole catalog.
func (h *CatalogHandler) ListPackages(c echo.Context) error {
	f, err := packageFilter(c)
	if err != nil {
		return badRequest(c, "invalid search parameters")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	pkgs, err := h.Catalog.Packages(ctx, f)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": pkgs})
}

// GetPackage handles GET /v1/packages/:id.
func (h *CatalogHandler) GetPackage(c echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Catalog.Package(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// ListDestinations handles GET /v1/destinations.
func (h *CatalogHandler) ListDestinations(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	ds, err := h.Catalog.Destinations(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": ds})
}

func (h *CatalogHandler) ListHotels(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	hs, err := h.Catalog.Hotels(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": hs})
}

func (h *CatalogHandler) GetHotel(c echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	hotel, err := h.Catalog.Hotel(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, hotel)
}

func (h *CatalogHandler) ListAirlines(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	as, err := h.Catalog.Airlines(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": as})
}

func (h *CatalogHandler) GetAirline(c echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Catalog.Airline(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *CatalogHandler) ListConventions(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	cs, err := h.Catalog.Conventions(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": cs})
}

func (h *CatalogHandler) GetConvention(c echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	conv, err := h.Catalog.Convention(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

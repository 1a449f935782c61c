package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/authz"
	"github.com/iliyamo/travel-booking/internal/middleware"
)

// GateHandler lets clients ask the route gate about a view before
// rendering it.  The route runs behind OptionalJWT.
type GateHandler struct {
	Gate *middleware.Gate
}

// Check handles GET /v1/gate?view=<name>&location=<path>.  The decision is
// returned with status 200 whatever its outcome; location defaults to the
// view's own path.
func (h *GateHandler) Check(c echo.Context) error {
	v, ok := authz.Lookup(c.QueryParam("view"))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown view", "views": authz.Names()})
	}
	location := c.QueryParam("location")
	if location == "" {
		location = v.Path
	}
	return c.JSON(http.StatusOK, h.Gate.Decide(c, v, location))
}

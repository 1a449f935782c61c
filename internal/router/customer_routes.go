package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/authz"
	"github.com/iliyamo/travel-booking/internal/handler"
	"github.com/iliyamo/travel-booking/internal/middleware"
)

// RegisterCustomer registers traveler endpoints under /v1.  All routes
// require a valid JWT, and each is gated on the user view it backs, so an
// unverified address is refused before any handler runs.  Booking is rate
// limited.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, gate *middleware.Gate, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	dashboard := gate.RequireView(authz.Dashboard)
	detail := gate.RequireView(authz.ReservationDetail)
	profile := gate.RequireView(authz.ProfileEdit)

	g.GET("/profile", h.GetProfile, profile)
	g.PATCH("/profile", h.UpdateProfile, profile)

	g.GET("/my-reservations", h.ListReservations, dashboard)
	g.GET("/my-reviews", h.ListMyReviews, dashboard)
	g.POST("/reservations", h.CreateReservation, dashboard, limit)

	g.GET("/reservations/:id", h.GetReservation, detail)
	g.PATCH("/reservations/:id", h.UpdateReservation, detail)
	g.DELETE("/reservations/:id", h.DeleteReservation, detail)
	g.POST("/reservations/:id/cancel", h.CancelReservation, detail)
	g.POST("/reservations/:id/review", h.CreateReview, gate.RequireView(authz.AddReview))
}

package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/authz"
	"github.com/iliyamo/travel-booking/internal/handler"
	"github.com/iliyamo/travel-booking/internal/middleware"
)

// RegisterAdmin registers back-office endpoints under /v1/admin.  All
// routes require a valid JWT; each resource is gated on its admin view,
// which looks up the caller's is_admin flag.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, cat *handler.AdminCatalogHandler, read *handler.CatalogHandler, gate *middleware.Gate, jwtSecret string) {
	g := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret))

	// ---- Dashboard ----
	g.GET("/stats", a.Stats, gate.RequireView(authz.AdminHome))

	// ---- Packages ----
	pk := g.Group("/packages", gate.RequireView(authz.AdminPackages))
	pk.GET("", read.ListPackages)
	pk.GET("/:id", read.GetPackage)
	pk.POST("", cat.CreatePackage)
	pk.PUT("/:id", cat.UpdatePackage)
	pk.DELETE("/:id", cat.DeletePackage)

	// ---- Hotels ----
	ht := g.Group("/hotels", gate.RequireView(authz.AdminHotels))
	ht.GET("", read.ListHotels)
	ht.GET("/:id", read.GetHotel)
	ht.POST("", cat.CreateHotel)
	ht.PUT("/:id", cat.UpdateHotel)
	ht.DELETE("/:id", cat.DeleteHotel)

	// ---- Airlines ----
	al := g.Group("/airlines", gate.RequireView(authz.AdminAirlines))
	al.GET("", read.ListAirlines)
	al.GET("/:id", read.GetAirline)
	al.POST("", cat.CreateAirline)
	al.PUT("/:id", cat.UpdateAirline)
	al.DELETE("/:id", cat.DeleteAirline)

	// ---- Conventions ----
	cv := g.Group("/conventions", gate.RequireView(authz.AdminConventions))
	cv.GET("", read.ListConventions)
	cv.GET("/:id", read.GetConvention)
	cv.POST("", cat.CreateConvention)
	cv.PUT("/:id", cat.UpdateConvention)
	cv.DELETE("/:id", cat.DeleteConvention)

	// ---- Users ----
	us := g.Group("/users", gate.RequireView(authz.AdminUsers))
	us.GET("", a.ListUsers)
	us.PATCH("/:id/admin", a.SetAdmin)

	// ---- Reservations ----
	g.GET("/reservations", a.ListReservations, gate.RequireView(authz.AdminReservations))
	rs := g.Group("/reservations/:id", gate.RequireView(authz.AdminReservation))
	rs.GET("", a.GetReservation)
	rs.PATCH("/status", a.SetStatus)
	rs.PATCH("/payment", a.SetPayment)
	rs.POST("/cancel", a.CancelReservation)

	// ---- Reviews ----
	g.GET("/reviews", a.ListReviews, gate.RequireView(authz.AdminReviews))
	rv := g.Group("/reviews/:id", gate.RequireView(authz.AdminReview))
	rv.GET("", a.GetReview)
	rv.DELETE("", a.DeleteReview)
}

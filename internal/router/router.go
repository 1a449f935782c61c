package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/travel-booking/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/travel-booking/internal/middleware" // import middleware for JWT authentication and the view gate
)

// RegisterRoutes registers the probes: /healthz answers as long as the
// process runs, /readyz also pings the database.
func RegisterRoutes(e *echo.Echo, db *sqlx.DB) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers all authentication-related routes.  Operations
// that do not need a session live under /v1/auth and are rate limited;
// logout and session restore require an access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/signup", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	g.POST("/verify/send", a.SendVerification)
	g.POST("/verify/confirm", a.ConfirmEmail)
	// Confirmation links opened straight from the mail client.
	g.GET("/verify/confirm", a.ConfirmEmail)

	jwt := middleware.JWTAuth(jwtSecret)
	e.POST("/v1/auth/logout", a.Logout, jwt)
	e.GET("/v1/auth/session", a.Session, jwt)
}

// RegisterPublic registers unauthenticated browse endpoints.  These routes
// do not apply any JWT or gate middleware and are intended for guests.
func RegisterPublic(e *echo.Echo, p *handler.CatalogHandler) {
	// Package search: ?destination=&from=&to=&max_price=
	e.GET("/v1/packages", p.ListPackages)
	e.GET("/v1/packages/:id", p.GetPackage)
	e.GET("/v1/destinations", p.ListDestinations)
	e.GET("/v1/hotels", p.ListHotels)
	e.GET("/v1/hotels/:id", p.GetHotel)
	e.GET("/v1/airlines", p.ListAirlines)
	e.GET("/v1/airlines/:id", p.GetAirline)
	e.GET("/v1/conventions", p.ListConventions)
	e.GET("/v1/conventions/:id", p.GetConvention)
}

// RegisterGate exposes the route gate's decisions.  The token is optional
// so that anonymous callers get a login redirect instead of a 401.
func RegisterGate(e *echo.Echo, h *handler.GateHandler, jwtSecret string) {
	e.GET("/v1/gate", h.Check, middleware.OptionalJWT(jwtSecret))
}

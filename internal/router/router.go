package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/tripbook/internal/handler"    // HTTP handlers
	"github.com/iliyamo/tripbook/internal/middleware" // JWT gate, rate limit, cache
)

// Deps carries everything the routes need.  RateLimit and Cache may be
// pass-through middleware when Redis is unavailable.
type Deps struct {
	Auth      *handler.AuthHandler
	Bookings  *handler.BookingHandler
	Search    *handler.SearchHandler
	Verifier  middleware.TokenVerifier
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
	Ready     map[string]handler.Check
}

// RegisterRoutes registers operational endpoints that sit outside /api:
// liveness, readiness and Prometheus metrics.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(d.Ready))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the unauthenticated auth endpoints under /api/auth
// behind the rate limiter, and /api/me behind the JWT gate.
func RegisterAuth(e *echo.Echo, d Deps) {
	g := e.Group("/api/auth", d.RateLimit)
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)

	e.GET("/api/me", d.Auth.Me, middleware.JWTAuth(d.Verifier))
}

// RegisterBookings registers the protected booking endpoints.  Every route
// in the group runs JWTAuth before the handler.
func RegisterBookings(e *echo.Echo, d Deps) {
	g := e.Group("/api/bookings", middleware.JWTAuth(d.Verifier))
	g.POST("", d.Bookings.Create)
	g.GET("", d.Bookings.List)
}

// RegisterSearch registers the public search proxy.  Responses are cached
// in Redis when available.
func RegisterSearch(e *echo.Echo, d Deps) {
	e.GET("/api/flights/search", d.Search.Flights, d.Cache)
	e.GET("/api/hotels/search", d.Search.Hotels, d.Cache)
}

// RegisterAll wires every route group.
func RegisterAll(e *echo.Echo, d Deps) {
	if d.RateLimit == nil {
		d.RateLimit = passThrough
	}
	if d.Cache == nil {
		d.Cache = passThrough
	}
	RegisterRoutes(e, d)
	RegisterAuth(e, d)
	RegisterBookings(e, d)
	RegisterSearch(e, d)
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// Package router registers the HTTP routes and their middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/cinema-hall-booking/internal/handler"
	"github.com/iliyamo/cinema-hall-booking/internal/middleware"
)

// Deps bundles what RegisterRoutes wires.  Cache and RateLimit may be nil
// when Redis is unavailable.
type Deps struct {
	Seats     *handler.SeatHandler
	Tickets   *handler.TicketHandler
	Admin     *handler.AdminHandler
	Auth      *handler.AuthHandler
	DB        handler.Pinger
	JWTSecret string
	Cache     echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
}

// RegisterRoutes registers every route on e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	if d.DB != nil {
		e.GET("/readyz", handler.Ready(d.DB))
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	cache, limit := orNoop(d.Cache), orNoop(d.RateLimit)
	v1 := e.Group("/v1")

	// seat listings change only through purchases and admin transitions,
	// both of which drop the cache
	v1.GET("/hall", d.Seats.Hall, cache)
	v1.GET("/seats", d.Seats.List, cache)
	v1.GET("/seats/free", d.Seats.ListFree, cache)
	v1.GET("/seats/occupied", d.Seats.ListOccupied, cache)
	v1.GET("/seats/:code", d.Seats.Get, cache)
	v1.GET("/seats/:code/price", d.Seats.Price, cache)

	v1.POST("/tickets", d.Tickets.Purchase, limit)
	v1.GET("/tickets/:code", d.Tickets.Get)

	v1.POST("/auth/login", d.Auth.Login, limit)

	admin := v1.Group("/admin", middleware.JWTAuth(d.JWTSecret), middleware.RequireRole(middleware.RoleAdmin))
	admin.POST("/seats/:code/occupy", d.Admin.Occupy)
	admin.POST("/seats/:code/release", d.Admin.Release)
}

func orNoop(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m != nil {
		return m
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
}

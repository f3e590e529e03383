package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/Parknogyung/ticket-reservation/internal/config"
	"github.com/Parknogyung/ticket-reservation/internal/handler"
	"github.com/Parknogyung/ticket-reservation/internal/middleware"
	"github.com/Parknogyung/ticket-reservation/internal/model"
)

// Handlers collects every HTTP handler the API mounts.  main wires
// the concrete instances and hands the bundle to Register.
type Handlers struct {
	Auth        *handler.AuthHandler
	Admission   *handler.AdmissionHandler
	Catalog     *handler.CatalogHandler
	Reservation *handler.ReservationHandler
	Settlement  *handler.SettlementHandler
}

// Register mounts all routes on the provided Echo instance.
//
// Unauthenticated surface: health check and the auth endpoints.
// Everything else requires a valid access token; concert creation
// additionally requires the ADMIN role.  The rate limiter (when a
// Redis client is available) guards the whole authenticated surface,
// which is where flash-sale traffic lands.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	v1.Use(middleware.RequireRole(model.RoleAdmin, model.RoleUser))
	if rdb != nil {
		rl := config.LoadRateLimitConfig()
		if rl.Enabled {
			v1.Use(middleware.NewTokenBucket(rl, rdb))
		}
	}

	v1.GET("/me", h.Auth.Me)

	v1.POST("/concerts", h.Catalog.Create, middleware.RequireRole(model.RoleAdmin))
	v1.GET("/concerts", h.Catalog.List)
	v1.GET("/concerts/:id/seats", h.Catalog.Seats)
	v1.POST("/concerts/:id/queue", h.Admission.RequestEntry)

	v1.POST("/reservations", h.Reservation.Reserve)
	v1.POST("/settlements/confirm", h.Settlement.Confirm)
	v1.POST("/settlements/refund", h.Settlement.Refund)
}

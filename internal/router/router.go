// Package router mounts the handlers under /v1/admin, /v1/user and
// /v1/technician. Each prefix authenticates with its own access secret.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/acdoc-booking/internal/config"
	"github.com/iliyamo/acdoc-booking/internal/handler"
	"github.com/iliyamo/acdoc-booking/internal/middleware"
	"github.com/iliyamo/acdoc-booking/internal/model"
)

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	Auth        map[model.Role]*handler.AuthHandler
	Users       *handler.IdentityAdminHandler
	Technicians *handler.IdentityAdminHandler
	Bookings    *handler.BookingHandler
	Coupons     *handler.CouponHandler
	Catalog     *handler.CatalogHandler
	Work        *handler.TechnicianHandler
}

// Middlewares are built once in main so they share one Redis client.
type Middlewares struct {
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
	Purge     echo.MiddlewareFunc
}

// RegisterRoutes exposes the routes that need no token.
func RegisterRoutes(e *echo.Echo, h Handlers, mw Middlewares) {
	e.GET("/healthz", handler.Health)
	e.GET("/v1/services", h.Catalog.ListServices, mw.Cache)
}

// Register mounts every route.
func Register(e *echo.Echo, h Handlers, mw Middlewares, auth config.AuthConfig) {
	RegisterRoutes(e, h, mw)
	RegisterAdmin(e, h, mw, auth.Admin.AccessSecret)
	RegisterUser(e, h, mw, auth.User.AccessSecret)
	RegisterTechnician(e, h, mw, auth.Technician.AccessSecret)
}

// registerAuth mounts the login flow on g. The OTP endpoints are rate
// limited; the session endpoints need a valid access token of role.
func registerAuth(g *echo.Group, a *handler.AuthHandler, mw Middlewares, secret string, role model.Role) {
	g.POST("/login-register", a.LoginRegister, mw.RateLimit)
	g.POST("/verify-otp", a.VerifyOtp, mw.RateLimit)
	g.POST("/refresh-token", a.Refresh)

	s := g.Group("", middleware.JWTAuth(secret, role), middleware.RequireRole(role))
	s.POST("/logout", a.Logout)
	s.GET("/me", a.Me)
	s.PUT("/me", a.UpdateMe)
	s.PUT("/device-token", a.SetDeviceToken)
}

// protected returns a group under prefix that requires role.
func protected(e *echo.Echo, prefix, secret string, role model.Role) *echo.Group {
	return e.Group(prefix, middleware.JWTAuth(secret, role), middleware.RequireRole(role))
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/acdoc-booking/internal/model"
)

// RegisterUser mounts the customer app API under /v1/user. Users only ever
// see their own bookings and addresses.
func RegisterUser(e *echo.Echo, h Handlers, mw Middlewares, secret string) {
	registerAuth(e.Group("/v1/user"), h.Auth[model.RoleUser], mw, secret, model.RoleUser)

	g := protected(e, "/v1/user", secret, model.RoleUser)
	g.GET("/addresses", h.Catalog.ListAddresses)
	g.POST("/addresses", h.Catalog.CreateAddress)
	g.PUT("/addresses/:id", h.Catalog.UpdateAddress)
	g.DELETE("/addresses/:id", h.Catalog.DeleteAddress)

	g.POST("/bookings", h.Bookings.Create)
	g.GET("/bookings", h.Bookings.List)
	g.GET("/bookings/:id", h.Bookings.Get)
	g.PUT("/bookings/:id", h.Bookings.Update)
	g.POST("/bookings/:id/cancel", h.Bookings.Cancel)

	g.GET("/coupons", h.Coupons.List)
	g.POST("/coupons/apply", h.Coupons.Apply)
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/acdoc-booking/internal/model"
)

// RegisterAdmin mounts the admin console API under /v1/admin.
func RegisterAdmin(e *echo.Echo, h Handlers, mw Middlewares, secret string) {
	registerAuth(e.Group("/v1/admin"), h.Auth[model.RoleAdmin], mw, secret, model.RoleAdmin)

	g := protected(e, "/v1/admin", secret, model.RoleAdmin)

	// ---- Users and technicians ----
	g.GET("/users", h.Users.List)
	g.GET("/users/:id", h.Users.Get)
	g.PATCH("/users/:id/status", h.Users.SetStatus)
	g.DELETE("/users/:id", h.Users.Delete)
	g.GET("/technicians", h.Technicians.List)
	g.GET("/technicians/:id", h.Technicians.Get)
	g.PATCH("/technicians/:id/status", h.Technicians.SetStatus)
	g.DELETE("/technicians/:id", h.Technicians.Delete)

	// ---- Bookings ----
	g.POST("/bookings", h.Bookings.Create)
	g.GET("/bookings", h.Bookings.List)
	g.GET("/bookings/:id", h.Bookings.Get)
	g.PUT("/bookings/:id", h.Bookings.Update)
	g.POST("/bookings/:id/order-items", h.Bookings.AddOrderItems)
	g.PATCH("/bookings/:id/assign", h.Bookings.Assign)
	g.PATCH("/bookings/:id/status", h.Bookings.UpdateStatus)
	g.POST("/bookings/:id/cancel", h.Bookings.Cancel)

	// ---- Coupons ----
	g.POST("/coupons", h.Coupons.Create)
	g.GET("/coupons", h.Coupons.List)
	g.GET("/coupons/:id", h.Coupons.Get)
	g.PUT("/coupons/:id", h.Coupons.Update)
	g.PATCH("/coupons/:id/toggle", h.Coupons.Toggle)

	// ---- Catalogue ----
	g.GET("/services", h.Catalog.ListServices)
	g.POST("/services", h.Catalog.CreateService, mw.Purge)
	g.PUT("/services/:id", h.Catalog.UpdateService, mw.Purge)

	// ---- Technician work ----
	g.GET("/attendance", h.Work.ListAttendance)
	g.PATCH("/attendance/:id", h.Work.ReviewAttendance)
	g.GET("/leaves", h.Work.ListLeaves)
	g.PATCH("/leaves/:id", h.Work.ReviewLeave)
	g.GET("/tool-requests", h.Work.ListToolRequests)
	g.PATCH("/tool-requests/:id", h.Work.UpdateToolStatus)
}

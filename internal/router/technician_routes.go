package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/acdoc-booking/internal/model"
)

// RegisterTechnician mounts the field app API under /v1/technician.
func RegisterTechnician(e *echo.Echo, h Handlers, mw Middlewares, secret string) {
	registerAuth(e.Group("/v1/technician"), h.Auth[model.RoleTechnician], mw, secret, model.RoleTechnician)

	g := protected(e, "/v1/technician", secret, model.RoleTechnician)
	g.GET("/bookings", h.Bookings.List)
	g.GET("/bookings/:id", h.Bookings.Get)
	g.POST("/bookings/:id/order-items", h.Bookings.AddOrderItems)
	g.PATCH("/bookings/:id/status", h.Bookings.UpdateStatus)

	g.POST("/attendance/check-in", h.Work.CheckIn)
	g.POST("/attendance/check-out", h.Work.CheckOut)
	g.GET("/attendance", h.Work.ListAttendance)
	g.POST("/leaves", h.Work.RequestLeave)
	g.GET("/leaves", h.Work.ListLeaves)
	g.POST("/tool-requests", h.Work.RequestTool)
	g.GET("/tool-requests", h.Work.ListToolRequests)
}

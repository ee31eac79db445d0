package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/acdoc-booking/internal/middleware"
	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/service"
)

// TechnicianHandler serves technician self-service and the admin reviews of
// attendance, leave and tool requests.
type TechnicianHandler struct {
	Responder
	svc *service.TechnicianService
}

func NewTechnicianHandler(svc *service.TechnicianService, r Responder) *TechnicianHandler {
	return &TechnicianHandler{Responder: r, svc: svc}
}

// workQuery pins technicians to their own records; admins may filter by
// ?technicianId=.
func workQuery(c echo.Context) service.WorkQuery {
	q := service.WorkQuery{
		TechnicianID: c.QueryParam("technicianId"),
		Status:       c.QueryParam("status"),
		From:         c.QueryParam("from"),
		To:           c.QueryParam("to"),
		Page:         queryInt(c, "page"),
		Limit:        queryInt(c, "limit"),
	}
	if middleware.Role(c) == model.RoleTechnician {
		q.TechnicianID = middleware.IdentityID(c)
	}
	return q
}

func (h *TechnicianHandler) CheckIn(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.CheckIn(ctx, middleware.IdentityID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *TechnicianHandler) CheckOut(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.CheckOut(ctx, middleware.IdentityID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TechnicianHandler) ListAttendance(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	page, err := h.svc.ListAttendance(ctx, workQuery(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *TechnicianHandler) ReviewAttendance(c echo.Context) error {
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.ReviewAttendance(ctx, c.Param("id"), req.Status)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TechnicianHandler) RequestLeave(c echo.Context) error {
	var in service.LeaveInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.RequestLeave(ctx, middleware.IdentityID(c), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *TechnicianHandler) ListLeaves(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	page, err := h.svc.ListLeaves(ctx, workQuery(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *TechnicianHandler) ReviewLeave(c echo.Context) error {
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.ReviewLeave(ctx, c.Param("id"), req.Status)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TechnicianHandler) RequestTool(c echo.Context) error {
	var in service.ToolInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.RequestTool(ctx, middleware.IdentityID(c), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *TechnicianHandler) ListToolRequests(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	page, err := h.svc.ListToolRequests(ctx, workQuery(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *TechnicianHandler) UpdateToolStatus(c echo.Context) error {
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.UpdateToolStatus(ctx, c.Param("id"), req.Status)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

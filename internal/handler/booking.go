package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/acdoc-booking/internal/middleware"
	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/service"
)

// BookingHandler serves bookings to all three roles. What a caller sees is
// decided by the scope derived from the access token.
type BookingHandler struct {
	Responder
	svc *service.BookingService
}

func NewBookingHandler(svc *service.BookingService, r Responder) *BookingHandler {
	return &BookingHandler{Responder: r, svc: svc}
}

func scopeOf(c echo.Context) service.Scope {
	switch middleware.Role(c) {
	case model.RoleUser:
		return service.Scope{UserID: middleware.IdentityID(c)}
	case model.RoleTechnician:
		return service.Scope{TechnicianID: middleware.IdentityID(c)}
	}
	return service.Scope{}
}

type orderItemsReq struct {
	OrderItems []model.OrderItem `json:"orderItems"`
}

type assignReq struct {
	TechnicianID string `json:"technicianId"`
}

// Create books a visit. Users always book for themselves; admins name the
// user in the body.
func (h *BookingHandler) Create(c echo.Context) error {
	var in service.BookingInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	if middleware.Role(c) == model.RoleUser {
		in.UserID = middleware.IdentityID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.svc.Create(ctx, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.svc.Get(ctx, c.Param("id"), scopeOf(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// List accepts search, status (comma separated or ALL), from, to, page,
// limit, sortBy and order.
func (h *BookingHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	page, err := h.svc.List(ctx, service.BookingQuery{
		Search: c.QueryParam("search"),
		Status: c.QueryParam("status"),
		From:   c.QueryParam("from"),
		To:     c.QueryParam("to"),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
		SortBy: c.QueryParam("sortBy"),
		Order:  c.QueryParam("order"),
	}, scopeOf(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *BookingHandler) Update(c echo.Context) error {
	var in service.BookingInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.svc.Update(ctx, c.Param("id"), in, scopeOf(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) AddOrderItems(c echo.Context) error {
	var req orderItemsReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.svc.AddOrderItems(ctx, c.Param("id"), req.OrderItems, scopeOf(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) Assign(c echo.Context) error {
	var req assignReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.svc.AssignTechnician(ctx, c.Param("id"), req.TechnicianID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.svc.UpdateStatus(ctx, c.Param("id"), req.Status, scopeOf(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) Cancel(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.svc.Cancel(ctx, c.Param("id"), scopeOf(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

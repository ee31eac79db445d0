package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/acdoc-booking/internal/middleware"
	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/repository"
	"github.com/iliyamo/acdoc-booking/internal/service"
)

type CouponHandler struct {
	Responder
	svc *service.CouponService
}

func NewCouponHandler(svc *service.CouponService, r Responder) *CouponHandler {
	return &CouponHandler{Responder: r, svc: svc}
}

// Apply always answers 200 for business rejections; the body's status field
// tells the client whether the coupon was applied.
func (h *CouponHandler) Apply(c echo.Context) error {
	var in service.ApplyCouponInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	if middleware.Role(c) == model.RoleUser {
		in.UserID = middleware.IdentityID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.svc.Apply(ctx, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *CouponHandler) Create(c echo.Context) error {
	var in service.CouponInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.Create(ctx, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CouponHandler) Update(c echo.Context) error {
	var in service.CouponInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.Update(ctx, c.Param("id"), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CouponHandler) Toggle(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.Toggle(ctx, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CouponHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.Get(ctx, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// List shows active, unexpired coupons to users and everything to admins
// unless ?active=true is given.
func (h *CouponHandler) List(c echo.Context) error {
	activeOnly, _ := strconv.ParseBool(c.QueryParam("active"))
	if middleware.Role(c) != model.RoleAdmin {
		activeOnly = true
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	page, err := h.svc.List(ctx, repository.CouponFilter{
		ActiveOnly: activeOnly,
		Search:     c.QueryParam("search"),
		Page:       queryInt(c, "page"),
		Limit:      queryInt(c, "limit"),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

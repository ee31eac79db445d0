package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/acdoc-booking/internal/middleware"
	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/service"
)

// CatalogHandler serves the service catalogue and the user's addresses.
type CatalogHandler struct {
	Responder
	svc *service.CatalogService
}

func NewCatalogHandler(svc *service.CatalogService, r Responder) *CatalogHandler {
	return &CatalogHandler{Responder: r, svc: svc}
}

// ListServices returns active services to the public and every service to
// admins.
func (h *CatalogHandler) ListServices(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.ListServices(ctx, middleware.Role(c) != model.RoleAdmin)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

func (h *CatalogHandler) CreateService(c echo.Context) error {
	var in service.ServiceInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.CreateService(ctx, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CatalogHandler) UpdateService(c echo.Context) error {
	var in service.ServiceInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.UpdateService(ctx, c.Param("id"), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) ListAddresses(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.ListAddresses(ctx, middleware.IdentityID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

func (h *CatalogHandler) CreateAddress(c echo.Context) error {
	var in service.AddressInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.CreateAddress(ctx, middleware.IdentityID(c), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CatalogHandler) UpdateAddress(c echo.Context) error {
	var in service.AddressInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.UpdateAddress(ctx, middleware.IdentityID(c), c.Param("id"), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) DeleteAddress(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.svc.DeleteAddress(ctx, middleware.IdentityID(c), c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/acdoc-booking/internal/middleware"
	"github.com/iliyamo/acdoc-booking/internal/repository"
	"github.com/iliyamo/acdoc-booking/internal/service"
)

// refreshCookieName is the httpOnly cookie carrying the refresh token for
// the admin and technician apps.
const refreshCookieName = "refreshToken"

// CookieConfig controls the refresh token cookie of one role.
type CookieConfig struct {
	Enabled bool
	TTL     time.Duration
	Secure  bool
}

// AuthHandler serves the OTP login flow and the session endpoints of one
// identity class.
type AuthHandler struct {
	Responder
	svc    *service.IdentityService
	cookie CookieConfig
}

func NewAuthHandler(svc *service.IdentityService, cookie CookieConfig, r Responder) *AuthHandler {
	return &AuthHandler{Responder: r, svc: svc, cookie: cookie}
}

type loginReq struct {
	CountryCode string `json:"countryCode"`
	Phone       string `json:"phone"`
}

type verifyReq struct {
	ID  string `json:"id"`
	OTP string `json:"otp"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type nameReq struct {
	Name string `json:"name"`
}

type deviceReq struct {
	DeviceToken string `json:"deviceToken"`
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string) {
	if !h.cookie.Enabled {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookie.TTL / time.Second),
		Expires:  time.Now().Add(h.cookie.TTL),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	if !h.cookie.Enabled {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// LoginRegister registers an unknown phone or logs a known one in; either
// way an OTP is sent.
func (h *AuthHandler) LoginRegister(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.svc.LoginRegister(ctx, req.CountryCode, req.Phone)
	if err != nil {
		return h.fail(c, err)
	}
	status := http.StatusOK
	if res.Registered {
		status = http.StatusCreated
	}
	return c.JSON(status, res)
}

// VerifyOtp exchanges a valid OTP for a token pair.
func (h *AuthHandler) VerifyOtp(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.svc.VerifyOtp(ctx, req.ID, req.OTP)
	if err != nil {
		return h.fail(c, err)
	}
	h.setRefreshCookie(c, res.Tokens.RefreshToken)
	return c.JSON(http.StatusOK, res)
}

// Refresh rotates the refresh token taken from the body or, failing that,
// from the cookie.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		if ck, err := c.Cookie(refreshCookieName); err == nil {
			raw = ck.Value
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.svc.Refresh(ctx, raw)
	if err != nil {
		h.clearRefreshCookie(c)
		return h.fail(c, err)
	}
	h.setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(http.StatusOK, pair)
}

// Logout revokes the caller's refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.svc.Logout(ctx, middleware.IdentityID(c)); err != nil {
		return h.fail(c, err)
	}
	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	me, err := h.svc.Me(ctx, middleware.IdentityID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, me)
}

func (h *AuthHandler) UpdateMe(c echo.Context) error {
	var req nameReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	me, err := h.svc.UpdateName(ctx, middleware.IdentityID(c), req.Name)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, me)
}

func (h *AuthHandler) SetDeviceToken(c echo.Context) error {
	var req deviceReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.svc.SetDeviceToken(ctx, middleware.IdentityID(c), req.DeviceToken); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// IdentityAdminHandler lets admins manage the users or technicians behind svc.
type IdentityAdminHandler struct {
	Responder
	svc *service.IdentityService
}

func NewIdentityAdminHandler(svc *service.IdentityService, r Responder) *IdentityAdminHandler {
	return &IdentityAdminHandler{Responder: r, svc: svc}
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *IdentityAdminHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, total, err := h.svc.List(ctx, repository.IdentityFilter{
		Status: c.QueryParam("status"),
		Search: c.QueryParam("search"),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "total": total})
}

func (h *IdentityAdminHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.Get(ctx, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *IdentityAdminHandler) SetStatus(c echo.Context) error {
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.SetStatus(ctx, c.Param("id"), strings.TrimSpace(req.Status))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *IdentityAdminHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.svc.Delete(ctx, c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

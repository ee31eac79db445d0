package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/acdoc-booking/internal/model"
)

// Context keys set by JWTAuth.
const (
	KeyIdentityID = "identity_id"
	KeyRole       = "role"
)

// IdentityID returns the authenticated identity, or "" on public routes.
func IdentityID(c echo.Context) string {
	if v, ok := c.Get(KeyIdentityID).(string); ok {
		return v
	}
	return ""
}

// Role returns the role of the authenticated identity.
func Role(c echo.Context) model.Role {
	if v, ok := c.Get(KeyRole).(model.Role); ok {
		return v
	}
	return ""
}

// currentUserID feeds the rate limiter key. Anonymous callers share "anon".
func currentUserID(c echo.Context) string {
	if id := IdentityID(c); id != "" {
		return id
	}
	return "anon"
}

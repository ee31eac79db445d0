// Package handler holds the echo handlers. Handlers bind and bound the
// request, call one service method and translate apperr kinds into HTTP
// statuses; they hold no business rules of their own.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/acdoc-booking/internal/apperr"
)

// requestTimeout bounds every store call made on behalf of a request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// statusOf maps an error kind to its HTTP status.
func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindInvalidID:
		return http.StatusBadRequest
	case apperr.KindUnauthorized, apperr.KindInvalidOtp, apperr.KindInvalidToken, apperr.KindTokenMismatch:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Responder writes error responses. In production the message of an
// unexpected error is replaced by a generic one.
type Responder struct {
	Log  *logrus.Logger
	Prod bool
}

func (r Responder) fail(c echo.Context, err error) error {
	kind := apperr.KindOf(err)
	status := statusOf(kind)
	body := echo.Map{"error": err.Error(), "code": kind.String()}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		body["error"] = ae.Message
		if ae.Field != "" {
			body["field"] = ae.Field
		}
	}
	if kind == apperr.KindUnexpected {
		r.Log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		}).Error("request failed")
		if r.Prod {
			body["error"] = "internal error"
		} else {
			body["error"] = err.Error()
		}
	}
	return c.JSON(status, body)
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "code": apperr.KindValidation.String()})
}

// queryInt reads an optional integer query parameter; junk reads as 0.
func queryInt(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return n
}

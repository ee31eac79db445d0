// Package service holds the business rules: OTP issuance, token rotation,
// identity registration, the booking lifecycle, coupons, the catalogue and
// technician self-service. Services return *apperr.Error values; handlers
// map them to HTTP statuses.
package service

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/acdoc-booking/internal/apperr"
	"github.com/iliyamo/acdoc-booking/internal/repository"
)

// storeErr converts a repository error into an application error. entity
// names the missing thing for ErrNotFound, conflict is the message used for
// ErrDuplicate and op labels anything unexpected.
func storeErr(err error, entity, conflict, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(entity)
	case errors.Is(err, repository.ErrDuplicate) && conflict != "":
		return apperr.Conflict(conflict)
	default:
		return apperr.Unexpected(op, err)
	}
}

// parseID validates a UUID path or body parameter.
func parseID(raw, what string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", apperr.InvalidID(what)
	}
	return id.String(), nil
}

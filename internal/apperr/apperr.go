// Package apperr defines the typed errors returned by the service layer.
// Handlers are the only place where a Kind is translated into an HTTP
// status; services and repositories never write responses themselves.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport layer.
type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindInvalidID
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindInvalidOtp
	KindInvalidToken
	KindTokenMismatch
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindInvalidID:
		return "invalid_id"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindInvalidOtp:
		return "invalid_otp"
	case KindInvalidToken:
		return "invalid_token"
	case KindTokenMismatch:
		return "token_mismatch"
	default:
		return "unexpected"
	}
}

// Error carries a Kind, an optional field name for validation failures and
// a client-facing message. Err holds the wrapped cause, if any.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the package sentinels below can
// be used with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Field == ""
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrInvalidID     = &Error{Kind: KindInvalidID}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrUnauthorized  = &Error{Kind: KindUnauthorized}
	ErrForbidden     = &Error{Kind: KindForbidden}
	ErrInvalidOtp    = &Error{Kind: KindInvalidOtp}
	ErrInvalidToken  = &Error{Kind: KindInvalidToken}
	ErrTokenMismatch = &Error{Kind: KindTokenMismatch}
)

// Validation reports a missing or malformed input field.
func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

func InvalidID(what string) *Error {
	return &Error{Kind: KindInvalidID, Field: what, Message: "invalid " + what}
}

func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func InvalidOtp() *Error {
	return &Error{Kind: KindInvalidOtp, Message: "invalid or expired otp"}
}

func InvalidToken(cause error) *Error {
	return &Error{Kind: KindInvalidToken, Message: "invalid refresh token", Err: cause}
}

func TokenMismatch() *Error {
	return &Error{Kind: KindTokenMismatch, Message: "refresh token mismatch"}
}

// Unexpected wraps an infrastructure failure with a short operation label.
func Unexpected(op string, err error) *Error {
	return &Error{Kind: KindUnexpected, Message: op, Err: err}
}

// KindOf returns the Kind of err, or KindUnexpected for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

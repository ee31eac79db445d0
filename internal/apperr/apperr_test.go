package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelMatching(t *testing.T) {
	err := NotFound("booking")
	require.True(t, errors.Is(err, ErrNotFound))
	require.False(t, errors.Is(err, ErrConflict))
	require.Equal(t, "booking not found", err.Error())

	wrapped := fmt.Errorf("create booking: %w", Validation("slot", "slot is required"))
	require.True(t, errors.Is(wrapped, ErrValidation))
	require.Equal(t, KindValidation, KindOf(wrapped))
}

func TestKindOfForeignError(t *testing.T) {
	require.Equal(t, KindUnexpected, KindOf(errors.New("boom")))
	require.Equal(t, KindUnexpected, KindOf(Unexpected("query bookings", errors.New("boom"))))
}

func TestUnexpectedKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unexpected("load user", cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "load user: connection refused", err.Error())
}

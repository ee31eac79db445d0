package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/acdoc-booking/internal/model"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := NewToken("s3cret", "id-1", model.RoleTechnician, time.Minute)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Minute), tok.Exp, 5*time.Second)

	claims, err := ParseToken("s3cret", tok.Token)
	require.NoError(t, err)
	require.Equal(t, "id-1", claims.Subject)
	require.Equal(t, model.RoleTechnician, claims.Role)
	require.NotEmpty(t, claims.ID)
}

func TestTokenRejectsOtherSecret(t *testing.T) {
	tok, err := NewToken("admin-secret", "id-1", model.RoleAdmin, time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("user-secret", tok.Token)
	require.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	tok, err := NewToken("s", "id-1", model.RoleUser, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("s", tok.Token)
	require.Error(t, err)
}

func TestTokensIssuedTogetherDiffer(t *testing.T) {
	a, err := NewToken("s", "id-1", model.RoleUser, time.Hour)
	require.NoError(t, err)
	b, err := NewToken("s", "id-1", model.RoleUser, time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, a.Token, b.Token)
	require.NotEqual(t, HashRefreshRaw(a.Token), HashRefreshRaw(b.Token))
}

func TestHashRefreshRawStable(t *testing.T) {
	require.Equal(t, HashRefreshRaw("abc"), HashRefreshRaw("abc"))
	require.Len(t, HashRefreshRaw("abc"), 64)
}

func TestSecretHash(t *testing.T) {
	h, err := HashSecret("123456", 4)
	require.NoError(t, err)
	require.True(t, VerifySecret(h, "123456"))
	require.False(t, VerifySecret(h, "654321"))
}

func TestGenerateOTP(t *testing.T) {
	re := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 200; i++ {
		code, err := GenerateOTP(6)
		require.NoError(t, err)
		require.Regexp(t, re, code)
	}
	_, err := GenerateOTP(0)
	require.Error(t, err)
}

func TestFormatBookingID(t *testing.T) {
	d := time.Date(2024, time.March, 7, 10, 0, 0, 0, time.UTC)
	require.Equal(t, "ACDOCBK07032024-42", FormatBookingID(d, 42))
	require.Regexp(t, `^ACDOCBK\d{8}-\d+$`, FormatBookingID(time.Now(), 1))
}

func TestRound2(t *testing.T) {
	require.Equal(t, 20.0, Round2(200*10/100.0))
	require.Equal(t, 33.33, Round2(33.333333))
	require.Equal(t, 0.0, Round2(0))
}

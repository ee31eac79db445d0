package utils // package utils provides helpers for token creation, hashing and identifiers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/acdoc-booking/internal/model"
)

// Claims is the payload of both access and refresh tokens. Subject carries
// the identity id and ID (jti) is random, so two tokens issued for the same
// identity within the same second still differ.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// SignedToken is a serialized JWT together with its expiry.
type SignedToken struct {
	Token string
	Exp   time.Time
}

// NewToken builds and signs an HS256 JWT for an identity. Access and refresh
// tokens differ only in the secret and TTL the caller passes in.
func NewToken(secret, subject string, role model.Role, ttl time.Duration) (SignedToken, error) {
	if secret == "" {
		return SignedToken{}, errors.New("empty signing secret")
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// ParseToken verifies signature, algorithm and expiry and returns the claims.
func ParseToken(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// HashRefreshRaw returns the SHA-256 hex digest of a refresh token. Only the
// digest is persisted.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

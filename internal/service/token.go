package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/acdoc-booking/internal/apperr"
	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/repository"
	"github.com/iliyamo/acdoc-booking/internal/utils"
)

// TokenPair is an access token plus the refresh token that can replace it.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// TokenConfig holds one role's secrets and the shared TTLs.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenService issues and rotates tokens for one identity class. Only the
// SHA-256 of the current refresh token is stored; a refresh token is valid
// for exactly one rotation.
type TokenService struct {
	identities repository.IdentityRepository
	cfg        TokenConfig
}

func NewTokenService(identities repository.IdentityRepository, cfg TokenConfig) *TokenService {
	return &TokenService{identities: identities, cfg: cfg}
}

func (t *TokenService) role() model.Role { return t.identities.Role() }

func (t *TokenService) newPair(identityID string) (TokenPair, error) {
	access, err := utils.NewToken(t.cfg.AccessSecret, identityID, t.role(), t.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, apperr.Unexpected("sign access token", err)
	}
	refresh, err := utils.NewToken(t.cfg.RefreshSecret, identityID, t.role(), t.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, apperr.Unexpected("sign refresh token", err)
	}
	return TokenPair{
		AccessToken:      access.Token,
		AccessExpiresAt:  access.Exp,
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.Exp,
	}, nil
}

// Issue creates a fresh pair and stores its refresh token, replacing
// whatever was stored before.
func (t *TokenService) Issue(ctx context.Context, identityID string) (TokenPair, error) {
	pair, err := t.newPair(identityID)
	if err != nil {
		return TokenPair{}, err
	}
	if err := t.identities.SetRefreshHash(ctx, identityID, utils.HashRefreshRaw(pair.RefreshToken)); err != nil {
		return TokenPair{}, storeErr(err, string(t.role()), "", "store refresh token")
	}
	return pair, nil
}

// Refresh rotates raw into a new pair.
//
//   - bad signature or expiry: any identity still holding raw is cleared and
//     apperr.ErrInvalidToken is returned
//   - subject no longer exists: apperr.ErrNotFound
//   - raw is not the stored token: the stored token is cleared and
//     apperr.ErrTokenMismatch is returned
func (t *TokenService) Refresh(ctx context.Context, raw string) (TokenPair, error) {
	if raw == "" {
		return TokenPair{}, apperr.Validation("refreshToken", "refresh token is required")
	}
	hash := utils.HashRefreshRaw(raw)

	claims, err := utils.ParseToken(t.cfg.RefreshSecret, raw)
	if err == nil && claims.Role != t.role() {
		err = errors.New("token issued for another role")
	}
	if err != nil {
		if _, cerr := t.identities.ClearRefreshByHash(ctx, hash); cerr != nil {
			return TokenPair{}, apperr.Unexpected("clear refresh token", cerr)
		}
		return TokenPair{}, apperr.InvalidToken(err)
	}

	identity, err := t.identities.GetByID(ctx, claims.Subject)
	if err != nil {
		return TokenPair{}, storeErr(err, string(t.role()), "", "load identity")
	}
	if identity.RefreshTokenHash != hash {
		if err := t.identities.SetRefreshHash(ctx, identity.ID, ""); err != nil {
			return TokenPair{}, storeErr(err, string(t.role()), "", "clear refresh token")
		}
		return TokenPair{}, apperr.TokenMismatch()
	}

	pair, err := t.newPair(identity.ID)
	if err != nil {
		return TokenPair{}, err
	}
	swapped, err := t.identities.RotateRefreshHash(ctx, identity.ID, hash, utils.HashRefreshRaw(pair.RefreshToken))
	if err != nil {
		return TokenPair{}, apperr.Unexpected("rotate refresh token", err)
	}
	if !swapped {
		// another refresh with the same token won the race
		return TokenPair{}, apperr.TokenMismatch()
	}
	return pair, nil
}

// Revoke clears the stored refresh token.
func (t *TokenService) Revoke(ctx context.Context, identityID string) error {
	return storeErr(t.identities.SetRefreshHash(ctx, identityID, ""), string(t.role()), "", "revoke refresh token")
}

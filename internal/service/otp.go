package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/acdoc-booking/internal/apperr"
	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/notify"
	"github.com/iliyamo/acdoc-booking/internal/repository"
	"github.com/iliyamo/acdoc-booking/internal/utils"
)

// OTPConfig tunes an OTPEngine.
type OTPConfig struct {
	TTL        time.Duration
	Length     int
	BcryptCost int
	// SingleUse deletes the code after a successful verification. When false
	// the code stays valid until its TTL elapses or a new one is issued.
	SingleUse bool
}

// OTPEngine issues and verifies one-time codes for one identity class.
// Codes are stored as bcrypt hashes; at most one is live per identity.
type OTPEngine struct {
	identities repository.IdentityRepository
	store      repository.OTPStore
	sms        notify.SMSSender
	cfg        OTPConfig
	log        *logrus.Logger
}

func NewOTPEngine(identities repository.IdentityRepository, store repository.OTPStore, sms notify.SMSSender, cfg OTPConfig, log *logrus.Logger) *OTPEngine {
	return &OTPEngine{identities: identities, store: store, sms: sms, cfg: cfg, log: log}
}

func (e *OTPEngine) role() model.Role { return e.identities.Role() }

// Create replaces any live code for the identity with a fresh one, sends it
// by SMS and returns it. An SMS failure is returned but the new code stays
// stored.
func (e *OTPEngine) Create(ctx context.Context, identityID, phone string) (string, error) {
	if _, err := e.identities.GetByID(ctx, identityID); err != nil {
		return "", storeErr(err, string(e.role()), "", "load identity")
	}
	code, err := utils.GenerateOTP(e.cfg.Length)
	if err != nil {
		return "", apperr.Unexpected("generate otp", err)
	}
	hash, err := utils.HashSecret(code, e.cfg.BcryptCost)
	if err != nil {
		return "", apperr.Unexpected("hash otp", err)
	}
	if err := e.store.Replace(ctx, e.role(), identityID, hash, e.cfg.TTL); err != nil {
		return "", apperr.Unexpected("store otp", err)
	}
	if err := e.sms.SendOTP(ctx, phone, code); err != nil {
		e.log.WithError(err).WithField("role", e.role()).Warn("otp sms failed")
		return "", apperr.Unexpected("send otp", err)
	}
	return code, nil
}

// Verify checks code against the live OTP for the identity. A wrong,
// expired or never-issued code yields apperr.ErrInvalidOtp.
func (e *OTPEngine) Verify(ctx context.Context, identityID, code string) error {
	if _, err := e.identities.GetByID(ctx, identityID); err != nil {
		return storeErr(err, string(e.role()), "", "load identity")
	}
	hash, err := e.store.Get(ctx, e.role(), identityID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.InvalidOtp()
	}
	if err != nil {
		return apperr.Unexpected("load otp", err)
	}
	if code == "" || !utils.VerifySecret(hash, code) {
		return apperr.InvalidOtp()
	}
	if e.cfg.SingleUse {
		if err := e.store.Delete(ctx, e.role(), identityID); err != nil {
			return apperr.Unexpected("consume otp", err)
		}
	}
	return nil
}

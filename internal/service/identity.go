package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/acdoc-booking/internal/apperr"
	"github.com/iliyamo/acdoc-booking/internal/config"
	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/notify"
	"github.com/iliyamo/acdoc-booking/internal/repository"
)

// IdentityProfile captures what differs between admins, users and
// technicians: the status values of their lifecycle and their auth
// settings (token secrets, single-use OTP, refresh cookie).
type IdentityProfile struct {
	Role          model.Role
	Auth          config.RoleAuth
	InitialStatus string
	ActiveStatus  string
	// BlockedStatuses may not log in.
	BlockedStatuses []string
	// Statuses lists every value an admin may set.
	Statuses []string
}

// ProfileFor returns the lifecycle of role.
func ProfileFor(role model.Role) IdentityProfile {
	if role == model.RoleTechnician {
		return IdentityProfile{
			Role:            role,
			InitialStatus:   model.TechSignedUp,
			ActiveStatus:    model.TechAvailable,
			BlockedStatuses: []string{model.TechDisabled},
			Statuses: []string{model.TechSignedUp, model.TechKYCPending, model.TechAvailable,
				model.TechOnJob, model.TechOnLeave, model.TechDisabled},
		}
	}
	return IdentityProfile{
		Role:            role,
		InitialStatus:   model.StatusPending,
		ActiveStatus:    model.StatusActive,
		BlockedStatuses: []string{model.StatusBlocked},
		Statuses:        []string{model.StatusPending, model.StatusActive, model.StatusBlocked},
	}
}

func (p IdentityProfile) blocked(status string) bool {
	for _, s := range p.BlockedStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (p IdentityProfile) validStatus(status string) bool {
	for _, s := range p.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// LoginResult reports which branch loginRegister took.
type LoginResult struct {
	Registered bool   `json:"registered"`
	IdentityID string `json:"id"`
	Message    string `json:"message"`
	// OTP is only filled when the service runs with ExposeOTP, for local
	// development without an SMS gateway.
	OTP string `json:"otp,omitempty"`
}

// AuthResult is returned after a successful OTP verification.
type AuthResult struct {
	Identity *model.Identity `json:"identity"`
	Tokens   TokenPair       `json:"tokens"`
}

// IdentityService runs registration, login and session management for one
// identity class. The same type is instantiated once per role.
type IdentityService struct {
	profile    IdentityProfile
	identities repository.IdentityRepository
	otp        *OTPEngine
	tokens     *TokenService
	log        *logrus.Logger
	// ExposeOTP copies the generated code into LoginResult.
	ExposeOTP bool
}

func NewIdentityService(identities repository.IdentityRepository, otp *OTPEngine, tokens *TokenService, log *logrus.Logger) *IdentityService {
	return &IdentityService{
		profile:    ProfileFor(identities.Role()),
		identities: identities,
		otp:        otp,
		tokens:     tokens,
		log:        log,
	}
}

// NewRoleIdentityService builds the OTP engine and token service of the
// repository's role from auth and returns the identity service on top.
func NewRoleIdentityService(identities repository.IdentityRepository, otps repository.OTPStore, sms notify.SMSSender, auth config.AuthConfig, log *logrus.Logger) *IdentityService {
	ra := auth.For(identities.Role())
	otp := NewOTPEngine(identities, otps, sms, OTPConfig{
		TTL:        auth.OTPTTL,
		Length:     auth.OTPLength,
		BcryptCost: auth.BcryptCost,
		SingleUse:  ra.SingleUseOTP,
	}, log)
	tokens := NewTokenService(identities, TokenConfig{
		AccessSecret:  ra.AccessSecret,
		RefreshSecret: ra.RefreshSecret,
		AccessTTL:     auth.AccessTTL,
		RefreshTTL:    auth.RefreshTTL,
	})
	s := NewIdentityService(identities, otp, tokens, log)
	s.profile.Auth = ra
	return s
}

// Role returns the identity class served.
func (s *IdentityService) Role() model.Role { return s.profile.Role }

// Profile returns the lifecycle and auth settings of the served role.
func (s *IdentityService) Profile() IdentityProfile { return s.profile }

var (
	countryCodeRe = regexp.MustCompile(`^\+\d{1,4}$`)
	phoneRe       = regexp.MustCompile(`^\d{6,15}$`)
)

func normalizePhone(countryCode, phone string) (string, string, error) {
	countryCode = strings.TrimSpace(countryCode)
	if countryCode != "" && !strings.HasPrefix(countryCode, "+") {
		countryCode = "+" + countryCode
	}
	phone = strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
	if countryCode == "" {
		return "", "", apperr.Validation("countryCode", "country code is required")
	}
	if !countryCodeRe.MatchString(countryCode) {
		return "", "", apperr.Validation("countryCode", "country code must look like +91")
	}
	if phone == "" {
		return "", "", apperr.Validation("phone", "phone is required")
	}
	if !phoneRe.MatchString(phone) {
		return "", "", apperr.Validation("phone", "phone must be 6 to 15 digits")
	}
	return countryCode, phone, nil
}

// LoginRegister looks the phone up, registers it when unknown and sends an
// OTP either way. Calling it twice for the same phone never creates a
// second identity.
func (s *IdentityService) LoginRegister(ctx context.Context, countryCode, phone string) (LoginResult, error) {
	countryCode, phone, err := normalizePhone(countryCode, phone)
	if err != nil {
		return LoginResult{}, err
	}

	registered := false
	identity, err := s.identities.GetByPhone(ctx, countryCode, phone)
	if errors.Is(err, repository.ErrNotFound) {
		identity = &model.Identity{
			ID:          uuid.NewString(),
			CountryCode: countryCode,
			Phone:       phone,
			Status:      s.profile.InitialStatus,
		}
		err = s.identities.Create(ctx, identity)
		if errors.Is(err, repository.ErrDuplicate) {
			// a concurrent request registered the same phone first
			identity, err = s.identities.GetByPhone(ctx, countryCode, phone)
		} else {
			registered = err == nil
		}
	}
	if err != nil {
		return LoginResult{}, storeErr(err, string(s.profile.Role), "", "register identity")
	}
	if s.profile.blocked(identity.Status) {
		return LoginResult{}, apperr.Forbidden("account is blocked")
	}

	code, err := s.otp.Create(ctx, identity.ID, identity.FullPhone())
	if err != nil {
		return LoginResult{}, err
	}
	res := LoginResult{Registered: registered, IdentityID: identity.ID, Message: "login otp sent"}
	if registered {
		res.Message = "registered, otp sent"
		s.log.WithFields(logrus.Fields{"role": s.profile.Role, "id": identity.ID}).Info("identity registered")
	}
	if s.ExposeOTP {
		res.OTP = code
	}
	return res, nil
}

// VerifyOtp checks the code, promotes a freshly registered identity to its
// active status and issues a token pair.
func (s *IdentityService) VerifyOtp(ctx context.Context, identityID, code string) (AuthResult, error) {
	id, err := parseID(identityID, "id")
	if err != nil {
		return AuthResult{}, err
	}
	if strings.TrimSpace(code) == "" {
		return AuthResult{}, apperr.Validation("otp", "otp is required")
	}
	if err := s.otp.Verify(ctx, id, strings.TrimSpace(code)); err != nil {
		return AuthResult{}, err
	}
	identity, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return AuthResult{}, storeErr(err, string(s.profile.Role), "", "load identity")
	}
	if s.profile.blocked(identity.Status) {
		return AuthResult{}, apperr.Forbidden("account is blocked")
	}
	if identity.Status == s.profile.InitialStatus {
		if err := s.identities.UpdateStatus(ctx, id, s.profile.ActiveStatus); err != nil {
			return AuthResult{}, storeErr(err, string(s.profile.Role), "", "activate identity")
		}
		identity.Status = s.profile.ActiveStatus
	}
	pair, err := s.tokens.Issue(ctx, id)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Identity: identity, Tokens: pair}, nil
}

// Refresh rotates a refresh token.
func (s *IdentityService) Refresh(ctx context.Context, raw string) (TokenPair, error) {
	return s.tokens.Refresh(ctx, strings.TrimSpace(raw))
}

// Logout drops the stored refresh token.
func (s *IdentityService) Logout(ctx context.Context, identityID string) error {
	return s.tokens.Revoke(ctx, identityID)
}

// Me returns the caller's identity.
func (s *IdentityService) Me(ctx context.Context, identityID string) (*model.Identity, error) {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return nil, storeErr(err, string(s.profile.Role), "", "load identity")
	}
	return identity, nil
}

// UpdateName sets the display name.
func (s *IdentityService) UpdateName(ctx context.Context, identityID, name string) (*model.Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("name", "name is required")
	}
	if len(name) > 120 {
		return nil, apperr.Validation("name", "name must be at most 120 characters")
	}
	if err := s.identities.UpdateName(ctx, identityID, name); err != nil {
		return nil, storeErr(err, string(s.profile.Role), "", "update name")
	}
	return s.Me(ctx, identityID)
}

// SetDeviceToken registers the push token of the caller's device.
func (s *IdentityService) SetDeviceToken(ctx context.Context, identityID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperr.Validation("deviceToken", "device token is required")
	}
	return storeErr(s.identities.SetDeviceToken(ctx, identityID, token), string(s.profile.Role), "", "set device token")
}

// List pages identities for the admin console.
func (s *IdentityService) List(ctx context.Context, f repository.IdentityFilter) ([]model.Identity, int64, error) {
	if f.Status != "" && !s.profile.validStatus(f.Status) {
		return nil, 0, apperr.Validation("status", "unknown status "+f.Status)
	}
	out, total, err := s.identities.List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Unexpected("list identities", err)
	}
	return out, total, nil
}

// Get returns one identity by id.
func (s *IdentityService) Get(ctx context.Context, rawID string) (*model.Identity, error) {
	id, err := parseID(rawID, string(s.profile.Role)+" id")
	if err != nil {
		return nil, err
	}
	return s.Me(ctx, id)
}

// SetStatus lets an admin move an identity to any status of its lifecycle.
// Blocking also revokes the stored refresh token.
func (s *IdentityService) SetStatus(ctx context.Context, rawID, status string) (*model.Identity, error) {
	id, err := parseID(rawID, string(s.profile.Role)+" id")
	if err != nil {
		return nil, err
	}
	if !s.profile.validStatus(status) {
		return nil, apperr.Validation("status", "unknown status "+status)
	}
	if err := s.identities.UpdateStatus(ctx, id, status); err != nil {
		return nil, storeErr(err, string(s.profile.Role), "", "update status")
	}
	if s.profile.blocked(status) {
		if err := s.tokens.Revoke(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.Me(ctx, id)
}

// Delete removes an identity. Only admins reach this.
func (s *IdentityService) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID, string(s.profile.Role)+" id")
	if err != nil {
		return err
	}
	return storeErr(s.identities.Delete(ctx, id), string(s.profile.Role), "", "delete identity")
}

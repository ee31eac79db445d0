package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/acdoc-booking/internal/apperr"
	"github.com/iliyamo/acdoc-booking/internal/config"
	"github.com/iliyamo/acdoc-booking/internal/logger"
	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/notify"
	"github.com/iliyamo/acdoc-booking/internal/repository/memory"
)

// captureSMS records every code sent, keyed by phone.
type captureSMS struct {
	mu    sync.Mutex
	codes map[string][]string
	fail  error
}

func newCaptureSMS() *captureSMS { return &captureSMS{codes: map[string][]string{}} }

func (c *captureSMS) SendOTP(_ context.Context, phone, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[phone] = append(c.codes[phone], code)
	return c.fail
}

func (c *captureSMS) sent(phone string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.codes[phone]...)
}

// captureNotifier records notifications instead of pushing them.
type captureNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
	fail error
}

func (c *captureNotifier) Notify(_ context.Context, n notify.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return c.fail
}

func (c *captureNotifier) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []string{}
	for _, n := range c.sent {
		out = append(out, n.Event)
	}
	return out
}

var testAuth = config.AuthConfig{
	Admin:      config.RoleAuth{AccessSecret: "admin-access", RefreshSecret: "admin-refresh", SetCookie: true},
	User:       config.RoleAuth{AccessSecret: "user-access", RefreshSecret: "user-refresh", SingleUseOTP: true},
	Technician: config.RoleAuth{AccessSecret: "technician-access", RefreshSecret: "technician-refresh", SingleUseOTP: true, SetCookie: true},

	AccessTTL:  15 * time.Minute,
	RefreshTTL: 30 * 24 * time.Hour,
	OTPTTL:     5 * time.Minute,
	OTPLength:  6,
	BcryptCost: 4,
}

type env struct {
	store       *memory.Store
	sms         *captureSMS
	notifier    *captureNotifier
	identities  map[model.Role]*IdentityService
	bookings    *BookingService
	coupons     *CouponService
	catalog     *CatalogService
	technicians *TechnicianService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logger.Discard()
	st := memory.NewStore()
	e := &env{
		store:      st,
		sms:        newCaptureSMS(),
		notifier:   &captureNotifier{},
		identities: map[model.Role]*IdentityService{},
	}
	for _, role := range []model.Role{model.RoleAdmin, model.RoleUser, model.RoleTechnician} {
		e.identities[role] = NewRoleIdentityService(st.Identities(role), st.OTPs(), e.sms, testAuth, log)
	}
	e.bookings = NewBookingService(st.Bookings(), st.Addresses(), st.Services(),
		st.Identities(model.RoleUser), st.Identities(model.RoleTechnician), st.Sequencer(), e.notifier, log)
	e.coupons = NewCouponService(st.Coupons(), st.Bookings(), log)
	e.catalog = NewCatalogService(st.Services(), st.Addresses())
	e.technicians = NewTechnicianService(st.Identities(model.RoleTechnician), st.Attendances(), st.Leaves(), st.ToolRequests(), log)
	return e
}

// login runs loginRegister + verifyOtp and returns the verified identity.
func (e *env) login(t *testing.T, role model.Role, phone string) AuthResult {
	t.Helper()
	ctx := context.Background()
	svc := e.identities[role]
	res, err := svc.LoginRegister(ctx, "+91", phone)
	require.NoError(t, err)
	codes := e.sms.sent("+91" + phone)
	require.NotEmpty(t, codes)
	auth, err := svc.VerifyOtp(ctx, res.IdentityID, codes[len(codes)-1])
	require.NoError(t, err)
	return auth
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind.String(), apperr.KindOf(err).String(), "error: %v", err)
}

func float(v float64) *float64 { return &v }

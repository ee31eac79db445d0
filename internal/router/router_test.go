package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/acdoc-booking/internal/config"
	"github.com/iliyamo/acdoc-booking/internal/handler"
	"github.com/iliyamo/acdoc-booking/internal/logger"
	"github.com/iliyamo/acdoc-booking/internal/middleware"
	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/notify"
	"github.com/iliyamo/acdoc-booking/internal/repository/memory"
	"github.com/iliyamo/acdoc-booking/internal/service"
)

var testAuth = config.AuthConfig{
	Admin:      config.RoleAuth{AccessSecret: "a-acc", RefreshSecret: "a-ref", SetCookie: true},
	User:       config.RoleAuth{AccessSecret: "u-acc", RefreshSecret: "u-ref", SingleUseOTP: true},
	Technician: config.RoleAuth{AccessSecret: "t-acc", RefreshSecret: "t-ref", SingleUseOTP: true, SetCookie: true},

	AccessTTL:        15 * time.Minute,
	RefreshTTL:       24 * time.Hour,
	RefreshCookieTTL: 30 * time.Minute,
	OTPTTL:           5 * time.Minute,
	OTPLength:        6,
	BcryptCost:       4,
}

// newTestServer wires the full route table on the memory store. rdb may be
// nil, which disables rate limiting and caching.
func newTestServer(t *testing.T, rdb *redis.Client, rl config.RateLimitConfig) *echo.Echo {
	t.Helper()
	log := logger.Discard()
	st := memory.NewStore()
	resp := handler.Responder{Log: log}
	sms := notify.NewSMSSender(config.TwilioConfig{}, log)
	push := notify.NewPushSender(context.Background(), config.FCMConfig{}, log)

	identities := map[model.Role]*service.IdentityService{}
	auth := map[model.Role]*handler.AuthHandler{}
	for _, role := range []model.Role{model.RoleAdmin, model.RoleUser, model.RoleTechnician} {
		svc := service.NewRoleIdentityService(st.Identities(role), st.OTPs(), sms, testAuth, log)
		svc.ExposeOTP = true
		identities[role] = svc
		auth[role] = handler.NewAuthHandler(svc, handler.CookieConfig{Enabled: svc.Profile().Auth.SetCookie, TTL: testAuth.RefreshCookieTTL}, resp)
	}
	bookings := service.NewBookingService(st.Bookings(), st.Addresses(), st.Services(),
		st.Identities(model.RoleUser), st.Identities(model.RoleTechnician), st.Sequencer(),
		&notify.DirectNotifier{Sender: push, Log: log}, log)

	cache := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "test:cache", MaxBodyBytes: 1 << 20}

	e := echo.New()
	Register(e, Handlers{
		Auth:        auth,
		Users:       handler.NewIdentityAdminHandler(identities[model.RoleUser], resp),
		Technicians: handler.NewIdentityAdminHandler(identities[model.RoleTechnician], resp),
		Bookings:    handler.NewBookingHandler(bookings, resp),
		Coupons:     handler.NewCouponHandler(service.NewCouponService(st.Coupons(), st.Bookings(), log), resp),
		Catalog:     handler.NewCatalogHandler(service.NewCatalogService(st.Services(), st.Addresses()), resp),
		Work: handler.NewTechnicianHandler(service.NewTechnicianService(st.Identities(model.RoleTechnician),
			st.Attendances(), st.Leaves(), st.ToolRequests(), log), resp),
	}, Middlewares{
		RateLimit: middleware.NewTokenBucket(rl, rdb, log),
		Cache:     middleware.NewRedisCache(cache, rdb, log),
		Purge:     middleware.PurgeOnWrite(cache, rdb, log),
	}, testAuth)
	return e
}

func do(e *echo.Echo, method, path, token string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type session struct {
	id      string
	access  string
	refresh string
	cookies []*http.Cookie
}

func login(t *testing.T, e *echo.Echo, role, phone string) session {
	t.Helper()
	rec := do(e, http.MethodPost, "/v1/"+role+"/login-register", "", echo.Map{"countryCode": "+91", "phone": phone})
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, rec.Code, rec.Body.String())
	res := decode(t, rec)

	rec = do(e, http.MethodPost, "/v1/"+role+"/verify-otp", "", echo.Map{"id": res["id"], "otp": res["otp"]})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	tokens := out["tokens"].(map[string]any)
	identity := out["identity"].(map[string]any)
	return session{
		id:      identity["id"].(string),
		access:  tokens["accessToken"].(string),
		refresh: tokens["refreshToken"].(string),
		cookies: rec.Result().Cookies(),
	}
}

func TestHealth(t *testing.T) {
	e := newTestServer(t, nil, config.RateLimitConfig{})
	rec := do(e, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestLoginRegisterStatuses(t *testing.T) {
	e := newTestServer(t, nil, config.RateLimitConfig{})

	rec := do(e, http.MethodPost, "/v1/user/login-register", "", echo.Map{"countryCode": "+91", "phone": "9876543210"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, decode(t, rec)["registered"])

	rec = do(e, http.MethodPost, "/v1/user/login-register", "", echo.Map{"countryCode": "+91", "phone": "9876543210"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["registered"])

	rec = do(e, http.MethodPost, "/v1/user/login-register", "", echo.Map{"countryCode": "+91", "phone": "12"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decode(t, rec)["code"])
}

func TestVerifyOtpWrongCode(t *testing.T) {
	e := newTestServer(t, nil, config.RateLimitConfig{})
	rec := do(e, http.MethodPost, "/v1/technician/login-register", "", echo.Map{"countryCode": "+91", "phone": "9000000001"})
	id := decode(t, rec)["id"]

	rec = do(e, http.MethodPost, "/v1/technician/verify-otp", "", echo.Map{"id": id, "otp": "000000x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_otp", decode(t, rec)["code"])
}

func TestRefreshCookieRotation(t *testing.T) {
	e := newTestServer(t, nil, config.RateLimitConfig{})
	admin := login(t, e, "admin", "9111111111")
	require.NotEmpty(t, admin.cookies, "admin verify sets the refresh cookie")
	assert.Equal(t, "refreshToken", admin.cookies[0].Name)
	assert.True(t, admin.cookies[0].HttpOnly)

	rec := do(e, http.MethodPost, "/v1/admin/refresh-token", "", echo.Map{}, admin.cookies[0])
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec)["accessToken"])

	// the first refresh token has been rotated away
	rec = do(e, http.MethodPost, "/v1/admin/refresh-token", "", echo.Map{"refreshToken": admin.refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserHasNoCookie(t *testing.T) {
	e := newTestServer(t, nil, config.RateLimitConfig{})
	user := login(t, e, "user", "9222222222")
	assert.Empty(t, user.cookies)
}

func TestRoleIsolation(t *testing.T) {
	e := newTestServer(t, nil, config.RateLimitConfig{})
	user := login(t, e, "user", "9333333333")

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/user/me", user.access, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/admin/users", user.access, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/technician/bookings", user.access, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/user/me", "", nil).Code)
}

func TestLogoutRevokesRefresh(t *testing.T) {
	e := newTestServer(t, nil, config.RateLimitConfig{})
	user := login(t, e, "user", "9444444444")

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/v1/user/logout", user.access, nil).Code)
	rec := do(e, http.MethodPost, "/v1/user/refresh-token", "", echo.Map{"refreshToken": user.refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookingFlowOverHTTP(t *testing.T) {
	e := newTestServer(t, nil, config.RateLimitConfig{})
	admin := login(t, e, "admin", "9555555555")
	user := login(t, e, "user", "9666666666")
	tech := login(t, e, "technician", "9777777777")

	rec := do(e, http.MethodPost, "/v1/admin/services", admin.access, echo.Map{"name": "AC Service", "price": 599})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	serviceID := decode(t, rec)["id"]

	rec = do(e, http.MethodGet, "/v1/services", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)

	rec = do(e, http.MethodPost, "/v1/user/addresses", user.access, echo.Map{
		"line1": "12 MG Road", "city": "Pune", "state": "MH", "pincode": "411001",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	addressID := decode(t, rec)["id"]

	rec = do(e, http.MethodPost, "/v1/user/bookings", user.access, echo.Map{
		"userId":         "someone-else",
		"name":           "Asha",
		"addressId":      addressID,
		"slot":           "FIRST_HALF",
		"date":           time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02"),
		"amount":         599,
		"serviceDetails": []echo.Map{{"serviceId": serviceID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booking := decode(t, rec)
	bookingID := booking["id"].(string)
	assert.Equal(t, user.id, booking["userId"], "users always book for themselves")
	assert.Equal(t, "BOOKED", booking["status"])

	rec = do(e, http.MethodGet, "/v1/user/bookings", user.access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	// not assigned yet, so invisible to the technician
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/v1/technician/bookings/"+bookingID, tech.access, nil).Code)

	rec = do(e, http.MethodPatch, "/v1/admin/technicians/"+tech.id+"/status", admin.access, echo.Map{"status": "AVAILABLE"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(e, http.MethodPatch, "/v1/admin/bookings/"+bookingID+"/assign", admin.access, echo.Map{"technicianId": tech.id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "TECHNICIAN_ASSIGNED", decode(t, rec)["status"])

	rec = do(e, http.MethodPatch, "/v1/technician/bookings/"+bookingID+"/status", tech.access, echo.Map{"status": "CANCELLED"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodPost, "/v1/user/bookings/"+bookingID+"/cancel", user.access, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "CANCELLED", decode(t, rec)["status"])

	rec = do(e, http.MethodGet, "/v1/user/bookings/not-a-uuid", user.access, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCouponApplyAlwaysOK(t *testing.T) {
	e := newTestServer(t, nil, config.RateLimitConfig{})
	admin := login(t, e, "admin", "9888888888")
	user := login(t, e, "user", "9888888889")

	rec := do(e, http.MethodPost, "/v1/admin/coupons", admin.access, echo.Map{
		"couponCode": "cool10", "discount": 10, "minValue": 500,
		"expiryDate": time.Now().UTC().AddDate(0, 1, 0).Format("2006-01-02"),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "COOL10", decode(t, rec)["couponCode"])

	rec = do(e, http.MethodPost, "/v1/admin/coupons", admin.access, echo.Map{
		"couponCode": "COOL10", "discount": 10, "minValue": 500,
		"expiryDate": time.Now().UTC().AddDate(0, 1, 0).Format("2006-01-02"),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodPost, "/v1/user/coupons/apply", user.access, echo.Map{
		"couponCode": "NOPE", "bookingId": "00000000-0000-0000-0000-000000000000", "amount": 900, "isApply": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, false, out["status"])
	assert.NotEmpty(t, out["message"])
}

func TestTechnicianAttendanceOverHTTP(t *testing.T) {
	e := newTestServer(t, nil, config.RateLimitConfig{})
	tech := login(t, e, "technician", "9123456780")

	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/v1/technician/attendance/check-in", tech.access, nil).Code)
	assert.Equal(t, http.StatusConflict, do(e, http.MethodPost, "/v1/technician/attendance/check-in", tech.access, nil).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/v1/technician/attendance/check-out", tech.access, nil).Code)
}

func TestOtpEndpointsRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := newTestServer(t, rdb, config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: time.Hour, KeyStrategy: "ip_route", Prefix: "test:rl",
	})
	body := echo.Map{"countryCode": "+91", "phone": "9012345678"}
	assert.NotEqual(t, http.StatusTooManyRequests, do(e, http.MethodPost, "/v1/user/login-register", "", body).Code)
	assert.NotEqual(t, http.StatusTooManyRequests, do(e, http.MethodPost, "/v1/user/login-register", "", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(e, http.MethodPost, "/v1/user/login-register", "", body).Code)

	// the public catalogue is not limited
	for i := 0; i < 4; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/services", "", nil).Code)
	}
}

func TestCatalogueCachePurgedOnAdminWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := newTestServer(t, rdb, config.RateLimitConfig{})
	admin := login(t, e, "admin", "9345678901")

	rec := do(e, http.MethodGet, "/v1/services", "", nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	rec = do(e, http.MethodGet, "/v1/services", "", nil)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Len(t, decode(t, rec)["items"], 0)

	rec = do(e, http.MethodPost, "/v1/admin/services", admin.access, echo.Map{"name": "Gas Refill", "price": 2499})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(e, http.MethodGet, "/v1/services", "", nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Len(t, decode(t, rec)["items"], 1)
}

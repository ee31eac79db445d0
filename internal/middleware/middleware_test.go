package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/acdoc-booking/internal/config"
	"github.com/iliyamo/acdoc-booking/internal/logger"
	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/utils"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func do(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	g := e.Group("/v1/user", JWTAuth("user-secret", model.RoleUser), RequireRole(model.RoleUser))
	g.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, IdentityID(c)+"|"+string(Role(c)))
	})

	good, err := utils.NewToken("user-secret", "u-1", model.RoleUser, time.Minute)
	require.NoError(t, err)
	rec := do(e, http.MethodGet, "/v1/user/me", good.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u-1|user", rec.Body.String())

	require.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/user/me", "").Code)
	require.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/user/me", "junk").Code)

	// signed with another role's secret
	admin, err := utils.NewToken("admin-secret", "a-1", model.RoleAdmin, time.Minute)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/user/me", admin.Token).Code)

	// right secret but wrong role claim
	forged, err := utils.NewToken("user-secret", "a-1", model.RoleAdmin, time.Minute)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/user/me", forged.Token).Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				c.Set(KeyRole, model.RoleTechnician)
				return next(c)
			}
		},
		RequireRole(model.RoleAdmin))
	require.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/x", "").Code)
}

func TestTokenBucket(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "test:rl",
	}
	e := echo.New()
	e.POST("/otp", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(cfg, rdb, logger.Discard()))

	require.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/otp", "").Code)
	rec := do(e, http.MethodPost, "/otp", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do(e, http.MethodPost, "/otp", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucketWithoutRedis(t *testing.T) {
	e := echo.New()
	e.POST("/otp", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, logger.Discard()))
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/otp", "").Code)
	}
}

func TestRedisCache(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true,
		Methods: map[string]bool{http.MethodGet: true},
		TTL:     time.Minute,
		Prefix:  "test:cache",
	}
	log := logger.Discard()
	calls := 0
	e := echo.New()
	e.GET("/services", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, NewRedisCache(cfg, rdb, log))
	e.POST("/services", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		PurgeOnWrite(cfg, rdb, log))

	first := do(e, http.MethodGet, "/services", "")
	require.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := do(e, http.MethodGet, "/services", "")
	require.Equal(t, "HIT", second.Header().Get("X-Cache"))
	require.JSONEq(t, first.Body.String(), second.Body.String())
	require.Equal(t, 1, calls)

	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/services", "").Code)
	third := do(e, http.MethodGet, "/services", "")
	require.Equal(t, "MISS", third.Header().Get("X-Cache"))
	require.Equal(t, 2, calls)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)
	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "application/json", got.Get("Content-Type"))
	require.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{1, 2})
	require.False(t, ok)
}

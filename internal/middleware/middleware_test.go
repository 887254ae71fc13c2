package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-hall-booking/internal/config"
	"github.com/iliyamo/cinema-hall-booking/internal/utils"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func serve(e *echo.Echo, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "cache:seats",
		MaxBodyBytes: 1 << 20,
	}
}

func TestRedisCache_hitAfterMissAndInvalidate(t *testing.T) {
	_, rdb := newRedis(t)
	calls := 0
	e := echo.New()
	e.GET("/v1/seats/:code", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"code": c.Param("code")})
	}, NewRedisCache(cacheConfig(), rdb))

	rec := serve(e, http.MethodGet, "/v1/seats/11", nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	rec = serve(e, http.MethodGet, "/v1/seats/11", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"code":"11"}`, rec.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, 1, calls)

	rec = serve(e, http.MethodGet, "/v1/seats/12", nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)

	log, _ := test.NewNullLogger()
	inv := NewCacheInvalidator(cacheConfig(), rdb, log)
	require.NotNil(t, inv)
	require.NoError(t, inv.Invalidate(context.Background()))

	rec = serve(e, http.MethodGet, "/v1/seats/11", nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)
}

func TestRedisCache_dropsResponseInvalidatedMidRequest(t *testing.T) {
	mr, rdb := newRedis(t)
	log, _ := test.NewNullLogger()
	inv := NewCacheInvalidator(cacheConfig(), rdb, log)
	require.NotNil(t, inv)

	calls := 0
	e := echo.New()
	e.GET("/v1/seats/:code", func(c echo.Context) error {
		calls++
		if calls == 1 {
			// a purchase commits while the seat is being read
			require.NoError(t, inv.Invalidate(context.Background()))
		}
		return c.JSON(http.StatusOK, echo.Map{"code": c.Param("code"), "occupied": calls > 1})
	}, NewRedisCache(cacheConfig(), rdb))

	rec := serve(e, http.MethodGet, "/v1/seats/11", nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	gen, err := mr.Get("cache:seats#gen")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)

	rec = serve(e, http.MethodGet, "/v1/seats/11", nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"code":"11","occupied":true}`, rec.Body.String())
	assert.Equal(t, 2, calls)

	rec = serve(e, http.MethodGet, "/v1/seats/11", nil)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"code":"11","occupied":true}`, rec.Body.String())
	assert.Equal(t, 2, calls)
}

func TestRedisCache_skipsErrors(t *testing.T) {
	_, rdb := newRedis(t)
	calls := 0
	e := echo.New()
	e.GET("/v1/seats/free", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusNotFound, echo.Map{"error": "there are no free seats"})
	}, NewRedisCache(cacheConfig(), rdb))

	serve(e, http.MethodGet, "/v1/seats/free", nil)
	rec := serve(e, http.MethodGet, "/v1/seats/free", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 2, calls)
}

func TestCacheInvalidator_leavesOtherKeys(t *testing.T) {
	mr, rdb := newRedis(t)
	require.NoError(t, mr.Set("cache:seats:abc", "x"))
	require.NoError(t, mr.Set("rl:ip:1.2.3.4", "y"))

	log, _ := test.NewNullLogger()
	require.NoError(t, NewCacheInvalidator(cacheConfig(), rdb, log).Invalidate(context.Background()))

	assert.False(t, mr.Exists("cache:seats:abc"))
	assert.True(t, mr.Exists("rl:ip:1.2.3.4"))
	assert.True(t, mr.Exists("cache:seats#gen"))

	disabled := cacheConfig()
	disabled.Enabled = false
	assert.Nil(t, NewCacheInvalidator(disabled, rdb, log))
}

func TestTokenBucket_blocksWhenEmpty(t *testing.T) {
	_, rdb := newRedis(t)
	log, _ := test.NewNullLogger()
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
	e := echo.New()
	e.POST("/v1/tickets", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		NewTokenBucket(cfg, rdb, log))

	assert.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/v1/tickets", nil).Code)
	rec := serve(e, http.MethodPost, "/v1/tickets", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(e, http.MethodPost, "/v1/tickets", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucket_failsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	log, hook := test.NewNullLogger()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1,
		RefillInterval: time.Hour, TTL: 5 * time.Hour, Prefix: "rl"}
	e := echo.New()
	e.POST("/v1/tickets", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		NewTokenBucket(cfg, rdb, log))

	mr.Close()
	assert.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/v1/tickets", nil).Code)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	e.POST("/admin", func(c echo.Context) error {
		return c.String(http.StatusOK, userID(c))
	}, JWTAuth("s3cret"), RequireRole(RoleAdmin))

	admin, err := utils.NewAccessToken("s3cret", "root", RoleAdmin, 5)
	require.NoError(t, err)
	viewer, err := utils.NewAccessToken("s3cret", "bob", "VIEWER", 5)
	require.NoError(t, err)
	forged, err := utils.NewAccessToken("other", "root", RoleAdmin, 5)
	require.NoError(t, err)

	rec := serve(e, http.MethodPost, "/admin", map[string]string{"Authorization": "Bearer " + admin.Token})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "root", rec.Body.String())

	rec = serve(e, http.MethodPost, "/admin", map[string]string{"Authorization": "Bearer " + viewer.Token})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(e, http.MethodPost, "/admin", map[string]string{"Authorization": "Bearer " + forged.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodPost, "/admin", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestLogger(t *testing.T) {
	log, hook := test.NewNullLogger()
	e := echo.New()
	e.Use(RequestLogger(log))
	e.GET("/boom", func(echo.Context) error { return echo.NewHTTPError(http.StatusInternalServerError, "boom") })
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	assert.Equal(t, http.StatusInternalServerError, serve(e, http.MethodGet, "/boom", nil).Code)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, http.StatusInternalServerError, entry.Data["status"])

	serve(e, http.MethodGet, "/ok", nil)
	entry = hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "/ok", entry.Data["path"])
}

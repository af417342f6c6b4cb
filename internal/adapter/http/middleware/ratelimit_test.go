package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"linkpay/internal/adapter/http/middleware"
	redisStore "linkpay/internal/adapter/storage/redis"
	"linkpay/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRateLimitRouter(store middleware.Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	rule := middleware.RateLimitRule{Limit: 3, Window: time.Minute}

	r.GET("/test", func(c *gin.Context) {
		if id := c.GetHeader("X-Test-Actor"); id != "" {
			c.Set(middleware.CtxActor, domain.UserActor(id))
		}
		c.Next()
	}, middleware.RateLimiter(store, "test", rule, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	return r
}

func newRedisLimiter(t *testing.T) *redisStore.RateLimitStore {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisStore.NewRateLimitStore(client)
}

func doGet(router *gin.Engine, actor string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), "GET", "/test", nil)
	if actor != "" {
		req.Header.Set("X-Test-Actor", actor)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	router := setupRateLimitRouter(newRedisLimiter(t))

	for i := 0; i < 3; i++ {
		w := doGet(router, "")
		assert.Equal(t, 200, w.Code, "request %d should succeed", i+1)
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	for name, store := range map[string]middleware.Limiter{
		"redis": newRedisLimiter(t),
		"local": middleware.NewLocalLimiter(time.Minute),
	} {
		t.Run(name, func(t *testing.T) {
			router := setupRateLimitRouter(store)
			for i := 0; i < 3; i++ {
				assert.Equal(t, 200, doGet(router, "").Code)
			}

			w := doGet(router, "")
			assert.Equal(t, 429, w.Code)
			assert.Contains(t, w.Body.String(), "RATE_001")
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
		})
	}
}

func TestRateLimiter_KeysByActor(t *testing.T) {
	router := setupRateLimitRouter(newRedisLimiter(t))

	for i := 0; i < 3; i++ {
		assert.Equal(t, 200, doGet(router, "URAAAAAA").Code)
	}
	assert.Equal(t, 429, doGet(router, "URAAAAAA").Code)

	assert.Equal(t, 200, doGet(router, "URBBBBBB").Code)
}

func TestRateLimiter_DegradedModeAllows(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()
	router := setupRateLimitRouter(redisStore.NewRateLimitStore(client))

	mr.Close()

	assert.Equal(t, 200, doGet(router, "").Code)
}

func TestLocalLimiter_RejectsInvalidRule(t *testing.T) {
	l := middleware.NewLocalLimiter(0)
	_, err := l.Allow(context.Background(), "k", 0, time.Minute)
	require.Error(t, err)
}

func TestLocalLimiter_IndependentKeys(t *testing.T) {
	l := middleware.NewLocalLimiter(time.Minute)
	ctx := context.Background()

	res, err := l.Allow(ctx, "a", 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)

	res, err = l.Allow(ctx, "a", 1, time.Hour)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = l.Allow(ctx, "b", 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestDefaultRateLimitRules(t *testing.T) {
	rules := middleware.DefaultRateLimitRules()
	assert.Equal(t, int64(10), rules["auth_login"].Limit)
	assert.Equal(t, int64(5), rules["auth_register"].Limit)
	assert.Equal(t, time.Hour, rules["auth_register"].Window)
	assert.Equal(t, int64(60), rules["ledger"].Limit)
	assert.Equal(t, int64(60), rules["requests"].Limit)
	assert.Equal(t, int64(20), rules["profile"].Limit)
	assert.Equal(t, int64(120), rules["read"].Limit)
}

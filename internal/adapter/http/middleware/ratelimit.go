package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	redisStore "linkpay/internal/adapter/storage/redis"
	"linkpay/pkg/apperror"
	"linkpay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the rate limits per endpoint group.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"auth_login":    {Limit: 10, Window: time.Minute},
		"auth_register": {Limit: 5, Window: time.Hour},
		"ledger":        {Limit: 60, Window: time.Minute},
		"requests":      {Limit: 60, Window: time.Minute},
		"profile":       {Limit: 20, Window: time.Minute},
		"read":          {Limit: 120, Window: time.Minute},
	}
}

// Limiter decides whether one more request fits in key's window.
// *redisStore.RateLimitStore and *LocalLimiter implement it.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redisStore.RateLimitResult, error)
}

// LocalLimiter is an in-process token bucket limiter used when Redis is
// disabled. Limits are per instance.
type LocalLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*localBucket
	idleTTL  time.Duration
	clockNow func() time.Time
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter creates an in-process limiter. Buckets idle for longer
// than idleTTL are evicted lazily.
func NewLocalLimiter(idleTTL time.Duration) *LocalLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &LocalLimiter{
		buckets:  make(map[string]*localBucket),
		idleTTL:  idleTTL,
		clockNow: time.Now,
	}
}

// Allow spends one token from key's bucket, refilled at limit per window.
func (l *LocalLimiter) Allow(_ context.Context, key string, limit int64, window time.Duration) (*redisStore.RateLimitResult, error) {
	if limit <= 0 || window <= 0 {
		return nil, fmt.Errorf("invalid rate limit rule %d/%s", limit, window)
	}
	now := l.clockNow()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictLocked(now)
	b, ok := l.buckets[key]
	if !ok {
		every := rate.Every(window / time.Duration(limit))
		b = &localBucket{limiter: rate.NewLimiter(every, int(limit))}
		l.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	remaining := int64(math.Floor(b.limiter.TokensAt(now)))
	if remaining < 0 {
		remaining = 0
	}
	return &redisStore.RateLimitResult{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   now.Add(window).Unix(),
	}, nil
}

func (l *LocalLimiter) evictLocked(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.buckets, k)
		}
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// Limiter failures let the request through.
func RateLimiter(store Limiter, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := extractIdentifier(c)
		key := fmt.Sprintf("%s:%s", identifier, group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys authenticated calls by party and anonymous ones by IP.
func extractIdentifier(c *gin.Context) string {
	if actor, ok := ActorFrom(c); ok {
		return actor.ID
	}
	return c.ClientIP()
}

package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/tinyforum/backend/internal/metrics"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Window duration
	Window time.Duration
	// KeyFunc picks the bucket for a request. Defaults to the client IP.
	KeyFunc func(c *gin.Context) string
	// IdleTTL drops buckets that saw no traffic for this long.
	IdleTTL time.Duration
}

func clientIPKey(c *gin.Context) string { return c.ClientIP() }

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:   120,
		Window:  time.Minute,
		KeyFunc: clientIPKey,
		IdleTTL: 10 * time.Minute,
	}
}

// AuthRateLimitConfig returns stricter limits for auth endpoints
func AuthRateLimitConfig() RateLimitConfig {
	cfg := DefaultRateLimitConfig()
	cfg.Limit = 10
	return cfg
}

// WriteRateLimitConfig limits thread, post and report creation per user,
// falling back to the client IP for anonymous requests.
func WriteRateLimitConfig() RateLimitConfig {
	cfg := DefaultRateLimitConfig()
	cfg.Limit = 30
	cfg.KeyFunc = func(c *gin.Context) string {
		if userID := c.GetString("user_id"); userID != "" {
			return "user:" + userID
		}
		return "ip:" + c.ClientIP()
	}
	return cfg
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	config   RateLimitConfig
	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time

	lastSweep time.Time
}

// NewRateLimiterStore builds the limiter behind NewRateLimiter.
func NewRateLimiterStore(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = clientIPKey
	}
	if config.Limit <= 0 {
		config.Limit = DefaultRateLimitConfig().Limit
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	return &RateLimiter{
		config:   config,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// NewRateLimiter creates a new rate limiting middleware
func NewRateLimiter(config RateLimitConfig) gin.HandlerFunc {
	return NewRateLimiterStore(config).Middleware()
}

// Middleware rejects requests over the limit with 429 and Retry-After.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	limit := strconv.Itoa(rl.config.Limit)
	return func(c *gin.Context) {
		key := rl.config.KeyFunc(c)
		res, now := rl.reserve(key)
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			retryAfter := int(math.Ceil(delay.Seconds()))
			metrics.Get().RateLimitExceededTotal.WithLabelValues(c.FullPath(), c.Request.Method).Inc()
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-RateLimit-Limit", limit)
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":        "RATE_LIMITED",
				"message":     "rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}
		c.Next()
	}
}

// Allow reports whether key may make a request now.
func (rl *RateLimiter) Allow(key string) bool {
	res, now := rl.reserve(key)
	if res.DelayFrom(now) > 0 {
		res.CancelAt(now)
		return false
	}
	return true
}

func (rl *RateLimiter) reserve(key string) (*rate.Reservation, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[key]
	if !ok {
		every := rl.config.Window / time.Duration(rl.config.Limit)
		v = &visitor{limiter: rate.NewLimiter(rate.Every(every), rl.config.Limit)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	if rl.config.IdleTTL > 0 && now.Sub(rl.lastSweep) > rl.config.IdleTTL {
		rl.evictIdle(now, key)
	}
	return v.limiter.ReserveN(now, 1), now
}

// evictIdle runs under mu. An idle bucket has refilled completely, so
// dropping it loses nothing.
func (rl *RateLimiter) evictIdle(now time.Time, keep string) {
	rl.lastSweep = now
	for key, v := range rl.visitors {
		if key == keep {
			continue
		}
		if now.Sub(v.lastSeen) > rl.config.IdleTTL {
			delete(rl.visitors, key)
		}
	}
}

// Size reports how many keys are tracked.
func (rl *RateLimiter) Size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

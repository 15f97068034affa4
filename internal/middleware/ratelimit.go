package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/cache"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/logging"
)

const limiterIdleTimeout = 30 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter manages rate limiting for API requests
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rps int, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// getLimiter returns a rate limiter for a specific key
func (rl *RateLimiter) getLimiter(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter
}

// evict removes limiters idle since before cutoff
func (rl *RateLimiter) evict(cutoff time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
			removed++
		}
	}
	return removed
}

// Cleanup removes idle limiters until ctx is done
func (rl *RateLimiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.evict(now.Add(-limiterIdleTimeout))
		}
	}
}

// RateLimit middleware limits requests per IP or user
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try to get user ID first
		var key string
		if userID, exists := GetUserID(c); exists {
			key = fmt.Sprintf("user:%s", userID)
		} else {
			// Fall back to IP address
			key = fmt.Sprintf("ip:%s", c.ClientIP())
		}

		limiter := rl.getLimiter(key, time.Now())
		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// DailyQuota counts uses against a per-day allowance
type DailyQuota interface {
	ConsumeDailyQuota(ctx context.Context, scope, subject string, limit int64, now time.Time) (*cache.Quota, error)
}

// AnonymousQuota limits anonymous callers to limit requests per IP per day.
// Authenticated callers are not counted. When the quota store fails the
// request is let through.
func AnonymousQuota(quota DailyQuota, scope string, limit int, logger *logging.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logging.Nop()
	}
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); ok || limit <= 0 {
			c.Next()
			return
		}

		q, err := quota.ConsumeDailyQuota(c.Request.Context(), scope, c.ClientIP(), int64(limit), time.Now())
		if err != nil {
			logger.WithError(err).Warn("Quota check failed, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(q.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(q.Remaining(), 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(q.ResetsAt.Unix(), 10))

		if !q.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":     "Daily limit reached. Log in for unlimited summaries.",
				"code":      "quota_exceeded",
				"limit":     q.Limit,
				"resets_at": q.ResetsAt,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// WindowLimiter counts requests for a key within a fixed window
type WindowLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// Throttle limits each client IP to limit requests per window on one route
func Throttle(limiter WindowLimiter, name string, limit int, window time.Duration, logger *logging.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logging.Nop()
	}
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		allowed, err := limiter.CheckRateLimit(c.Request.Context(), name+":"+c.ClientIP(), int64(limit), window)
		if err != nil {
			logger.WithError(err).Warn("Throttle check failed, allowing request")
			c.Next()
			return
		}

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts. Please try again later."})
			c.Abort()
			return
		}

		c.Next()
	}
}

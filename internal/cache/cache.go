package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/metrics"
)

// Cache provides caching functionality using Redis
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Assistant Answer Operations

// answerKey hashes the normalized question so equivalent questions share a key
func answerKey(question string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(question), " "))
	sum := sha256.Sum256([]byte(normalized))
	return "assistant:answer:" + hex.EncodeToString(sum[:])
}

// SetAnswer caches the assistant's answer to a question
func (c *Cache) SetAnswer(ctx context.Context, question, answer string, ttl time.Duration) error {
	return c.client.Set(ctx, answerKey(question), answer, ttl).Err()
}

// GetAnswer retrieves a cached answer. ok is false on a cache miss.
func (c *Cache) GetAnswer(ctx context.Context, question string) (answer string, ok bool, err error) {
	answer, err = c.client.Get(ctx, answerKey(question)).Result()
	if err != nil {
		if err == redis.Nil {
			metrics.RecordCacheAccess("assistant", false)
			return "", false, nil // Cache miss
		}
		return "", false, fmt.Errorf("failed to get answer from cache: %w", err)
	}
	metrics.RecordCacheAccess("assistant", true)
	return answer, true, nil
}

// Quota Operations

// Quota is the state of a daily allowance after one request was counted
type Quota struct {
	Allowed  bool
	Used     int64
	Limit    int64
	ResetsAt time.Time
}

// ConsumeDailyQuota counts one use by subject against a per-day limit. The
// counter resets at midnight UTC.
func (c *Cache) ConsumeDailyQuota(ctx context.Context, scope, subject string, limit int64, now time.Time) (*Quota, error) {
	now = now.UTC()
	day := now.Format("2006-01-02")
	resetsAt := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)

	key := fmt.Sprintf("quota:%s:%s:%s", scope, day, subject)
	allowed, count, err := c.checkRateLimit(ctx, key, limit, resetsAt.Sub(now))
	if err != nil {
		return nil, err
	}
	return &Quota{Allowed: allowed, Used: count, Limit: limit, ResetsAt: resetsAt}, nil
}

// Remaining returns how many uses are left today
func (q *Quota) Remaining() int64 {
	if q.Used >= q.Limit {
		return 0
	}
	return q.Limit - q.Used
}

// Rate Limiting Operations

// CheckRateLimit checks if a rate limit has been exceeded
func (c *Cache) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	allowed, _, err := c.checkRateLimit(ctx, fmt.Sprintf("ratelimit:%s", key), limit, window)
	return allowed, err
}

func (c *Cache) checkRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	// Increment counter
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	// Set expiry on first request
	if count == 1 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to set expiry: %w", err)
		}
	}

	// Check if limit exceeded
	return count <= limit, count, nil
}

// Ping checks the connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

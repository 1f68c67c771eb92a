package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/telhawk-systems/logrelay/internal/metrics"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}

// slidingWindow trims entries older than the window, then admits the request
// if fewer than limit remain.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, 0, window_start)

	local current = redis.call('ZCARD', key)

	if current < limit then
		redis.call('ZADD', key, now, ARGV[5])
		redis.call('EXPIRE', key, ttl)
		return 1
	else
		return 0
	end
`)

type redisRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewRedisRateLimiter connects to redisURL and returns a sliding-window limiter
// admitting limit requests per window per key.
func NewRedisRateLimiter(redisURL string, limit int, window time.Duration) (RateLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewRedisRateLimiterFromClient(client, limit, window), nil
}

// NewRedisRateLimiterFromClient wraps an existing Redis connection.
func NewRedisRateLimiterFromClient(client *redis.Client, limit int, window time.Duration) RateLimiter {
	return &redisRateLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}
}

// Allow implements sliding window rate limiting using Redis.
func (r *redisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := r.now().UnixNano()
	windowStart := now - r.window.Nanoseconds()
	ttl := int64(r.window.Seconds()) + 1
	member := fmt.Sprintf("%d-%d", now, r.client.Incr(ctx, "ratelimit:seq").Val())

	result, err := slidingWindow.Run(ctx, r.client, []string{"ratelimit:" + key},
		now, windowStart, r.limit, ttl, member).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	allowed := result == 1
	if !allowed {
		metrics.RateLimitHits.WithLabelValues(key).Inc()
	}

	return allowed, nil
}

func (r *redisRateLimiter) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// NoOpRateLimiter always allows requests (rate limiting disabled).
type NoOpRateLimiter struct{}

func (n *NoOpRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return true, nil
}

func (n *NoOpRateLimiter) Close() error {
	return nil
}

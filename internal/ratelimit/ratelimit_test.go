package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestNoOpRateLimiter(t *testing.T) {
	limiter := &NoOpRateLimiter{}
	ctx := context.Background()

	for _, key := range []string{"10.0.0.1", "10.0.0.2", ""} {
		for i := 0; i < 10; i++ {
			allowed, err := limiter.Allow(ctx, key)
			if err != nil {
				t.Errorf("Allow(%q) error = %v, want nil", key, err)
			}
			if !allowed {
				t.Errorf("Allow(%q) = false, want true", key)
			}
		}
	}

	if err := limiter.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*redisRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisRateLimiterFromClient(client, limit, window).(*redisRateLimiter), mr
}

func TestRedisRateLimiter_Allow(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}

	allowed, err := limiter.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Error("request over the limit was allowed")
	}

	// Other keys have their own budget.
	allowed, err = limiter.Allow(ctx, "10.0.0.2")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("request for a fresh key was denied")
	}
}

func TestRedisRateLimiter_WindowSlides(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if allowed, _ := limiter.Allow(ctx, "k"); !allowed {
		t.Fatal("first request denied")
	}
	if allowed, _ := limiter.Allow(ctx, "k"); allowed {
		t.Fatal("second request inside window allowed")
	}

	now = now.Add(61 * time.Second)
	if allowed, _ := limiter.Allow(ctx, "k"); !allowed {
		t.Error("request after window denied")
	}
}

func TestRedisRateLimiter_RedisDown(t *testing.T) {
	limiter, mr := newTestLimiter(t, 5, time.Minute)
	mr.Close()

	allowed, err := limiter.Allow(context.Background(), "k")
	if err == nil {
		t.Error("Allow() error = nil, want error when redis is down")
	}
	if allowed {
		t.Error("Allow() = true on error, want false")
	}
}

func TestNewRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)

	limiter, err := NewRedisRateLimiter("redis://"+mr.Addr()+"/0", 10, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisRateLimiter() error = %v", err)
	}
	if err := limiter.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if _, err := NewRedisRateLimiter("://bad", 10, time.Minute); err == nil {
		t.Error("NewRedisRateLimiter() with invalid URL error = nil, want error")
	}
}

// Package ratelimit throttles API clients, with separate budgets for reads
// and community posts.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter decides whether a client may make another request
type RateLimiter interface {
	Allow(ctx context.Context, key string) (*RateLimitInfo, error)
}

// RateLimitInfo contains information about the current rate limit state
type RateLimitInfo struct {
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Remaining is the number of requests remaining in the current window
	Remaining int
	// ResetAt is when the window resets
	ResetAt time.Time
	// Allowed indicates whether the request should be allowed
	Allowed bool
}

// RetryAfter returns how long a rejected client should wait
func (i *RateLimitInfo) RetryAfter(now time.Time) time.Duration {
	d := i.ResetAt.Sub(now)
	if d < time.Second {
		return time.Second
	}
	return d.Round(time.Second)
}

// Config selects and sizes a limiter
type Config struct {
	// Driver is memory or redis
	Driver   string
	Requests int
	Window   time.Duration
	Prefix   string
}

// New builds a limiter. client is required for the redis driver.
func New(cfg Config, client *redis.Client) (RateLimiter, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewTokenBucket(TokenBucketConfig{
			Capacity:        cfg.Requests,
			RefillRate:      cfg.Window,
			CleanupInterval: 5 * time.Minute,
		}), nil
	case "redis":
		return NewRedisRateLimiter(RedisRateLimiterConfig{
			Client: client,
			Limit:  cfg.Requests,
			Window: cfg.Window,
			Prefix: cfg.Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown rate limit driver %q", cfg.Driver)
	}
}

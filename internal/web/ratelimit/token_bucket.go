package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is an in-memory limiter refilling Capacity tokens per RefillRate
type TokenBucket struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	capacity   int
	refillRate time.Duration
	now        func() time.Time
	cleanup    *time.Ticker
	done       chan struct{}
	closeOnce  sync.Once
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// TokenBucketConfig holds configuration for the token bucket rate limiter
type TokenBucketConfig struct {
	Capacity   int
	RefillRate time.Duration
	// CleanupInterval is how often idle buckets are dropped; zero disables it
	CleanupInterval time.Duration
}

// NewTokenBucket creates a token bucket limiter
func NewTokenBucket(config TokenBucketConfig) *TokenBucket {
	if config.Capacity <= 0 {
		config.Capacity = 1
	}
	if config.RefillRate <= 0 {
		config.RefillRate = time.Minute
	}
	tb := &TokenBucket{
		buckets:    make(map[string]*bucket),
		capacity:   config.Capacity,
		refillRate: config.RefillRate,
		now:        time.Now,
		done:       make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		tb.cleanup = time.NewTicker(config.CleanupInterval)
		go tb.cleanupLoop()
	}

	return tb
}

// Allow consumes a token for key if one is available
func (tb *TokenBucket) Allow(ctx context.Context, key string) (*RateLimitInfo, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()

	b, exists := tb.buckets[key]
	if !exists {
		b = &bucket{tokens: tb.capacity, lastRefill: now}
		tb.buckets[key] = b
	}

	// capacity tokens per refillRate, credited in whole tokens
	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		add := int(float64(tb.capacity) * elapsed.Seconds() / tb.refillRate.Seconds())
		if add > 0 {
			b.tokens = min(tb.capacity, b.tokens+add)
			b.lastRefill = now
		}
	}

	info := &RateLimitInfo{
		Limit:   tb.capacity,
		ResetAt: b.lastRefill.Add(tb.refillRate),
	}
	if b.tokens > 0 {
		b.tokens--
		info.Remaining = b.tokens
		info.Allowed = true
	}
	return info, nil
}

func (tb *TokenBucket) cleanupLoop() {
	for {
		select {
		case <-tb.cleanup.C:
			tb.dropIdle()
		case <-tb.done:
			return
		}
	}
}

// dropIdle removes buckets untouched for two refill periods; they would be
// full again anyway
func (tb *TokenBucket) dropIdle() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	threshold := 2 * tb.refillRate
	now := tb.now()
	for key, b := range tb.buckets {
		if now.Sub(b.lastRefill) > threshold {
			delete(tb.buckets, key)
		}
	}
}

// Close stops the cleanup goroutine
func (tb *TokenBucket) Close() error {
	tb.closeOnce.Do(func() {
		close(tb.done)
		if tb.cleanup != nil {
			tb.cleanup.Stop()
		}
	})
	return nil
}

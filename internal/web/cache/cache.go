// Package cache stores upstream scripture responses in memory or Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Cache defines the interface for all cache backends
type Cache interface {
	// Get retrieves a value from the cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with a TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values under the cache prefix
	Clear(ctx context.Context) error

	// Close releases background resources
	Close() error
}

// Config holds backend-independent settings
type Config struct {
	// Driver is memory, redis or none
	Driver string
	// Prefix is prepended to all cache keys
	Prefix string
	// DefaultTTL applies when Set is called with a zero TTL
	DefaultTTL time.Duration
	// MaxEntries bounds the memory backend; zero means unbounded
	MaxEntries int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// DefaultConfig returns a memory cache configuration
func DefaultConfig() Config {
	return Config{
		Driver:     "memory",
		Prefix:     "faithdive:",
		DefaultTTL: 5 * time.Minute,
		MaxEntries: 10000,
	}
}

// ErrCacheMiss is returned when a key is not found in the cache
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	var miss ErrCacheMiss
	return errors.As(err, &miss)
}

// New builds the configured backend. The "none" driver returns a nil Cache,
// which callers treat as caching disabled.
func New(cfg Config, logger *zap.Logger) (Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case "", "memory":
		logger.Info("using in-memory cache", zap.Int("max_entries", cfg.MaxEntries))
		return NewMemoryCache(cfg), nil
	case "redis":
		c, err := NewRedisCache(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis cache at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("using redis cache", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
		return c, nil
	case "none":
		logger.Info("response cache disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryCache is an in-process cache with TTLs and an optional entry bound
type MemoryCache struct {
	mu     sync.Mutex
	items  map[string]cacheItem
	config Config
	now    func() time.Time
	cancel context.CancelFunc
}

type cacheItem struct {
	value      []byte
	expiration time.Time
}

func (i cacheItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// NewMemoryCache creates a memory cache and starts its sweeper
func NewMemoryCache(config Config) *MemoryCache {
	ctx, cancel := context.WithCancel(context.Background())
	mc := &MemoryCache{
		items:  make(map[string]cacheItem),
		config: config,
		now:    time.Now,
		cancel: cancel,
	}

	go mc.sweep(ctx, time.Minute)

	return mc
}

// Get retrieves a value from the cache
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullKey := m.config.Prefix + key

	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[fullKey]
	if !ok {
		return nil, ErrCacheMiss{Key: key}
	}
	if item.expired(m.now()) {
		delete(m.items, fullKey)
		return nil, ErrCacheMiss{Key: key}
	}
	return item.value, nil
}

// Set stores a value. A zero ttl uses the default TTL; a negative ttl never
// expires.
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}
	item := cacheItem{value: value}
	if ttl > 0 {
		item.expiration = m.now().Add(ttl)
	}

	fullKey := m.config.Prefix + key

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[fullKey]; !exists && m.config.MaxEntries > 0 && len(m.items) >= m.config.MaxEntries {
		m.evictLocked()
	}
	m.items[fullKey] = item
	return nil
}

// Delete removes a value from the cache
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.items, m.config.Prefix+key)
	m.mu.Unlock()
	return nil
}

// Clear removes every entry under the prefix
func (m *MemoryCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.items {
		if strings.HasPrefix(k, m.config.Prefix) {
			delete(m.items, k)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired ones included
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close stops the background sweeper
func (m *MemoryCache) Close() error {
	if m.cancel != nil {
		m.cancel()
	}
	return nil
}

// evictLocked drops expired entries, or the entry closest to expiry when
// nothing has expired yet
func (m *MemoryCache) evictLocked() {
	now := m.now()
	victim := ""
	var soonest time.Time
	for k, item := range m.items {
		if item.expired(now) {
			delete(m.items, k)
			continue
		}
		if item.expiration.IsZero() {
			continue
		}
		if victim == "" || item.expiration.Before(soonest) {
			victim, soonest = k, item.expiration
		}
	}
	if len(m.items) < m.config.MaxEntries {
		return
	}
	if victim == "" {
		for k := range m.items {
			victim = k
			break
		}
	}
	delete(m.items, victim)
}

func (m *MemoryCache) sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := m.now()
			m.mu.Lock()
			for k, item := range m.items {
				if item.expired(now) {
					delete(m.items, k)
				}
			}
			m.mu.Unlock()
		}
	}
}

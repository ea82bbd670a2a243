package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestMemoryCache(t *testing.T, cfg Config) (*MemoryCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(cfg)
	mc.now = clock.Now
	t.Cleanup(func() { mc.Close() })
	return mc, clock
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	mc, _ := newTestMemoryCache(t, DefaultConfig())
	ctx := context.Background()

	_, err := mc.Get(ctx, "bibles")
	assert.True(t, IsCacheMiss(err))

	require.NoError(t, mc.Set(ctx, "bibles", []byte(`[{"id":"web"}]`), time.Minute))
	got, err := mc.Get(ctx, "bibles")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"web"}]`, string(got))

	require.NoError(t, mc.Delete(ctx, "bibles"))
	_, err = mc.Get(ctx, "bibles")
	assert.True(t, IsCacheMiss(err))
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc, clock := newTestMemoryCache(t, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "verse", []byte("x"), time.Minute))
	require.NoError(t, mc.Set(ctx, "default", []byte("y"), 0))
	require.NoError(t, mc.Set(ctx, "forever", []byte("z"), -1))

	clock.Advance(2 * time.Minute)
	_, err := mc.Get(ctx, "verse")
	assert.True(t, IsCacheMiss(err))
	_, err = mc.Get(ctx, "default")
	assert.NoError(t, err, "default ttl is five minutes")

	clock.Advance(10 * time.Minute)
	_, err = mc.Get(ctx, "default")
	assert.True(t, IsCacheMiss(err))
	_, err = mc.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemoryCache_MaxEntriesEvictsSoonestExpiry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxEntries = 2
	mc, _ := newTestMemoryCache(t, cfg)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "short", []byte("1"), time.Minute))
	require.NoError(t, mc.Set(ctx, "long", []byte("2"), time.Hour))
	require.NoError(t, mc.Set(ctx, "new", []byte("3"), time.Hour))

	assert.Equal(t, 2, mc.Len())
	_, err := mc.Get(ctx, "short")
	assert.True(t, IsCacheMiss(err))
	_, err = mc.Get(ctx, "long")
	assert.NoError(t, err)

	// overwriting an existing key never evicts
	require.NoError(t, mc.Set(ctx, "long", []byte("4"), time.Hour))
	assert.Equal(t, 2, mc.Len())
}

func TestMemoryCache_ClearAndCancelledContext(t *testing.T) {
	mc, _ := newTestMemoryCache(t, DefaultConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, mc.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute))
	}
	require.NoError(t, mc.Clear(ctx))
	assert.Zero(t, mc.Len())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := mc.Get(cancelled, "k1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, mc.Set(cancelled, "k1", nil, 0), context.Canceled)
}

func TestMemoryCache_Concurrent(t *testing.T) {
	mc, _ := newTestMemoryCache(t, DefaultConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n%5)
			_ = mc.Set(ctx, key, []byte("v"), time.Minute)
			_, _ = mc.Get(ctx, key)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, mc.Len())
}

func TestNew_Drivers(t *testing.T) {
	c, err := New(Config{Driver: "none"}, nil)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(DefaultConfig(), nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)
	c.Close()

	_, err = New(Config{Driver: "memcached"}, nil)
	assert.Error(t, err)
}

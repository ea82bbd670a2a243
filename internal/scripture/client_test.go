package scripture

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/faithdive/faithdive/internal/web/cache"
)

func TestClient_GetVerseCleansContent(t *testing.T) {
	api := newFakeAPI(t)
	api.addVerse("JHN.3.16", "John 3:16", "<span>For God so loved</span>   the world")
	client := api.start(t)

	verse, err := client.GetVerse(context.Background(), "web-id", "JHN.3.16")
	require.NoError(t, err)
	assert.Equal(t, "John 3:16", verse.Reference)
	assert.Equal(t, "For God so loved the world", verse.Content)
}

func TestClient_ErrorMapping(t *testing.T) {
	api := newFakeAPI(t)
	client := api.start(t)

	_, err := client.GetVerse(context.Background(), "web-id", "JHN.99.1")
	assert.ErrorIs(t, err, ErrNotFound)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	bad := NewClient(ClientConfig{BaseURL: client.baseURL, APIKey: "wrong"}, nil, nil)
	_, err = bad.ListBibles(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)

	none := NewClient(ClientConfig{BaseURL: client.baseURL}, nil, nil)
	_, err = none.ListBibles(context.Background())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.False(t, none.Configured())
}

func TestAPIError_Is(t *testing.T) {
	assert.True(t, errors.Is(&APIError{StatusCode: 429}, ErrRateLimited))
	assert.True(t, errors.Is(&APIError{StatusCode: 403}, ErrUnauthorized))
	assert.False(t, errors.Is(&APIError{StatusCode: 500}, ErrNotFound))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"web-id","name":"World English Bible","language":{"id":"eng","name":"English"}}]}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "k", MaxRetries: 2}, nil, nil)
	bibles, err := client.ListBibles(context.Background())
	require.NoError(t, err)
	require.Len(t, bibles, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "k", MaxRetries: 3}, nil, nil)
	_, err := client.ListBibles(context.Background())
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_CachesCatalogAndVerses(t *testing.T) {
	api := newFakeAPI(t)
	api.addVerse("JHN.3.16", "John 3:16", "For God so loved the world")
	srv := httptest.NewServer(api)
	defer srv.Close()

	mem := cache.NewMemoryCache(cache.DefaultConfig())
	defer mem.Close()
	client := NewClient(ClientConfig{BaseURL: srv.URL + "/v1", APIKey: "test-key", VerseTTL: time.Minute}, mem, zap.NewNop())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := client.ListBibles(ctx)
		require.NoError(t, err)
		_, err = client.GetVerse(ctx, "web-id", "JHN.3.16")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(2), api.hits.Load())

	// search is never cached
	_, err := client.SearchText(ctx, "web-id", "love", 5)
	require.NoError(t, err)
	_, err = client.SearchText(ctx, "web-id", "love", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(4), api.hits.Load())
}

func TestCacheKey_Stable(t *testing.T) {
	a := cacheKey("https://example.test/v1/bibles")
	assert.Equal(t, a, cacheKey("https://example.test/v1/bibles"))
	assert.NotEqual(t, a, cacheKey("https://example.test/v1/bibles/x"))
	assert.Len(t, a, len("scripture:")+32)
}

// Package scripture resolves verse references and searches scripture
// through API.Bible.
package scripture

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/faithdive/faithdive/internal/web/cache"
)

const (
	// DefaultBaseURL is the API.Bible v1 endpoint
	DefaultBaseURL = "https://api.scripture.api.bible/v1"

	defaultTimeout    = 10 * time.Second
	defaultCatalogTTL = time.Hour
	defaultVerseTTL   = 24 * time.Hour
	defaultRetries    = 2
	initialBackoff    = 200 * time.Millisecond
	maxErrorBody      = 2048
)

// Sentinel errors matched through errors.Is on *APIError
var (
	ErrNotFound      = errors.New("scripture: not found")
	ErrUnauthorized  = errors.New("scripture: unauthorized")
	ErrRateLimited   = errors.New("scripture: rate limited")
	ErrMissingAPIKey = errors.New("scripture: api key is not configured")
)

// APIError is a non-2xx response from the scripture API
type APIError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scripture API %s returned %d: %s", e.Path, e.StatusCode, e.Body)
}

// Is maps status codes onto the package sentinels
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// Language of a bible
type Language struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	NameLocal string `json:"nameLocal"`
}

// Bible is a translation offered by the API
type Bible struct {
	ID                string   `json:"id"`
	Abbreviation      string   `json:"abbreviation"`
	AbbreviationLocal string   `json:"abbreviationLocal"`
	Name              string   `json:"name"`
	NameLocal         string   `json:"nameLocal"`
	Description       string   `json:"description"`
	Language          Language `json:"language"`
}

// BibleBook is a book as listed by the API for one bible
type BibleBook struct {
	ID           string `json:"id"`
	BibleID      string `json:"bibleId"`
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
	NameLong     string `json:"nameLong"`
}

// VerseSummary identifies a verse inside a chapter listing
type VerseSummary struct {
	ID        string `json:"id"`
	OrgID     string `json:"orgId"`
	BookID    string `json:"bookId"`
	ChapterID string `json:"chapterId"`
	BibleID   string `json:"bibleId"`
	Reference string `json:"reference"`
}

// Verse is a single verse with its text
type Verse struct {
	ID        string `json:"id"`
	OrgID     string `json:"orgId"`
	BookID    string `json:"bookId"`
	ChapterID string `json:"chapterId"`
	BibleID   string `json:"bibleId"`
	Reference string `json:"reference"`
	Content   string `json:"content"`
}

// SearchVerse is a verse hit returned by text search
type SearchVerse struct {
	ID        string `json:"id"`
	OrgID     string `json:"orgId"`
	BookID    string `json:"bookId"`
	ChapterID string `json:"chapterId"`
	BibleID   string `json:"bibleId"`
	Reference string `json:"reference"`
	Text      string `json:"text"`
}

// SearchResponse is the payload of a text search
type SearchResponse struct {
	Query      string        `json:"query"`
	Limit      int           `json:"limit"`
	Offset     int           `json:"offset"`
	Total      int           `json:"total"`
	VerseCount int           `json:"verseCount"`
	Verses     []SearchVerse `json:"verses"`
}

// ClientConfig configures the API client
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	CatalogTTL time.Duration
	VerseTTL   time.Duration
	MaxRetries int
}

// Client talks to API.Bible. Catalog and verse responses are cached when a
// cache is supplied.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      cache.Cache
	catalogTTL time.Duration
	verseTTL   time.Duration
	maxRetries int
	logger     *zap.Logger
}

// NewClient creates an API client. c may be nil to disable caching.
func NewClient(cfg ClientConfig, c cache.Cache, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CatalogTTL <= 0 {
		cfg.CatalogTTL = defaultCatalogTTL
	}
	if cfg.VerseTTL <= 0 {
		cfg.VerseTTL = defaultVerseTTL
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      c,
		catalogTTL: cfg.CatalogTTL,
		verseTTL:   cfg.VerseTTL,
		maxRetries: cfg.MaxRetries,
		logger:     logger.Named("scripture"),
	}
}

// Configured reports whether an API key is set
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// ListBibles returns every bible available to the API key
func (c *Client) ListBibles(ctx context.Context) ([]Bible, error) {
	return getData[[]Bible](c, ctx, "/bibles", nil, c.catalogTTL)
}

// GetBible returns one bible
func (c *Client) GetBible(ctx context.Context, bibleID string) (*Bible, error) {
	return getData[*Bible](c, ctx, "/bibles/"+url.PathEscape(bibleID), nil, c.catalogTTL)
}

// ListBooks returns the books of a bible
func (c *Client) ListBooks(ctx context.Context, bibleID string) ([]BibleBook, error) {
	return getData[[]BibleBook](c, ctx, "/bibles/"+url.PathEscape(bibleID)+"/books", nil, c.catalogTTL)
}

// ListChapterVerses returns the verse ids of a chapter such as "JHN.3"
func (c *Client) ListChapterVerses(ctx context.Context, bibleID, chapterID string) ([]VerseSummary, error) {
	path := "/bibles/" + url.PathEscape(bibleID) + "/chapters/" + url.PathEscape(chapterID) + "/verses"
	return getData[[]VerseSummary](c, ctx, path, nil, c.catalogTTL)
}

// GetVerse returns a verse as plain text
func (c *Client) GetVerse(ctx context.Context, bibleID, verseID string) (*Verse, error) {
	query := url.Values{
		"content-type":          {"text"},
		"include-titles":        {"false"},
		"include-verse-numbers": {"false"},
		"include-notes":         {"false"},
	}
	verse, err := getData[*Verse](c, ctx, "/bibles/"+url.PathEscape(bibleID)+"/verses/"+url.PathEscape(verseID), query, c.verseTTL)
	if err != nil {
		return nil, err
	}
	if verse == nil {
		return nil, &APIError{Path: "/verses/" + verseID, StatusCode: http.StatusNotFound, Body: "empty verse"}
	}
	verse.Content = CleanVerseText(verse.Content)
	return verse, nil
}

// SearchText runs a relevance-sorted text search. Results are not cached.
func (c *Client) SearchText(ctx context.Context, bibleID, text string, limit int) (*SearchResponse, error) {
	query := url.Values{
		"query": {text},
		"limit": {strconv.Itoa(limit)},
		"sort":  {"relevance"},
	}
	resp, err := getData[*SearchResponse](c, ctx, "/bibles/"+url.PathEscape(bibleID)+"/search", query, 0)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return &SearchResponse{}, nil
	}
	for i := range resp.Verses {
		resp.Verses[i].Text = CleanVerseText(resp.Verses[i].Text)
	}
	return resp, nil
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// getData fetches path and decodes the "data" member of the response
func getData[T any](c *Client, ctx context.Context, path string, query url.Values, ttl time.Duration) (T, error) {
	var zero T
	raw, err := c.get(ctx, path, query, ttl)
	if err != nil {
		return zero, err
	}
	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, fmt.Errorf("decode %s response: %w", path, err)
	}
	return env.Data, nil
}

// get returns the response body of a GET, consulting the cache when ttl > 0
func (c *Client) get(ctx context.Context, path string, query url.Values, ttl time.Duration) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	key := cacheKey(target)
	if ttl > 0 && c.cache != nil {
		data, err := c.cache.Get(ctx, key)
		if err == nil {
			return data, nil
		}
		if !cache.IsCacheMiss(err) {
			c.logger.Warn("cache read failed", zap.String("path", path), zap.Error(err))
		}
	}

	body, err := c.do(ctx, path, target)
	if err != nil {
		return nil, err
	}

	if ttl > 0 && c.cache != nil {
		if err := c.cache.Set(ctx, key, body, ttl); err != nil {
			c.logger.Warn("cache write failed", zap.String("path", path), zap.Error(err))
		}
	}
	return body, nil
}

// do performs the request, retrying transport errors and 5xx responses
// with exponential backoff
func (c *Client) do(ctx context.Context, path, target string) ([]byte, error) {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("api-key", c.apiKey)
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("scripture API %s (attempt %d): %w", path, attempt+1, err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read %s response (attempt %d): %w", path, attempt+1, err)
			continue
		}

		c.logger.Debug("scripture API request",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", time.Since(start)),
		)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			if len(body) > maxErrorBody {
				body = body[:maxErrorBody]
			}
			lastErr = &APIError{Path: path, StatusCode: resp.StatusCode, Body: string(body)}
			if resp.StatusCode >= 500 {
				continue
			}
			return nil, lastErr
		}

		return body, nil
	}

	return nil, lastErr
}

// cacheKey digests the request URL so keys stay short for any query
func cacheKey(target string) string {
	sum := blake3.Sum256([]byte(target))
	return "scripture:" + hex.EncodeToString(sum[:16])
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/faithdive/faithdive/internal/scripture"
	"github.com/faithdive/faithdive/internal/store"
	"github.com/faithdive/faithdive/internal/store/migrate"
	"github.com/faithdive/faithdive/internal/study"
	"github.com/faithdive/faithdive/internal/web/auth"
	"github.com/faithdive/faithdive/internal/web/middleware"
	"github.com/faithdive/faithdive/internal/web/websocket"
)

const (
	testAPIKey   = "test-key"
	testPassword = "correct horse battery"
	testBibleID  = "web-id"
)

// fakeBible serves the subset of API.Bible the handlers use
type fakeBible struct {
	mu     sync.Mutex
	verses map[string]scripture.Verse
	search map[string][]scripture.SearchVerse
	fail   bool
}

func newFakeBible() *fakeBible {
	return &fakeBible{
		verses: map[string]scripture.Verse{
			"JHN.3.16": {ID: "JHN.3.16", Reference: "John 3:16", Content: "<p>For God so loved the world</p>"},
			"PSA.23.1": {ID: "PSA.23.1", Reference: "Psalms 23:1", Content: "The LORD is my shepherd"},
		},
		search: map[string][]scripture.SearchVerse{
			"shepherd": {{ID: "PSA.23.1", BookID: "PSA", Reference: "Psalms 23:1", Text: "The LORD is my shepherd"}},
		},
	}
}

func (f *fakeBible) setFail(fail bool) {
	f.mu.Lock()
	f.fail = fail
	f.mu.Unlock()
}

func (f *fakeBible) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()

	if r.Header.Get("api-key") != testAPIKey {
		http.Error(w, `{"message":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if fail {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
		return
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1"), "/"), "/")
	write := func(data any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}

	switch {
	case len(parts) == 1 && parts[0] == "bibles":
		write([]scripture.Bible{
			{ID: "rvr-id", Name: "Reina Valera 1909", Abbreviation: "RVR09", Language: scripture.Language{ID: "spa", Name: "Spanish"}},
			{ID: "kjv-id", Name: "King James (Authorised) Version", Abbreviation: "engKJV", Language: scripture.Language{ID: "eng", Name: "English"}},
			{ID: testBibleID, Name: "World English Bible", Abbreviation: "WEB", Language: scripture.Language{ID: "eng", Name: "English"}},
		})
	case len(parts) == 2 && parts[0] == "bibles":
		if parts[1] != testBibleID {
			http.NotFound(w, r)
			return
		}
		write(scripture.Bible{ID: testBibleID, Name: "World English Bible"})
	case len(parts) == 3 && parts[2] == "books":
		write([]scripture.BibleBook{{ID: "GEN", Name: "Genesis"}, {ID: "JHN", Name: "John"}})
	case len(parts) == 4 && parts[2] == "verses":
		v, ok := f.verses[parts[3]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		write(v)
	case len(parts) == 3 && parts[2] == "search":
		hits := f.search[strings.ToLower(r.URL.Query().Get("query"))]
		write(scripture.SearchResponse{Query: r.URL.Query().Get("query"), Total: len(hits), Verses: hits})
	default:
		http.NotFound(w, r)
	}
}

// recordingFeed captures live events
type recordingFeed struct {
	mu        sync.Mutex
	created   []*store.StudyResponse
	reactions []*store.ReactionResult
	hidden    []*store.StudyResponse
}

func (f *recordingFeed) ResponseCreated(r *store.StudyResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, r)
}

func (f *recordingFeed) ReactionChanged(_ int64, r *store.ReactionResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, r)
}

func (f *recordingFeed) ResponseHidden(r *store.StudyResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hidden = append(f.hidden, r)
}

type testEnv struct {
	api     *API
	handler http.Handler
	bible   *fakeBible
	feed    *recordingFeed
	studies *store.StudyRepository
}

type envOption func(*Deps)

func withLive(hub *websocket.Hub) envOption {
	return func(d *Deps) {
		d.Live = hub
		d.Upgrader = websocket.NewUpgrader(hub, d.Origins.Allowed)
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open(ctx, store.Config{Driver: "sqlite", URL: "file::memory:?_pragma=foreign_keys(1)"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = migrate.Up(ctx, db, nil)
	require.NoError(t, err)

	bible := newFakeBible()
	upstream := httptest.NewServer(bible)
	t.Cleanup(upstream.Close)

	logger := zaptest.NewLogger(t)
	client := scripture.NewClient(scripture.ClientConfig{BaseURL: upstream.URL + "/v1", APIKey: testAPIKey, MaxRetries: -1}, nil, logger)
	catalog := scripture.NewCatalog(client, "")

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)

	studies := store.NewStudyRepository(db)
	feed := &recordingFeed{}
	deps := Deps{
		AppName:   "Faith Dive",
		Version:   "1.0.0",
		DB:        db,
		Journal:   store.NewJournalRepository(db),
		Favorites: store.NewFavoriteRepository(db),
		Studies:   studies,
		Responses: store.NewResponseRepository(db),
		StudySvc:  study.NewService(studies, nil, logger),
		Scripture: client,
		Catalog:   catalog,
		Searcher:  scripture.NewSearcher(client, catalog, 2, logger),
		Admin:     auth.NewAdmin("test-secret", hash, time.Hour),
		Origins:   middleware.NewOrigins([]string{"http://localhost:3000"}),
		Live:      feed,
		Logger:    logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	a := New(deps)
	return &testEnv{api: a, handler: a.Handler(), bible: bible, feed: feed, studies: studies}
}

// do sends a JSON request and returns the recorder
func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/admin/login", map[string]string{"password": testPassword}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[auth.Token](t, w).Token
}

func (e *testEnv) publishedStudy(t *testing.T, title string) *store.WeeklyStudy {
	t.Helper()
	st, err := e.studies.Create(context.Background(), store.WeeklyStudyInput{
		Title:           title,
		Description:     "Walking through the valley",
		VerseReferences: []string{"Psalm 23:4"},
		BibleVersion:    "WEB",
		BibleID:         testBibleID,
		StudyQuestions:  []string{"Where do you need comfort?"},
		ScheduledDate:   time.Now().Add(-time.Hour),
		Published:       true,
	})
	require.NoError(t, err)
	return st
}

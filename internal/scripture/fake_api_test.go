package scripture

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap/zaptest"
)

// fakeAPI is an in-process stand-in for API.Bible
type fakeAPI struct {
	t        *testing.T
	bibles   []Bible
	verses   map[string]Verse          // verse id -> verse
	chapters map[string][]VerseSummary // chapter id -> verse ids
	search   map[string][]SearchVerse  // lowercased query -> hits
	failAll  bool

	mu       sync.Mutex
	requests []string
	hits     atomic.Int64
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{
		t: t,
		bibles: []Bible{
			{ID: "kjv-id", Name: "King James (Authorised) Version", Abbreviation: "engKJV", Language: Language{ID: "eng", Name: "English"}},
			{ID: "web-id", Name: "World English Bible", Abbreviation: "WEB", Language: Language{ID: "eng", Name: "English"}},
			{ID: "fbv-id", Name: "Free Bible Version", Abbreviation: "FBV", Language: Language{ID: "eng", Name: "English"}},
			{ID: "rvr-id", Name: "Reina Valera 1909", Abbreviation: "RVR09", Language: Language{ID: "spa", Name: "Spanish"}},
			{ID: "arb-id", Name: "Arabic Bible", Abbreviation: "ARB", Language: Language{ID: "arb", Name: "Arabic"}},
			{ID: "asv-id", Name: "American Standard Version", Abbreviation: "ASV", Language: Language{ID: "eng", Name: "English"}},
		},
		verses:   map[string]Verse{},
		chapters: map[string][]VerseSummary{},
		search:   map[string][]SearchVerse{},
	}
}

func (f *fakeAPI) addVerse(id, reference, content string) {
	f.verses[id] = Verse{ID: id, Reference: reference, Content: content}
}

func (f *fakeAPI) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.hits.Add(1)
	f.mu.Lock()
	f.requests = append(f.requests, r.URL.Path)
	f.mu.Unlock()

	if r.Header.Get("api-key") != "test-key" {
		http.Error(w, `{"message":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if f.failAll {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// parts[0] is "v1"
	parts = parts[1:]

	switch {
	case len(parts) == 1 && parts[0] == "bibles":
		f.write(w, f.bibles)
	case len(parts) == 2 && parts[0] == "bibles":
		for _, b := range f.bibles {
			if b.ID == parts[1] {
				f.write(w, b)
				return
			}
		}
		http.NotFound(w, r)
	case len(parts) == 3 && parts[2] == "books":
		f.write(w, []BibleBook{{ID: "GEN", Name: "Genesis"}, {ID: "JHN", Name: "John"}})
	case len(parts) == 5 && parts[2] == "chapters" && parts[4] == "verses":
		summaries, ok := f.chapters[parts[3]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		f.write(w, summaries)
	case len(parts) == 4 && parts[2] == "verses":
		v, ok := f.verses[parts[3]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		f.write(w, v)
	case len(parts) == 3 && parts[2] == "search":
		hits := f.search[strings.ToLower(r.URL.Query().Get("query"))]
		f.write(w, SearchResponse{Query: r.URL.Query().Get("query"), Total: len(hits), Verses: hits})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) write(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"data": data}); err != nil {
		f.t.Errorf("encode response: %v", err)
	}
}

// start serves the fake and returns a client pointed at it
func (f *fakeAPI) start(t *testing.T) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{BaseURL: srv.URL + "/v1", APIKey: "test-key", MaxRetries: -1}, nil, zaptest.NewLogger(t))
}

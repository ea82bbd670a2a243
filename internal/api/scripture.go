package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/faithdive/faithdive/internal/scripture"
	"github.com/faithdive/faithdive/internal/store"
	"github.com/faithdive/faithdive/internal/web/request"
)

func (a *API) listBibles(w http.ResponseWriter, r *http.Request) {
	bibles, err := a.Catalog.SupportedBibles(r.Context())
	if err != nil {
		a.writeError(w, r, upstream(err), "No bibles found")
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(bibles))
}

func (a *API) listEnglishBibles(w http.ResponseWriter, r *http.Request) {
	bibles, err := a.Catalog.EnglishBibles(r.Context())
	if err != nil {
		a.writeError(w, r, upstream(err), "No bibles found")
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(bibles))
}

func (a *API) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := a.Scripture.ListBooks(r.Context(), chi.URLParam(r, "bibleID"))
	if err != nil {
		a.writeError(w, r, upstream(err), "Bible not found")
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(books))
}

type searchBody struct {
	Query   *string `json:"query"`
	BibleID string  `json:"bible_id"`
	Limit   *int    `json:"limit"`
}

func (a *API) search(w http.ResponseWriter, r *http.Request) {
	var body searchBody
	if err := request.DecodeJSON(w, r, &body); err != nil {
		a.writeError(w, r, err, "")
		return
	}
	if body.Query == nil {
		ve := &store.ValidationError{}
		ve.Add("query", "is required")
		a.writeError(w, r, ve, "")
		return
	}

	req := scripture.SearchRequest{Query: *body.Query, BibleID: body.BibleID}
	if body.Limit != nil {
		req.Limit = *body.Limit
	}

	results, err := a.Searcher.Search(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (a *API) getVerse(w http.ResponseWriter, r *http.Request) {
	bibleID := strings.TrimSpace(r.URL.Query().Get("bible_id"))
	if bibleID == "" {
		ve := &store.ValidationError{}
		ve.Add("bible_id", "is required")
		a.writeError(w, r, ve, "")
		return
	}

	verse, err := a.Scripture.GetVerse(r.Context(), bibleID, chi.URLParam(r, "verseID"))
	if err != nil {
		a.writeError(w, r, upstream(err), "Verse not found")
		return
	}
	writeJSON(w, http.StatusOK, scripture.VerseContent{
		ID:        verse.ID,
		Reference: verse.Reference,
		Content:   verse.Content,
	})
}

// nonNilSlice keeps empty lists encoding as [] rather than null
func nonNilSlice[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

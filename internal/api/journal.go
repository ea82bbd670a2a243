package api

import (
	"net/http"
	"strings"

	"github.com/faithdive/faithdive/internal/store"
	"github.com/faithdive/faithdive/internal/web/request"
	"github.com/faithdive/faithdive/internal/web/response"
)

const journalNotFound = "Journal entry not found"

func (a *API) createJournalEntry(w http.ResponseWriter, r *http.Request) {
	var in store.JournalEntryInput
	if err := request.DecodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err, "")
		return
	}
	entry, err := a.Journal.Create(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *API) listJournalEntries(w http.ResponseWriter, r *http.Request) {
	page, err := request.ParsePage(r)
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	q := r.URL.Query()
	entries, err := a.Journal.List(r.Context(), store.JournalFilter{
		Page:  page,
		Tag:   strings.TrimSpace(q.Get("tag")),
		Query: strings.TrimSpace(q.Get("q")),
	})
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(entries))
}

func (a *API) getJournalEntry(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	entry, err := a.Journal.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err, journalNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *API) updateJournalEntry(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	var upd store.JournalEntryUpdate
	if err := request.DecodeJSON(w, r, &upd); err != nil {
		a.writeError(w, r, err, "")
		return
	}
	entry, err := a.Journal.Update(r.Context(), id, upd)
	if err != nil {
		a.writeError(w, r, err, journalNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *API) deleteJournalEntry(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	if err := a.Journal.Delete(r.Context(), id); err != nil {
		a.writeError(w, r, err, journalNotFound)
		return
	}
	response.Message(w, "Journal entry deleted successfully")
}

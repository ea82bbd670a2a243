package api

import (
	"net/http"

	"github.com/faithdive/faithdive/internal/store"
	"github.com/faithdive/faithdive/internal/web/request"
	"github.com/faithdive/faithdive/internal/web/response"
)

func (a *API) createFavorite(w http.ResponseWriter, r *http.Request) {
	var in store.FavoriteVerseInput
	if err := request.DecodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err, "")
		return
	}
	fav, err := a.Favorites.Create(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, fav)
}

func (a *API) listFavorites(w http.ResponseWriter, r *http.Request) {
	page, err := request.ParsePage(r)
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	favs, err := a.Favorites.List(r.Context(), page)
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(favs))
}

func (a *API) deleteFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	if err := a.Favorites.Delete(r.Context(), id); err != nil {
		a.writeError(w, r, err, "Favorite verse not found")
		return
	}
	response.Message(w, "Favorite verse removed successfully")
}

package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/faithdive/faithdive/internal/store"
	"github.com/faithdive/faithdive/internal/web/middleware"
	"github.com/faithdive/faithdive/internal/web/request"
	"github.com/faithdive/faithdive/internal/web/websocket"
)

const (
	studyNotFound    = "Study not found"
	responseNotFound = "Response not found"
)

func (a *API) listStudies(w http.ResponseWriter, r *http.Request) {
	page, err := request.ParsePage(r)
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	studies, err := a.Studies.ListPublished(r.Context(), page)
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(studies))
}

func (a *API) currentStudy(w http.ResponseWriter, r *http.Request) {
	study, err := a.Studies.Current(r.Context())
	if err != nil {
		a.writeError(w, r, err, "No study has been published yet")
		return
	}
	writeJSON(w, http.StatusOK, study)
}

func (a *API) getStudy(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	study, err := a.Studies.GetPublished(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err, studyNotFound)
		return
	}
	writeJSON(w, http.StatusOK, study)
}

func (a *API) listResponses(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	page, err := request.ParsePage(r)
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	if _, err := a.Studies.GetPublished(r.Context(), id); err != nil {
		a.writeError(w, r, err, studyNotFound)
		return
	}
	responses, err := a.Responses.ListVisible(r.Context(), id, page)
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(responses))
}

func (a *API) createResponse(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	var in store.StudyResponseInput
	if err := request.DecodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err, "")
		return
	}
	resp, err := a.Responses.Create(r.Context(), id, in)
	if err != nil {
		a.writeError(w, r, err, studyNotFound)
		return
	}
	if a.Live != nil {
		a.Live.ResponseCreated(resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) toggleReaction(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	var in store.ReactionInput
	if err := request.DecodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err, "")
		return
	}
	result, err := a.Responses.ToggleReaction(r.Context(), id, in)
	if err != nil {
		a.writeError(w, r, err, responseNotFound)
		return
	}

	if a.Live != nil {
		if resp, err := a.Responses.Get(r.Context(), id); err == nil {
			a.Live.ReactionChanged(resp.StudyID, result)
		} else {
			a.logger.Warn("reaction not announced", middleware.RequestIDField(r.Context()), zap.Int64("response_id", id), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, result)
}

type flagResponse struct {
	Message    string `json:"message"`
	ResponseID int64  `json:"response_id"`
}

func (a *API) flagResponse(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	resp, err := a.Responses.Flag(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err, responseNotFound)
		return
	}
	a.logger.Info("response flagged", middleware.RequestIDField(r.Context()), zap.Int64("response_id", resp.ID), zap.Int64("study_id", resp.StudyID))
	writeJSON(w, http.StatusOK, flagResponse{Message: "Response flagged for review", ResponseID: resp.ID})
}

// Guidelines are the community rules shown next to the response form
type Guidelines struct {
	Title             string   `json:"title"`
	Guidelines        []string `json:"guidelines"`
	ReactionTypes     []string `json:"reaction_types"`
	MaxResponseLength int      `json:"max_response_length"`
}

var communityGuidelines = Guidelines{
	Title: "Community Guidelines",
	Guidelines: []string{
		"Be kind and respectful. Speak the truth in love.",
		"Stay on topic and respond to this week's passage and questions.",
		"Share your own reflections rather than debating others.",
		"Keep personal details private, both yours and other people's.",
		"No advertising, spam or links to unrelated content.",
		"Flag responses that break these guidelines so a moderator can review them.",
	},
	ReactionTypes:     store.ReactionTypes,
	MaxResponseLength: 5000,
}

func (a *API) guidelines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, communityGuidelines)
}

// liveStudy streams activity for one published study
func (a *API) liveStudy(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	if a.Upgrader == nil {
		writeErrorCode(w, http.StatusServiceUnavailable, "live_disabled", "Live updates are not available")
		return
	}
	if _, err := a.Studies.GetPublished(r.Context(), id); err != nil {
		a.writeError(w, r, err, studyNotFound)
		return
	}
	a.Upgrader.Subscribe(w, r, websocket.StudyRoom(id))
}

// liveStudies streams study publications
func (a *API) liveStudies(w http.ResponseWriter, r *http.Request) {
	if a.Upgrader == nil {
		writeErrorCode(w, http.StatusServiceUnavailable, "live_disabled", "Live updates are not available")
		return
	}
	a.Upgrader.Subscribe(w, r, websocket.AllStudies)
}


package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/faithdive/faithdive/internal/study"
	"github.com/faithdive/faithdive/internal/web/jobs"
	"github.com/faithdive/faithdive/internal/web/middleware"
	"github.com/faithdive/faithdive/internal/web/request"
	"github.com/faithdive/faithdive/internal/web/response"
)

type loginRequest struct {
	Password string `json:"password"`
}

func (a *API) adminLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := request.DecodeJSON(w, r, &body); err != nil {
		a.writeError(w, r, err, "")
		return
	}
	token, err := a.Admin.Login(body.Password)
	if err != nil {
		a.logger.Warn("admin login failed", middleware.RequestIDField(r.Context()), zap.String("remote_addr", middleware.ClientIP(r)), zap.Error(err))
		a.writeError(w, r, err, "")
		return
	}
	a.logger.Info("admin logged in", middleware.RequestIDField(r.Context()), zap.String("remote_addr", middleware.ClientIP(r)))
	writeJSON(w, http.StatusOK, token)
}

func (a *API) adminUpcoming(w http.ResponseWriter, r *http.Request) {
	limit, err := request.QueryInt(r, "limit", 5)
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	studies, err := a.StudySvc.Upcoming(r.Context(), limit)
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(studies))
}

func (a *API) adminGetStudy(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	st, err := a.Studies.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err, studyNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) adminCreateStudy(w http.ResponseWriter, r *http.Request) {
	var draft study.Draft
	if err := request.DecodeJSON(w, r, &draft); err != nil {
		a.writeError(w, r, err, "")
		return
	}
	st, err := a.StudySvc.Create(r.Context(), draft)
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) adminUpdateStudy(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	var upd study.DraftUpdate
	if err := request.DecodeJSON(w, r, &upd); err != nil {
		a.writeError(w, r, err, "")
		return
	}
	st, err := a.StudySvc.Update(r.Context(), id, upd)
	if err != nil {
		a.writeError(w, r, err, studyNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) adminDeleteStudy(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	if err := a.Studies.Delete(r.Context(), id); err != nil {
		a.writeError(w, r, err, studyNotFound)
		return
	}
	a.logger.Info("study deleted", middleware.RequestIDField(r.Context()), zap.Int64("study_id", id))
	response.Message(w, "Study deleted successfully")
}

func (a *API) adminPublishStudy(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	st, err := a.StudySvc.Publish(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err, studyNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type publishDueResponse struct {
	Message   string `json:"message"`
	Published int    `json:"published"`
}

func (a *API) adminPublishDue(w http.ResponseWriter, r *http.Request) {
	n, err := a.StudySvc.PublishDue(r.Context(), a.now())
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, publishDueResponse{Message: "Published due studies", Published: n})
}

func (a *API) adminHideResponse(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		a.writeError(w, r, err, "")
		return
	}
	resp, err := a.Responses.Hide(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err, responseNotFound)
		return
	}
	if a.Live != nil {
		a.Live.ResponseHidden(resp)
	}
	a.logger.Info("response hidden", middleware.RequestIDField(r.Context()), zap.Int64("response_id", id))
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) adminJobs(w http.ResponseWriter, r *http.Request) {
	if a.Scheduler == nil {
		writeJSON(w, http.StatusOK, []jobs.ScheduleStatus{})
		return
	}
	writeJSON(w, http.StatusOK, a.Scheduler.ListSchedules())
}

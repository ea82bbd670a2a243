// Package api wires the Faith Dive HTTP endpoints: scripture search, the
// personal journal and favorites, and the community weekly studies.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/faithdive/faithdive/internal/scripture"
	"github.com/faithdive/faithdive/internal/store"
	"github.com/faithdive/faithdive/internal/study"
	"github.com/faithdive/faithdive/internal/web/auth"
	"github.com/faithdive/faithdive/internal/web/jobs"
	"github.com/faithdive/faithdive/internal/web/middleware"
	"github.com/faithdive/faithdive/internal/web/profiling"
	"github.com/faithdive/faithdive/internal/web/ratelimit"
	"github.com/faithdive/faithdive/internal/web/static"
	"github.com/faithdive/faithdive/internal/web/websocket"
)

// LiveFeed receives community activity for live subscribers
type LiveFeed interface {
	ResponseCreated(resp *store.StudyResponse)
	ReactionChanged(studyID int64, result *store.ReactionResult)
	ResponseHidden(resp *store.StudyResponse)
}

// Deps are the collaborators of the API. Limiter, Live, Upgrader, Frontend
// and Scheduler are optional.
type Deps struct {
	AppName   string
	Version   string
	APIPrefix string
	Debug     bool

	DB        *store.DB
	Journal   *store.JournalRepository
	Favorites *store.FavoriteRepository
	Studies   *store.StudyRepository
	Responses *store.ResponseRepository
	StudySvc  *study.Service

	Scripture *scripture.Client
	Catalog   *scripture.Catalog
	Searcher  *scripture.Searcher

	Admin     *auth.Admin
	Origins   *middleware.Origins
	Limiter   ratelimit.RateLimiter
	Live      LiveFeed
	Upgrader  *websocket.Upgrader
	Frontend  *static.Frontend
	Scheduler *jobs.CronScheduler

	Logger *zap.Logger
}

// API serves the HTTP endpoints
type API struct {
	Deps
	logger *zap.Logger
	now    func() time.Time
}

// New creates the API
func New(deps Deps) *API {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.APIPrefix == "" {
		deps.APIPrefix = "/api/v1"
	}
	if deps.Admin == nil {
		deps.Admin = auth.NewAdmin("", "", 0)
	}
	if deps.Origins == nil {
		deps.Origins = middleware.NewOrigins(nil)
	}
	return &API{Deps: deps, logger: logger.Named("api"), now: time.Now}
}

// Handler builds the router
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(a.logger),
		middleware.Logging(a.logger, "/health"),
		middleware.CORS(a.Origins),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeNotFound(w, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorCode(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	r.Get("/health", a.health)

	r.Route(a.APIPrefix, func(r chi.Router) {
		if a.Limiter != nil {
			r.Use(middleware.RateLimit(a.Limiter, middleware.ClientIP, a.logger))
		}
		community := a.communityLimit()

		r.Get("/bibles", a.listBibles)
		r.Get("/bibles/english", a.listEnglishBibles)
		r.Get("/bibles/{bibleID}/books", a.listBooks)
		r.Post("/search", a.search)
		r.Get("/verses/{verseID}", a.getVerse)

		r.Route("/journal", func(r chi.Router) {
			r.Post("/", a.createJournalEntry)
			r.Get("/", a.listJournalEntries)
			r.Get("/{id}", a.getJournalEntry)
			r.Put("/{id}", a.updateJournalEntry)
			r.Delete("/{id}", a.deleteJournalEntry)
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Post("/", a.createFavorite)
			r.Get("/", a.listFavorites)
			r.Delete("/{id}", a.deleteFavorite)
		})

		r.Route("/studies", func(r chi.Router) {
			r.Get("/", a.listStudies)
			r.Get("/current", a.currentStudy)
			r.Get("/{id}", a.getStudy)
			r.Get("/{id}/responses", a.listResponses)
			r.With(community).Post("/{id}/responses", a.createResponse)
			r.Get("/{id}/live", a.liveStudy)
		})
		r.Get("/live", a.liveStudies)

		r.With(community).Post("/responses/{id}/reactions", a.toggleReaction)
		r.With(community).Post("/responses/{id}/flag", a.flagResponse)
		r.Get("/community/guidelines", a.guidelines)

		r.Route("/admin", func(r chi.Router) {
			r.With(community).Post("/login", a.adminLogin)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(a.Admin, a.logger))

				r.Get("/studies", a.adminUpcoming)
				r.Post("/studies", a.adminCreateStudy)
				r.Post("/studies/publish-due", a.adminPublishDue)
				r.Get("/studies/{id}", a.adminGetStudy)
				r.Put("/studies/{id}", a.adminUpdateStudy)
				r.Delete("/studies/{id}", a.adminDeleteStudy)
				r.Post("/studies/{id}/publish", a.adminPublishStudy)
				r.Post("/responses/{id}/hide", a.adminHideResponse)
				r.Get("/jobs", a.adminJobs)

				if a.Debug {
					profiling.Mount(r)
				}
			})
		})
	})

	if a.Frontend != nil && a.Frontend.Available() {
		a.Frontend.Mount(r)
	}

	return r
}

// communityLimit applies a separate budget to community writes
func (a *API) communityLimit() func(http.Handler) http.Handler {
	if a.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(a.Limiter, middleware.CommunityKey, a.logger)
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	App     string `json:"app,omitempty"`
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	if a.DB != nil {
		if err := a.DB.PingContext(r.Context()); err != nil {
			a.logger.Error("health check failed", middleware.RequestIDField(r.Context()), zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Version: a.Version, App: a.AppName})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Version: a.Version, App: a.AppName})
}

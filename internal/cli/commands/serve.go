package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/faithdive/faithdive/internal/api"
	"github.com/faithdive/faithdive/internal/cli/config"
	"github.com/faithdive/faithdive/internal/scripture"
	"github.com/faithdive/faithdive/internal/store"
	"github.com/faithdive/faithdive/internal/study"
	"github.com/faithdive/faithdive/internal/web/auth"
	"github.com/faithdive/faithdive/internal/web/cache"
	"github.com/faithdive/faithdive/internal/web/jobs"
	"github.com/faithdive/faithdive/internal/web/middleware"
	"github.com/faithdive/faithdive/internal/web/ratelimit"
	"github.com/faithdive/faithdive/internal/web/server"
	"github.com/faithdive/faithdive/internal/web/static"
	"github.com/faithdive/faithdive/internal/web/websocket"
)

// publishJob is the scheduler job that publishes studies whose date has come
const publishJob = "publish-due-studies"

// NewServeCommand creates the serve command
func NewServeCommand(opts *globalOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Start the Faith Dive API, the live study feed and the PWA frontend.

The study scheduler publishes due studies in the background while the server
runs. Send SIGINT or SIGTERM for a graceful shutdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				loader.Config().Server.Port = port
			}

			logger, err := newLogger(loader.Config().Log)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApplication(ctx, loader, logger)
			if err != nil {
				return err
			}
			return app.run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8000, "port to listen on (overrides server.port)")

	return cmd
}

// application is the fully wired server and its background workers
type application struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *store.DB
	cache     cache.Cache
	hub       *websocket.Hub
	scheduler *jobs.CronScheduler
	api       *api.API
	server    *server.Server
	closers   []func() error
}

func newApplication(ctx context.Context, loader *config.Loader, logger *zap.Logger) (_ *application, err error) {
	cfg := loader.Config()
	app := &application{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.close()
		}
	}()

	if file := loader.ConfigFile(); file != "" {
		logger.Info("configuration loaded", zap.String("file", file))
	} else {
		logger.Info("no config file found, using defaults and environment")
	}

	app.db, err = openDatabase(ctx, cfg.Database, logger, cfg.Database.AutoMigrate)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, app.db.Close)

	app.cache, err = cache.New(cache.Config{
		Driver:        cfg.Cache.Driver,
		Prefix:        cfg.Cache.Prefix,
		DefaultTTL:    cfg.Scripture.CatalogTTL,
		MaxEntries:    cache.DefaultConfig().MaxEntries,
		RedisAddr:     cfg.Cache.RedisAddr,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
	}, logger)
	if err != nil {
		return nil, err
	}
	if app.cache != nil {
		app.closers = append(app.closers, app.cache.Close)
	}

	client := scripture.NewClient(scripture.ClientConfig{
		BaseURL:    cfg.Scripture.BaseURL,
		APIKey:     cfg.Scripture.APIKey,
		Timeout:    cfg.Scripture.Timeout,
		CatalogTTL: cfg.Scripture.CatalogTTL,
		VerseTTL:   cfg.Scripture.VerseTTL,
		MaxRetries: 2,
	}, app.cache, logger)
	if !client.Configured() {
		logger.Warn("scripture api key not set, bible endpoints will be unavailable")
	}
	catalog := scripture.NewCatalog(client, cfg.Scripture.DefaultBibleID)
	searcher := scripture.NewSearcher(client, catalog, cfg.Scripture.MaxConcurrency, logger)

	admin := auth.NewAdmin(cfg.Auth.JWTSecret, cfg.Auth.AdminPasswordHash, cfg.Auth.TokenTTL)
	if !admin.Enabled() {
		logger.Warn("admin login disabled, set auth.jwt_secret and auth.admin_password_hash to enable it")
	}

	origins := middleware.NewOrigins(cfg.CORS.AllowedOrigins)
	loader.Watch(logger, func(next *config.Config) {
		origins.Set(next.CORS.AllowedOrigins)
		logger.Info("cors origins updated", zap.Strings("origins", origins.List()))
	})

	var limiter ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter, err = app.newLimiter()
		if err != nil {
			return nil, err
		}
	}

	app.hub = websocket.NewHub(logger)
	upgrader := websocket.NewUpgrader(app.hub, origins.Allowed)

	studies := store.NewStudyRepository(app.db)
	studySvc := study.NewService(studies, app.hub, logger)

	app.scheduler = jobs.NewCronScheduler(logger)
	if cfg.Scheduler.Enabled {
		job := jobs.ScheduleEvery(publishJob, cfg.Scheduler.Interval, studySvc.RunDue)
		job.RunOnStart = true
		if err = app.scheduler.AddSchedule(job); err != nil {
			return nil, err
		}
	} else {
		logger.Info("study scheduler disabled")
	}

	frontend := static.NewFrontend(cfg.Frontend.Dir, logger)
	if !frontend.Available() {
		logger.Info("frontend build not found, serving API only", zap.String("dir", cfg.Frontend.Dir))
	}

	app.api = api.New(api.Deps{
		AppName:   cfg.App.Name,
		Version:   cfg.App.Version,
		APIPrefix: cfg.Server.APIPrefix,
		Debug:     cfg.App.Debug,
		DB:        app.db,
		Journal:   store.NewJournalRepository(app.db),
		Favorites: store.NewFavoriteRepository(app.db),
		Studies:   studies,
		Responses: store.NewResponseRepository(app.db),
		StudySvc:  studySvc,
		Scripture: client,
		Catalog:   catalog,
		Searcher:  searcher,
		Admin:     admin,
		Origins:   origins,
		Limiter:   limiter,
		Live:      app.hub,
		Upgrader:  upgrader,
		Frontend:  frontend,
		Scheduler: app.scheduler,
		Logger:    logger,
	})

	srvCfg := server.DefaultConfig(app.api.Handler())
	srvCfg.Address = cfg.Server.Address()
	if cfg.Server.ReadTimeout > 0 {
		srvCfg.ReadTimeout = cfg.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout > 0 {
		srvCfg.WriteTimeout = cfg.Server.WriteTimeout
	}
	if cfg.Server.ShutdownTimeout > 0 {
		srvCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	}
	app.server, err = server.New(srvCfg, logger)
	if err != nil {
		return nil, err
	}

	app.server.OnShutdown(app.scheduler.Stop)
	app.server.OnShutdown(app.hub.Shutdown)

	return app, nil
}

// newLimiter builds the configured rate limiter. The redis driver shares the
// cache's connection when the cache is also on redis.
func (app *application) newLimiter() (ratelimit.RateLimiter, error) {
	cfg := app.cfg
	var client *redis.Client
	if cfg.RateLimit.Driver == "redis" {
		if rc, ok := app.cache.(*cache.RedisCache); ok {
			client = rc.Client()
		} else {
			client = redis.NewClient(&redis.Options{
				Addr:     cfg.Cache.RedisAddr,
				Password: cfg.Cache.RedisPassword,
				DB:       cfg.Cache.RedisDB,
			})
			app.closers = append(app.closers, client.Close)
		}
	}

	limiter, err := ratelimit.New(ratelimit.Config{
		Driver:   cfg.RateLimit.Driver,
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
		Prefix:   cfg.Cache.Prefix + "ratelimit:",
	}, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}
	if c, ok := limiter.(interface{ Close() error }); ok {
		app.closers = append(app.closers, c.Close)
	}
	return limiter, nil
}

// run serves until ctx is cancelled, then shuts everything down
func (app *application) run(ctx context.Context) error {
	defer app.close()

	go app.hub.Run()
	if app.cfg.Scheduler.Enabled {
		app.scheduler.Start(ctx)
	}
	app.logger.Info("starting faith dive",
		zap.String("version", app.cfg.App.Version),
		zap.String("addr", app.cfg.Server.Address()),
		zap.Stringer("database", app.db.Dialect()),
	)
	return app.server.Run(ctx)
}

// close releases resources in reverse order of acquisition
func (app *application) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Warn("error during cleanup", zap.Error(err))
		}
	}
	app.closers = nil
}

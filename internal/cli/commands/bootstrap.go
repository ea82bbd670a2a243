package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/faithdive/faithdive/internal/cli/config"
	"github.com/faithdive/faithdive/internal/logging"
	"github.com/faithdive/faithdive/internal/store"
	"github.com/faithdive/faithdive/internal/store/migrate"
)

func loadConfig(opts *globalOptions) (*config.Loader, error) {
	loader, err := config.NewLoader(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return loader, nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	lc := logging.DefaultConfig()
	lc.Level = cfg.Level
	if cfg.Format != "" {
		lc.Format = cfg.Format
	}
	lc.File = cfg.File
	return logging.New(lc)
}

// openDatabase connects to the configured database and applies pending
// migrations when autoMigrate is set
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger, autoMigrate bool) (*store.DB, error) {
	db, err := store.Open(ctx, store.Config{
		Driver:          cfg.Driver,
		URL:             cfg.URL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if autoMigrate {
		applied, err := migrate.Up(ctx, db, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		if applied > 0 {
			logger.Info("database migrated", zap.Int("applied", applied))
		}
	}
	return db, nil
}

// commandEnv is the configuration, logger and database used by the one-shot
// maintenance commands
type commandEnv struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *store.DB
}

func (e *commandEnv) Close() {
	if e.db != nil {
		e.db.Close()
	}
	_ = e.logger.Sync()
}

// setupCommand loads configuration and opens the database. Maintenance
// commands log at warn level so their own output stays readable.
func setupCommand(ctx context.Context, opts *globalOptions, autoMigrate bool) (*commandEnv, error) {
	loader, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	cfg := loader.Config()

	logCfg := cfg.Log
	if level, err := logging.ParseLevel(logCfg.Level); err == nil && level < zap.WarnLevel {
		logCfg.Level = "warn"
	}
	logCfg.Format = "console"
	logger, err := newLogger(logCfg)
	if err != nil {
		return nil, err
	}

	db, err := openDatabase(ctx, cfg.Database, logger, autoMigrate)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &commandEnv{cfg: cfg, logger: logger, db: db}, nil
}

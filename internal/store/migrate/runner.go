package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/faithdive/faithdive/internal/store"
)

// Runner executes migrations with transaction support
type Runner struct {
	db      *store.DB
	tracker *Tracker
	logger  *zap.Logger
}

// NewRunner creates a new migration runner
func NewRunner(db *store.DB, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		db:      db,
		tracker: NewTracker(db),
		logger:  logger,
	}
}

// Initialize sets up the migration tracking table
func (r *Runner) Initialize(ctx context.Context) error {
	return r.tracker.Initialize(ctx)
}

// MigrateUp applies all pending migrations and returns how many ran
func (r *Runner) MigrateUp(ctx context.Context, migrations []*Migration) (int, error) {
	if err := r.Initialize(ctx); err != nil {
		return 0, err
	}

	pending, err := r.tracker.GetPending(ctx, migrations)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending migrations: %w", err)
	}

	if len(pending) == 0 {
		r.logger.Debug("no pending migrations")
		return 0, nil
	}

	r.logger.Info("applying migrations", zap.Int("pending", len(pending)))

	for _, migration := range pending {
		if err := r.applyMigration(ctx, migration); err != nil {
			return 0, fmt.Errorf("migration %s failed: %w", migration.Name, err)
		}
	}

	return len(pending), nil
}

// MigrateDown rolls back the last applied migration
func (r *Runner) MigrateDown(ctx context.Context) (*Migration, error) {
	if err := r.Initialize(ctx); err != nil {
		return nil, err
	}

	last, err := r.tracker.GetLast(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get last migration: %w", err)
	}

	if last == nil {
		return nil, fmt.Errorf("no migrations to rollback")
	}

	if last.Down == "" {
		return nil, fmt.Errorf("migration %s has no down migration", last.Name)
	}

	if err := r.rollbackMigration(ctx, last); err != nil {
		return nil, fmt.Errorf("rollback failed: %w", err)
	}

	return last, nil
}

func (r *Runner) applyMigration(ctx context.Context, migration *Migration) error {
	start := time.Now()

	if migration.Up == "" {
		return fmt.Errorf("migration has no up SQL")
	}

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range splitStatements(migration.Up) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute migration SQL: %w", err)
			}
		}
		return r.tracker.Record(ctx, tx, migration)
	})
	if err != nil {
		return err
	}

	r.logger.Info("applied migration",
		zap.Int64("version", migration.Version),
		zap.String("name", migration.Name),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (r *Runner) rollbackMigration(ctx context.Context, migration *Migration) error {
	start := time.Now()

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range splitStatements(migration.Down) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute rollback SQL: %w", err)
			}
		}
		return r.tracker.Remove(ctx, tx, migration.Version)
	})
	if err != nil {
		return err
	}

	r.logger.Info("rolled back migration",
		zap.Int64("version", migration.Version),
		zap.String("name", migration.Name),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Status returns the current migration status
func (r *Runner) Status(ctx context.Context, allMigrations []*Migration) (*MigrationStatus, error) {
	if err := r.Initialize(ctx); err != nil {
		return nil, err
	}

	applied, err := r.tracker.GetApplied(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	pending, err := r.tracker.GetPending(ctx, allMigrations)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending migrations: %w", err)
	}

	var lastApplied *Migration
	if len(applied) > 0 {
		lastApplied = applied[len(applied)-1]
	}

	return &MigrationStatus{
		Total:       len(allMigrations),
		Applied:     applied,
		Pending:     pending,
		LastApplied: lastApplied,
	}, nil
}

// MigrationStatus represents the current state of migrations
type MigrationStatus struct {
	Total       int
	Applied     []*Migration
	Pending     []*Migration
	LastApplied *Migration
}

// Summary returns a human-readable summary
func (s *MigrationStatus) Summary() string {
	return fmt.Sprintf("Total: %d migrations (%d applied, %d pending)",
		s.Total,
		len(s.Applied),
		len(s.Pending))
}

// Up applies every embedded migration for the database's dialect
func Up(ctx context.Context, db *store.DB, logger *zap.Logger) (int, error) {
	migrations, err := Load(db.Dialect())
	if err != nil {
		return 0, err
	}
	return NewRunner(db, logger).MigrateUp(ctx, migrations)
}

// Package migrate applies the embedded schema migrations and records them in
// the schema_migrations table.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/faithdive/faithdive/internal/store"
)

// Migration represents a single database migration
type Migration struct {
	Version   int64     // Ordering key taken from the file name prefix
	Name      string    // Human-readable name
	Up        string    // SQL to apply
	Down      string    // SQL to rollback
	Applied   bool      // Whether this migration has been applied
	AppliedAt time.Time // When the migration was applied
}

// Tracker manages migration history in the database
type Tracker struct {
	db *store.DB
}

// NewTracker creates a new migration tracker
func NewTracker(db *store.DB) *Tracker {
	return &Tracker{db: db}
}

// Initialize ensures the schema_migrations table exists
func (t *Tracker) Initialize(ctx context.Context) error {
	timestampType := "TIMESTAMP"
	if t.db.Dialect() == store.DialectPostgres {
		timestampType = "TIMESTAMPTZ"
	}

	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS schema_migrations (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at %s NOT NULL,
	down_sql TEXT
)`, timestampType)

	if _, err := t.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to initialize migrations table: %w", err)
	}
	return nil
}

// GetApplied returns all applied migrations sorted by version
func (t *Tracker) GetApplied(ctx context.Context) ([]*Migration, error) {
	query := `
SELECT version, name, applied_at, down_sql
FROM schema_migrations
ORDER BY version ASC
`
	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var migrations []*Migration
	for rows.Next() {
		m := &Migration{Applied: true}
		var downSQL sql.NullString
		if err := rows.Scan(&m.Version, &m.Name, &m.AppliedAt, &downSQL); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		m.Down = downSQL.String
		migrations = append(migrations, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migrations: %w", err)
	}

	return migrations, nil
}

// GetLast returns the most recently applied migration, or nil if none exist
func (t *Tracker) GetLast(ctx context.Context) (*Migration, error) {
	query := `
SELECT version, name, applied_at, down_sql
FROM schema_migrations
ORDER BY version DESC
LIMIT 1
`
	m := &Migration{Applied: true}
	var downSQL sql.NullString
	err := t.db.QueryRowContext(ctx, query).Scan(&m.Version, &m.Name, &m.AppliedAt, &downSQL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last migration: %w", err)
	}
	m.Down = downSQL.String

	return m, nil
}

// Record marks a migration as applied in a transaction
func (t *Tracker) Record(ctx context.Context, tx *sql.Tx, m *Migration) error {
	query := t.db.Rebind("INSERT INTO schema_migrations (version, name, applied_at, down_sql) VALUES (?, ?, ?, ?)")
	if _, err := tx.ExecContext(ctx, query, m.Version, m.Name, time.Now().UTC(), m.Down); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return nil
}

// Remove removes a migration record in a transaction
func (t *Tracker) Remove(ctx context.Context, tx *sql.Tx, version int64) error {
	result, err := tx.ExecContext(ctx, t.db.Rebind("DELETE FROM schema_migrations WHERE version = ?"), version)
	if err != nil {
		return fmt.Errorf("failed to remove migration: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("migration version %d not found", version)
	}

	return nil
}

// GetPending returns migrations that haven't been applied yet
func (t *Tracker) GetPending(ctx context.Context, all []*Migration) ([]*Migration, error) {
	applied, err := t.GetApplied(ctx)
	if err != nil {
		return nil, err
	}

	appliedSet := make(map[int64]bool, len(applied))
	for _, m := range applied {
		appliedSet[m.Version] = true
	}

	var pending []*Migration
	for _, m := range all {
		if !appliedSet[m.Version] {
			pending = append(pending, m)
		}
	}

	return pending, nil
}

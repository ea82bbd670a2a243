package migrate

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/faithdive/faithdive/internal/store"
)

func setupTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(context.Background(), store.Config{
		Driver: "sqlite",
		URL:    "file::memory:?_pragma=foreign_keys(1)",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *store.DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
	require.NoError(t, err)
	return count > 0
}

func TestLoad_BothDialects(t *testing.T) {
	for _, dialect := range []store.Dialect{store.DialectSQLite, store.DialectPostgres} {
		t.Run(dialect.String(), func(t *testing.T) {
			migrations, err := Load(dialect)
			require.NoError(t, err)
			require.Len(t, migrations, 2)

			assert.Equal(t, int64(1), migrations[0].Version)
			assert.Equal(t, "create_journal_and_favorites", migrations[0].Name)
			assert.Equal(t, int64(2), migrations[1].Version)
			for _, m := range migrations {
				assert.NotEmpty(t, m.Up)
				assert.NotEmpty(t, m.Down)
			}
		})
	}
}

func TestLoadFrom_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files fstest.MapFS
	}{
		{"no prefix", fstest.MapFS{"m/create.up.sql": {Data: []byte("SELECT 1")}}},
		{"bad direction", fstest.MapFS{"m/0001_create.sideways.sql": {Data: []byte("SELECT 1")}}},
		{"down only", fstest.MapFS{"m/0001_create.down.sql": {Data: []byte("SELECT 1")}}},
		{"version clash", fstest.MapFS{
			"m/0001_a.up.sql": {Data: []byte("SELECT 1")},
			"m/0001_b.up.sql": {Data: []byte("SELECT 1")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadFrom(tt.files, "m")
			assert.Error(t, err)
		})
	}
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("CREATE TABLE a (id INT);\n\n CREATE INDEX i ON a(id);\n")
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE INDEX i ON a(id)"}, stmts)
}

func TestRunner_MigrateUpAndDown(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	applied, err := Up(ctx, db, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	for _, table := range []string{"journal_entries", "favorite_verses", "weekly_studies", "study_responses", "study_reactions"} {
		assert.True(t, tableExists(t, db, table), table)
	}

	// Second run is a no-op
	applied, err = Up(ctx, db, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	runner := NewRunner(db, nil)
	last, err := runner.MigrateDown(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), last.Version)
	assert.False(t, tableExists(t, db, "weekly_studies"))
	assert.True(t, tableExists(t, db, "journal_entries"))

	migrations, err := Load(store.DialectSQLite)
	require.NoError(t, err)
	status, err := runner.Status(ctx, migrations)
	require.NoError(t, err)
	assert.Len(t, status.Applied, 1)
	assert.Len(t, status.Pending, 1)
	assert.Equal(t, "Total: 2 migrations (1 applied, 1 pending)", status.Summary())
}

func TestRunner_MigrateDownEmpty(t *testing.T) {
	db := setupTestDB(t)
	_, err := NewRunner(db, nil).MigrateDown(context.Background())
	assert.Error(t, err)
}

func TestRunner_FailedMigrationRollsBack(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	runner := NewRunner(db, nil)

	_, err := runner.MigrateUp(ctx, []*Migration{{
		Version: 10,
		Name:    "broken",
		Up:      "CREATE TABLE ok_table (id INTEGER); CREATE TABLE broken (",
	}})
	require.Error(t, err)
	assert.False(t, tableExists(t, db, "ok_table"))

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

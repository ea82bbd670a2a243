package commands

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/faithdive/faithdive/internal/cli/config"
	"github.com/faithdive/faithdive/internal/web/auth"
)

// writeConfig writes a config file pointing at a fresh SQLite database
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "faithdive.db")
	content := fmt.Sprintf(`database:
  driver: sqlite
  url: "file:%s?_pragma=foreign_keys(1)"
log:
  level: error
  format: console
scheduler:
  enabled: false
frontend:
  dir: %s
%s`, dbPath, filepath.Join(dir, "missing-frontend"), extra)

	path := filepath.Join(dir, "faithdive.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// runCLI executes the root command and returns stdout
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--no-color"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "faithdive", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"version", "serve", "migrate", "studies", "admin"} {
		assert.True(t, names[want], "expected %s to be registered", want)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	defer func() { Version, GitCommit = "dev", "unknown" }()

	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Faith Dive version: 1.0.0-test")
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "Go version:")
}

func TestMigrateCommands(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := runCLI(t, "", "--config", cfg, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "Applied 2 migration(s)")

	out, err = runCLI(t, "", "--config", cfg, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "Database is up to date")

	out, err = runCLI(t, "", "--config", cfg, "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "create_weekly_studies")
	assert.Contains(t, out, "Total: 2 migrations (2 applied, 0 pending)")

	out, err = runCLI(t, "", "--config", cfg, "migrate", "down")
	require.NoError(t, err)
	assert.Contains(t, out, "Rolled back 0002_create_weekly_studies")

	out, err = runCLI(t, "", "--config", cfg, "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "(1 applied, 1 pending)")
}

func TestMigrateCommands_BadConfig(t *testing.T) {
	_, err := runCLI(t, "", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "migrate", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestStudiesNewUpcomingPublish(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := runCLI(t, "", "--config", cfg, "studies", "upcoming")
	require.NoError(t, err)
	assert.Contains(t, out, "No upcoming studies")

	out, err = runCLI(t, "", "--config", cfg, "studies", "new",
		"--title", "Faith in Times of Trouble",
		"--description", "How faith sustains us",
		"--verse", "Psalm 23:4",
		"--verse", "Isaiah 41:10",
		"--bible-id", "9879dbb7cfe39e4d-04",
		"--question", "What does it mean to fear no evil?",
		"--schedule", "2099-01-07",
	)
	require.NoError(t, err)
	assert.Contains(t, out, `Created study 1 "Faith in Times of Trouble"`)
	assert.Contains(t, out, "Wed Jan 7 2099 09:00 UTC")

	out, err = runCLI(t, "", "--config", cfg, "studies", "upcoming")
	require.NoError(t, err)
	assert.Contains(t, out, "Faith in Times of Trouble")
	assert.Contains(t, out, "Psalm 23:4; Isaiah 41:10")

	out, err = runCLI(t, "", "--config", cfg, "studies", "publish-due")
	require.NoError(t, err)
	assert.Contains(t, out, "No studies due")

	out, err = runCLI(t, "", "--config", cfg, "studies", "publish", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `Published "Faith in Times of Trouble"`)

	out, err = runCLI(t, "", "--config", cfg, "studies", "upcoming")
	require.NoError(t, err)
	assert.Contains(t, out, "No upcoming studies")

	_, err = runCLI(t, "", "--config", cfg, "studies", "publish", "99")
	require.Error(t, err)

	_, err = runCLI(t, "", "--config", cfg, "studies", "publish", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid study id")
}

func TestStudiesNew_Invalid(t *testing.T) {
	cfg := writeConfig(t, "")

	_, err := runCLI(t, "", "--config", cfg, "studies", "new", "--title", "No verses", "--schedule", "2099-01-07")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid study")
	assert.Contains(t, err.Error(), "verse_references")
	assert.Contains(t, err.Error(), "bible_id")
}

func TestStudiesPublishDue(t *testing.T) {
	cfg := writeConfig(t, "")

	_, err := runCLI(t, "", "--config", cfg, "studies", "new",
		"--title", "Already due",
		"--description", "Scheduled in the past",
		"--verse", "John 3:16",
		"--bible-id", "web-id",
		"--schedule", "2020-01-01T09:00:00Z",
	)
	require.NoError(t, err)

	out, err := runCLI(t, "", "--config", cfg, "studies", "publish-due")
	require.NoError(t, err)
	assert.Contains(t, out, "Published 1 studies")
}

func TestStudiesImport(t *testing.T) {
	cfg := writeConfig(t, "")
	dir := t.TempDir()

	good := filepath.Join(dir, "studies.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`studies:
  - title: Grace Abounding
    description: Grace in Paul's letters
    verse_references: [Romans 5:20]
    bible_version: WEB
    bible_id: web-id
    scheduled_date: "2099-02-04"
  - title: Living Hope
    description: Hope in 1 Peter
    verse_references: [1 Peter 1:3]
    bible_version: WEB
    bible_id: web-id
    scheduled_date: "2099-02-11T09:00:00Z"
`), 0o600))

	out, err := runCLI(t, "", "--config", cfg, "studies", "import", good)
	require.NoError(t, err)
	assert.Contains(t, out, "Importing studies")
	assert.Contains(t, out, "Grace Abounding")
	assert.Contains(t, out, "Living Hope")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`studies:
  - title: Fine
    description: ok
    verse_references: [John 1:1]
    bible_version: WEB
    bible_id: web-id
  - title: Missing verses
    description: nope
    bible_version: WEB
    bible_id: web-id
`), 0o600))

	_, err = runCLI(t, "", "--config", cfg, "studies", "import", bad)
	require.Error(t, err)

	out, err = runCLI(t, "", "--config", cfg, "studies", "upcoming", "--limit", "10")
	require.NoError(t, err)
	assert.NotContains(t, out, "Fine")
	assert.Contains(t, out, "Grace Abounding")

	_, err = runCLI(t, "", "--config", cfg, "studies", "import", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestStudiesNextWednesday(t *testing.T) {
	tests := []struct {
		from string
		want string
	}{
		{"2026-10-18T10:00", "2026-10-21T09:00:00Z"},
		{"2026-10-21T11:00", "2026-10-21T09:00:00Z"},
		{"2026-10-21T13:00", "2026-10-28T09:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			out, err := runCLI(t, "", "studies", "next-wednesday", "--from", tt.from)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}

	_, err := runCLI(t, "", "studies", "next-wednesday", "--from", "tomorrow")
	require.Error(t, err)
}

func TestAdminHashPassword(t *testing.T) {
	out, err := runCLI(t, "correct horse battery\n", "admin", "hash-password", "--stdin")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.True(t, auth.CheckPassword("correct horse battery", hash))

	_, err = runCLI(t, "short\n", "admin", "hash-password", "--stdin")
	assert.ErrorIs(t, err, auth.ErrPasswordTooShort)

	_, err = runCLI(t, "", "admin", "hash-password", "--stdin")
	require.Error(t, err)
}

func TestAdminSecret(t *testing.T) {
	out, err := runCLI(t, "", "admin", "secret")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(out), 64)

	other, err := runCLI(t, "", "admin", "secret", "--bytes", "48")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(other), 96)
	assert.NotEqual(t, out, other)

	_, err = runCLI(t, "", "admin", "secret", "--bytes", "8")
	require.Error(t, err)
}

func TestNewApplication(t *testing.T) {
	path := writeConfig(t, `server:
  host: 127.0.0.1
  port: 0
  shutdown_timeout: 5s
ratelimit:
  enabled: true
  driver: memory
  requests: 50
  window: 1m
`)
	// enable the scheduler on top of the test defaults
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(mustRead(t, path), "enabled: false", "enabled: true\n  interval: 1h", 1)), 0o600))

	loader, err := config.NewLoader(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := newApplication(ctx, loader, zaptest.NewLogger(t))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	app.api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	schedules := app.scheduler.ListSchedules()
	require.Len(t, schedules, 1)
	assert.Equal(t, publishJob, schedules[0].Name)

	errCh := make(chan error, 1)
	go func() { errCh <- app.run(ctx) }()

	select {
	case <-app.server.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + app.server.Addr() + "/api/v1/studies")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "50", resp.Header.Get("X-RateLimit-Limit"))

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

package study

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/faithdive/faithdive/internal/store"
	"github.com/faithdive/faithdive/internal/store/migrate"
)

type recordingNotifier struct {
	mu        sync.Mutex
	published []int64
}

func (n *recordingNotifier) StudyPublished(s *store.WeeklyStudy) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, s.ID)
}

func newTestService(t *testing.T, now time.Time) (*Service, *recordingNotifier) {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, store.Config{Driver: "sqlite", URL: "file::memory:?_pragma=foreign_keys(1)"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = migrate.Up(ctx, db, nil)
	require.NoError(t, err)

	n := &recordingNotifier{}
	svc := NewService(store.NewStudyRepository(db), n, zaptest.NewLogger(t))
	svc.now = func() time.Time { return now }
	return svc, n
}

func sampleDraft(title, schedule string) Draft {
	return Draft{
		WeeklyStudyInput: store.WeeklyStudyInput{
			Title:           title,
			Description:     "Trusting God in hard seasons",
			VerseReferences: []string{"Psalm 23:4"},
			BibleVersion:    "WEB",
			BibleID:         "9879dbb7cfe39e4d-04",
			StudyQuestions:  []string{"Where have you seen comfort this week?"},
		},
		Schedule: schedule,
	}
}

func TestService_CreateDefaultsToNextWednesday(t *testing.T) {
	monday := time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC)
	svc, n := newTestService(t, monday)

	created, err := svc.Create(context.Background(), sampleDraft("Faith in Trouble", ""))
	require.NoError(t, err)
	assert.True(t, created.ScheduledDate.Equal(time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)))
	assert.False(t, created.Published)
	assert.Empty(t, n.published)
}

func TestService_CreateInvalidSchedule(t *testing.T) {
	svc, _ := newTestService(t, time.Now())

	_, err := svc.Create(context.Background(), sampleDraft("Faith", "zzzz qqqq"))
	var ve *store.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "scheduled_date")
}

func TestService_CreatePublishedNotifies(t *testing.T) {
	svc, n := newTestService(t, time.Now())

	d := sampleDraft("Live now", "2025-01-01")
	d.Published = true
	created, err := svc.Create(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, []int64{created.ID}, n.published)
}

func TestService_PublishDue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	svc, n := newTestService(t, now)

	due, err := svc.Create(ctx, sampleDraft("Due", "2025-03-05"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, sampleDraft("Later", "2025-03-12"))
	require.NoError(t, err)

	count, err := svc.PublishDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []int64{due.ID}, n.published)

	count, err = svc.PublishDue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, count)

	upcoming, err := svc.Upcoming(ctx, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "Later", upcoming[0].Title)

	require.NoError(t, svc.RunDue(ctx))
}

func TestService_UpdateSchedule(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC))

	created, err := svc.Create(ctx, sampleDraft("Move me", "2025-03-05"))
	require.NoError(t, err)

	when := "2025-03-19"
	title := "Moved"
	updated, err := svc.Update(ctx, created.ID, DraftUpdate{
		WeeklyStudyUpdate: store.WeeklyStudyUpdate{Title: &title},
		Schedule:          &when,
	})
	require.NoError(t, err)
	assert.Equal(t, "Moved", updated.Title)
	assert.True(t, updated.ScheduledDate.Equal(time.Date(2025, 3, 19, 9, 0, 0, 0, time.UTC)))

	bad := "zzzz qqqq"
	_, err = svc.Update(ctx, created.ID, DraftUpdate{Schedule: &bad})
	var ve *store.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestService_Publish(t *testing.T) {
	ctx := context.Background()
	svc, n := newTestService(t, time.Now())

	created, err := svc.Create(ctx, sampleDraft("Publish me", "2030-01-01"))
	require.NoError(t, err)

	published, err := svc.Publish(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, published.Published)
	assert.NotNil(t, published.PublishedAt)
	assert.Equal(t, []int64{created.ID}, n.published)

	again, err := svc.Publish(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, again.Published)
	assert.True(t, published.PublishedAt.Equal(*again.PublishedAt))
	assert.Equal(t, []int64{created.ID}, n.published, "republishing does not announce twice")

	_, err = svc.Publish(ctx, 4242)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

const importYAML = `
studies:
  - title: Hope that holds
    description: Anchoring in God's promises
    verse_references: ["Jeremiah 29:11", "Romans 15:13"]
    bible_version: WEB
    bible_id: 9879dbb7cfe39e4d-04
    study_questions:
      - What are you hoping for?
    scheduled_date: "2025-03-12"
  - title: Rest
    description: Coming to Jesus
    verse_references: ["Matthew 11:28"]
    bible_version: WEB
    bible_id: 9879dbb7cfe39e4d-04
`

func TestService_Import(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC))

	created, err := svc.Import(ctx, strings.NewReader(importYAML))
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "Hope that holds", created[0].Title)
	assert.Equal(t, store.StringList{"Jeremiah 29:11", "Romans 15:13"}, created[0].VerseReferences)
	assert.True(t, created[0].ScheduledDate.Equal(time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)))
	assert.True(t, created[1].ScheduledDate.Equal(time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)))
}

func TestService_ImportRejectsWholeFile(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, time.Now())

	doc := importYAML + `
  - title: ""
    description: missing title
    verse_references: ["John 1:1"]
    bible_version: WEB
    bible_id: x
`
	_, err := svc.Import(ctx, strings.NewReader(doc))
	var ve *store.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "study 3")

	upcoming, err := svc.Upcoming(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, upcoming)

	_, err = svc.Import(ctx, strings.NewReader("studies:\n  - titel: typo\n"))
	assert.Error(t, err)
}

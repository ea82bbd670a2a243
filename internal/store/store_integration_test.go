package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faithdive/faithdive/internal/store"
	"github.com/faithdive/faithdive/internal/store/migrate"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, store.Config{
		Driver: "sqlite",
		URL:    "file::memory:?_pragma=foreign_keys(1)",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = migrate.Up(ctx, db, nil)
	require.NoError(t, err)
	return db
}

func newStudy(t *testing.T, repo *store.StudyRepository, title string, scheduled time.Time, published bool) *store.WeeklyStudy {
	t.Helper()
	study, err := repo.Create(context.Background(), store.WeeklyStudyInput{
		Title:           title,
		Description:     "A study on hope",
		VerseReferences: []string{"Psalm 23:4", "Romans 8:28"},
		VerseTexts:      []string{"Even though I walk", "And we know"},
		BibleVersion:    "WEB",
		BibleID:         "9879dbb7cfe39e4d-04",
		StudyQuestions:  []string{"How do these verses encourage you?"},
		ScheduledDate:   scheduled,
		Published:       published,
	})
	require.NoError(t, err)
	return study
}

func TestJournal_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := store.NewJournalRepository(openTestDB(t))

	entry, err := repo.Create(ctx, store.JournalEntryInput{
		VerseReference: "Philippians 4:13",
		VerseText:      "I can do all things",
		BibleVersion:   "WEB",
		BibleID:        "9879dbb7cfe39e4d-04",
		Content:        "Fuerza y esperanza 🙏 信心",
		Tags:           []string{"strength", "daily"},
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fuerza y esperanza 🙏 信心", got.Content)
	assert.Equal(t, store.StringList{"strength", "daily"}, got.Tags)
	assert.Nil(t, got.Title)

	title := "Strength"
	content := "Updated"
	tags := []string{"strength"}
	updated, err := repo.Update(ctx, entry.ID, store.JournalEntryUpdate{Title: &title, Content: &content, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "Strength", *updated.Title)
	assert.False(t, updated.UpdatedAt.Before(entry.UpdatedAt))

	byTag, err := repo.List(ctx, store.JournalFilter{Tag: "strength"})
	require.NoError(t, err)
	assert.Len(t, byTag, 1)

	none, err := repo.List(ctx, store.JournalFilter{Tag: "daily"})
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, repo.Delete(ctx, entry.ID))
	_, err = repo.Get(ctx, entry.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestJournal_QueryMatchesNonASCIIText(t *testing.T) {
	ctx := context.Background()
	repo := store.NewJournalRepository(openTestDB(t))

	title := "Über die Gnade"
	_, err := repo.Create(ctx, store.JournalEntryInput{
		VerseReference: "Ephesians 2:8",
		VerseText:      "For by grace you have been saved",
		BibleVersion:   "WEB",
		BibleID:        "9879dbb7cfe39e4d-04",
		Title:          &title,
		Content:        "Ελπίδα και ΧΑΡΆ",
	})
	require.NoError(t, err)

	for _, q := range []string{"Über", "über", "ÜBER", "ΧΑΡΆ", "χαρά", "Ελπίδα", "ελπίδα", "gnade"} {
		entries, err := repo.List(ctx, store.JournalFilter{Query: q})
		require.NoError(t, err)
		assert.Len(t, entries, 1, "query %q", q)
	}

	entries, err := repo.List(ctx, store.JournalFilter{Query: "Gnaden"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFavorites_DuplicatesAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := store.NewFavoriteRepository(openTestDB(t))

	in := store.FavoriteVerseInput{
		VerseReference: "John 3:16",
		VerseText:      "For God so loved the world",
		BibleVersion:   "WEB",
		BibleID:        "9879dbb7cfe39e4d-04",
	}
	first, err := repo.Create(ctx, in)
	require.NoError(t, err)
	second, err := repo.Create(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	list, err := repo.List(ctx, store.Page{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)

	paged, err := repo.List(ctx, store.Page{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, second.ID, paged[0].ID)

	assert.ErrorIs(t, repo.Delete(ctx, 999), store.ErrNotFound)
}

func TestStudies_PublishDueAndUpcoming(t *testing.T) {
	ctx := context.Background()
	repo := store.NewStudyRepository(openTestDB(t))
	now := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)

	due := newStudy(t, repo, "Due", now.Add(-time.Hour), false)
	future := newStudy(t, repo, "Future", now.Add(7*24*time.Hour), false)
	_ = newStudy(t, repo, "Old", now.Add(-14*24*time.Hour), true)

	_, err := repo.GetPublished(ctx, due.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	upcoming, err := repo.Upcoming(ctx, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, due.ID, upcoming[0].ID)

	published, err := repo.PublishDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, due.ID, published[0].ID)
	require.NotNil(t, published[0].PublishedAt)

	again, err := repo.PublishDue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, again)

	current, err := repo.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, due.ID, current.ID)

	list, err := repo.ListPublished(ctx, store.Page{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Due", list[0].Title)

	upcoming, err = repo.Upcoming(ctx, 5)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, future.ID, upcoming[0].ID)
}

func TestStudies_UpdateAndPublish(t *testing.T) {
	ctx := context.Background()
	repo := store.NewStudyRepository(openTestDB(t))
	study := newStudy(t, repo, "Draft", time.Now().Add(48*time.Hour), false)

	title := "Final"
	updated, err := repo.Update(ctx, study.ID, store.WeeklyStudyUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, study.VerseReferences, updated.VerseReferences)

	empty := ""
	_, err = repo.Update(ctx, study.ID, store.WeeklyStudyUpdate{Title: &empty})
	var ve *store.ValidationError
	assert.ErrorAs(t, err, &ve)

	published, changed, err := repo.Publish(ctx, study.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, published.Published)
	require.NotNil(t, published.PublishedAt)

	again, changed, err := repo.Publish(ctx, study.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, published.PublishedAt.Equal(*again.PublishedAt))

	_, _, err = repo.Publish(ctx, 12345)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResponses_ReactionsToggleAndCascade(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	studies := store.NewStudyRepository(db)
	responses := store.NewResponseRepository(db)

	draft := newStudy(t, studies, "Draft", time.Now().Add(time.Hour), false)
	_, err := responses.Create(ctx, draft.ID, store.StudyResponseInput{UserName: "Sarah", ResponseText: "Hello"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	study := newStudy(t, studies, "Live", time.Now().Add(-time.Hour), true)

	_, err = responses.Create(ctx, study.ID, store.StudyResponseInput{UserName: "Sarah", ResponseText: "   "})
	var ve *store.ValidationError
	require.ErrorAs(t, err, &ve)

	resp, err := responses.Create(ctx, study.ID, store.StudyResponseInput{UserName: " Sarah ", ResponseText: " Psalm 23:4 speaks to me. "})
	require.NoError(t, err)
	assert.Equal(t, "Sarah", resp.UserName)
	assert.Equal(t, "Psalm 23:4 speaks to me.", resp.ResponseText)

	other, err := responses.Create(ctx, study.ID, store.StudyResponseInput{UserName: "Michael", ResponseText: "Romans 8:28"})
	require.NoError(t, err)

	result, err := responses.ToggleReaction(ctx, resp.ID, store.ReactionInput{UserIdentifier: "u1", ReactionType: store.ReactionAmen})
	require.NoError(t, err)
	assert.True(t, result.Active)
	assert.Equal(t, 1, result.Reactions[store.ReactionAmen])

	_, err = responses.ToggleReaction(ctx, resp.ID, store.ReactionInput{UserIdentifier: "u2", ReactionType: store.ReactionAmen})
	require.NoError(t, err)

	result, err = responses.ToggleReaction(ctx, resp.ID, store.ReactionInput{UserIdentifier: "u1", ReactionType: store.ReactionAmen})
	require.NoError(t, err)
	assert.False(t, result.Active)
	assert.Equal(t, 1, result.Reactions[store.ReactionAmen])

	_, err = responses.ToggleReaction(ctx, resp.ID, store.ReactionInput{UserIdentifier: "u1", ReactionType: "wow"})
	require.ErrorAs(t, err, &ve)

	list, err := responses.ListVisible(ctx, study.ID, store.Page{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].Reactions[store.ReactionAmen])
	assert.Equal(t, 0, list[1].Reactions[store.ReactionLike])

	flagged, err := responses.Flag(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, flagged.Flagged)

	_, err = responses.Hide(ctx, other.ID)
	require.NoError(t, err)
	list, err = responses.ListVisible(ctx, study.ID, store.Page{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = responses.ToggleReaction(ctx, other.ID, store.ReactionInput{UserIdentifier: "u1", ReactionType: store.ReactionLike})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = responses.Flag(ctx, other.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = responses.Hide(ctx, other.ID)
	require.NoError(t, err)

	require.NoError(t, studies.Delete(ctx, study.ID))
	_, err = responses.Get(ctx, resp.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	var reactions int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM study_reactions").Scan(&reactions))
	assert.Zero(t, reactions)

	assert.ErrorIs(t, studies.Delete(ctx, study.ID), store.ErrNotFound)
}

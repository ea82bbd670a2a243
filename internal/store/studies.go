package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// WeeklyStudy is a community study published on a schedule
type WeeklyStudy struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	VerseReferences StringList `json:"verse_references"`
	VerseTexts      StringList `json:"verse_texts"`
	BibleVersion    string     `json:"bible_version"`
	BibleID         string     `json:"bible_id"`
	StudyQuestions  StringList `json:"study_questions"`
	StudyNotes      *string    `json:"study_notes"`
	ScheduledDate   time.Time  `json:"scheduled_date"`
	Published       bool       `json:"published"`
	PublishedAt     *time.Time `json:"published_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// WeeklyStudyInput holds the fields of a new study
type WeeklyStudyInput struct {
	Title           string    `json:"title" yaml:"title"`
	Description     string    `json:"description" yaml:"description"`
	VerseReferences []string  `json:"verse_references" yaml:"verse_references"`
	VerseTexts      []string  `json:"verse_texts" yaml:"verse_texts"`
	BibleVersion    string    `json:"bible_version" yaml:"bible_version"`
	BibleID         string    `json:"bible_id" yaml:"bible_id"`
	StudyQuestions  []string  `json:"study_questions" yaml:"study_questions"`
	StudyNotes      *string   `json:"study_notes" yaml:"study_notes"`
	ScheduledDate   time.Time `json:"-" yaml:"-"`
	Published       bool      `json:"published" yaml:"published"`
}

// Validate checks required fields and column lengths
func (in WeeklyStudyInput) Validate() error {
	ve := &ValidationError{}
	checkRequired(ve, "title", in.Title)
	checkLength(ve, "title", in.Title, 200)
	checkRequired(ve, "description", in.Description)
	checkRequired(ve, "bible_version", in.BibleVersion)
	checkLength(ve, "bible_version", in.BibleVersion, 50)
	checkRequired(ve, "bible_id", in.BibleID)
	checkLength(ve, "bible_id", in.BibleID, 50)
	if len(in.VerseReferences) == 0 {
		ve.Add("verse_references", "must contain at least one reference")
	}
	if len(in.VerseTexts) > 0 && len(in.VerseTexts) != len(in.VerseReferences) {
		ve.Add("verse_texts", "must match verse_references in length")
	}
	if in.ScheduledDate.IsZero() {
		ve.Add("scheduled_date", "is required")
	}
	return ve.OrNil()
}

// WeeklyStudyUpdate is a partial update; nil fields are left unchanged
type WeeklyStudyUpdate struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	VerseReferences *[]string  `json:"verse_references"`
	VerseTexts      *[]string  `json:"verse_texts"`
	BibleVersion    *string    `json:"bible_version"`
	BibleID         *string    `json:"bible_id"`
	StudyQuestions  *[]string  `json:"study_questions"`
	StudyNotes      *string    `json:"study_notes"`
	ScheduledDate   *time.Time `json:"-"`
}

func (u WeeklyStudyUpdate) apply(s *WeeklyStudy) {
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.Description != nil {
		s.Description = *u.Description
	}
	if u.VerseReferences != nil {
		s.VerseReferences = StringList(*u.VerseReferences)
	}
	if u.VerseTexts != nil {
		s.VerseTexts = StringList(*u.VerseTexts)
	}
	if u.BibleVersion != nil {
		s.BibleVersion = *u.BibleVersion
	}
	if u.BibleID != nil {
		s.BibleID = *u.BibleID
	}
	if u.StudyQuestions != nil {
		s.StudyQuestions = StringList(*u.StudyQuestions)
	}
	if u.StudyNotes != nil {
		s.StudyNotes = u.StudyNotes
	}
	if u.ScheduledDate != nil {
		s.ScheduledDate = *u.ScheduledDate
	}
}

func (s *WeeklyStudy) input() WeeklyStudyInput {
	return WeeklyStudyInput{
		Title:           s.Title,
		Description:     s.Description,
		VerseReferences: s.VerseReferences,
		VerseTexts:      s.VerseTexts,
		BibleVersion:    s.BibleVersion,
		BibleID:         s.BibleID,
		StudyQuestions:  s.StudyQuestions,
		StudyNotes:      s.StudyNotes,
		ScheduledDate:   s.ScheduledDate,
	}
}

const studyColumns = `id, title, description, verse_references, verse_texts, bible_version, bible_id,
study_questions, study_notes, scheduled_date, published, published_at, created_at, updated_at`

// StudyRepository stores weekly studies
type StudyRepository struct {
	db  *DB
	now Clock
}

// NewStudyRepository creates a study repository
func NewStudyRepository(db *DB) *StudyRepository {
	return &StudyRepository{db: db, now: utcNow}
}

// Create inserts a study. A study created as published is stamped with the
// current time.
func (r *StudyRepository) Create(ctx context.Context, in WeeklyStudyInput) (*WeeklyStudy, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := r.now()
	study := &WeeklyStudy{
		Title:           in.Title,
		Description:     in.Description,
		VerseReferences: nonNil(in.VerseReferences),
		VerseTexts:      nonNil(in.VerseTexts),
		BibleVersion:    in.BibleVersion,
		BibleID:         in.BibleID,
		StudyQuestions:  nonNil(in.StudyQuestions),
		StudyNotes:      in.StudyNotes,
		ScheduledDate:   in.ScheduledDate.UTC(),
		Published:       in.Published,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if study.Published {
		study.PublishedAt = &now
	}

	query := r.db.Rebind(`INSERT INTO weekly_studies
(title, description, verse_references, verse_texts, bible_version, bible_id, study_questions,
study_notes, scheduled_date, published, published_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	err := r.db.QueryRowContext(ctx, query,
		study.Title, study.Description, study.VerseReferences, study.VerseTexts,
		study.BibleVersion, study.BibleID, study.StudyQuestions, study.StudyNotes,
		study.ScheduledDate, study.Published, study.PublishedAt, study.CreatedAt, study.UpdatedAt,
	).Scan(&study.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create study: %w", ConvertDBError(err))
	}

	return study, nil
}

// Get returns a study regardless of its publication state
func (r *StudyRepository) Get(ctx context.Context, id int64) (*WeeklyStudy, error) {
	query := r.db.Rebind("SELECT " + studyColumns + " FROM weekly_studies WHERE id = ?")
	return scanStudy(r.db.QueryRowContext(ctx, query, id))
}

// GetPublished returns a published study; unpublished studies are reported
// as ErrNotFound
func (r *StudyRepository) GetPublished(ctx context.Context, id int64) (*WeeklyStudy, error) {
	query := r.db.Rebind("SELECT " + studyColumns + " FROM weekly_studies WHERE id = ? AND published = ?")
	return scanStudy(r.db.QueryRowContext(ctx, query, id, true))
}

// ListPublished returns published studies, most recently scheduled first
func (r *StudyRepository) ListPublished(ctx context.Context, page Page) ([]*WeeklyStudy, error) {
	page = page.Normalize()
	query := "SELECT " + studyColumns + " FROM weekly_studies WHERE published = ? ORDER BY scheduled_date DESC, id DESC LIMIT ? OFFSET ?"
	return r.query(ctx, query, true, page.Limit, page.Skip)
}

// Current returns the most recently scheduled published study
func (r *StudyRepository) Current(ctx context.Context) (*WeeklyStudy, error) {
	query := r.db.Rebind("SELECT " + studyColumns + " FROM weekly_studies WHERE published = ? ORDER BY scheduled_date DESC, id DESC LIMIT 1")
	return scanStudy(r.db.QueryRowContext(ctx, query, true))
}

// Upcoming returns unpublished studies by scheduled date
func (r *StudyRepository) Upcoming(ctx context.Context, limit int) ([]*WeeklyStudy, error) {
	if limit <= 0 {
		limit = 5
	}
	query := "SELECT " + studyColumns + " FROM weekly_studies WHERE published = ? ORDER BY scheduled_date ASC, id ASC LIMIT ?"
	return r.query(ctx, query, false, limit)
}

// Update applies a partial update and bumps updated_at
func (r *StudyRepository) Update(ctx context.Context, id int64, upd WeeklyStudyUpdate) (*WeeklyStudy, error) {
	study, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	upd.apply(study)
	if err := study.input().Validate(); err != nil {
		return nil, err
	}
	study.ScheduledDate = study.ScheduledDate.UTC()
	study.UpdatedAt = r.now()

	query := r.db.Rebind(`UPDATE weekly_studies SET
title = ?, description = ?, verse_references = ?, verse_texts = ?, bible_version = ?, bible_id = ?,
study_questions = ?, study_notes = ?, scheduled_date = ?, updated_at = ?
WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query,
		study.Title, study.Description, study.VerseReferences, study.VerseTexts,
		study.BibleVersion, study.BibleID, study.StudyQuestions, study.StudyNotes,
		study.ScheduledDate, study.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update study: %w", ConvertDBError(err))
	}
	if err := requireAffected(result); err != nil {
		return nil, err
	}

	return study, nil
}

// Delete removes a study together with its responses and their reactions
func (r *StudyRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, r.db.Rebind(
			"DELETE FROM study_reactions WHERE response_id IN (SELECT id FROM study_responses WHERE study_id = ?)"), id); err != nil {
			return fmt.Errorf("failed to delete study reactions: %w", ConvertDBError(err))
		}
		if _, err := tx.ExecContext(ctx, r.db.Rebind("DELETE FROM study_responses WHERE study_id = ?"), id); err != nil {
			return fmt.Errorf("failed to delete study responses: %w", ConvertDBError(err))
		}
		result, err := tx.ExecContext(ctx, r.db.Rebind("DELETE FROM weekly_studies WHERE id = ?"), id)
		if err != nil {
			return fmt.Errorf("failed to delete study: %w", ConvertDBError(err))
		}
		return requireAffected(result)
	})
}

// Publish marks a study as published now and reports whether it changed.
// Publishing an already published study keeps its original published_at.
func (r *StudyRepository) Publish(ctx context.Context, id int64) (*WeeklyStudy, bool, error) {
	now := r.now()
	query := r.db.Rebind("UPDATE weekly_studies SET published = ?, published_at = ?, updated_at = ? WHERE id = ? AND published = ?")
	result, err := r.db.ExecContext(ctx, query, true, now, now, id, false)
	if err != nil {
		return nil, false, fmt.Errorf("failed to publish study: %w", ConvertDBError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	study, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return study, affected > 0, nil
}

// PublishDue publishes every unpublished study scheduled at or before now
// and returns the studies it published
func (r *StudyRepository) PublishDue(ctx context.Context, now time.Time) ([]*WeeklyStudy, error) {
	now = now.UTC()
	var published []*WeeklyStudy

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := r.db.Rebind("SELECT " + studyColumns + " FROM weekly_studies WHERE published = ? AND scheduled_date <= ? ORDER BY scheduled_date ASC, id ASC")
		rows, err := tx.QueryContext(ctx, query, false, now)
		if err != nil {
			return fmt.Errorf("failed to query due studies: %w", ConvertDBError(err))
		}
		due, err := collectStudies(rows)
		if err != nil {
			return err
		}

		update := r.db.Rebind("UPDATE weekly_studies SET published = ?, published_at = ?, updated_at = ? WHERE id = ?")
		for _, study := range due {
			if _, err := tx.ExecContext(ctx, update, true, now, now, study.ID); err != nil {
				return fmt.Errorf("failed to publish study %d: %w", study.ID, ConvertDBError(err))
			}
			study.Published = true
			publishedAt := now
			study.PublishedAt = &publishedAt
			study.UpdatedAt = now
		}
		published = due
		return nil
	})
	if err != nil {
		return nil, err
	}

	return published, nil
}

func (r *StudyRepository) query(ctx context.Context, query string, args ...any) ([]*WeeklyStudy, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list studies: %w", ConvertDBError(err))
	}
	return collectStudies(rows)
}

func collectStudies(rows *sql.Rows) ([]*WeeklyStudy, error) {
	defer rows.Close()

	studies := make([]*WeeklyStudy, 0)
	for rows.Next() {
		study, err := scanStudy(rows)
		if err != nil {
			return nil, err
		}
		studies = append(studies, study)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating studies: %w", err)
	}
	return studies, nil
}

func scanStudy(row rowScanner) (*WeeklyStudy, error) {
	s := &WeeklyStudy{}
	var publishedAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.Title, &s.Description, &s.VerseReferences, &s.VerseTexts, &s.BibleVersion, &s.BibleID,
		&s.StudyQuestions, &s.StudyNotes, &s.ScheduledDate, &s.Published, &publishedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		s.PublishedAt = &t
	}
	return s, nil
}

func nonNil(items []string) StringList {
	if items == nil {
		return StringList{}
	}
	return StringList(items)
}

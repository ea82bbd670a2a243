package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JournalEntry is a personal reflection on a verse
type JournalEntry struct {
	ID             int64      `json:"id"`
	VerseReference string     `json:"verse_reference"`
	VerseText      string     `json:"verse_text"`
	BibleVersion   string     `json:"bible_version"`
	BibleID        string     `json:"bible_id"`
	Title          *string    `json:"title"`
	Content        string     `json:"content"`
	Tags           StringList `json:"tags"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// JournalEntryInput holds the fields of a new entry
type JournalEntryInput struct {
	VerseReference string   `json:"verse_reference"`
	VerseText      string   `json:"verse_text"`
	BibleVersion   string   `json:"bible_version"`
	BibleID        string   `json:"bible_id"`
	Title          *string  `json:"title"`
	Content        string   `json:"content"`
	Tags           []string `json:"tags"`
}

// Validate checks required fields and column lengths
func (in JournalEntryInput) Validate() error {
	ve := &ValidationError{}
	checkRequired(ve, "verse_reference", in.VerseReference)
	checkRequired(ve, "verse_text", in.VerseText)
	checkRequired(ve, "bible_version", in.BibleVersion)
	checkRequired(ve, "bible_id", in.BibleID)
	checkRequired(ve, "content", in.Content)
	checkLength(ve, "verse_reference", in.VerseReference, 100)
	checkLength(ve, "bible_version", in.BibleVersion, 50)
	checkLength(ve, "bible_id", in.BibleID, 50)
	if in.Title != nil {
		checkLength(ve, "title", *in.Title, 200)
	}
	return ve.OrNil()
}

// JournalEntryUpdate is a partial update; nil fields are left unchanged
type JournalEntryUpdate struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

// Validate checks the fields that are present
func (u JournalEntryUpdate) Validate() error {
	ve := &ValidationError{}
	if u.Title != nil {
		checkLength(ve, "title", *u.Title, 200)
	}
	if u.Content != nil {
		checkRequired(ve, "content", *u.Content)
	}
	return ve.OrNil()
}

// JournalFilter narrows a journal listing
type JournalFilter struct {
	Page
	Tag   string // entries carrying this tag
	Query string // substring of title or content
}

const journalColumns = "id, verse_reference, verse_text, bible_version, bible_id, title, content, tags, created_at, updated_at"

// JournalRepository stores journal entries
type JournalRepository struct {
	db  *DB
	now Clock
}

// NewJournalRepository creates a journal repository
func NewJournalRepository(db *DB) *JournalRepository {
	return &JournalRepository{db: db, now: utcNow}
}

// Create inserts a new entry
func (r *JournalRepository) Create(ctx context.Context, in JournalEntryInput) (*JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := r.now()
	entry := &JournalEntry{
		VerseReference: in.VerseReference,
		VerseText:      in.VerseText,
		BibleVersion:   in.BibleVersion,
		BibleID:        in.BibleID,
		Title:          in.Title,
		Content:        in.Content,
		Tags:           StringList(in.Tags),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if entry.Tags == nil {
		entry.Tags = StringList{}
	}

	query := r.db.Rebind(`INSERT INTO journal_entries
(verse_reference, verse_text, bible_version, bible_id, title, content, tags, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	err := r.db.QueryRowContext(ctx, query,
		entry.VerseReference, entry.VerseText, entry.BibleVersion, entry.BibleID,
		entry.Title, entry.Content, entry.Tags, entry.CreatedAt, entry.UpdatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create journal entry: %w", ConvertDBError(err))
	}

	return entry, nil
}

// List returns entries in insertion order
func (r *JournalRepository) List(ctx context.Context, filter JournalFilter) ([]*JournalEntry, error) {
	page := filter.Page.Normalize()

	var (
		conditions []string
		args       []any
	)
	if filter.Tag != "" {
		quoted, err := json.Marshal(filter.Tag)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, `tags LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(string(quoted)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		cond, qargs := containsFolded(r.db.Dialect(), q, "COALESCE(title, '')", "content")
		conditions = append(conditions, cond)
		args = append(args, qargs...)
	}

	query := "SELECT " + journalColumns + " FROM journal_entries"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id ASC LIMIT ? OFFSET ?"
	args = append(args, page.Limit, page.Skip)

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", ConvertDBError(err))
	}
	defer rows.Close()

	entries := make([]*JournalEntry, 0)
	for rows.Next() {
		entry, err := scanJournalEntry(rows)
		if err != nil {
			return nil, err
		}
		// LIKE on the JSON text can match inside another tag's escaping
		if filter.Tag != "" && !entry.Tags.Contains(filter.Tag) {
			continue
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal entries: %w", err)
	}

	return entries, nil
}

// Get returns one entry or ErrNotFound
func (r *JournalRepository) Get(ctx context.Context, id int64) (*JournalEntry, error) {
	query := r.db.Rebind("SELECT " + journalColumns + " FROM journal_entries WHERE id = ?")
	entry, err := scanJournalEntry(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Update applies a partial update and bumps updated_at
func (r *JournalRepository) Update(ctx context.Context, id int64, upd JournalEntryUpdate) (*JournalEntry, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	entry, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		entry.Title = upd.Title
	}
	if upd.Content != nil {
		entry.Content = *upd.Content
	}
	if upd.Tags != nil {
		entry.Tags = StringList(*upd.Tags)
		if entry.Tags == nil {
			entry.Tags = StringList{}
		}
	}
	entry.UpdatedAt = r.now()

	query := r.db.Rebind("UPDATE journal_entries SET title = ?, content = ?, tags = ?, updated_at = ? WHERE id = ?")
	result, err := r.db.ExecContext(ctx, query, entry.Title, entry.Content, entry.Tags, entry.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update journal entry: %w", ConvertDBError(err))
	}
	if err := requireAffected(result); err != nil {
		return nil, err
	}

	return entry, nil
}

// Delete removes an entry or returns ErrNotFound
func (r *JournalRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM journal_entries WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete journal entry: %w", ConvertDBError(err))
	}
	return requireAffected(result)
}

func scanJournalEntry(row rowScanner) (*JournalEntry, error) {
	entry := &JournalEntry{}
	err := row.Scan(
		&entry.ID, &entry.VerseReference, &entry.VerseText, &entry.BibleVersion, &entry.BibleID,
		&entry.Title, &entry.Content, &entry.Tags, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return entry, nil
}

package store

import (
	"context"
	"fmt"
	"time"
)

// FavoriteVerse is a bookmarked verse
type FavoriteVerse struct {
	ID             int64     `json:"id"`
	VerseReference string    `json:"verse_reference"`
	VerseText      string    `json:"verse_text"`
	BibleVersion   string    `json:"bible_version"`
	BibleID        string    `json:"bible_id"`
	Notes          *string   `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
}

// FavoriteVerseInput holds the fields of a new favorite
type FavoriteVerseInput struct {
	VerseReference string  `json:"verse_reference"`
	VerseText      string  `json:"verse_text"`
	BibleVersion   string  `json:"bible_version"`
	BibleID        string  `json:"bible_id"`
	Notes          *string `json:"notes"`
}

// Validate checks required fields and column lengths
func (in FavoriteVerseInput) Validate() error {
	ve := &ValidationError{}
	checkRequired(ve, "verse_reference", in.VerseReference)
	checkRequired(ve, "verse_text", in.VerseText)
	checkRequired(ve, "bible_version", in.BibleVersion)
	checkRequired(ve, "bible_id", in.BibleID)
	checkLength(ve, "verse_reference", in.VerseReference, 100)
	checkLength(ve, "bible_version", in.BibleVersion, 50)
	checkLength(ve, "bible_id", in.BibleID, 50)
	return ve.OrNil()
}

const favoriteColumns = "id, verse_reference, verse_text, bible_version, bible_id, notes, created_at"

// FavoriteRepository stores favorite verses
type FavoriteRepository struct {
	db  *DB
	now Clock
}

// NewFavoriteRepository creates a favorites repository
func NewFavoriteRepository(db *DB) *FavoriteRepository {
	return &FavoriteRepository{db: db, now: utcNow}
}

// Create inserts a favorite. The same verse may be favorited more than once.
func (r *FavoriteRepository) Create(ctx context.Context, in FavoriteVerseInput) (*FavoriteVerse, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	fav := &FavoriteVerse{
		VerseReference: in.VerseReference,
		VerseText:      in.VerseText,
		BibleVersion:   in.BibleVersion,
		BibleID:        in.BibleID,
		Notes:          in.Notes,
		CreatedAt:      r.now(),
	}

	query := r.db.Rebind(`INSERT INTO favorite_verses
(verse_reference, verse_text, bible_version, bible_id, notes, created_at)
VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)

	err := r.db.QueryRowContext(ctx, query,
		fav.VerseReference, fav.VerseText, fav.BibleVersion, fav.BibleID, fav.Notes, fav.CreatedAt,
	).Scan(&fav.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create favorite verse: %w", ConvertDBError(err))
	}

	return fav, nil
}

// List returns favorites in insertion order
func (r *FavoriteRepository) List(ctx context.Context, page Page) ([]*FavoriteVerse, error) {
	page = page.Normalize()

	query := r.db.Rebind("SELECT " + favoriteColumns + " FROM favorite_verses ORDER BY id ASC LIMIT ? OFFSET ?")
	rows, err := r.db.QueryContext(ctx, query, page.Limit, page.Skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorite verses: %w", ConvertDBError(err))
	}
	defer rows.Close()

	favorites := make([]*FavoriteVerse, 0)
	for rows.Next() {
		fav := &FavoriteVerse{}
		if err := rows.Scan(&fav.ID, &fav.VerseReference, &fav.VerseText, &fav.BibleVersion,
			&fav.BibleID, &fav.Notes, &fav.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan favorite verse: %w", err)
		}
		favorites = append(favorites, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating favorite verses: %w", err)
	}

	return favorites, nil
}

// Delete removes a favorite or returns ErrNotFound
func (r *FavoriteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM favorite_verses WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete favorite verse: %w", ConvertDBError(err))
	}
	return requireAffected(result)
}

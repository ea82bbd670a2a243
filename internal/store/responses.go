package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Reaction types accepted on study responses
const (
	ReactionLike    = "like"
	ReactionHelpful = "helpful"
	ReactionPray    = "pray"
	ReactionAmen    = "amen"
)

// ReactionTypes lists the accepted reaction types in display order
var ReactionTypes = []string{ReactionLike, ReactionHelpful, ReactionPray, ReactionAmen}

// IsReactionType reports whether t is an accepted reaction type
func IsReactionType(t string) bool {
	for _, rt := range ReactionTypes {
		if rt == t {
			return true
		}
	}
	return false
}

// ReactionCounts maps reaction type to count
type ReactionCounts map[string]int

func newReactionCounts() ReactionCounts {
	counts := make(ReactionCounts, len(ReactionTypes))
	for _, rt := range ReactionTypes {
		counts[rt] = 0
	}
	return counts
}

// StudyResponse is a community reply to a weekly study
type StudyResponse struct {
	ID           int64          `json:"id"`
	StudyID      int64          `json:"study_id"`
	UserName     string         `json:"user_name"`
	ResponseText string         `json:"response_text"`
	Flagged      bool           `json:"flagged"`
	Hidden       bool           `json:"hidden"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Reactions    ReactionCounts `json:"reactions"`
}

// StudyResponseInput holds the fields of a new response
type StudyResponseInput struct {
	UserName     string `json:"user_name"`
	ResponseText string `json:"response_text"`
}

// Validate checks the author name and response length
func (in StudyResponseInput) Validate() error {
	ve := &ValidationError{}
	checkRequired(ve, "user_name", in.UserName)
	checkLength(ve, "user_name", strings.TrimSpace(in.UserName), 100)
	checkRequired(ve, "response_text", in.ResponseText)
	checkLength(ve, "response_text", strings.TrimSpace(in.ResponseText), 5000)
	return ve.OrNil()
}

// StudyReaction is one user's reaction to a response
type StudyReaction struct {
	ID             int64     `json:"id"`
	ResponseID     int64     `json:"response_id"`
	UserIdentifier string    `json:"user_identifier"`
	ReactionType   string    `json:"reaction_type"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReactionInput identifies the reaction to toggle
type ReactionInput struct {
	UserIdentifier string `json:"user_identifier"`
	ReactionType   string `json:"reaction_type"`
}

// Validate checks the reacting user and reaction type
func (in ReactionInput) Validate() error {
	ve := &ValidationError{}
	checkRequired(ve, "user_identifier", in.UserIdentifier)
	checkLength(ve, "user_identifier", in.UserIdentifier, 100)
	if !IsReactionType(in.ReactionType) {
		ve.Add("reaction_type", "must be one of "+strings.Join(ReactionTypes, ", "))
	}
	return ve.OrNil()
}

// ReactionResult reports the outcome of a toggle
type ReactionResult struct {
	ResponseID   int64          `json:"response_id"`
	ReactionType string         `json:"reaction_type"`
	Active       bool           `json:"active"`
	Reactions    ReactionCounts `json:"reactions"`
}

const responseColumns = "id, study_id, user_name, response_text, flagged, hidden, created_at, updated_at"

// ResponseRepository stores study responses and their reactions
type ResponseRepository struct {
	db      *DB
	studies *StudyRepository
	now     Clock
}

// NewResponseRepository creates a response repository
func NewResponseRepository(db *DB) *ResponseRepository {
	return &ResponseRepository{db: db, studies: NewStudyRepository(db), now: utcNow}
}

// Create adds a response to a published study
func (r *ResponseRepository) Create(ctx context.Context, studyID int64, in StudyResponseInput) (*StudyResponse, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := r.studies.GetPublished(ctx, studyID); err != nil {
		return nil, err
	}

	now := r.now()
	resp := &StudyResponse{
		StudyID:      studyID,
		UserName:     strings.TrimSpace(in.UserName),
		ResponseText: strings.TrimSpace(in.ResponseText),
		CreatedAt:    now,
		UpdatedAt:    now,
		Reactions:    newReactionCounts(),
	}

	query := r.db.Rebind(`INSERT INTO study_responses
(study_id, user_name, response_text, flagged, hidden, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := r.db.QueryRowContext(ctx, query,
		resp.StudyID, resp.UserName, resp.ResponseText, false, false, resp.CreatedAt, resp.UpdatedAt,
	).Scan(&resp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create response: %w", ConvertDBError(err))
	}

	return resp, nil
}

// ListVisible returns the non-hidden responses of a published study, oldest
// first, with reaction counts
func (r *ResponseRepository) ListVisible(ctx context.Context, studyID int64, page Page) ([]*StudyResponse, error) {
	if _, err := r.studies.GetPublished(ctx, studyID); err != nil {
		return nil, err
	}
	page = page.Normalize()

	query := r.db.Rebind("SELECT " + responseColumns + " FROM study_responses WHERE study_id = ? AND hidden = ? ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?")
	rows, err := r.db.QueryContext(ctx, query, studyID, false, page.Limit, page.Skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", ConvertDBError(err))
	}
	defer rows.Close()

	responses := make([]*StudyResponse, 0)
	byID := make(map[int64]*StudyResponse)
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
		byID[resp.ID] = resp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating responses: %w", err)
	}
	rows.Close()

	if len(responses) == 0 {
		return responses, nil
	}

	countQuery := r.db.Rebind(`SELECT r.response_id, r.reaction_type, COUNT(*)
FROM study_reactions r
JOIN study_responses s ON s.id = r.response_id
WHERE s.study_id = ?
GROUP BY r.response_id, r.reaction_type`)
	countRows, err := r.db.QueryContext(ctx, countQuery, studyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count reactions: %w", ConvertDBError(err))
	}
	defer countRows.Close()

	for countRows.Next() {
		var (
			responseID   int64
			reactionType string
			count        int
		)
		if err := countRows.Scan(&responseID, &reactionType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan reaction count: %w", err)
		}
		if resp, ok := byID[responseID]; ok {
			resp.Reactions[reactionType] = count
		}
	}
	if err := countRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reaction counts: %w", err)
	}

	return responses, nil
}

// Get returns a response with its reaction counts
func (r *ResponseRepository) Get(ctx context.Context, id int64) (*StudyResponse, error) {
	query := r.db.Rebind("SELECT " + responseColumns + " FROM study_responses WHERE id = ?")
	resp, err := scanResponse(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	counts, err := r.reactionCounts(ctx, r.db.DB, id)
	if err != nil {
		return nil, err
	}
	resp.Reactions = counts
	return resp, nil
}

// Flag marks a response for moderator review. Hidden responses report
// ErrNotFound, as they do on every public route.
func (r *ResponseRepository) Flag(ctx context.Context, id int64) (*StudyResponse, error) {
	return r.setFlag(ctx, id, "flagged", "hidden = ?", false)
}

// Hide removes a response from public listings
func (r *ResponseRepository) Hide(ctx context.Context, id int64) (*StudyResponse, error) {
	return r.setFlag(ctx, id, "hidden", "")
}

func (r *ResponseRepository) setFlag(ctx context.Context, id int64, column, cond string, condArgs ...any) (*StudyResponse, error) {
	query := "UPDATE study_responses SET " + column + " = ?, updated_at = ? WHERE id = ?"
	if cond != "" {
		query += " AND " + cond
	}
	args := append([]any{true, r.now(), id}, condArgs...)
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update response: %w", ConvertDBError(err))
	}
	if err := requireAffected(result); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// ToggleReaction adds the reaction, or removes it when the user already
// reacted with that type. Hidden responses cannot be reacted to.
func (r *ResponseRepository) ToggleReaction(ctx context.Context, responseID int64, in ReactionInput) (*ReactionResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	result := &ReactionResult{ResponseID: responseID, ReactionType: in.ReactionType}
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var hidden bool
		err := tx.QueryRowContext(ctx, r.db.Rebind("SELECT hidden FROM study_responses WHERE id = ?"), responseID).Scan(&hidden)
		if err != nil {
			return ConvertDBError(err)
		}
		if hidden {
			return ErrNotFound
		}

		deleted, err := tx.ExecContext(ctx, r.db.Rebind(
			"DELETE FROM study_reactions WHERE response_id = ? AND user_identifier = ? AND reaction_type = ?"),
			responseID, in.UserIdentifier, in.ReactionType)
		if err != nil {
			return fmt.Errorf("failed to remove reaction: %w", ConvertDBError(err))
		}
		n, err := deleted.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if n == 0 {
			_, err := tx.ExecContext(ctx, r.db.Rebind(
				"INSERT INTO study_reactions (response_id, user_identifier, reaction_type, created_at) VALUES (?, ?, ?, ?)"),
				responseID, in.UserIdentifier, in.ReactionType, r.now())
			if err != nil {
				return fmt.Errorf("failed to add reaction: %w", ConvertDBError(err))
			}
			result.Active = true
		}

		result.Reactions, err = r.reactionCounts(ctx, tx, responseID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *ResponseRepository) reactionCounts(ctx context.Context, q querier, responseID int64) (ReactionCounts, error) {
	rows, err := q.QueryContext(ctx, r.db.Rebind(
		"SELECT reaction_type, COUNT(*) FROM study_reactions WHERE response_id = ? GROUP BY reaction_type"), responseID)
	if err != nil {
		return nil, fmt.Errorf("failed to count reactions: %w", ConvertDBError(err))
	}
	defer rows.Close()

	counts := newReactionCounts()
	for rows.Next() {
		var (
			reactionType string
			count        int
		)
		if err := rows.Scan(&reactionType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan reaction count: %w", err)
		}
		counts[reactionType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reaction counts: %w", err)
	}
	return counts, nil
}

func scanResponse(row rowScanner) (*StudyResponse, error) {
	resp := &StudyResponse{Reactions: newReactionCounts()}
	err := row.Scan(&resp.ID, &resp.StudyID, &resp.UserName, &resp.ResponseText,
		&resp.Flagged, &resp.Hidden, &resp.CreatedAt, &resp.UpdatedAt)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return resp, nil
}

package scripture

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
	defaultConcurrency = 4
)

// SearchRequest is a free-text or reference query
type SearchRequest struct {
	Query   string `json:"query"`
	BibleID string `json:"bible_id,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// VerseContent is a verse as returned to clients
type VerseContent struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`
	Content   string `json:"content"`
}

// SearchResult pairs a verse with the bible it came from
type SearchResult struct {
	Verse     VerseContent `json:"verse"`
	BibleID   string       `json:"bible_id"`
	BibleName string       `json:"bible_name"`
}

// Searcher resolves queries by trying a direct reference lookup, then the
// well-known verse table, then a generic text search
type Searcher struct {
	client      *Client
	catalog     *Catalog
	concurrency int
	logger      *zap.Logger
}

// NewSearcher creates a searcher fetching at most concurrency verses at once
func NewSearcher(client *Client, catalog *Catalog, concurrency int, logger *zap.Logger) *Searcher {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{
		client:      client,
		catalog:     catalog,
		concurrency: concurrency,
		logger:      logger.Named("search"),
	}
}

// ClampLimit applies the default and bounds of a search limit
func ClampLimit(limit int) int {
	if limit <= 0 {
		return defaultSearchLimit
	}
	if limit > maxSearchLimit {
		return maxSearchLimit
	}
	return limit
}

// Search runs the query. Upstream failures degrade to fewer results; an
// error is returned only when the context ends or no API key is configured.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return []SearchResult{}, nil
	}
	if !s.client.Configured() {
		return nil, ErrMissingAPIKey
	}
	limit := ClampLimit(req.Limit)

	bibleID := strings.TrimSpace(req.BibleID)
	if bibleID == "" {
		id, err := s.catalog.DefaultBibleID(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.logger.Warn("no default bible", zap.Error(err))
			return []SearchResult{}, nil
		}
		bibleID = id
	}

	var verses []VerseContent
	if ref, err := ParseReference(query); err == nil {
		verses = s.searchReference(ctx, bibleID, query, ref, limit)
	} else {
		verses = s.searchText(ctx, bibleID, query, limit)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(verses))
	if len(verses) == 0 {
		return results, nil
	}

	bibleName := s.catalog.BibleName(ctx, bibleID)
	for _, v := range verses {
		results = append(results, SearchResult{Verse: v, BibleID: bibleID, BibleName: bibleName})
	}
	return results, nil
}

func (s *Searcher) searchReference(ctx context.Context, bibleID, query string, ref *Reference, limit int) []VerseContent {
	log := s.logger.With(zap.String("reference", ref.String()), zap.String("bible_id", bibleID))

	if verses := s.fetchDirect(ctx, bibleID, ref, limit); len(verses) > 0 {
		log.Debug("resolved by direct fetch", zap.Int("verses", len(verses)))
		return verses
	}
	if ctx.Err() != nil {
		return nil
	}

	if verses := s.famousFallback(ctx, bibleID, ref, limit); len(verses) > 0 {
		log.Debug("resolved by well-known verse fallback", zap.Int("verses", len(verses)))
		return verses
	}
	if ctx.Err() != nil {
		return nil
	}

	hits := s.textSearch(ctx, bibleID, query, limit)
	verses := make([]VerseContent, 0, len(hits))
	for _, hit := range hits {
		// "John 3" must never return verses from 1 John
		if hitBookID(hit) != ref.BookID {
			continue
		}
		verses = append(verses, toVerseContent(hit))
	}
	log.Debug("resolved by generic search", zap.Int("verses", len(verses)))
	return verses
}

func (s *Searcher) searchText(ctx context.Context, bibleID, query string, limit int) []VerseContent {
	var verses []VerseContent
	seen := make(map[string]bool)

	if f, ok := famousByPhrase(query); ok {
		if v := s.fetchVerse(ctx, bibleID, f.id()); v != nil {
			verses = append(verses, *v)
			seen[v.ID] = true
		}
	}

	for _, hit := range s.textSearch(ctx, bibleID, query, limit) {
		if len(verses) >= limit {
			break
		}
		if seen[hit.ID] {
			continue
		}
		seen[hit.ID] = true
		verses = append(verses, toVerseContent(hit))
	}
	return verses
}

// fetchDirect fetches the verses a reference names. Chapter references list
// the chapter's verses, falling back to probing 1..limit, and always include
// the chapter's well-known verses.
func (s *Searcher) fetchDirect(ctx context.Context, bibleID string, ref *Reference, limit int) []VerseContent {
	var ids []string
	if ref.IsChapter() {
		summaries, err := s.client.ListChapterVerses(ctx, bibleID, ref.ChapterID())
		if err != nil {
			s.logger.Debug("chapter listing failed, probing verses", zap.String("chapter", ref.ChapterID()), zap.Error(err))
			for v := 1; v <= limit; v++ {
				ids = append(ids, verseID(ref.BookID, ref.Chapter, v))
			}
		} else {
			for _, summary := range summaries {
				if len(ids) >= limit {
					break
				}
				ids = append(ids, summary.ID)
			}
		}

		present := make(map[string]bool, len(ids))
		for _, id := range ids {
			present[id] = true
		}
		for _, v := range chapterHighlights(ref.BookID, ref.Chapter) {
			if id := verseID(ref.BookID, ref.Chapter, v); !present[id] {
				ids = append(ids, id)
			}
		}
	} else {
		ids = ref.VerseIDs()
		if len(ids) > limit {
			ids = ids[:limit]
		}
	}

	return s.fetchVerses(ctx, bibleID, ids)
}

// famousFallback searches the key phrase of the well-known verse a reference
// points at and keeps hits that are that verse
func (s *Searcher) famousFallback(ctx context.Context, bibleID string, ref *Reference, limit int) []VerseContent {
	f, ok := famousByReference(ref)
	if !ok {
		return nil
	}

	var verses []VerseContent
	for _, hit := range s.textSearch(ctx, bibleID, f.KeyPhrase, maxSearchLimit) {
		if hit.ID == f.id() {
			verses = append(verses, toVerseContent(hit))
			break
		}
	}
	if len(verses) > limit {
		verses = verses[:limit]
	}
	return verses
}

// fetchVerses fetches ids through a bounded pool and returns the verses that
// exist, ordered by chapter and verse
func (s *Searcher) fetchVerses(ctx context.Context, bibleID string, ids []string) []VerseContent {
	if len(ids) == 0 {
		return nil
	}

	p := pool.NewWithResults[*VerseContent]().WithMaxGoroutines(s.concurrency)
	for _, id := range ids {
		id := id
		p.Go(func() *VerseContent {
			return s.fetchVerse(ctx, bibleID, id)
		})
	}

	var verses []VerseContent
	for _, v := range p.Wait() {
		if v != nil {
			verses = append(verses, *v)
		}
	}

	sort.SliceStable(verses, func(i, j int) bool {
		_, ci, vi, _ := parseVerseID(verses[i].ID)
		_, cj, vj, _ := parseVerseID(verses[j].ID)
		if ci != cj {
			return ci < cj
		}
		return vi < vj
	})
	return verses
}

func (s *Searcher) fetchVerse(ctx context.Context, bibleID, id string) *VerseContent {
	if ctx.Err() != nil {
		return nil
	}
	verse, err := s.client.GetVerse(ctx, bibleID, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && ctx.Err() == nil {
			s.logger.Warn("verse fetch failed", zap.String("verse_id", id), zap.Error(err))
		}
		return nil
	}
	return &VerseContent{ID: verse.ID, Reference: verse.Reference, Content: verse.Content}
}

func (s *Searcher) textSearch(ctx context.Context, bibleID, query string, limit int) []SearchVerse {
	if ctx.Err() != nil {
		return nil
	}
	resp, err := s.client.SearchText(ctx, bibleID, query, limit)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("text search failed", zap.String("query", query), zap.Error(err))
		}
		return nil
	}
	return resp.Verses
}

func hitBookID(hit SearchVerse) string {
	if hit.BookID != "" {
		return hit.BookID
	}
	bookID, _, _, _ := parseVerseID(hit.ID)
	return bookID
}

func toVerseContent(hit SearchVerse) VerseContent {
	return VerseContent{ID: hit.ID, Reference: hit.Reference, Content: hit.Text}
}

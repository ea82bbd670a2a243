package scripture

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// ErrNotReference is returned when a query is not a scripture reference
var ErrNotReference = errors.New("not a scripture reference")

// Reference is a parsed scripture reference. Verse is 0 for a whole chapter;
// VerseEnd is greater than Verse for a range.
type Reference struct {
	Book     string `json:"book"`
	BookID   string `json:"book_id"`
	Chapter  int    `json:"chapter"`
	Verse    int    `json:"verse,omitempty"`
	VerseEnd int    `json:"verse_end,omitempty"`
}

// referenceAST is the grammar of "Book Chapter[:Verse[-VerseEnd]]"
type referenceAST struct {
	Book     string `@Book`
	Chapter  int    `@Number`
	Verse    *int   `( ":" @Number`
	VerseEnd *int   `  ( "-" @Number )? )?`
}

// referenceLexer tokenizes scripture references. A leading digit belongs to
// the book only when letters follow it ("1 John"), so "John 3" lexes as a
// book and a number.
var referenceLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Book", Pattern: `(?:[1-3]\s*)?[A-Za-z]+(?:\s+(?:of\s+)?[A-Za-z]+)*\.?`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Dash", Pattern: `-`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var referenceParser = participle.MustBuild[referenceAST](
	participle.Lexer(referenceLexer),
	participle.Elide("Whitespace"),
)

var (
	dotBetweenDigits = regexp.MustCompile(`(\d)\s*\.\s*(\d)`)
	dotAfterBook     = regexp.MustCompile(`([A-Za-z])\.(\d)`)
	rangeDashes      = strings.NewReplacer("–", "-", "—", "-")
)

// normalizeSeparators rewrites "Gen.1.1" and "John 3.16" into colon form
// and unifies range dashes
func normalizeSeparators(input string) string {
	s := rangeDashes.Replace(strings.TrimSpace(input))
	s = dotAfterBook.ReplaceAllString(s, "$1 $2")
	return dotBetweenDigits.ReplaceAllString(s, "$1:$2")
}

// ParseReference parses query as a scripture reference. It returns
// ErrNotReference when the book is unknown or no chapter is given.
func ParseReference(query string) (*Reference, error) {
	normalized := normalizeSeparators(query)
	if normalized == "" {
		return nil, ErrNotReference
	}

	ast, err := referenceParser.ParseString("", normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotReference, query)
	}

	b, ok := LookupBook(ast.Book)
	if !ok {
		return nil, fmt.Errorf("%w: unknown book %q", ErrNotReference, ast.Book)
	}

	ref := &Reference{Book: b.Name, BookID: b.ID, Chapter: ast.Chapter}
	if ast.Verse != nil {
		ref.Verse = *ast.Verse
	}
	if ast.VerseEnd != nil {
		ref.VerseEnd = *ast.VerseEnd
	}
	// "Jude 3" is a verse; "Jude 1" stays the whole book
	if ast.Verse == nil && b.SingleChapter() && ref.Chapter > 1 {
		ref.Chapter, ref.Verse = 1, ast.Chapter
	}

	if ref.Chapter <= 0 || (ast.Verse != nil && ref.Verse <= 0) {
		return nil, fmt.Errorf("%w: chapter and verse must be positive", ErrNotReference)
	}
	if ast.VerseEnd != nil && ref.VerseEnd < ref.Verse {
		return nil, fmt.Errorf("%w: range end %d before start %d", ErrNotReference, ref.VerseEnd, ref.Verse)
	}
	if ref.VerseEnd == ref.Verse {
		ref.VerseEnd = 0
	}

	return ref, nil
}

// IsReference reports whether query parses as a scripture reference
func IsReference(query string) bool {
	_, err := ParseReference(query)
	return err == nil
}

// IsChapter reports whether the reference names a whole chapter
func (r Reference) IsChapter() bool {
	return r.Verse == 0
}

// IsRange reports whether the reference spans several verses
func (r Reference) IsRange() bool {
	return r.VerseEnd > r.Verse && r.Verse > 0
}

// String returns the canonical form, e.g. "1 John 4:9" or "John 3"
func (r Reference) String() string {
	s := fmt.Sprintf("%s %d", r.Book, r.Chapter)
	if r.Verse > 0 {
		s += fmt.Sprintf(":%d", r.Verse)
	}
	if r.IsRange() {
		s += fmt.Sprintf("-%d", r.VerseEnd)
	}
	return s
}

// ChapterID returns the API id of the chapter, e.g. "JHN.3"
func (r Reference) ChapterID() string {
	return fmt.Sprintf("%s.%d", r.BookID, r.Chapter)
}

// VerseID returns the API id of the first verse, e.g. "JHN.3.16". For a
// chapter reference it returns the chapter id.
func (r Reference) VerseID() string {
	if r.Verse == 0 {
		return r.ChapterID()
	}
	return verseID(r.BookID, r.Chapter, r.Verse)
}

// VerseIDs returns the API ids of every verse in a verse or range reference
func (r Reference) VerseIDs() []string {
	if r.Verse == 0 {
		return nil
	}
	end := r.Verse
	if r.IsRange() {
		end = r.VerseEnd
	}
	ids := make([]string, 0, end-r.Verse+1)
	for v := r.Verse; v <= end; v++ {
		ids = append(ids, verseID(r.BookID, r.Chapter, v))
	}
	return ids
}

func verseID(bookID string, chapter, verse int) string {
	return fmt.Sprintf("%s.%d.%d", bookID, chapter, verse)
}

// parseVerseID splits an API verse id such as "1JN.4.9"
func parseVerseID(id string) (bookID string, chapter, verse int, ok bool) {
	parts := strings.Split(id, ".")
	if len(parts) != 3 {
		return "", 0, 0, false
	}
	chapter, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, false
	}
	verse, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, 0, false
	}
	return parts[0], chapter, verse, true
}

package scripture

import "strings"

// famousVerse is a well-known verse and a phrase that finds it by text search
type famousVerse struct {
	BookID    string
	Chapter   int
	Verse     int
	KeyPhrase string
}

func (f famousVerse) id() string {
	return verseID(f.BookID, f.Chapter, f.Verse)
}

// Key phrases are worded to match across the common English translations
var famousVerses = []famousVerse{
	{"JHN", 3, 16, "God so loved the world"},
	{"PSA", 23, 1, "The Lord is my shepherd"},
	{"JER", 29, 11, "plans I have for you"},
	{"PHP", 4, 13, "I can do all things"},
	{"ROM", 8, 28, "work together for good"},
	{"PRO", 3, 5, "Trust in the Lord with all your heart"},
	{"ISA", 40, 31, "renew their strength"},
	{"JOS", 1, 9, "Be strong and courageous"},
	{"MAT", 11, 28, "all you who labor"},
	{"1JN", 4, 8, "God is love"},
	{"2CO", 12, 9, "My grace is sufficient"},
	{"GEN", 1, 1, "In the beginning God created"},
	{"1CO", 13, 4, "Love is patient"},
}

// famousByReference finds the well-known verse a reference points at. A
// chapter reference matches the first well-known verse of that chapter.
func famousByReference(ref *Reference) (famousVerse, bool) {
	for _, f := range famousVerses {
		if f.BookID != ref.BookID || f.Chapter != ref.Chapter {
			continue
		}
		if ref.Verse == 0 || f.Verse == ref.Verse || (ref.IsRange() && f.Verse >= ref.Verse && f.Verse <= ref.VerseEnd) {
			return f, true
		}
	}
	return famousVerse{}, false
}

// famousByPhrase finds a well-known verse whose key phrase appears in query
func famousByPhrase(query string) (famousVerse, bool) {
	q := strings.ToLower(strings.Join(strings.Fields(query), " "))
	for _, f := range famousVerses {
		if strings.Contains(q, strings.ToLower(f.KeyPhrase)) {
			return f, true
		}
	}
	return famousVerse{}, false
}

// chapterHighlights returns the well-known verse numbers of a chapter
func chapterHighlights(bookID string, chapter int) []int {
	var verses []int
	for _, f := range famousVerses {
		if f.BookID == bookID && f.Chapter == chapter {
			verses = append(verses, f.Verse)
		}
	}
	return verses
}

package scripture

import (
	"regexp"
	"strconv"
	"strings"
)

// Testament names
const (
	OldTestament = "OT"
	NewTestament = "NT"
)

// Book is a canonical book of the protestant canon with its USFM id
type Book struct {
	ID        string
	Name      string
	Testament string
	Aliases   []string
	number    int      // 1, 2 or 3 for numbered books
	base      []string // aliases without the number prefix
}

func book(id, name, testament string, aliases ...string) Book {
	return Book{ID: id, Name: name, Testament: testament, Aliases: aliases}
}

func numbered(id string, n int, name, testament string, base ...string) Book {
	return Book{ID: id, Name: name, Testament: testament, number: n, base: base}
}

// singleChapter lists the books with one chapter, where "Jude 3" means verse 3
var singleChapter = map[string]bool{"OBA": true, "PHM": true, "2JN": true, "3JN": true, "JUD": true}

// SingleChapter reports whether the book has only one chapter
func (b Book) SingleChapter() bool {
	return singleChapter[b.ID]
}

var books = []Book{
	book("GEN", "Genesis", OldTestament, "gen", "ge", "gn"),
	book("EXO", "Exodus", OldTestament, "exod", "exo", "ex"),
	book("LEV", "Leviticus", OldTestament, "lev", "le", "lv"),
	book("NUM", "Numbers", OldTestament, "num", "nu", "nm", "nb"),
	book("DEU", "Deuteronomy", OldTestament, "deut", "deu", "dt"),
	book("JOS", "Joshua", OldTestament, "josh", "jos", "jsh"),
	book("JDG", "Judges", OldTestament, "judg", "jdg", "jg", "jdgs"),
	book("RUT", "Ruth", OldTestament, "rth", "ru"),
	numbered("1SA", 1, "1 Samuel", OldTestament, "samuel", "sam", "sa", "sm"),
	numbered("2SA", 2, "2 Samuel", OldTestament, "samuel", "sam", "sa", "sm"),
	numbered("1KI", 1, "1 Kings", OldTestament, "kings", "kgs", "ki", "kin"),
	numbered("2KI", 2, "2 Kings", OldTestament, "kings", "kgs", "ki", "kin"),
	numbered("1CH", 1, "1 Chronicles", OldTestament, "chronicles", "chron", "chr", "ch"),
	numbered("2CH", 2, "2 Chronicles", OldTestament, "chronicles", "chron", "chr", "ch"),
	book("EZR", "Ezra", OldTestament, "ezr", "ez"),
	book("NEH", "Nehemiah", OldTestament, "neh", "ne"),
	book("EST", "Esther", OldTestament, "esth", "est", "es"),
	book("JOB", "Job", OldTestament, "jb"),
	book("PSA", "Psalms", OldTestament, "psalm", "ps", "psa", "pss", "psm"),
	book("PRO", "Proverbs", OldTestament, "prov", "pro", "prv", "pr"),
	book("ECC", "Ecclesiastes", OldTestament, "eccles", "eccl", "ecc", "ec", "qoheleth"),
	book("SNG", "Song of Solomon", OldTestament, "song of songs", "song", "sos", "canticles", "cant", "sng"),
	book("ISA", "Isaiah", OldTestament, "isa", "is"),
	book("JER", "Jeremiah", OldTestament, "jer", "je", "jr"),
	book("LAM", "Lamentations", OldTestament, "lam", "la"),
	book("EZK", "Ezekiel", OldTestament, "ezek", "eze", "ezk"),
	book("DAN", "Daniel", OldTestament, "dan", "da", "dn"),
	book("HOS", "Hosea", OldTestament, "hos", "ho"),
	book("JOL", "Joel", OldTestament, "jl", "jol"),
	book("AMO", "Amos", OldTestament, "am", "amo"),
	book("OBA", "Obadiah", OldTestament, "obad", "ob", "oba"),
	book("JON", "Jonah", OldTestament, "jnh", "jon"),
	book("MIC", "Micah", OldTestament, "mic", "mc"),
	book("NAM", "Nahum", OldTestament, "nah", "na", "nam"),
	book("HAB", "Habakkuk", OldTestament, "hab", "hb"),
	book("ZEP", "Zephaniah", OldTestament, "zeph", "zep", "zp"),
	book("HAG", "Haggai", OldTestament, "hag", "hg"),
	book("ZEC", "Zechariah", OldTestament, "zech", "zec", "zc"),
	book("MAL", "Malachi", OldTestament, "mal", "ml"),
	book("MAT", "Matthew", NewTestament, "matt", "mat", "mt"),
	book("MRK", "Mark", NewTestament, "mrk", "mar", "mk", "mr"),
	book("LUK", "Luke", NewTestament, "luk", "lk"),
	book("JHN", "John", NewTestament, "jhn", "jn", "joh"),
	book("ACT", "Acts", NewTestament, "act", "ac", "acts of the apostles"),
	book("ROM", "Romans", NewTestament, "rom", "ro", "rm"),
	numbered("1CO", 1, "1 Corinthians", NewTestament, "corinthians", "cor", "co"),
	numbered("2CO", 2, "2 Corinthians", NewTestament, "corinthians", "cor", "co"),
	book("GAL", "Galatians", NewTestament, "gal", "ga"),
	book("EPH", "Ephesians", NewTestament, "eph", "ephes"),
	book("PHP", "Philippians", NewTestament, "phil", "php", "pp"),
	book("COL", "Colossians", NewTestament, "col"),
	numbered("1TH", 1, "1 Thessalonians", NewTestament, "thessalonians", "thess", "thes", "th"),
	numbered("2TH", 2, "2 Thessalonians", NewTestament, "thessalonians", "thess", "thes", "th"),
	numbered("1TI", 1, "1 Timothy", NewTestament, "timothy", "tim", "ti"),
	numbered("2TI", 2, "2 Timothy", NewTestament, "timothy", "tim", "ti"),
	book("TIT", "Titus", NewTestament, "tit"),
	book("PHM", "Philemon", NewTestament, "philem", "phm", "pm"),
	book("HEB", "Hebrews", NewTestament, "heb"),
	book("JAS", "James", NewTestament, "jas", "jm"),
	numbered("1PE", 1, "1 Peter", NewTestament, "peter", "pet", "pe", "pt"),
	numbered("2PE", 2, "2 Peter", NewTestament, "peter", "pet", "pe", "pt"),
	numbered("1JN", 1, "1 John", NewTestament, "john", "jhn", "jn", "jo", "joh"),
	numbered("2JN", 2, "2 John", NewTestament, "john", "jhn", "jn", "jo", "joh"),
	numbered("3JN", 3, "3 John", NewTestament, "john", "jhn", "jn", "jo", "joh"),
	book("JUD", "Jude", NewTestament, "jud", "jd"),
	book("REV", "Revelation", NewTestament, "rev", "re", "revelations", "the revelation"),
}

// bookIndex maps every normalized name and alias to its book
var bookIndex = buildBookIndex()

var booksByID = func() map[string]Book {
	m := make(map[string]Book, len(books))
	for _, b := range books {
		m[b.ID] = b
	}
	return m
}()

func buildBookIndex() map[string]Book {
	idx := make(map[string]Book, len(books)*6)
	for i := range books {
		b := &books[i]
		if b.number > 0 {
			prefix := strconv.Itoa(b.number) + " "
			for _, alias := range b.base {
				b.Aliases = append(b.Aliases, prefix+alias)
			}
		}
		idx[normalizeBookName(b.Name)] = *b
		idx[normalizeBookName(b.ID)] = *b
		for _, alias := range b.Aliases {
			idx[normalizeBookName(alias)] = *b
		}
	}
	return idx
}

var (
	ordinalPrefix  = regexp.MustCompile(`^(iii|ii|i|first|second|third|1st|2nd|3rd)\s+`)
	digitLetter    = regexp.MustCompile(`^([1-3])\s*([a-z])`)
	collapseSpaces = regexp.MustCompile(`\s+`)
)

var ordinals = map[string]string{
	"i": "1", "first": "1", "1st": "1",
	"ii": "2", "second": "2", "2nd": "2",
	"iii": "3", "third": "3", "3rd": "3",
}

// normalizeBookName lowercases a book name, drops a trailing period and
// rewrites ordinal prefixes so "I John", "First John" and "1John" all become
// "1 john".
func normalizeBookName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimSuffix(n, ".")
	n = collapseSpaces.ReplaceAllString(n, " ")

	if m := ordinalPrefix.FindStringSubmatch(n); m != nil {
		n = ordinals[m[1]] + " " + n[len(m[0]):]
	}
	n = digitLetter.ReplaceAllString(n, "$1 $2")
	return n
}

// LookupBook resolves a book name or abbreviation. Matching is by whole
// normalized name, so "John" never resolves to "1 John".
func LookupBook(name string) (Book, bool) {
	b, ok := bookIndex[normalizeBookName(name)]
	return b, ok
}

// BookByID returns the book with the given USFM id
func BookByID(id string) (Book, bool) {
	b, ok := booksByID[strings.ToUpper(id)]
	return b, ok
}

// Books returns the canonical books in order
func Books() []Book {
	out := make([]Book, len(books))
	copy(out, books)
	return out
}

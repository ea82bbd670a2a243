package scripture

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// BibleVersion is the public description of a translation
type BibleVersion struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Language     string `json:"language"`
	LanguageID   string `json:"language_id"`
	Abbreviation string `json:"abbreviation"`
	Description  string `json:"description,omitempty"`
}

// English translations shown first, in this order. A bible matches by
// abbreviation or by name.
var preferredEnglish = []struct {
	abbreviation string
	name         string
}{
	{"WEB", "world english bible"},
	{"BSB", "berean standard bible"},
	{"ASV", "american standard version"},
	{"KJV", "king james"},
}

const englishLanguageID = "eng"

// ErrNoBibles is returned when the API offers no English bible to default to
var ErrNoBibles = errors.New("scripture: no english bibles available")

// Catalog lists the bibles offered by the API
type Catalog struct {
	client         *Client
	defaultBibleID string
}

// NewCatalog creates a catalog. defaultBibleID overrides the automatic
// choice of the first preferred English bible when set.
func NewCatalog(client *Client, defaultBibleID string) *Catalog {
	return &Catalog{client: client, defaultBibleID: defaultBibleID}
}

// EnglishBibles returns English bibles with the preferred translations first
// and the rest sorted by name
func (c *Catalog) EnglishBibles(ctx context.Context) ([]BibleVersion, error) {
	bibles, err := c.client.ListBibles(ctx)
	if err != nil {
		return nil, err
	}

	var english []Bible
	for _, b := range bibles {
		if b.Language.ID == englishLanguageID {
			english = append(english, b)
		}
	}
	return toVersions(orderEnglish(english)), nil
}

// SupportedBibles returns every bible: the English group first, ordered as
// EnglishBibles, then the other languages alphabetically by language name
// with bibles sorted by name inside each language
func (c *Catalog) SupportedBibles(ctx context.Context) ([]BibleVersion, error) {
	bibles, err := c.client.ListBibles(ctx)
	if err != nil {
		return nil, err
	}

	byLanguage := make(map[string][]Bible)
	names := make(map[string]string)
	for _, b := range bibles {
		byLanguage[b.Language.ID] = append(byLanguage[b.Language.ID], b)
		names[b.Language.ID] = b.Language.Name
	}

	var others []string
	for id := range byLanguage {
		if id != englishLanguageID {
			others = append(others, id)
		}
	}
	sort.Slice(others, func(i, j int) bool {
		ni, nj := strings.ToLower(names[others[i]]), strings.ToLower(names[others[j]])
		if ni != nj {
			return ni < nj
		}
		return others[i] < others[j]
	})

	ordered := orderEnglish(byLanguage[englishLanguageID])
	for _, id := range others {
		group := byLanguage[id]
		sortByName(group)
		ordered = append(ordered, group...)
	}
	return toVersions(ordered), nil
}

// DefaultBibleID returns the configured default or the first English bible
func (c *Catalog) DefaultBibleID(ctx context.Context) (string, error) {
	if c.defaultBibleID != "" {
		return c.defaultBibleID, nil
	}
	english, err := c.EnglishBibles(ctx)
	if err != nil {
		return "", err
	}
	if len(english) == 0 {
		return "", ErrNoBibles
	}
	return english[0].ID, nil
}

// BibleName returns the display name of a bible, or "Unknown Bible"
func (c *Catalog) BibleName(ctx context.Context, bibleID string) string {
	b, err := c.client.GetBible(ctx, bibleID)
	if err != nil || b == nil || b.Name == "" {
		return "Unknown Bible"
	}
	return b.Name
}

func preferredRank(b Bible) int {
	name := strings.ToLower(b.Name)
	for i, p := range preferredEnglish {
		if strings.EqualFold(b.Abbreviation, p.abbreviation) || strings.EqualFold(b.AbbreviationLocal, p.abbreviation) {
			return i
		}
		if strings.Contains(name, p.name) {
			return i
		}
	}
	return -1
}

func orderEnglish(bibles []Bible) []Bible {
	var preferred, rest []Bible
	for _, b := range bibles {
		if preferredRank(b) >= 0 {
			preferred = append(preferred, b)
		} else {
			rest = append(rest, b)
		}
	}
	sort.SliceStable(preferred, func(i, j int) bool {
		ri, rj := preferredRank(preferred[i]), preferredRank(preferred[j])
		if ri != rj {
			return ri < rj
		}
		return preferred[i].Name < preferred[j].Name
	})
	sortByName(rest)
	return append(preferred, rest...)
}

func sortByName(bibles []Bible) {
	sort.SliceStable(bibles, func(i, j int) bool {
		return bibles[i].Name < bibles[j].Name
	})
}

func toVersions(bibles []Bible) []BibleVersion {
	out := make([]BibleVersion, 0, len(bibles))
	for _, b := range bibles {
		out = append(out, BibleVersion{
			ID:           b.ID,
			Name:         b.Name,
			Language:     b.Language.Name,
			LanguageID:   b.Language.ID,
			Abbreviation: b.Abbreviation,
			Description:  b.Description,
		})
	}
	return out
}

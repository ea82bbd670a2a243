package scripture

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// CleanVerseText strips markup from verse content, decodes entities and
// collapses whitespace
func CleanVerseText(text string) string {
	stripped := stripPolicy.Sanitize(text)
	return strings.Join(strings.Fields(html.UnescapeString(stripped)), " ")
}

package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// StripHTML removes all HTML tags and attributes, returning plain text. Used
// to normalize HTML email bodies before storage: the pipeline stores text
// only, so every tag goes, unconditionally.
func StripHTML(input string) string {
	stripped := stripPolicy.Sanitize(input)
	// bluemonday escapes entities on the way out; stored text should carry
	// the literal characters.
	return strings.TrimSpace(html.UnescapeString(stripped))
}

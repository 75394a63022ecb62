// Package sanitize normalizes user-supplied recipe text before it is stored.
package sanitize

import (
	"strings"
	"unicode"

	recipeapp "github.com/resepku/backend/internal/application/recipe"
	"golang.org/x/text/unicode/norm"
)

var _ recipeapp.TextSanitizer = (*PlainText)(nil)

// PlainText keeps recipe text as typed. Markup characters are ordinary text
// here; the JSON encoder escapes them on the way out and clients escape them
// again when rendering. It is safe for concurrent use.
type PlainText struct{}

// NewPlainText creates the recipe text normalizer
func NewPlainText() *PlainText {
	return &PlainText{}
}

// Text composes s to NFC and drops control characters other than tab, CR
// and LF. Invalid UTF-8 becomes U+FFFD.
func (p *PlainText) Text(s string) string {
	if s == "" {
		return s
	}
	s = strings.Map(keepPrintable, s)
	return norm.NFC.String(s)
}

func keepPrintable(r rune) rune {
	switch r {
	case '\t', '\n', '\r':
		return r
	}
	if unicode.IsControl(r) {
		return -1
	}
	return r
}

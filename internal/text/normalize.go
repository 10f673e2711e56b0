// Package text turns raw review text into normalized, whitespace-delimited tokens.
package text

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Punctuation is the fixed set of characters removed by Normalize.
const Punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// IsPunct reports whether r belongs to the Punctuation set.
func IsPunct(r rune) bool {
	return r < 0x80 && strings.ContainsRune(Punctuation, r)
}

// Normalize lower-cases s and deletes every Punctuation rune. Newlines and all
// other whitespace are left untouched, so review boundaries survive.
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	// cases.Caser keeps per-call state, so it is not shared between goroutines.
	lower := cases.Lower(language.Und).String(s)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

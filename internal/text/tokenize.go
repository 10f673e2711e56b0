package text

import (
	"strings"
	"unicode"
)

// ReviewSeparator delimits reviews in a corpus file.
const ReviewSeparator = "\n"

// SplitReviews splits a normalized corpus into reviews. A trailing separator
// yields a final empty review; callers drop empty reviews after encoding.
func SplitReviews(corpus string) []string {
	return strings.Split(corpus, ReviewSeparator)
}

// Tokenize splits a review on runs of whitespace. It never returns empty tokens.
func Tokenize(review string) []string {
	return strings.FieldsFunc(review, unicode.IsSpace)
}

// TokenizeAll tokenizes every review, preserving positions.
func TokenizeAll(reviews []string) [][]string {
	out := make([][]string, len(reviews))
	for i, r := range reviews {
		out[i] = Tokenize(r)
	}

	return out
}

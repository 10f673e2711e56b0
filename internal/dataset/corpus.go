// Package dataset turns a raw review corpus into an aligned, packed feature
// matrix and label vector, and splits and batches the result.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/go-sentiment/internal/text"
)

// PositiveLabel is the only raw label string that encodes to 1.
const PositiveLabel = "positive"

// ErrCorpusMismatch is returned when the review and label files disagree in length.
var ErrCorpusMismatch = errors.New("dataset: review and label counts differ")

// Corpus is a normalized review list aligned index-for-index with raw labels.
type Corpus struct {
	Reviews []string
	Labels  []string
}

// Len returns the number of review/label pairs.
func (c Corpus) Len() int { return len(c.Reviews) }

// NewCorpus normalizes rawReviews as a whole, splits both inputs on the
// review separator and checks that the counts agree.
func NewCorpus(rawReviews, rawLabels string) (Corpus, error) {
	reviews := text.SplitReviews(text.Normalize(rawReviews))
	labels := strings.Split(rawLabels, text.ReviewSeparator)

	if len(reviews) != len(labels) {
		return Corpus{}, fmt.Errorf("%w: %d reviews, %d labels", ErrCorpusMismatch, len(reviews), len(labels))
	}

	return Corpus{Reviews: reviews, Labels: labels}, nil
}

// ReadCorpus reads both streams fully and builds a Corpus.
func ReadCorpus(reviews, labels io.Reader) (Corpus, error) {
	rawReviews, err := io.ReadAll(reviews)
	if err != nil {
		return Corpus{}, fmt.Errorf("dataset: read reviews: %w", err)
	}

	rawLabels, err := io.ReadAll(labels)
	if err != nil {
		return Corpus{}, fmt.Errorf("dataset: read labels: %w", err)
	}

	return NewCorpus(string(rawReviews), string(rawLabels))
}

// LoadCorpus reads the review and label files.
func LoadCorpus(reviewsPath, labelsPath string) (Corpus, error) {
	rawReviews, err := os.ReadFile(reviewsPath)
	if err != nil {
		return Corpus{}, fmt.Errorf("dataset: read reviews %s: %w", reviewsPath, err)
	}

	rawLabels, err := os.ReadFile(labelsPath)
	if err != nil {
		return Corpus{}, fmt.Errorf("dataset: read labels %s: %w", labelsPath, err)
	}

	return NewCorpus(string(rawReviews), string(rawLabels))
}

// EncodeLabel maps a raw label to 1 when it is exactly "positive" and 0
// otherwise. No trimming or case folding is applied.
func EncodeLabel(raw string) int64 {
	if raw == PositiveLabel {
		return 1
	}
	return 0
}

// EncodeLabels applies EncodeLabel to every label.
func EncodeLabels(raw []string) []int64 {
	out := make([]int64, len(raw))
	for i, l := range raw {
		out[i] = EncodeLabel(l)
	}
	return out
}

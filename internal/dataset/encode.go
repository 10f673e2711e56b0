package dataset

import (
	"fmt"

	"github.com/example/go-sentiment/internal/vocab"
)

// EncodeReviews encodes every tokenized review against v. An unknown token
// fails the whole call; the returned error wraps *vocab.UnknownTokenError.
func EncodeReviews(reviews [][]string, v *vocab.Vocabulary) ([][]int, error) {
	out := make([][]int, len(reviews))
	for i, tokens := range reviews {
		ids, err := v.Encode(tokens)
		if err != nil {
			return nil, fmt.Errorf("dataset: review %d: %w", i, err)
		}
		out[i] = ids
	}

	return out, nil
}

// FilterEmpty drops every position whose sequence is empty from both slices
// in one pass, keeping them aligned. The inputs are not modified.
func FilterEmpty(seqs [][]int, labels []int64) ([][]int, []int64) {
	if len(seqs) != len(labels) {
		panic(fmt.Sprintf("dataset: FilterEmpty with %d sequences and %d labels", len(seqs), len(labels)))
	}

	keptSeqs := make([][]int, 0, len(seqs))
	keptLabels := make([]int64, 0, len(labels))

	for i, ids := range seqs {
		if len(ids) == 0 {
			continue
		}
		keptSeqs = append(keptSeqs, ids)
		keptLabels = append(keptLabels, labels[i])
	}

	return keptSeqs, keptLabels
}

// Stats summarizes encoded review lengths.
type Stats struct {
	Reviews    int
	ZeroLength int
	MaxLength  int
	MeanLength float64
}

// Describe computes length statistics over seqs.
func Describe(seqs [][]int) Stats {
	s := Stats{Reviews: len(seqs)}
	total := 0

	for _, ids := range seqs {
		n := len(ids)
		if n == 0 {
			s.ZeroLength++
		}
		if n > s.MaxLength {
			s.MaxLength = n
		}
		total += n
	}

	if len(seqs) > 0 {
		s.MeanLength = float64(total) / float64(len(seqs))
	}

	return s
}

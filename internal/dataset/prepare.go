package dataset

import (
	"fmt"

	"github.com/example/go-sentiment/internal/sequence"
	"github.com/example/go-sentiment/internal/text"
	"github.com/example/go-sentiment/internal/vocab"
)

// Dataset is a packed feature matrix with one label per row.
type Dataset struct {
	Features *sequence.Matrix
	Labels   []int64
}

// Len returns the number of rows.
func (d Dataset) Len() int { return len(d.Labels) }

// SeqLength returns the packed row width.
func (d Dataset) SeqLength() int {
	if d.Features == nil {
		return 0
	}
	return d.Features.Cols
}

// Slice returns rows [lo, hi) sharing storage with d.
func (d Dataset) Slice(lo, hi int) Dataset {
	cols := d.SeqLength()
	return Dataset{
		Features: &sequence.Matrix{Rows: hi - lo, Cols: cols, Data: d.Features.Data[lo*cols : hi*cols]},
		Labels:   d.Labels[lo:hi],
	}
}

// Gather copies the rows at idx, in order, into a new Dataset.
func (d Dataset) Gather(idx []int) Dataset {
	cols := d.SeqLength()
	out := Dataset{
		Features: sequence.NewMatrix(len(idx), cols),
		Labels:   make([]int64, len(idx)),
	}

	for i, row := range idx {
		copy(out.Features.Row(i), d.Features.Row(row))
		out.Labels[i] = d.Labels[row]
	}

	return out
}

// Validate checks that features and labels agree.
func (d Dataset) Validate() error {
	if d.Features == nil {
		return fmt.Errorf("dataset: missing features")
	}
	if err := d.Features.Validate(); err != nil {
		return err
	}
	if d.Features.Rows != len(d.Labels) {
		return fmt.Errorf("dataset: %d feature rows but %d labels", d.Features.Rows, len(d.Labels))
	}
	return nil
}

// Prepared is the output of the full preprocessing pipeline.
type Prepared struct {
	Vocab *vocab.Vocabulary
	Data  Dataset
	// Stats describes the encoded reviews before empty ones were dropped.
	Stats Stats
}

// Prepare tokenizes the corpus, builds the vocabulary, encodes every review,
// drops empty reviews together with their labels and packs the rest to
// seqLen columns.
func Prepare(c Corpus, seqLen int) (*Prepared, error) {
	if seqLen <= 0 {
		return nil, fmt.Errorf("dataset: %w: %d", sequence.ErrInvalidLength, seqLen)
	}

	if len(c.Reviews) != len(c.Labels) {
		return nil, fmt.Errorf("%w: %d reviews, %d labels", ErrCorpusMismatch, len(c.Reviews), len(c.Labels))
	}

	tokens := text.TokenizeAll(c.Reviews)

	v, err := vocab.Build(tokens)
	if err != nil {
		return nil, fmt.Errorf("dataset: build vocabulary: %w", err)
	}

	seqs, err := EncodeReviews(tokens, v)
	if err != nil {
		return nil, err
	}

	stats := Describe(seqs)
	seqs, labels := FilterEmpty(seqs, EncodeLabels(c.Labels))

	features, err := sequence.Pack(seqs, seqLen)
	if err != nil {
		return nil, err
	}

	return &Prepared{
		Vocab: v,
		Data:  Dataset{Features: features, Labels: labels},
		Stats: stats,
	}, nil
}

// Package classifier defines the model surface used by inference and
// provides a native embedding + LSTM binary sentiment classifier.
package classifier

import (
	"context"

	"github.com/example/go-sentiment/internal/sequence"
)

// Scorer maps each row of a packed id matrix to a probability in [0, 1]
// that the review is positive.
type Scorer interface {
	Score(ctx context.Context, m *sequence.Matrix) ([]float64, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, m *sequence.Matrix) ([]float64, error)

func (f ScorerFunc) Score(ctx context.Context, m *sequence.Matrix) ([]float64, error) {
	return f(ctx, m)
}

// Threshold is the score at and above which a review is positive.
const Threshold = 0.5

// IsPositive applies Threshold, rounding a score of exactly 0.5 up.
func IsPositive(score float64) bool {
	return score >= Threshold
}

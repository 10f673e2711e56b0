// Package predict classifies a single raw review using a vocabulary and a
// Scorer.
package predict

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/go-sentiment/internal/classifier"
	"github.com/example/go-sentiment/internal/sequence"
	"github.com/example/go-sentiment/internal/text"
	"github.com/example/go-sentiment/internal/vocab"
)

type Sentiment int

const (
	Negative Sentiment = iota
	Positive
)

func (s Sentiment) String() string {
	if s == Positive {
		return "POSITIVE"
	}

	return "NEGATIVE"
}

func (s Sentiment) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Decide maps a score to a Sentiment. A score of exactly 0.5 is Positive.
func Decide(score float64) Sentiment {
	if classifier.IsPositive(score) {
		return Positive
	}

	return Negative
}

type Prediction struct {
	Sentiment Sentiment `json:"sentiment"`
	Score     float64   `json:"score"`
	// Tokens is the review length in tokens before packing.
	Tokens int `json:"tokens"`
}

type Predictor struct {
	Vocab     *vocab.Vocabulary
	Scorer    classifier.Scorer
	SeqLength int
}

var errNotConfigured = errors.New("predict: predictor needs a vocabulary, a scorer and a positive sequence length")

// Predict normalizes, tokenizes and strictly encodes review, then scores it.
// A token missing from the vocabulary fails with *vocab.UnknownTokenError
// before the scorer is called.
func (p *Predictor) Predict(ctx context.Context, review string) (Prediction, error) {
	if p.Vocab == nil || p.Scorer == nil || p.SeqLength <= 0 {
		return Prediction{}, errNotConfigured
	}

	tokens := text.Tokenize(text.Normalize(review))

	ids, err := p.Vocab.Encode(tokens)
	if err != nil {
		return Prediction{}, err
	}

	m := &sequence.Matrix{Rows: 1, Cols: p.SeqLength, Data: sequence.PackRow(ids, p.SeqLength)}

	scores, err := p.Scorer.Score(ctx, m)
	if err != nil {
		return Prediction{}, fmt.Errorf("score review: %w", err)
	}

	if len(scores) != 1 {
		return Prediction{}, fmt.Errorf("score review: scorer returned %d scores for 1 row", len(scores))
	}

	return Prediction{
		Sentiment: Decide(scores[0]),
		Score:     scores[0],
		Tokens:    len(tokens),
	}, nil
}

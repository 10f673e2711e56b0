package train

import (
	"context"
	"fmt"

	"github.com/example/go-sentiment/internal/classifier"
	"github.com/example/go-sentiment/internal/dataset"
)

// Metrics are aggregate results over a labelled dataset.
type Metrics struct {
	Count    int
	Loss     float64
	Accuracy float64
}

// Evaluate scores d in batches of batchSize and reports the mean binary
// cross entropy and the accuracy of classifier.IsPositive decisions.
func Evaluate(ctx context.Context, s classifier.Scorer, d dataset.Dataset, batchSize int) (Metrics, error) {
	if d.Len() == 0 {
		return Metrics{}, nil
	}

	var lossSum float64
	correct := 0

	for _, idx := range dataset.Batches(d, batchSize, nil) {
		batch := d.Gather(idx)

		scores, err := s.Score(ctx, batch.Features)
		if err != nil {
			return Metrics{}, err
		}
		if len(scores) != len(idx) {
			return Metrics{}, fmt.Errorf("train: scorer returned %d scores for %d rows", len(scores), len(idx))
		}

		lossSum += classifier.BCE(scores, batch.Labels) * float64(len(idx))
		for i, p := range scores {
			if classifier.IsPositive(p) == (batch.Labels[i] == 1) {
				correct++
			}
		}
	}

	n := d.Len()
	return Metrics{
		Count:    n,
		Loss:     lossSum / float64(n),
		Accuracy: float64(correct) / float64(n),
	}, nil
}

// Package train fits the native classifier on a packed dataset and evaluates
// any classifier.Scorer against labelled data.
package train

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/example/go-sentiment/internal/classifier"
	"github.com/example/go-sentiment/internal/dataset"
)

// Options controls the training loop.
type Options struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	// Clip is the maximum global gradient norm; 0 disables clipping.
	Clip float64
	// PrintEvery is the number of steps between validation passes.
	PrintEvery int
	Seed       uint64
}

// DefaultOptions mirrors the reference training run.
func DefaultOptions() Options {
	return Options{
		Epochs:       4,
		BatchSize:    50,
		LearningRate: 0.001,
		Clip:         5,
		PrintEvery:   100,
		Seed:         1,
	}
}

func (o Options) validate() error {
	switch {
	case o.Epochs < 1:
		return fmt.Errorf("train: epochs must be positive, got %d", o.Epochs)
	case o.BatchSize < 1:
		return fmt.Errorf("train: batch size must be positive, got %d", o.BatchSize)
	case o.LearningRate <= 0:
		return fmt.Errorf("train: learning rate must be positive, got %g", o.LearningRate)
	case o.Clip < 0:
		return fmt.Errorf("train: clip must not be negative, got %g", o.Clip)
	case o.PrintEvery < 1:
		return fmt.Errorf("train: print interval must be positive, got %d", o.PrintEvery)
	}
	return nil
}

// Checkpoint is one validation pass during training.
type Checkpoint struct {
	Epoch   int
	Step    int
	Loss    float64
	ValLoss float64
}

// History summarizes a training run.
type History struct {
	Steps       int
	Checkpoints []Checkpoint
	// LastLoss is the training loss of the final batch.
	LastLoss float64
	Elapsed  time.Duration
}

// Train runs opts.Epochs passes over trainSet in shuffled batches, updating m
// with Adam and gradient clipping. Every opts.PrintEvery steps the validation
// loss is computed and logged; an empty validation set skips that pass.
// Cancellation is checked between batches.
func Train(ctx context.Context, m *classifier.Model, trainSet, val dataset.Dataset, opts Options, logger *slog.Logger) (History, error) {
	if err := opts.validate(); err != nil {
		return History{}, err
	}
	if trainSet.Len() == 0 {
		return History{}, errors.New("train: empty training set")
	}
	if logger == nil {
		logger = slog.Default()
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x7a1e))
	opt := classifier.NewAdam(opts.LearningRate)
	start := time.Now()

	var hist History

	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		for _, idx := range dataset.Batches(trainSet, opts.BatchSize, rng) {
			if err := ctx.Err(); err != nil {
				hist.Elapsed = time.Since(start)
				return hist, err
			}

			batch := trainSet.Gather(idx)

			m.ZeroGrad()
			tape, err := m.Forward(ctx, batch.Features, true)
			if err != nil {
				return hist, fmt.Errorf("train: step %d: %w", hist.Steps+1, err)
			}

			loss, err := m.Backward(tape, batch.Labels)
			if err != nil {
				return hist, fmt.Errorf("train: step %d: %w", hist.Steps+1, err)
			}

			m.ClipGradients(opts.Clip)
			opt.Step(m)

			hist.Steps++
			hist.LastLoss = loss

			if hist.Steps%opts.PrintEvery != 0 || val.Len() == 0 {
				continue
			}

			metrics, err := Evaluate(ctx, m, val, opts.BatchSize)
			if err != nil {
				return hist, fmt.Errorf("train: validation at step %d: %w", hist.Steps, err)
			}

			hist.Checkpoints = append(hist.Checkpoints, Checkpoint{
				Epoch:   epoch,
				Step:    hist.Steps,
				Loss:    loss,
				ValLoss: metrics.Loss,
			})

			logger.Info("training progress",
				"epoch", fmt.Sprintf("%d/%d", epoch, opts.Epochs),
				"step", hist.Steps,
				"loss", loss,
				"val_loss", metrics.Loss,
				"val_accuracy", metrics.Accuracy,
			)
		}
	}

	hist.Elapsed = time.Since(start)
	logger.Debug("training finished", "steps", hist.Steps, "elapsed", hist.Elapsed)

	return hist, nil
}

package classifier

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("classifier: invalid config")

// Config describes the network shape and regularization.
type Config struct {
	VocabSize    int
	EmbeddingDim int
	HiddenDim    int
	Layers       int
	DropProb     float64
	FCDropProb   float64
	Seed         uint64
}

// DefaultConfig returns the reference architecture for a vocabulary whose
// embedding table needs vocabSize rows (vocab.Vocabulary.Size).
func DefaultConfig(vocabSize int) Config {
	return Config{
		VocabSize:    vocabSize,
		EmbeddingDim: 400,
		HiddenDim:    256,
		Layers:       2,
		DropProb:     0.5,
		FCDropProb:   0.3,
		Seed:         1,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.VocabSize < 1:
		return fmt.Errorf("%w: vocab size %d", ErrInvalidConfig, c.VocabSize)
	case c.EmbeddingDim < 1:
		return fmt.Errorf("%w: embedding dim %d", ErrInvalidConfig, c.EmbeddingDim)
	case c.HiddenDim < 1:
		return fmt.Errorf("%w: hidden dim %d", ErrInvalidConfig, c.HiddenDim)
	case c.Layers < 1:
		return fmt.Errorf("%w: layers %d", ErrInvalidConfig, c.Layers)
	case c.DropProb < 0 || c.DropProb >= 1:
		return fmt.Errorf("%w: drop prob %g", ErrInvalidConfig, c.DropProb)
	case c.FCDropProb < 0 || c.FCDropProb >= 1:
		return fmt.Errorf("%w: fc drop prob %g", ErrInvalidConfig, c.FCDropProb)
	}
	return nil
}

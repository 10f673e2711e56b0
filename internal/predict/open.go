package predict

import (
	"fmt"
	"io"

	"github.com/example/go-sentiment/internal/classifier"
	"github.com/example/go-sentiment/internal/config"
	"github.com/example/go-sentiment/internal/onnx"
	"github.com/example/go-sentiment/internal/vocab"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds a Predictor from configuration: the vocabulary file plus
// either the native checkpoint or the ONNX graph. The returned Closer
// releases backend resources.
func Open(cfg config.Config) (*Predictor, io.Closer, error) {
	v, err := vocab.Load(cfg.Paths.Vocab)
	if err != nil {
		return nil, nil, err
	}

	backend, err := config.NormalizeBackend(cfg.Runtime.Backend)
	if err != nil {
		return nil, nil, err
	}

	var (
		scorer classifier.Scorer
		closer io.Closer = nopCloser{}
	)

	switch backend {
	case config.BackendNative:
		m, err := classifier.Load(cfg.Paths.Model)
		if err != nil {
			return nil, nil, err
		}

		if got, want := m.Config().VocabSize, v.Size(); got != want {
			return nil, nil, fmt.Errorf("checkpoint %s expects vocabulary size %d, %s has %d",
				cfg.Paths.Model, got, cfg.Paths.Vocab, want)
		}

		scorer = m
	case config.BackendONNX:
		c, err := onnx.OpenClassifier(cfg.Runtime, cfg.Paths.ONNXModel)
		if err != nil {
			return nil, nil, err
		}

		scorer, closer = c, c
	}

	return &Predictor{Vocab: v, Scorer: scorer, SeqLength: cfg.Pipeline.SequenceLength}, closer, nil
}

package onnx

import (
	"context"
	"fmt"
	"math"

	"github.com/example/go-sentiment/internal/classifier"
	"github.com/example/go-sentiment/internal/config"
	"github.com/example/go-sentiment/internal/sequence"
)

// GraphRunner executes one ONNX graph. *Runner is the production
// implementation.
type GraphRunner interface {
	Run(ctx context.Context, inputs map[string]*Tensor) (map[string]*Tensor, error)
	Close()
}

type ClassifierOptions struct {
	Input  string
	Output string
	// ApplySigmoid treats the output as logits.
	ApplySigmoid bool
}

// Classifier scores packed id matrices with an exported sentiment graph
// taking int64 [B, L] ids and producing float32 [B] or [B, 1] scores.
type Classifier struct {
	runner GraphRunner
	opts   ClassifierOptions
}

var _ classifier.Scorer = (*Classifier)(nil)

func NewClassifier(r GraphRunner, opts ClassifierOptions) *Classifier {
	if opts.Input == "" {
		opts.Input = "input_ids"
	}

	if opts.Output == "" {
		opts.Output = "score"
	}

	return &Classifier{runner: r, opts: opts}
}

// OpenClassifier detects the ORT library and loads the graph at modelPath.
func OpenClassifier(rt config.RuntimeConfig, modelPath string) (*Classifier, error) {
	info, err := DetectRuntime(rt)
	if err != nil {
		return nil, err
	}

	r, err := NewRunner(Graph{Name: "classifier", Path: modelPath}, RunnerConfig{
		LibraryPath: info.LibraryPath,
		APIVersion:  rt.ORTAPIVersion,
	})
	if err != nil {
		return nil, err
	}

	return NewClassifier(r, ClassifierOptions{
		Input:        rt.ONNXInput,
		Output:       rt.ONNXOutput,
		ApplySigmoid: rt.ONNXLogits,
	}), nil
}

func (c *Classifier) Score(ctx context.Context, m *sequence.Matrix) ([]float64, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	if m.Rows == 0 {
		return []float64{}, nil
	}

	in, err := NewTensor(m.Data, []int64{int64(m.Rows), int64(m.Cols)})
	if err != nil {
		return nil, fmt.Errorf("onnx classifier input: %w", err)
	}

	outputs, err := c.runner.Run(ctx, map[string]*Tensor{c.opts.Input: in})
	if err != nil {
		return nil, err
	}

	out, ok := outputs[c.opts.Output]
	if !ok {
		return nil, fmt.Errorf("onnx classifier: graph has no output %q", c.opts.Output)
	}

	if err := checkScoreShape(out.Shape(), m.Rows); err != nil {
		return nil, err
	}

	raw, err := ExtractFloat32(out)
	if err != nil {
		return nil, fmt.Errorf("onnx classifier output %q: %w", c.opts.Output, err)
	}

	scores := make([]float64, len(raw))
	for i, v := range raw {
		s := float64(v)
		if c.opts.ApplySigmoid {
			s = sigmoid(s)
		}

		if math.IsNaN(s) || s < 0 || s > 1 {
			return nil, fmt.Errorf("onnx classifier: row %d score %g outside [0,1] (logit output needs ApplySigmoid)", i, s)
		}

		scores[i] = s
	}

	return scores, nil
}

func (c *Classifier) Close() error {
	c.runner.Close()
	return nil
}

func checkScoreShape(shape []int64, rows int) error {
	switch {
	case len(shape) == 1 && shape[0] == int64(rows):
		return nil
	case len(shape) == 2 && shape[0] == int64(rows) && shape[1] == 1:
		return nil
	default:
		return fmt.Errorf("onnx classifier: output shape %v, want [%d] or [%d 1]", shape, rows, rows)
	}
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}

	e := math.Exp(x)

	return e / (1 + e)
}

package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/example/go-sentiment/internal/sequence"
)

// ErrTokenOutOfRange is returned for an id outside the embedding table.
var ErrTokenOutOfRange = errors.New("classifier: token id out of range")

// param is a trainable matrix with its gradient accumulator.
type param struct {
	name string
	w    *mat.Dense
	grad *mat.Dense
}

func newParam(name string, r, c int) *param {
	return &param{
		name: name,
		w:    mat.NewDense(r, c, nil),
		grad: mat.NewDense(r, c, nil),
	}
}

func (p *param) data() []float64 { return p.w.RawMatrix().Data }

func (p *param) gradData() []float64 { return p.grad.RawMatrix().Data }

// lstmLayer holds one LSTM layer. The four gate blocks are packed along the
// columns in input, forget, cell, output order.
type lstmLayer struct {
	wx *param // in x 4H
	wh *param // H x 4H
	b  *param // 1 x 4H
}

// Model is an embedding table feeding stacked LSTM layers, followed by a
// dropout, a dense H->1 layer and a sigmoid on the last time step.
//
// Score and Forward in eval mode do not mutate the model and may run
// concurrently. Training (Forward with train=true, Backward, optimizer
// steps) must be serialized by the caller.
type Model struct {
	cfg    Config
	runID  string
	embed  *param
	layers []lstmLayer
	fcW    *param // H x 1
	fcB    *param // 1 x 1
	params []*param
	rng    *rand.Rand
}

// New initializes a model with seeded random weights. Embeddings are drawn
// from N(0, 1); LSTM and dense weights from U(-k, k) with k = 1/sqrt(fan).
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := newModel(cfg)

	wrng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5eed))
	embed := m.embed.data()
	for i := range embed {
		embed[i] = wrng.NormFloat64()
	}

	k := 1 / math.Sqrt(float64(cfg.HiddenDim))
	for _, l := range m.layers {
		uniform(wrng, l.wx.data(), k)
		uniform(wrng, l.wh.data(), k)
		uniform(wrng, l.b.data(), k)
	}
	uniform(wrng, m.fcW.data(), k)
	uniform(wrng, m.fcB.data(), k)

	return m, nil
}

// newModel allocates a zeroed model.
func newModel(cfg Config) *Model {
	h := cfg.HiddenDim
	m := &Model{
		cfg:   cfg,
		runID: uuid.NewString(),
		embed: newParam("embedding.weight", cfg.VocabSize, cfg.EmbeddingDim),
		fcW:   newParam("fc.weight", h, 1),
		fcB:   newParam("fc.bias", 1, 1),
		rng:   rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1)),
	}

	m.params = append(m.params, m.embed)
	in := cfg.EmbeddingDim
	for i := 0; i < cfg.Layers; i++ {
		l := lstmLayer{
			wx: newParam(fmt.Sprintf("lstm.%d.wx", i), in, 4*h),
			wh: newParam(fmt.Sprintf("lstm.%d.wh", i), h, 4*h),
			b:  newParam(fmt.Sprintf("lstm.%d.bias", i), 1, 4*h),
		}
		m.layers = append(m.layers, l)
		m.params = append(m.params, l.wx, l.wh, l.b)
		in = h
	}
	m.params = append(m.params, m.fcW, m.fcB)

	return m
}

func uniform(rng *rand.Rand, dst []float64, k float64) {
	for i := range dst {
		dst[i] = (rng.Float64()*2 - 1) * k
	}
}

// Config returns the architecture the model was built with.
func (m *Model) Config() Config { return m.cfg }

// RunID identifies the training run that produced the weights.
func (m *Model) RunID() string { return m.runID }

// NumParams returns the number of trainable scalars.
func (m *Model) NumParams() int {
	n := 0
	for _, p := range m.params {
		n += len(p.data())
	}
	return n
}

// Score returns the positive-class probability for each row of ids.
func (m *Model) Score(ctx context.Context, ids *sequence.Matrix) ([]float64, error) {
	if ids.Rows == 0 {
		return []float64{}, nil
	}

	tape, err := m.Forward(ctx, ids, false)
	if err != nil {
		return nil, err
	}

	return tape.Probs, nil
}

// ZeroGrad clears every gradient accumulator.
func (m *Model) ZeroGrad() {
	for _, p := range m.params {
		p.grad.Zero()
	}
}

// GradNorm returns the global L2 norm over all gradients.
func (m *Model) GradNorm() float64 {
	sum := 0.0
	for _, p := range m.params {
		g := p.gradData()
		sum += floats.Dot(g, g)
	}
	return math.Sqrt(sum)
}

// ClipGradients rescales all gradients so their global L2 norm is at most
// maxNorm and returns the norm before clipping. A non-positive maxNorm
// disables clipping.
func (m *Model) ClipGradients(maxNorm float64) float64 {
	norm := m.GradNorm()
	if maxNorm <= 0 || norm <= maxNorm {
		return norm
	}

	scale := maxNorm / norm
	for _, p := range m.params {
		p.grad.Scale(scale, p.grad)
	}

	return norm
}

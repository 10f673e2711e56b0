package classifier

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/example/go-sentiment/internal/sequence"
)

// step caches one LSTM cell evaluation for backpropagation.
type step struct {
	x     *mat.Dense // B x in, after inter-layer dropout
	mask  *mat.Dense // dropout mask that produced x, nil when none
	hPrev *mat.Dense
	cPrev *mat.Dense
	gates *mat.Dense // B x 4H activated gates
	c     *mat.Dense
}

// Tape is the record of one forward pass. Only training tapes can be passed
// to Backward.
type Tape struct {
	// Probs holds one positive-class probability per batch row.
	Probs []float64

	train  bool
	ids    *sequence.Matrix
	steps  [][]step // [layer][t]
	last   *mat.Dense
	fcMask *mat.Dense
}

// Forward runs the network over a packed batch. The initial hidden and cell
// states are zero for every batch. In training mode dropout is applied and
// the intermediate activations are kept for Backward.
func (m *Model) Forward(ctx context.Context, ids *sequence.Matrix, train bool) (*Tape, error) {
	if err := ids.Validate(); err != nil {
		return nil, err
	}
	if ids.Rows == 0 || ids.Cols == 0 {
		return nil, fmt.Errorf("classifier: empty batch [%d %d]", ids.Rows, ids.Cols)
	}
	for _, id := range ids.Data {
		if id < 0 || id >= int64(m.cfg.VocabSize) {
			return nil, fmt.Errorf("%w: %d (embedding rows %d)", ErrTokenOutOfRange, id, m.cfg.VocabSize)
		}
	}

	batch, steps, hidden := ids.Rows, ids.Cols, m.cfg.HiddenDim
	tape := &Tape{train: train, ids: ids}
	if train {
		tape.steps = make([][]step, len(m.layers))
	}

	inputs := m.embedSteps(ids)
	for li, l := range m.layers {
		h := mat.NewDense(batch, hidden, nil)
		c := mat.NewDense(batch, hidden, nil)
		outs := make([]*mat.Dense, steps)

		for t := 0; t < steps; t++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			x := inputs[t]
			var mask *mat.Dense
			if li > 0 && train && m.cfg.DropProb > 0 {
				_, in := x.Dims()
				mask = m.dropoutMask(batch, in, m.cfg.DropProb)
				x = hadamard(x, mask)
			}

			gates, cNew, hNew := l.cell(x, h, c)
			if train {
				tape.steps[li] = append(tape.steps[li], step{
					x: x, mask: mask, hPrev: h, cPrev: c, gates: gates, c: cNew,
				})
			}

			h, c = hNew, cNew
			outs[t] = hNew
		}

		inputs = outs
	}

	last := inputs[steps-1]
	if train && m.cfg.FCDropProb > 0 {
		tape.fcMask = m.dropoutMask(batch, hidden, m.cfg.FCDropProb)
		last = hadamard(last, tape.fcMask)
	}
	tape.last = last

	var logits mat.Dense
	logits.Mul(last, m.fcW.w)
	bias := m.fcB.w.At(0, 0)

	tape.Probs = make([]float64, batch)
	for b := range tape.Probs {
		tape.Probs[b] = sigmoid(logits.At(b, 0) + bias)
	}

	return tape, nil
}

// embedSteps looks up the embeddings for every time step.
func (m *Model) embedSteps(ids *sequence.Matrix) []*mat.Dense {
	dim := m.cfg.EmbeddingDim
	table := m.embed.data()

	out := make([]*mat.Dense, ids.Cols)
	for t := range out {
		x := mat.NewDense(ids.Rows, dim, nil)
		xd := x.RawMatrix().Data
		for b := 0; b < ids.Rows; b++ {
			id := int(ids.Data[b*ids.Cols+t])
			copy(xd[b*dim:(b+1)*dim], table[id*dim:(id+1)*dim])
		}
		out[t] = x
	}

	return out
}

// cell advances one time step and returns the activated gates and the new
// cell and hidden states.
func (l lstmLayer) cell(x, h, c *mat.Dense) (gates, cNew, hNew *mat.Dense) {
	batch, hidden := h.Dims()

	gates = mat.NewDense(batch, 4*hidden, nil)
	gates.Mul(x, l.wx.w)

	var rec mat.Dense
	rec.Mul(h, l.wh.w)
	gates.Add(gates, &rec)

	cNew = mat.NewDense(batch, hidden, nil)
	hNew = mat.NewDense(batch, hidden, nil)

	bias := l.b.data()
	g := gates.RawMatrix().Data
	cp := c.RawMatrix().Data
	cd := cNew.RawMatrix().Data
	hd := hNew.RawMatrix().Data

	for r := 0; r < batch; r++ {
		row := g[r*4*hidden : (r+1)*4*hidden]
		for j := range row {
			row[j] += bias[j]
		}

		for j := 0; j < hidden; j++ {
			i := sigmoid(row[j])
			f := sigmoid(row[hidden+j])
			gg := math.Tanh(row[2*hidden+j])
			o := sigmoid(row[3*hidden+j])
			row[j], row[hidden+j], row[2*hidden+j], row[3*hidden+j] = i, f, gg, o

			k := r*hidden + j
			cd[k] = f*cp[k] + i*gg
			hd[k] = o * math.Tanh(cd[k])
		}
	}

	return gates, cNew, hNew
}

// dropoutMask draws an inverted dropout mask: each entry is 0 with
// probability p and 1/(1-p) otherwise.
func (m *Model) dropoutMask(r, c int, p float64) *mat.Dense {
	keep := 1 / (1 - p)
	mask := mat.NewDense(r, c, nil)
	d := mask.RawMatrix().Data
	for i := range d {
		if m.rng.Float64() >= p {
			d[i] = keep
		}
	}
	return mask
}

func hadamard(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.MulElem(a, b)
	return &out
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

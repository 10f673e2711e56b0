package classifier

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Backward accumulates the gradient of the mean binary cross entropy of tape
// against labels into the model's gradient buffers and returns the loss.
// Gradients add up across calls until ZeroGrad.
func (m *Model) Backward(tape *Tape, labels []int64) (float64, error) {
	if !tape.train {
		return 0, errors.New("classifier: backward needs a training tape")
	}

	batch := len(tape.Probs)
	if len(labels) != batch {
		return 0, fmt.Errorf("classifier: %d labels for batch of %d", len(labels), batch)
	}

	loss := BCE(tape.Probs, labels)
	hidden := m.cfg.HiddenDim
	steps := tape.ids.Cols

	// d loss / d logit for sigmoid + BCE.
	dz := mat.NewDense(batch, 1, nil)
	for b, p := range tape.Probs {
		dz.Set(b, 0, (p-float64(labels[b]))/float64(batch))
	}

	var gw mat.Dense
	gw.Mul(tape.last.T(), dz)
	m.fcW.grad.Add(m.fcW.grad, &gw)
	m.fcB.grad.Set(0, 0, m.fcB.grad.At(0, 0)+mat.Sum(dz))

	dLast := mat.NewDense(batch, hidden, nil)
	dLast.Mul(dz, m.fcW.w.T())
	if tape.fcMask != nil {
		dLast.MulElem(dLast, tape.fcMask)
	}

	// dOut[t] is the loss gradient w.r.t. the current layer's output at t.
	dOut := make([]*mat.Dense, steps)
	dOut[steps-1] = dLast

	for li := len(m.layers) - 1; li >= 0; li-- {
		l := m.layers[li]
		dIn := make([]*mat.Dense, steps)
		dh := mat.NewDense(batch, hidden, nil)
		dc := mat.NewDense(batch, hidden, nil)
		bgrad := l.b.gradData()

		for t := steps - 1; t >= 0; t-- {
			s := tape.steps[li][t]
			if dOut[t] != nil {
				dh.Add(dh, dOut[t])
			}

			dZ, dcPrev := s.backward(dh, dc)

			var gx, gh mat.Dense
			gx.Mul(s.x.T(), dZ)
			l.wx.grad.Add(l.wx.grad, &gx)
			gh.Mul(s.hPrev.T(), dZ)
			l.wh.grad.Add(l.wh.grad, &gh)

			zd := dZ.RawMatrix().Data
			width := len(bgrad)
			for r := 0; r < batch; r++ {
				floats.Add(bgrad, zd[r*width:(r+1)*width])
			}

			dx := new(mat.Dense)
			dx.Mul(dZ, l.wx.w.T())
			if s.mask != nil {
				dx.MulElem(dx, s.mask)
			}
			dIn[t] = dx

			dh = new(mat.Dense)
			dh.Mul(dZ, l.wh.w.T())
			dc = dcPrev
		}

		dOut = dIn
	}

	dim := m.cfg.EmbeddingDim
	eg := m.embed.gradData()
	for t, dx := range dOut {
		raw := dx.RawMatrix()
		for b := 0; b < batch; b++ {
			id := int(tape.ids.Data[b*steps+t])
			floats.Add(eg[id*dim:(id+1)*dim], raw.Data[b*raw.Stride:b*raw.Stride+dim])
		}
	}

	return loss, nil
}

// backward returns the gate pre-activation gradients and the gradient
// flowing into the previous cell state, given the gradients w.r.t. this
// step's hidden and cell outputs.
func (s step) backward(dh, dcNext *mat.Dense) (dZ, dcPrev *mat.Dense) {
	batch, hidden := dh.Dims()

	dZ = mat.NewDense(batch, 4*hidden, nil)
	dcPrev = mat.NewDense(batch, hidden, nil)

	g := s.gates.RawMatrix().Data
	c := s.c.RawMatrix().Data
	cp := s.cPrev.RawMatrix().Data
	dhr := dh.RawMatrix()
	dcr := dcNext.RawMatrix()
	dz := dZ.RawMatrix().Data
	dcp := dcPrev.RawMatrix().Data

	for r := 0; r < batch; r++ {
		gr := r * 4 * hidden
		for j := 0; j < hidden; j++ {
			k := r*hidden + j
			i, f, gg, o := g[gr+j], g[gr+hidden+j], g[gr+2*hidden+j], g[gr+3*hidden+j]
			dhv := dhr.Data[r*dhr.Stride+j]

			tc := math.Tanh(c[k])
			dcv := dcr.Data[r*dcr.Stride+j] + dhv*o*(1-tc*tc)

			dz[gr+j] = dcv * gg * i * (1 - i)
			dz[gr+hidden+j] = dcv * cp[k] * f * (1 - f)
			dz[gr+2*hidden+j] = dcv * i * (1 - gg*gg)
			dz[gr+3*hidden+j] = dhv * tc * o * (1 - o)
			dcp[k] = dcv * f
		}
	}

	return dZ, dcPrev
}

package classifier

import "math"

// Adam implements the Adam optimizer with bias-corrected moment estimates.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	t int
	m [][]float64
	v [][]float64
}

// NewAdam returns an optimizer with the usual defaults for the moment decay
// rates and epsilon.
func NewAdam(lr float64) *Adam {
	return &Adam{
		LearningRate: lr,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
	}
}

// Step applies one update to every parameter of model using its
// accumulated gradients. An optimizer must only be used with one model.
func (a *Adam) Step(model *Model) {
	if a.m == nil {
		a.m = make([][]float64, len(model.params))
		a.v = make([][]float64, len(model.params))
		for i, p := range model.params {
			a.m[i] = make([]float64, len(p.data()))
			a.v[i] = make([]float64, len(p.data()))
		}
	}

	a.t++
	bc1 := 1 - math.Pow(a.Beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.Beta2, float64(a.t))

	for i, p := range model.params {
		w, g := p.data(), p.gradData()
		m, v := a.m[i], a.v[i]

		for j := range w {
			m[j] = a.Beta1*m[j] + (1-a.Beta1)*g[j]
			v[j] = a.Beta2*v[j] + (1-a.Beta2)*g[j]*g[j]
			w[j] -= a.LearningRate * (m[j] / bc1) / (math.Sqrt(v[j]/bc2) + a.Epsilon)
		}
	}
}

// Steps returns the number of updates applied so far.
func (a *Adam) Steps() int { return a.t }

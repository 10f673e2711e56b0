package dataset

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidFractions is returned for split fractions that are negative,
// leave no training data or do not sum to one.
var ErrInvalidFractions = errors.New("dataset: invalid split fractions")

// Fractions are the train / validation / test proportions of a split.
type Fractions struct {
	Train float64
	Val   float64
	Test  float64
}

// DefaultFractions is the 80 / 10 / 10 split.
var DefaultFractions = Fractions{Train: 0.8, Val: 0.1, Test: 0.1}

// Validate checks that every fraction is non-negative, Train is positive and
// the three sum to 1.
func (f Fractions) Validate() error {
	if f.Train <= 0 || f.Val < 0 || f.Test < 0 {
		return fmt.Errorf("%w: %+v", ErrInvalidFractions, f)
	}
	if sum := f.Train + f.Val + f.Test; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("%w: sum is %g", ErrInvalidFractions, sum)
	}
	return nil
}

// Split partitions d by position without shuffling. Training takes the first
// int(n*Train) rows; the remainder is divided between validation and test in
// the ratio Val:Test, with validation rounded down.
func Split(d Dataset, f Fractions) (train, val, test Dataset, err error) {
	if err := f.Validate(); err != nil {
		return Dataset{}, Dataset{}, Dataset{}, err
	}

	n := d.Len()
	nTrain := int(float64(n) * f.Train)
	if nTrain > n {
		nTrain = n
	}

	rest := n - nTrain
	nVal := 0
	if f.Val+f.Test > 0 {
		nVal = int(float64(rest) * f.Val / (f.Val + f.Test))
	}

	return d.Slice(0, nTrain), d.Slice(nTrain, nTrain+nVal), d.Slice(nTrain+nVal, n), nil
}

package classifier

import "math"

// probEps keeps log() finite for saturated probabilities.
const probEps = 1e-12

// BCE is the mean binary cross entropy of probs against 0/1 labels.
func BCE(probs []float64, labels []int64) float64 {
	if len(probs) == 0 {
		return 0
	}

	sum := 0.0
	for i, p := range probs {
		p = math.Min(math.Max(p, probEps), 1-probEps)
		if labels[i] == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}

	return sum / float64(len(probs))
}

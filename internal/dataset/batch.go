package dataset

import "math/rand/v2"

// Batches partitions the row indices of d into batches of size rows; the last
// batch may be short. Indices are shuffled with rng when it is non-nil.
// A non-positive size yields a single batch.
func Batches(d Dataset, size int, rng *rand.Rand) [][]int {
	n := d.Len()
	if n == 0 {
		return nil
	}
	if size <= 0 || size > n {
		size = n
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	if rng != nil {
		rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	}

	batches := make([][]int, 0, (n+size-1)/size)
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		batches = append(batches, idx[lo:hi])
	}

	return batches
}

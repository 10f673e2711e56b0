// Package sequence packs variable-length id sequences into a fixed-width,
// left-padded integer matrix.
package sequence

import (
	"errors"
	"fmt"
)

// Pad is the value used for left padding. It matches vocab.PadID.
const Pad int64 = 0

// ErrInvalidLength is returned for a non-positive sequence length.
var ErrInvalidLength = errors.New("sequence: length must be positive")

// Matrix is a row-major Rows x Cols matrix of token ids.
type Matrix struct {
	Rows int
	Cols int
	Data []int64
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]int64, rows*cols)}
}

// Row returns row i as a view into Data.
func (m *Matrix) Row(i int) []int64 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// Validate checks that Data holds exactly Rows*Cols values.
func (m *Matrix) Validate() error {
	if m.Rows < 0 || m.Cols < 0 {
		return fmt.Errorf("sequence: negative shape [%d %d]", m.Rows, m.Cols)
	}
	if len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("sequence: shape [%d %d] needs %d values, have %d", m.Rows, m.Cols, m.Rows*m.Cols, len(m.Data))
	}
	return nil
}

// Pack builds a len(seqs) x length matrix. A sequence longer than length keeps
// its first length ids; a shorter one is left-padded with Pad.
func Pack(seqs [][]int, length int) (*Matrix, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}

	m := NewMatrix(len(seqs), length)
	for i, ids := range seqs {
		fill(m.Row(i), ids)
	}

	return m, nil
}

// PackRow packs a single sequence. It panics on a non-positive length;
// callers validate the configured length up front.
func PackRow(ids []int, length int) []int64 {
	if length <= 0 {
		panic(fmt.Sprintf("sequence: PackRow length %d", length))
	}

	row := make([]int64, length)
	fill(row, ids)

	return row
}

func fill(row []int64, ids []int) {
	length := len(row)
	if len(ids) >= length {
		for j := 0; j < length; j++ {
			row[j] = int64(ids[j])
		}
		return
	}

	offset := length - len(ids)
	for j, id := range ids {
		row[offset+j] = int64(id)
	}
}

// Trim strips leading padding from a packed row. For rows that were not
// truncated it recovers the original sequence.
func Trim(row []int64) []int64 {
	i := 0
	for i < len(row) && row[i] == Pad {
		i++
	}
	return row[i:]
}

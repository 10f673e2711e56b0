// Package safetensors reads and writes the safetensors container format:
// an 8-byte little-endian header length, a JSON header describing each tensor,
// then the raw little-endian tensor data.
package safetensors

import (
	"fmt"
	"math"
	"strings"
)

// DType is a safetensors element type.
type DType string

const (
	F64  DType = "F64"
	F32  DType = "F32"
	F16  DType = "F16"
	BF16 DType = "BF16"
	I64  DType = "I64"
	I32  DType = "I32"
)

// metadataKey is the reserved header entry holding string metadata.
const metadataKey = "__metadata__"

// Size returns the element width in bytes.
func (d DType) Size() (int, error) {
	switch d {
	case F64, I64:
		return 8, nil
	case F32, I32:
		return 4, nil
	case F16, BF16:
		return 2, nil
	default:
		return 0, fmt.Errorf("unsupported dtype %q", string(d))
	}
}

// IsFloat reports whether d decodes into Tensor.Floats.
func (d DType) IsFloat() bool {
	switch d {
	case F64, F32, F16, BF16:
		return true
	}
	return false
}

func parseDType(s string) (DType, error) {
	d := DType(strings.ToUpper(s))
	if _, err := d.Size(); err != nil {
		return "", err
	}
	return d, nil
}

// Tensor holds a single named tensor. Floating point dtypes decode into
// Floats and integer dtypes into Ints; exactly one of them is set.
type Tensor struct {
	Name   string
	DType  DType
	Shape  []int64
	Floats []float64
	Ints   []int64
}

// FloatTensor builds an F64 tensor.
func FloatTensor(name string, shape []int64, data []float64) Tensor {
	return Tensor{Name: name, DType: F64, Shape: shape, Floats: data}
}

// IntTensor builds an I64 tensor.
func IntTensor(name string, shape []int64, data []int64) Tensor {
	return Tensor{Name: name, DType: I64, Shape: shape, Ints: data}
}

// Len returns the number of stored elements.
func (t *Tensor) Len() int {
	if t.DType.IsFloat() {
		return len(t.Floats)
	}
	return len(t.Ints)
}

func shapeElementCount(shape []int64) (int64, error) {
	total := int64(1)

	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension %d", d)
		}

		if d == 0 {
			return 0, nil
		}

		if total > math.MaxInt64/d {
			return 0, fmt.Errorf("shape %v overflows element count", shape)
		}

		total *= d
	}

	return total, nil
}

func equalShape(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

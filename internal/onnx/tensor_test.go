package onnx

import (
	"reflect"
	"strings"
	"testing"
)

func TestNewTensor(t *testing.T) {
	t.Run("float32 ok", func(t *testing.T) {
		tt, err := NewTensor([]float32{1, 2, 3, 4}, []int64{2, 2})
		if err != nil {
			t.Fatalf("NewTensor failed: %v", err)
		}

		if tt.DType() != DTypeFloat32 {
			t.Fatalf("expected dtype float32, got %s", tt.DType())
		}

		if !reflect.DeepEqual(tt.Shape(), []int64{2, 2}) {
			t.Fatalf("unexpected shape: %v", tt.Shape())
		}

		got, err := ExtractFloat32(tt)
		if err != nil {
			t.Fatalf("ExtractFloat32 failed: %v", err)
		}

		if !reflect.DeepEqual(got, []float32{1, 2, 3, 4}) {
			t.Fatalf("unexpected data: %v", got)
		}
	})

	t.Run("int64 ok", func(t *testing.T) {
		tt, err := NewTensor([]int64{0, 0, 7, 3}, []int64{1, 4})
		if err != nil {
			t.Fatalf("NewTensor failed: %v", err)
		}

		got, err := ExtractInt64(tt)
		if err != nil {
			t.Fatalf("ExtractInt64 failed: %v", err)
		}

		if !reflect.DeepEqual(got, []int64{0, 0, 7, 3}) {
			t.Fatalf("unexpected data: %v", got)
		}

		if _, err := ExtractFloat32(tt); err == nil {
			t.Fatal("expected dtype error extracting float32 from int64 tensor")
		}
	})

	t.Run("shape mismatch", func(t *testing.T) {
		_, err := NewTensor([]int64{1, 2, 3}, []int64{2, 2})
		if err == nil {
			t.Fatal("expected shape mismatch error")
		}

		if !strings.Contains(err.Error(), "expects 4 elements, got 3") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("non-positive dim", func(t *testing.T) {
		if _, err := NewTensor([]float32{}, []int64{0, 3}); err == nil {
			t.Fatal("expected error for zero dimension")
		}
	})

	t.Run("copies input", func(t *testing.T) {
		src := []int64{1, 2}
		tt, err := NewTensor(src, []int64{2})
		if err != nil {
			t.Fatal(err)
		}

		src[0] = 99

		got, _ := ExtractInt64(tt)
		if got[0] != 1 {
			t.Fatalf("tensor aliases caller slice: %v", got)
		}
	})
}

func TestExtractNil(t *testing.T) {
	if _, err := ExtractFloat32(nil); err == nil {
		t.Error("ExtractFloat32(nil) should fail")
	}

	if _, err := ExtractInt64(nil); err == nil {
		t.Error("ExtractInt64(nil) should fail")
	}
}

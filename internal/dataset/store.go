package dataset

import (
	"fmt"
	"strconv"

	"github.com/example/go-sentiment/internal/safetensors"
	"github.com/example/go-sentiment/internal/sequence"
)

const (
	featuresTensor = "features"
	labelsTensor   = "labels"
)

// SaveDataset writes d as a safetensors file with an I64 "features" tensor
// of shape [N, L] and an I64 "labels" tensor of shape [N].
func SaveDataset(path string, d Dataset) error {
	if err := d.Validate(); err != nil {
		return err
	}

	rows, cols := int64(d.Features.Rows), int64(d.Features.Cols)
	tensors := []safetensors.Tensor{
		safetensors.IntTensor(featuresTensor, []int64{rows, cols}, d.Features.Data),
		safetensors.IntTensor(labelsTensor, []int64{rows}, d.Labels),
	}
	meta := map[string]string{
		"rows":            strconv.FormatInt(rows, 10),
		"sequence_length": strconv.FormatInt(cols, 10),
	}

	if err := safetensors.WriteFile(path, tensors, meta); err != nil {
		return fmt.Errorf("dataset: save: %w", err)
	}

	return nil
}

// LoadDataset reads a file written by SaveDataset.
func LoadDataset(path string) (Dataset, error) {
	store, err := safetensors.OpenStore(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("dataset: load: %w", err)
	}
	defer store.Close()

	features, err := store.Tensor(featuresTensor)
	if err != nil {
		return Dataset{}, fmt.Errorf("dataset: load: %w", err)
	}

	if len(features.Shape) != 2 || features.DType.IsFloat() {
		return Dataset{}, fmt.Errorf("dataset: features must be a 2-D integer tensor, got %s %v", features.DType, features.Shape)
	}

	labels, err := store.TensorWithShape(labelsTensor, []int64{features.Shape[0]})
	if err != nil {
		return Dataset{}, fmt.Errorf("dataset: load: %w", err)
	}

	if labels.DType.IsFloat() {
		return Dataset{}, fmt.Errorf("dataset: labels must be integers, got %s", labels.DType)
	}

	d := Dataset{
		Features: &sequence.Matrix{
			Rows: int(features.Shape[0]),
			Cols: int(features.Shape[1]),
			Data: features.Ints,
		},
		Labels: labels.Ints,
	}

	return d, d.Validate()
}

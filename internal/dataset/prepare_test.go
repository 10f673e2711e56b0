package dataset

import (
	"errors"
	"reflect"
	"testing"

	"github.com/example/go-sentiment/internal/sequence"
)

func TestPrepare_DropsEmptyReviewWithLabel(t *testing.T) {
	c := Corpus{
		Reviews: []string{"best movie ever", ""},
		Labels:  []string{"positive", "negative"},
	}

	p, err := Prepare(c, 5)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if p.Data.Len() != 1 || p.Data.Features.Rows != 1 {
		t.Fatalf("rows = %d; want 1", p.Data.Len())
	}
	if p.Data.Labels[0] != 1 {
		t.Errorf("label = %d; want 1", p.Data.Labels[0])
	}

	if p.Vocab.Len() != 3 {
		t.Errorf("vocab size = %d; want 3", p.Vocab.Len())
	}

	// All three tokens tie at one occurrence, so ids follow first appearance.
	want := []int64{0, 0, 1, 2, 3}
	if got := p.Data.Features.Row(0); !reflect.DeepEqual(got, want) {
		t.Errorf("row = %v; want %v", got, want)
	}

	if p.Stats.ZeroLength != 1 || p.Stats.Reviews != 2 {
		t.Errorf("stats = %+v; want 2 reviews, 1 empty", p.Stats)
	}
}

func TestPrepare_TrailingNewlineCorpus(t *testing.T) {
	c, err := NewCorpus("good good film\nbad film\n", "positive\nnegative\n")
	if err != nil {
		t.Fatal(err)
	}

	p, err := Prepare(c, 4)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if !reflect.DeepEqual(p.Data.Labels, []int64{1, 0}) {
		t.Errorf("labels = %v; want [1 0]", p.Data.Labels)
	}

	// good=1 (2x), film=2 (2x, seen after good), bad=3
	want := []int64{0, 1, 1, 2, 0, 0, 3, 2}
	if !reflect.DeepEqual(p.Data.Features.Data, want) {
		t.Errorf("features = %v; want %v", p.Data.Features.Data, want)
	}
}

func TestPrepare_Errors(t *testing.T) {
	c := Corpus{Reviews: []string{"a"}, Labels: []string{"positive"}}

	if _, err := Prepare(c, 0); !errors.Is(err, sequence.ErrInvalidLength) {
		t.Errorf("Prepare(len 0) error = %v; want ErrInvalidLength", err)
	}

	bad := Corpus{Reviews: []string{"a", "b"}, Labels: []string{"positive"}}
	if _, err := Prepare(bad, 3); !errors.Is(err, ErrCorpusMismatch) {
		t.Errorf("Prepare(mismatch) error = %v; want ErrCorpusMismatch", err)
	}
}

func TestDataset_GatherAndSlice(t *testing.T) {
	d := Dataset{
		Features: &sequence.Matrix{Rows: 3, Cols: 2, Data: []int64{1, 2, 3, 4, 5, 6}},
		Labels:   []int64{0, 1, 0},
	}

	g := d.Gather([]int{2, 0})
	if !reflect.DeepEqual(g.Features.Data, []int64{5, 6, 1, 2}) || !reflect.DeepEqual(g.Labels, []int64{0, 0}) {
		t.Errorf("Gather = %+v %v", g.Features, g.Labels)
	}

	g.Features.Data[0] = 99
	if d.Features.Data[4] != 5 {
		t.Error("Gather shares storage with the source")
	}

	s := d.Slice(1, 3)
	if s.Len() != 2 || !reflect.DeepEqual(s.Features.Data, []int64{3, 4, 5, 6}) {
		t.Errorf("Slice = %+v", s.Features)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestNewCorpus_NormalizesAndSplits(t *testing.T) {
	c, err := NewCorpus("Great Movie!\nAwful, awful.\n", "positive\nnegative\n")
	if err != nil {
		t.Fatalf("NewCorpus: %v", err)
	}

	wantReviews := []string{"great movie", "awful awful", ""}
	if !reflect.DeepEqual(c.Reviews, wantReviews) {
		t.Errorf("Reviews = %q; want %q", c.Reviews, wantReviews)
	}

	wantLabels := []string{"positive", "negative", ""}
	if !reflect.DeepEqual(c.Labels, wantLabels) {
		t.Errorf("Labels = %q; want %q", c.Labels, wantLabels)
	}
}

func TestNewCorpus_Mismatch(t *testing.T) {
	_, err := NewCorpus("a\nb\nc", "positive\nnegative")
	if !errors.Is(err, ErrCorpusMismatch) {
		t.Fatalf("error = %v; want ErrCorpusMismatch", err)
	}
	if !strings.Contains(err.Error(), "3 reviews, 2 labels") {
		t.Errorf("error %q does not report both counts", err)
	}
}

func TestLoadCorpus(t *testing.T) {
	dir := t.TempDir()
	reviews := filepath.Join(dir, "reviews.txt")
	labels := filepath.Join(dir, "labels.txt")

	if err := os.WriteFile(reviews, []byte("one\ntwo"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(labels, []byte("positive\nnegative"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCorpus(reviews, labels)
	if err != nil {
		t.Fatalf("LoadCorpus: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d; want 2", c.Len())
	}

	if _, err := LoadCorpus(filepath.Join(dir, "missing"), labels); err == nil {
		t.Error("LoadCorpus(missing reviews) = nil error")
	}
}

func TestReadCorpus(t *testing.T) {
	c, err := ReadCorpus(strings.NewReader("A"), strings.NewReader("positive"))
	if err != nil {
		t.Fatalf("ReadCorpus: %v", err)
	}
	if c.Reviews[0] != "a" || c.Labels[0] != "positive" {
		t.Errorf("corpus = %+v", c)
	}
}

func TestEncodeLabel(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"positive", 1},
		{"negative", 0},
		{"Positive", 0},
		{"positive ", 0},
		{"", 0},
		{"neutral", 0},
	}

	for _, tt := range tests {
		if got := EncodeLabel(tt.raw); got != tt.want {
			t.Errorf("EncodeLabel(%q) = %d; want %d", tt.raw, got, tt.want)
		}
	}
}

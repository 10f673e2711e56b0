package vocab

import (
	"errors"
	"reflect"
	"testing"
)

func mustBuild(t *testing.T, reviews [][]string) *Vocabulary {
	t.Helper()

	v, err := Build(reviews)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	return v
}

// ---------------------------------------------------------------------------
// Build
// ---------------------------------------------------------------------------

func TestBuild_OrdersByDescendingFrequency(t *testing.T) {
	v := mustBuild(t, [][]string{
		{"the", "movie", "the"},
		{"bad", "the", "movie"},
	})

	want := []string{"the", "movie", "bad"}
	if got := v.Tokens(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokens() = %q; want %q", got, want)
	}

	for i, tok := range want {
		id, ok := v.ID(tok)
		if !ok || id != i+1 {
			t.Errorf("ID(%q) = %d, %v; want %d, true", tok, id, ok, i+1)
		}
	}
}

func TestBuild_TiesKeepFirstSeenOrder(t *testing.T) {
	// "zeta" and "alpha" both appear twice; "zeta" is seen first.
	v := mustBuild(t, [][]string{
		{"zeta", "common", "alpha"},
		{"common", "alpha", "zeta", "common"},
	})

	zeta, _ := v.ID("zeta")
	alpha, _ := v.ID("alpha")
	common, _ := v.ID("common")

	if common != 1 {
		t.Errorf("ID(common) = %d; want 1", common)
	}
	if zeta != 2 || alpha != 3 {
		t.Errorf("ID(zeta) = %d, ID(alpha) = %d; want 2 and 3", zeta, alpha)
	}
}

func TestBuild_IDsAreContiguousFromOne(t *testing.T) {
	reviews := [][]string{
		{"a", "b", "c", "a"},
		{"d", "e", "b"},
		{},
		{"f", "a"},
	}
	v := mustBuild(t, reviews)

	if v.Len() != 6 {
		t.Fatalf("Len() = %d; want 6", v.Len())
	}
	if v.Size() != 7 {
		t.Errorf("Size() = %d; want 7", v.Size())
	}

	seen := make(map[int]bool)
	for _, tok := range v.Tokens() {
		id, _ := v.ID(tok)
		if id == PadID {
			t.Errorf("token %q assigned the padding id", tok)
		}
		seen[id] = true
	}
	for id := 1; id <= v.Len(); id++ {
		if !seen[id] {
			t.Errorf("id %d not assigned", id)
		}
	}
}

func TestBuild_RejectsEmptyToken(t *testing.T) {
	_, err := Build([][]string{{"ok", ""}})
	if !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("Build with empty token error = %v; want ErrEmptyToken", err)
	}
}

func TestBuild_EmptyCorpus(t *testing.T) {
	v := mustBuild(t, nil)
	if v.Len() != 0 || v.Size() != 1 {
		t.Errorf("Len, Size = %d, %d; want 0, 1", v.Len(), v.Size())
	}
}

func TestBuild_Deterministic(t *testing.T) {
	reviews := [][]string{
		{"x", "y", "z", "y"},
		{"w", "x", "v", "u"},
	}

	first := mustBuild(t, reviews).Tokens()
	for i := 0; i < 20; i++ {
		got := mustBuild(t, reviews).Tokens()
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: Tokens() = %q; want %q", i, got, first)
		}
	}
}

func TestCountAndToken(t *testing.T) {
	v := mustBuild(t, [][]string{{"good", "good", "bad"}})

	if got := v.Count("good"); got != 2 {
		t.Errorf("Count(good) = %d; want 2", got)
	}
	if got := v.Count("missing"); got != 0 {
		t.Errorf("Count(missing) = %d; want 0", got)
	}

	if tok, ok := v.Token(1); !ok || tok != "good" {
		t.Errorf("Token(1) = %q, %v; want good, true", tok, ok)
	}
	if _, ok := v.Token(PadID); ok {
		t.Error("Token(PadID) found; want not found")
	}
	if _, ok := v.Token(3); ok {
		t.Error("Token(3) found; want not found")
	}
}

// ---------------------------------------------------------------------------
// Encode
// ---------------------------------------------------------------------------

func TestEncode_PreservesOrder(t *testing.T) {
	v := mustBuild(t, [][]string{{"best", "movie", "ever", "movie"}})

	got, err := v.Encode([]string{"ever", "best", "movie"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// movie=1, best=2, ever=3
	want := []int{3, 2, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Encode = %v; want %v", got, want)
	}
}

func TestEncode_EmptyReview(t *testing.T) {
	v := mustBuild(t, [][]string{{"a"}})

	got, err := v.Encode(nil)
	if err != nil {
		t.Fatalf("Encode(nil): %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Encode(nil) = %#v; want empty non-nil slice", got)
	}
}

func TestEncode_UnknownToken(t *testing.T) {
	v := mustBuild(t, [][]string{{"great", "movie"}})

	got, err := v.Encode([]string{"great", "unseen", "movie"})
	if got != nil {
		t.Errorf("Encode returned partial row %v; want nil", got)
	}

	if !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("error = %v; want ErrUnknownToken", err)
	}

	var unk *UnknownTokenError
	if !errors.As(err, &unk) {
		t.Fatalf("error %T is not *UnknownTokenError", err)
	}
	if unk.Token != "unseen" || unk.Position != 1 {
		t.Errorf("UnknownTokenError = %+v; want token unseen at position 1", unk)
	}
}

package bench_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/example/go-sentiment/internal/bench"
	"github.com/example/go-sentiment/internal/predict"
)

type predictorFunc func(ctx context.Context, review string) (predict.Prediction, error)

func (f predictorFunc) Predict(ctx context.Context, review string) (predict.Prediction, error) {
	return f(ctx, review)
}

// ---------------------------------------------------------------------------
// Aggregation
// ---------------------------------------------------------------------------

func TestStats_MinMaxMean(t *testing.T) {
	durations := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
	}
	s := bench.ComputeStats(durations)

	if s.Min != 100*time.Millisecond {
		t.Errorf("want min=100ms, got %v", s.Min)
	}

	if s.Max != 300*time.Millisecond {
		t.Errorf("want max=300ms, got %v", s.Max)
	}

	if s.Mean != 200*time.Millisecond {
		t.Errorf("want mean=200ms, got %v", s.Mean)
	}

	if s.PerSecond != 5 {
		t.Errorf("want 5/s, got %v", s.PerSecond)
	}
}

func TestStats_Empty(t *testing.T) {
	if s := bench.ComputeStats(nil); s != (bench.Stats{}) {
		t.Errorf("empty input: got %+v", s)
	}
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

func TestRun(t *testing.T) {
	calls := 0
	p := predictorFunc(func(_ context.Context, review string) (predict.Prediction, error) {
		calls++
		return predict.Prediction{Sentiment: predict.Positive, Score: 0.75, Tokens: len(strings.Fields(review))}, nil
	})

	runs, err := bench.Run(context.Background(), p, "great movie", 3)
	if err != nil {
		t.Fatal(err)
	}

	if calls != 3 || len(runs) != 3 {
		t.Fatalf("calls=%d runs=%d; want 3", calls, len(runs))
	}

	for i, r := range runs {
		if r.Index != i || r.Cold != (i == 0) || r.Tokens != 2 || r.Sentiment != predict.Positive {
			t.Errorf("run %d = %+v", i, r)
		}
	}

	if got := bench.Durations(runs); len(got) != 3 {
		t.Errorf("Durations len = %d", len(got))
	}
}

func TestRun_Errors(t *testing.T) {
	p := predictorFunc(func(context.Context, string) (predict.Prediction, error) {
		return predict.Prediction{}, errors.New("unknown token")
	})

	if _, err := bench.Run(context.Background(), p, "x", 2); err == nil || !strings.Contains(err.Error(), "run 1 failed") {
		t.Errorf("err = %v", err)
	}

	if _, err := bench.Run(context.Background(), p, "x", 0); err == nil {
		t.Error("expected error for zero runs")
	}
}

// ---------------------------------------------------------------------------
// Latency gate
// ---------------------------------------------------------------------------

func TestCheckLatencyThreshold(t *testing.T) {
	tests := []struct {
		mean, threshold time.Duration
		wantErr         bool
	}{
		{mean: 5 * time.Millisecond, threshold: 0},
		{mean: 5 * time.Millisecond, threshold: 10 * time.Millisecond},
		{mean: 10 * time.Millisecond, threshold: 10 * time.Millisecond},
		{mean: 11 * time.Millisecond, threshold: 10 * time.Millisecond, wantErr: true},
	}

	for _, tc := range tests {
		err := bench.CheckLatencyThreshold(tc.mean, tc.threshold)
		if (err != nil) != tc.wantErr {
			t.Errorf("CheckLatencyThreshold(%v, %v) = %v", tc.mean, tc.threshold, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

func sampleRuns() ([]bench.RunResult, bench.Stats) {
	runs := []bench.RunResult{
		{Index: 0, Cold: true, Duration: 4 * time.Millisecond, Tokens: 3, Sentiment: predict.Positive, Score: 0.9},
		{Index: 1, Duration: 2 * time.Millisecond, Tokens: 3, Sentiment: predict.Positive, Score: 0.9},
	}

	return runs, bench.ComputeStats(bench.Durations(runs))
}

func TestFormatTable(t *testing.T) {
	runs, stats := sampleRuns()

	var buf bytes.Buffer
	bench.FormatTable(runs, stats, &buf)

	out := buf.String()
	for _, want := range []string{"Run", "Sentiment", "yes", "POSITIVE", "(min)", "(mean", "(max)"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestFormatJSON(t *testing.T) {
	runs, stats := sampleRuns()

	var buf bytes.Buffer
	if err := bench.FormatJSON(runs, stats, &buf); err != nil {
		t.Fatal(err)
	}

	var report struct {
		Runs []struct {
			Cold       bool    `json:"cold"`
			DurationMS float64 `json:"duration_ms"`
			Sentiment  string  `json:"sentiment"`
		} `json:"runs"`
		Stats struct {
			MeanMS float64 `json:"mean_ms"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}

	if len(report.Runs) != 2 || !report.Runs[0].Cold || report.Runs[0].Sentiment != "POSITIVE" {
		t.Errorf("runs = %+v", report.Runs)
	}

	if report.Runs[0].DurationMS != 4 || report.Stats.MeanMS != 3 {
		t.Errorf("durations = %v, mean = %v", report.Runs[0].DurationMS, report.Stats.MeanMS)
	}
}

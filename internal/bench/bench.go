// Package bench provides latency benchmarking primitives for the sentiment
// bench command.
package bench

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/example/go-sentiment/internal/predict"
)

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing and outcome of a single prediction run.
type RunResult struct {
	Index     int
	Cold      bool // true for the first run (cold-start)
	Duration  time.Duration
	Tokens    int
	Sentiment predict.Sentiment
	Score     float64
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
	// PerSecond is the number of predictions per second at the mean latency.
	PerSecond float64
}

// ComputeStats calculates min, max and mean over a slice of durations.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}

	mn, mx := durations[0], durations[0]

	var sum time.Duration
	for _, d := range durations {
		mn = min(mn, d)
		mx = max(mx, d)
		sum += d
	}

	s := Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
	if s.Mean > 0 {
		s.PerSecond = float64(time.Second) / float64(s.Mean)
	}

	return s
}

// Durations extracts the per-run durations.
func Durations(runs []RunResult) []time.Duration {
	out := make([]time.Duration, len(runs))
	for i, r := range runs {
		out[i] = r.Duration
	}

	return out
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

// Predictor classifies one review. *predict.Predictor implements it.
type Predictor interface {
	Predict(ctx context.Context, review string) (predict.Prediction, error)
}

// Run predicts review runs times and records each call. The first run is
// marked cold.
func Run(ctx context.Context, p Predictor, review string, runs int) ([]RunResult, error) {
	if runs < 1 {
		return nil, fmt.Errorf("runs must be at least 1, got %d", runs)
	}

	results := make([]RunResult, 0, runs)

	for i := range runs {
		start := time.Now()

		pred, err := p.Predict(ctx, review)
		if err != nil {
			return nil, fmt.Errorf("run %d failed: %w", i+1, err)
		}

		results = append(results, RunResult{
			Index:     i,
			Cold:      i == 0,
			Duration:  time.Since(start),
			Tokens:    pred.Tokens,
			Sentiment: pred.Sentiment,
			Score:     pred.Score,
		})
	}

	return results, nil
}

// ---------------------------------------------------------------------------
// Latency gate
// ---------------------------------------------------------------------------

// CheckLatencyThreshold returns an error if mean exceeds threshold.
// A threshold of 0 disables the gate.
func CheckLatencyThreshold(mean, threshold time.Duration) error {
	if threshold <= 0 {
		return nil
	}

	if mean > threshold {
		return fmt.Errorf("mean latency %v exceeds threshold %v", mean, threshold)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %7s  %-9s  %7s\n", "Run", "Cold", "MS", "Tokens", "Sentiment", "Score")
	fmt.Fprintln(sb, strings.Repeat("-", 54))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}

		fmt.Fprintf(sb, "%-5d  %-5s  %10.3f  %7d  %-9s  %7.4f\n",
			r.Index+1, cold, ms(r.Duration), r.Tokens, r.Sentiment, r.Score)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 54))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.3f  (min)\n", "", "", ms(stats.Min))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.3f  (mean, %.1f/s)\n", "", "", ms(stats.Mean), stats.PerSecond)
	fmt.Fprintf(sb, "%-5s  %-5s  %10.3f  (max)\n", "", "", ms(stats.Max))

	fmt.Fprint(w, sb.String())
}

type jsonReport struct {
	Runs  []jsonRun `json:"runs"`
	Stats jsonStats `json:"stats"`
}

type jsonRun struct {
	Index      int               `json:"index"`
	Cold       bool              `json:"cold"`
	DurationMS float64           `json:"duration_ms"`
	Tokens     int               `json:"tokens"`
	Sentiment  predict.Sentiment `json:"sentiment"`
	Score      float64           `json:"score"`
}

type jsonStats struct {
	MinMS     float64 `json:"min_ms"`
	MeanMS    float64 `json:"mean_ms"`
	MaxMS     float64 `json:"max_ms"`
	PerSecond float64 `json:"per_second"`
}

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) error {
	jr := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinMS:     ms(stats.Min),
			MeanMS:    ms(stats.Mean),
			MaxMS:     ms(stats.Max),
			PerSecond: stats.PerSecond,
		},
	}

	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:      r.Index,
			Cold:       r.Cold,
			DurationMS: ms(r.Duration),
			Tokens:     r.Tokens,
			Sentiment:  r.Sentiment,
			Score:      r.Score,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(jr)
}

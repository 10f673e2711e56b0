package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/go-sentiment/internal/bench"
	"github.com/example/go-sentiment/internal/predict"
)

func newBenchCmd() *cobra.Command {
	var (
		review    string
		runs      int
		format    string
		maxMeanMS float64
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark single-review prediction latency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if strings.TrimSpace(review) == "" {
				return fmt.Errorf("--text is required for bench")
			}

			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			p, closer, err := predict.Open(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			results, err := bench.Run(cmd.Context(), p, review, runs)
			if err != nil {
				return err
			}

			stats := bench.ComputeStats(bench.Durations(results))
			out := cmd.OutOrStdout()

			switch format {
			case "json":
				if err := bench.FormatJSON(results, stats, out); err != nil {
					return err
				}
			default:
				bench.FormatTable(results, stats, out)
			}

			threshold := time.Duration(maxMeanMS * float64(time.Millisecond))

			return bench.CheckLatencyThreshold(stats.Mean, threshold)
		},
	}

	cmd.Flags().StringVar(&review, "text", "", "Review to classify on each run (required)")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of prediction runs")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().Float64Var(&maxMeanMS, "max-mean-ms", 0, "Exit non-zero if mean latency exceeds this many milliseconds (0 = disabled)")

	return cmd
}

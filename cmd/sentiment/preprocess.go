package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/go-sentiment/internal/dataset"
)

func newPreprocessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preprocess",
		Short: "Build the vocabulary and the packed dataset from a review corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			corpus, err := dataset.LoadCorpus(cfg.Paths.Reviews, cfg.Paths.Labels)
			if err != nil {
				return err
			}

			prepared, err := dataset.Prepare(corpus, cfg.Pipeline.SequenceLength)
			if err != nil {
				return err
			}

			for _, p := range []string{cfg.Paths.Vocab, cfg.Paths.Dataset} {
				if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
			}

			if err := prepared.Vocab.Save(cfg.Paths.Vocab); err != nil {
				return err
			}

			if err := dataset.SaveDataset(cfg.Paths.Dataset, prepared.Data); err != nil {
				return err
			}

			st := prepared.Stats
			slog.Info("preprocessing complete",
				slog.Int("reviews", st.Reviews),
				slog.Int("zero_length", st.ZeroLength),
				slog.Int("max_length", st.MaxLength),
				slog.Float64("mean_length", st.MeanLength),
				slog.Int("vocabulary", prepared.Vocab.Len()),
				slog.String("vocab_path", cfg.Paths.Vocab),
				slog.String("dataset_path", cfg.Paths.Dataset),
			)

			trainSet, val, test, err := dataset.Split(prepared.Data, splitFractions(cfg))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Unique words: %d\n", prepared.Vocab.Len())
			fmt.Fprintf(out, "Zero-length reviews: %d\n", st.ZeroLength)
			fmt.Fprintf(out, "Maximum review length: %d\n", st.MaxLength)
			fmt.Fprintf(out, "Feature shape: (%d, %d)\n", prepared.Data.Len(), prepared.Data.SeqLength())
			fmt.Fprintf(out, "Train set: (%d, %d)\n", trainSet.Len(), trainSet.SeqLength())
			fmt.Fprintf(out, "Validation set: (%d, %d)\n", val.Len(), val.SeqLength())
			fmt.Fprintf(out, "Test set: (%d, %d)\n", test.Len(), test.SeqLength())

			return nil
		},
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/go-sentiment/internal/classifier"
	"github.com/example/go-sentiment/internal/dataset"
	"github.com/example/go-sentiment/internal/train"
	"github.com/example/go-sentiment/internal/vocab"
)

func newTrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Train the native classifier on the preprocessed dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			v, err := vocab.Load(cfg.Paths.Vocab)
			if err != nil {
				return err
			}

			data, err := dataset.LoadDataset(cfg.Paths.Dataset)
			if err != nil {
				return err
			}

			trainSet, val, test, err := dataset.Split(data, splitFractions(cfg))
			if err != nil {
				return err
			}

			m, err := classifier.New(modelConfig(cfg, v.Size()))
			if err != nil {
				return err
			}

			logger := slog.Default()
			logger.Info("training started",
				slog.String("run_id", m.RunID()),
				slog.Int("params", m.NumParams()),
				slog.Int("train", trainSet.Len()),
				slog.Int("val", val.Len()),
				slog.Int("test", test.Len()),
			)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			hist, err := train.Train(ctx, m, trainSet, val, trainOptions(cfg), logger)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(cfg.Paths.Model), 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}

			if err := m.Save(cfg.Paths.Model); err != nil {
				return err
			}

			metrics, err := train.Evaluate(ctx, m, test, cfg.Pipeline.BatchSize)
			if err != nil {
				return err
			}

			logger.Info("training complete",
				slog.Int("steps", hist.Steps),
				slog.Duration("elapsed", hist.Elapsed),
				slog.String("model_path", cfg.Paths.Model),
			)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Test loss: %.3f\n", metrics.Loss)
			fmt.Fprintf(out, "Test accuracy: %.3f\n", metrics.Accuracy)

			return nil
		},
	}
}

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/go-sentiment/internal/classifier"
	"github.com/example/go-sentiment/internal/config"
	"github.com/example/go-sentiment/internal/dataset"
	"github.com/example/go-sentiment/internal/logging"
	"github.com/example/go-sentiment/internal/train"
)

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "sentiment",
		Short:         "Review sentiment preprocessing, training and inference",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:  loaded.LogLevel,
				Format: loaded.LogFormat,
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}

			slog.SetDefault(logger)
			activeCfg = loaded

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newPreprocessCmd())
	cmd.AddCommand(newTrainCmd())
	cmd.AddCommand(newPredictCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newBenchCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newDoctorCmd())

	return cmd
}

func requireConfig() (config.Config, error) {
	if activeCfg.Paths.Vocab == "" {
		return config.Config{}, fmt.Errorf("configuration not loaded")
	}

	return activeCfg, nil
}

func modelConfig(cfg config.Config, vocabSize int) classifier.Config {
	return classifier.Config{
		VocabSize:    vocabSize,
		EmbeddingDim: cfg.Model.EmbeddingDim,
		HiddenDim:    cfg.Model.HiddenDim,
		Layers:       cfg.Model.Layers,
		DropProb:     cfg.Model.DropProb,
		FCDropProb:   cfg.Model.FCDropProb,
		Seed:         cfg.Pipeline.Seed,
	}
}

func trainOptions(cfg config.Config) train.Options {
	return train.Options{
		Epochs:       cfg.Train.Epochs,
		BatchSize:    cfg.Pipeline.BatchSize,
		LearningRate: cfg.Train.LearningRate,
		Clip:         cfg.Train.Clip,
		PrintEvery:   cfg.Train.PrintEvery,
		Seed:         cfg.Pipeline.Seed,
	}
}

func splitFractions(cfg config.Config) dataset.Fractions {
	return dataset.Fractions{
		Train: cfg.Pipeline.TrainFraction,
		Val:   cfg.Pipeline.ValFraction,
		Test:  cfg.Pipeline.TestFraction,
	}
}

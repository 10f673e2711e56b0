package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/example/go-sentiment/internal/predict"
)

func newPredictCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "predict [review...]",
		Short: "Classify a review (arguments, or stdin when none are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			review := strings.Join(args, " ")
			if len(args) == 0 {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read review: %w", err)
				}

				review = strings.TrimRight(string(raw), "\r\n")
			}

			p, closer, err := predict.Open(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			pred, err := p.Predict(context.Background(), review)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(pred)
			}

			_, err = fmt.Fprintf(out, "%s (score %.4f)\n", pred.Sentiment, pred.Score)

			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the prediction as JSON")

	return cmd
}

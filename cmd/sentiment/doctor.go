package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/go-sentiment/internal/doctor"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check corpus, vocabulary and model artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "backend: %s\n", cfg.Runtime.Backend)

			result := doctor.Run(doctor.FromConfig(cfg), out)
			if result.Failed() {
				return fmt.Errorf("doctor: %d check(s) failed", len(result.Failures()))
			}

			return nil
		},
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/mlt/internal/metrics"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a walk-forward experiment",
		Long: `Loads the dataset, walks the outer fold schedule and runs the inner CV
inside every training window. Fold records are written to the output
directory and, when storage is enabled, to postgres.`,
		RunE: runExperiment,
	}

	addConfigFlag(cmd.Flags())
	cmd.Flags().String("output", "", "Output directory for run artifacts (overrides runner.output_dir)")
	cmd.Flags().Int("workers", 0, "Folds processed concurrently (overrides runner.workers)")

	return cmd
}

func runExperiment(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		s.cfg.Runner.OutputDir = output
	}
	if cmd.Flags().Changed("workers") {
		workers, _ := cmd.Flags().GetInt("workers")
		if workers < 1 {
			return fmt.Errorf("workers must be at least 1, got %d", workers)
		}
		s.cfg.Runner.Workers = workers
	}

	store, writer, manager, err := s.stores()
	if err != nil {
		return err
	}
	defer manager.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, runErr := s.newRunner(store, metrics.NewRegistry()).Run(ctx, s.data, s.labels)
	if result == nil {
		return runErr
	}

	if err := writeArtifacts(writer, result); err != nil {
		log.Error().Err(err).Msg("Failed to write run artifacts")
		if runErr == nil {
			runErr = err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s %s: %d folds\n", result.Run.ID, result.Run.Status, result.Run.Folds)
	fmt.Fprintf(cmd.OutOrStdout(), "Artifacts: %s\n", writer.RunDir(result.Run.ID))
	return runErr
}

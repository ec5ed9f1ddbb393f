package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/mlt/internal/experiment"
	httpserver "github.com/sawpanic/mlt/internal/interfaces/http"
	"github.com/sawpanic/mlt/internal/metrics"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the monitor HTTP server",
		Long:  "Starts an HTTP server with /health, /metrics and /runs endpoints; POST /runs starts the configured experiment",
		RunE:  runServe,
	}

	addConfigFlag(cmd.Flags())
	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	addr := s.cfg.Server.Addr
	if a, _ := cmd.Flags().GetString("addr"); a != "" {
		addr = a
	}

	store, writer, manager, err := s.stores()
	if err != nil {
		return err
	}
	defer manager.Close()

	reg := metrics.NewRegistry()
	run := func(ctx context.Context) (*experiment.RunResult, error) {
		result, err := s.newRunner(store, reg).Run(ctx, s.data, s.labels)
		if result != nil {
			if werr := writeArtifacts(writer, result); werr != nil {
				log.Error().Err(werr).Str("run_id", result.Run.ID).Msg("Failed to write run artifacts")
			}
		}
		return result, err
	}

	server := httpserver.NewServer(httpserver.DefaultServerConfig(addr), reg, run)
	if manager.IsEnabled() {
		server.SetHealth(manager.Health())
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("health", fmt.Sprintf("http://%s/health", addr)).
			Str("metrics", fmt.Sprintf("http://%s/metrics", addr)).
			Str("runs", fmt.Sprintf("http://%s/runs", addr)).
			Msg("Monitor endpoints available")
		serverErr <- server.Start()
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
		return err
	}

	log.Info().Msg("Monitor server shutdown complete")
	return nil
}

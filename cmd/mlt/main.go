package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "mlt"
	version = "v0.4.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Temporal cross-validation and walk-forward experiments",
		Version: version,
		Long: `mlt splits time-indexed datasets into leakage-free train/test folds.

Outer folds follow a walk-forward prediction window schedule (or any
purged splitter); an optional inner purged CV runs inside every outer
training window.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			format, _ := cmd.Flags().GetString("log-format")
			return setupLogging(level, format)
		},
	}

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "auto", "Log format (auto|console|json)")

	rootCmd.AddCommand(newRunCmd())   // Experiments
	rootCmd.AddCommand(newFoldsCmd()) // Schedule inspection
	rootCmd.AddCommand(newServeCmd()) // Monitoring

	return rootCmd
}

// setupLogging configures the global zerolog logger. Console output is used
// when stderr is a terminal and format is auto.
func setupLogging(level, format string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	switch format {
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	case "console":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	case "auto", "":
		if term.IsTerminal(int(os.Stderr.Fd())) {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		} else {
			log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		}
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	return nil
}

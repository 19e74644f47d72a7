package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/embruze/SexualEqualityABM-1/internal/config"
	"github.com/embruze/SexualEqualityABM-1/internal/logging"
)

var version = "0.1.0-dev"

func main() {
	// A missing .env is normal; variables may come from the environment.
	_ = godotenv.Load()

	ctx, stop := signalContext(context.Background())
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "smdsim",
		Short: "Social attitude, concealment and discrimination simulator",
		Long: `smdsim simulates a population of minority and non-minority agents on a
random social network. Attitudes, support, concealment, discrimination and
depression evolve step by step under a network-wide policy score.

It can run single simulations, analyse how the outcomes respond to each
parameter, and check the resulting statistics against published ranges.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (default when stdout is not a terminal)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.smdsim/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug, trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newSensitivityCmd(),
		newResultsCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

// signalContext returns a context cancelled on the first interrupt.
func signalContext(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\ninterrupted, stopping")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// loadConfig loads the configuration named by --config (or the default
// location) and applies --log-level.
func loadConfig(cmd *cobra.Command) (*config.SmdConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

// newLogger creates the stderr logger described by cfg.
func newLogger(cmd *cobra.Command, cfg *config.SmdConfig) *slog.Logger {
	if cfg.Logging.Format == "json" {
		return logging.NewJSONLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	}
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "smdsim version %s\n", version)
			return nil
		},
	}
}

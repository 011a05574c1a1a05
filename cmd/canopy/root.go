package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/canopyproj/canopy/internal/config"
	"github.com/canopyproj/canopy/internal/log"
)

// NewRootCmd creates the root command for canopy.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "canopy",
		Short: "Resumable content-tree ingestion pipeline",
		Long: `Canopy pulls a hierarchical content tree (pages, blocks, databases)
from a remote content API, flattens it into uniform searchable records,
and builds a local vector index.

Every pull is resumable: per-node progress is persisted, so an
interrupted or partially failed run continues where it stopped instead
of re-fetching completed subtrees.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: config.yaml in current directory)")
	cmd.PersistentFlags().String("data-dir", "", "Override the data directory")

	// Add subcommands
	cmd.AddCommand(NewPullCmd())
	cmd.AddCommand(NewParseCmd())
	cmd.AddCommand(NewIndexCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig builds the configuration from file, environment, and flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if getVerboseFlag(cmd) {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the structured logger and installs it as the
// process default.
func setupLogger(cfg *config.Config) *slog.Logger {
	logger := log.New(log.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM so a
// run shuts down gracefully: in-flight work finishes, state is saved.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, saving progress...")
		cancel()
	}()

	return ctx, cancel
}

// parseRootID validates a root entity id argument and returns its
// canonical form.
func parseRootID(arg string) (string, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return "", fmt.Errorf("invalid root entity id %q: %w", arg, err)
	}
	return id.String(), nil
}

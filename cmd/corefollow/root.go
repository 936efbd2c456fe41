package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/corefollow"
	"github.com/aretw0/corefollow/internal/logging"
	"github.com/aretw0/corefollow/pkg/config"
	"github.com/aretw0/corefollow/pkg/observability"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "corefollow",
	Short: "Corefollow runs reactor time-domain operations",
	Long: `Corefollow drives a flux solver through load-follow maneuvers, xenon transients,
startups, coastdowns, estimated critical positions and shutdown margin analyses.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("case", "c", "case.yaml", "Case file (YAML, or JSON by extension)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", logging.FormatAuto, "Log format (auto, text, json)")
	rootCmd.PersistentFlags().Bool("json", false, "Write results as JSON lines")
}

func createLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.New(lvl, format), nil
}

func loadCase(cmd *cobra.Command) (*config.Case, error) {
	path, _ := cmd.Flags().GetString("case")
	return config.Load(path)
}

// openCore loads the case and builds a core whose lifecycle events are logged.
func openCore(ctx context.Context, cmd *cobra.Command) (*corefollow.Core, error) {
	logger, err := createLogger(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := loadCase(cmd)
	if err != nil {
		return nil, err
	}
	return corefollow.New(ctx, cfg,
		corefollow.WithLogger(logger),
		corefollow.WithLifecycleHooks(observability.LogHooks(logger)),
	)
}

// Package cmd provides the CLI commands for Riptide.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/riptide-search/riptide/internal/config"
	"github.com/riptide-search/riptide/internal/logging"
	"github.com/riptide-search/riptide/internal/preflight"
	"github.com/riptide-search/riptide/pkg/version"
)

// Debug logging flag state, shared across the command tree.
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the riptide CLI.
func NewRootCmd() *cobra.Command {
	var skipCheck bool

	cmd := &cobra.Command{
		Use:   "riptide",
		Short: "Tenant-scoped hybrid retrieval engine",
		Long: `Riptide answers natural-language queries over per-tenant document
corpora by fanning out to a vector index and a keyword index concurrently,
fusing both rankings into one, and degrading gracefully when either source
is slow or down.

Running 'riptide' with no arguments starts the MCP server on stdio.
Use 'riptide index' to load a corpus and 'riptide search' to query it
from the command line.`,
		Version: version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			return runSmartDefault(cmd.Context(), skipCheck)
		},
	}

	cmd.SetVersionTemplate("riptide version {{.Version}}\n")

	cmd.Flags().BoolVar(&skipCheck, "skip-check", false, "Skip pre-flight system checks")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.riptide/logs/")
	cmd.PersistentPreRunE = startDebugLogging
	cmd.PersistentPostRunE = stopDebugLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startDebugLogging switches on file logging when --debug is set.
func startDebugLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled",
		slog.String("log_file", logging.DefaultLogPath()),
		slog.String("version", version.Version))
	return nil
}

// stopDebugLogging flushes and closes the debug log file.
func stopDebugLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		slog.Info("debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// runSmartDefault is the bare 'riptide' flow: silent preflight, then the
// MCP server. Stdout must carry nothing but JSON-RPC from here on, so all
// diagnostics go to the log file; 'riptide doctor' is the visible variant.
func runSmartDefault(ctx context.Context, skipCheck bool) error {
	root := findRoot()

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	dataDir := cfg.ResolveDataDir(root)

	if !skipCheck && preflight.NeedsCheck(dataDir) {
		checker := preflight.New(preflight.WithOutput(io.Discard))
		results := checker.RunAll(ctx, root)

		if checker.HasCriticalFailures(results) {
			slog.Error("system check failed, run 'riptide doctor' for diagnostics")
			return fmt.Errorf("system check failed, run 'riptide doctor' for diagnostics")
		}
		if err := preflight.MarkPassed(dataDir); err != nil {
			slog.Debug("failed to record preflight marker", slog.String("error", err.Error()))
		}
	}

	return runServe(ctx, serveOptions{transport: cfg.Server.Transport})
}

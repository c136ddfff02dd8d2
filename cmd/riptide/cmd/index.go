package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/riptide-search/riptide/internal/config"
	"github.com/riptide-search/riptide/internal/ingest"
	"github.com/riptide-search/riptide/internal/logging"
	"github.com/riptide-search/riptide/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "index <tenant> <corpus-path>",
		Short: "Load a JSONL corpus into a tenant partition",
		Long: `Load a JSONL corpus into one tenant's search partition.

Each line of the corpus is a document object:

  {"id":"doc-1","text":"...","type":"article","tags":["a"],"created_at":"2026-01-02T00:00:00Z"}

The corpus path may be a single .jsonl file or a directory of them.
Documents are embedded in batches and written to the keyword, vector,
and metadata stores; re-running the load upserts, so it is safe to
repeat after a partial failure. The tenant is created on first load.`,
		Example: `  # Load one file into tenant "acme"
  riptide index acme ./corpora/acme.jsonl

  # Load a directory of files
  riptide index acme ./corpora/acme/`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cmd, args[0], args[1], plain)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Disable TUI mode, use plain text output")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, tenantID, corpusPath string, plain bool) error {
	// File-only logging keeps slog off the progress display.
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if logger, cleanup, err := logging.Setup(logCfg); err == nil {
		slog.SetDefault(logger)
		defer cleanup()
	}

	absPath, err := filepath.Abs(corpusPath)
	if err != nil {
		return fmt.Errorf("resolve corpus path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("access corpus path: %w", err)
	}

	root := findRoot()
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	uiCfg := ui.NewConfig(cmd.OutOrStdout(), ui.WithForcePlain(plain), ui.WithTenantID(tenantID))
	renderer := ui.NewRenderer(uiCfg)
	if err := renderer.Start(ctx); err != nil {
		slog.Warn("failed to start progress renderer", slog.String("error", err.Error()))
	}
	defer func() { _ = renderer.Stop() }()

	renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageReading,
		Message: fmt.Sprintf("Opening %s embedder...", cfg.Embeddings.Provider),
	})

	st, err := openStack(ctx, root, cfg, stackOptions{
		progress: func(processed, total int) {
			renderer.UpdateProgress(ui.ProgressEvent{
				Stage:   ui.StageEmbedding,
				Current: processed,
				Total:   total,
			})
		},
	})
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if _, err := st.registry.Create(tenantID); err != nil {
		return err
	}

	var res *ingest.Result
	if info.IsDir() {
		res, err = st.loader.LoadDir(ctx, tenantID, absPath)
	} else {
		res, err = st.loader.LoadFile(ctx, tenantID, absPath)
	}
	if err != nil {
		renderer.AddError(ui.ErrorEvent{File: absPath, Err: err})
		return err
	}

	renderer.Complete(ui.CompletionStats{
		Documents: res.Documents,
		Files:     res.Files,
		Batches:   res.Batches,
		Duration:  res.Duration,
		Embedder: ui.EmbedderInfo{
			Provider:   cfg.Embeddings.Provider,
			Model:      st.embedder.ModelName(),
			Dimensions: st.embedder.Dimensions(),
		},
	})

	slog.Info("index_complete",
		slog.String("tenant_id", tenantID),
		slog.Int("documents", res.Documents),
		slog.Int("files", res.Files),
		slog.Duration("duration", res.Duration))

	return nil
}

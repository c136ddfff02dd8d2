package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/riptide-search/riptide/internal/config"
	"github.com/riptide-search/riptide/internal/ingest"
	"github.com/riptide-search/riptide/internal/logging"
	"github.com/riptide-search/riptide/internal/mcp"
	"github.com/riptide-search/riptide/internal/watcher"
)

// serveOptions holds CLI flags for serve.
type serveOptions struct {
	transport string
	watchDir  string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Riptide MCP server.

The server exposes two tools over stdio: hybrid_search runs a fused
vector+keyword query against one tenant's corpus, and tenant_status
reports a partition's index health.

With --watch, changes to <dir>/<tenant>.jsonl or <dir>/<tenant>/*.jsonl
are debounced and reloaded into the matching tenant partition without a
restart.

Stdout carries JSON-RPC exclusively; all logging goes to the file under
~/.riptide/logs/. Use 'riptide logs -f' to follow it.`,
		Example: `  # Serve on stdio
  riptide serve

  # Serve and reload corpora as they change
  riptide serve --watch ./corpora`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "", "MCP transport (default from config, stdio)")
	cmd.Flags().StringVar(&opts.watchDir, "watch", "", "Corpus directory to watch for reloads")

	return cmd
}

// runServe builds the engine stack and blocks serving MCP until ctx is
// canceled. Called both by 'riptide serve' and the bare 'riptide' default.
func runServe(ctx context.Context, opts serveOptions) error {
	root := findRoot()

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	// File-only logging: the MCP handshake owns stdout from the first byte.
	if cleanup, err := logging.SetupMCPMode(cfg.Server.LogLevel); err == nil {
		defer cleanup()
	}

	transport := opts.transport
	if transport == "" {
		transport = cfg.Server.Transport
	}

	st, err := openStack(ctx, root, cfg, stackOptions{telemetry: true})
	if err != nil {
		slog.Error("failed to build engine stack", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			slog.Warn("stack shutdown reported errors", slog.String("error", cerr.Error()))
		}
	}()

	srv, err := mcp.NewServer(st.engine, st.registry, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()

	if opts.watchDir != "" {
		stopWatch, err := startCorpusWatch(ctx, st, opts.watchDir)
		if err != nil {
			// A broken watch degrades reloads, not search. Serve anyway.
			slog.Warn("corpus watch unavailable",
				slog.String("dir", opts.watchDir),
				slog.String("error", err.Error()))
		} else {
			defer stopWatch()
		}
	}

	slog.Info("riptide serving",
		slog.String("root", root),
		slog.String("data_dir", st.dataDir),
		slog.String("transport", transport),
		slog.String("embedder", st.embedder.ModelName()),
		slog.Int("dimensions", st.embedder.Dimensions()))

	return srv.Serve(ctx, transport)
}

// startCorpusWatch wires the fsnotify watcher to the reload loop. The
// returned stop function blocks until the watcher has shut down.
func startCorpusWatch(ctx context.Context, st *searchStack, dir string) (func(), error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path %s is not a directory", dir)
	}

	w, err := watcher.NewCorpusWatcher(watcher.Options{
		DebounceWindow: st.cfg.WatchDebounce(),
	})
	if err != nil {
		return nil, err
	}

	reloader, err := ingest.NewReloader(st.loader, ingest.WithAutoCreate(st.registry))
	if err != nil {
		_ = w.Stop()
		return nil, err
	}

	// Start blocks in the watch loop until ctx ends or Stop is called.
	go func() {
		if err := w.Start(ctx, dir); err != nil && ctx.Err() == nil {
			slog.Warn("corpus watch stopped", slog.String("error", err.Error()))
		}
	}()
	go reloader.HandleEvents(ctx, w.Events())
	go func() {
		for err := range w.Errors() {
			slog.Warn("corpus watch error", slog.String("error", err.Error()))
		}
	}()

	slog.Info("watching corpus directory",
		slog.String("dir", dir),
		slog.String("backend", w.Backend()))

	return func() { _ = w.Stop() }, nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/riptide-search/riptide/internal/config"
	"github.com/riptide-search/riptide/internal/embed"
	"github.com/riptide-search/riptide/internal/engine"
	"github.com/riptide-search/riptide/internal/ingest"
	"github.com/riptide-search/riptide/internal/source"
	"github.com/riptide-search/riptide/internal/store"
	"github.com/riptide-search/riptide/internal/telemetry"
	"github.com/riptide-search/riptide/internal/tenant"
)

// searchStack is the assembled retrieval engine for one CLI invocation:
// embedder, tenant registry, the two source clients, and the fusion engine,
// with the telemetry recorder attached when enabled.
type searchStack struct {
	cfg      *config.Config
	root     string
	dataDir  string
	embedder embed.Embedder
	registry *tenant.Registry
	engine   *engine.Engine
	loader   *ingest.Loader

	telemetryStore *telemetry.Store
	recorder       *telemetry.Recorder
}

// findRoot locates the project root, falling back to the working directory.
func findRoot() string {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	return root
}

// stackOptions tweaks what openStack builds.
type stackOptions struct {
	// telemetry attaches the outcome recorder to the engine.
	telemetry bool
	// progress is handed to the loader for ingest display.
	progress ingest.ProgressFunc
}

// openStack builds the full engine stack rooted at root. The context bounds
// provider setup only (the ollama embedder probes its endpoint); callers own
// the returned stack and must Close it.
func openStack(ctx context.Context, root string, cfg *config.Config, opts stackOptions) (*searchStack, error) {
	dataDir := cfg.ResolveDataDir(root)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", dataDir, err)
	}

	embedder, err := embed.NewEmbedder(ctx, embed.Options{
		Provider:   cfg.Embeddings.Provider,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
		OllamaHost: cfg.Embeddings.OllamaHost,
		CacheSize:  cfg.Embeddings.CacheSize,
	})
	if err != nil {
		return nil, err
	}

	st := &searchStack{cfg: cfg, root: root, dataDir: dataDir, embedder: embedder}

	// Index geometry follows the embedder: an ollama model reports its own
	// dimensions and the persisted graphs must match.
	registry, err := tenant.NewRegistry(dataDir, tenant.PartitionConfig{
		KeywordBackend: cfg.Search.KeywordBackend,
		Vector: store.VectorConfig{
			Dimensions: embedder.Dimensions(),
			Metric:     cfg.Search.VectorMetric,
			M:          cfg.Search.HNSW.M,
			EfSearch:   cfg.Search.HNSW.EfSearch,
		},
	}, cfg.Tenants.CacheSize)
	if err != nil {
		return nil, st.closeAfter(err)
	}
	st.registry = registry

	vector, err := source.NewVectorClient(registry, embedder)
	if err != nil {
		return nil, st.closeAfter(err)
	}
	keyword, err := source.NewKeywordClient(registry)
	if err != nil {
		return nil, st.closeAfter(err)
	}

	var engineOpts []engine.Option
	if opts.telemetry && cfg.TelemetryEnabled() {
		ts, err := telemetry.Open(filepath.Join(dataDir, telemetry.DBFileName))
		if err != nil {
			return nil, st.closeAfter(err)
		}
		st.telemetryStore = ts

		rec, err := telemetry.NewRecorder(ts)
		if err != nil {
			return nil, st.closeAfter(err)
		}
		st.recorder = rec
		engineOpts = append(engineOpts, engine.WithRecorder(rec))
	}

	eng, err := engine.NewEngine(vector, keyword, engine.Config{
		Weights: engine.Weights{
			Vector:  cfg.Search.VectorWeight,
			Keyword: cfg.Search.KeywordWeight,
		},
		FanoutTimeout: cfg.FanoutTimeout(),
		DefaultTopK:   cfg.Search.DefaultTopK,
		MaxTopK:       cfg.Search.MaxTopK,
	}, engineOpts...)
	if err != nil {
		return nil, st.closeAfter(err)
	}
	st.engine = eng

	var loaderOpts []ingest.Option
	if opts.progress != nil {
		loaderOpts = append(loaderOpts, ingest.WithProgress(opts.progress))
	}
	loader, err := ingest.NewLoader(registry, embedder,
		ingest.Config{BatchSize: cfg.Embeddings.BatchSize}, loaderOpts...)
	if err != nil {
		return nil, st.closeAfter(err)
	}
	st.loader = loader

	return st, nil
}

// Close releases the stack in dependency order: the recorder flushes before
// its store closes, partitions save before the embedder goes away.
func (st *searchStack) Close() error {
	var errs []error
	if st.recorder != nil {
		if err := st.recorder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close telemetry recorder: %w", err))
		}
	}
	if st.telemetryStore != nil {
		if err := st.telemetryStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close telemetry store: %w", err))
		}
	}
	if st.registry != nil {
		if err := st.registry.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close tenant registry: %w", err))
		}
	}
	if st.embedder != nil {
		if err := st.embedder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close embedder: %w", err))
		}
	}
	return errors.Join(errs...)
}

// closeAfter tears down a partially built stack and passes the original
// error through.
func (st *searchStack) closeAfter(err error) error {
	_ = st.Close()
	return err
}

// hasTenants reports whether any tenant partition exists under dataDir.
func hasTenants(dataDir string) bool {
	entries, err := os.ReadDir(filepath.Join(dataDir, "tenants"))
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() {
			return true
		}
	}
	return false
}

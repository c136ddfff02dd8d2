package retrieval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/riptide-search/riptide/internal/config"
	"github.com/riptide-search/riptide/internal/embed"
	"github.com/riptide-search/riptide/internal/engine"
	"github.com/riptide-search/riptide/internal/ingest"
	"github.com/riptide-search/riptide/internal/source"
	"github.com/riptide-search/riptide/internal/store"
	"github.com/riptide-search/riptide/internal/telemetry"
	"github.com/riptide-search/riptide/internal/tenant"
)

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("retrieval client is closed")

// Client is an embedded retrieval engine over one data directory. It owns
// the tenant registry, the embedding provider, and the search engine;
// Close releases all of them.
type Client struct {
	cfg      *config.Config
	registry *tenant.Registry
	embedder embed.Embedder
	engine   *engine.Engine
	loader   *ingest.Loader

	telemetryStore *telemetry.Store
	recorder       *telemetry.Recorder

	mu     sync.RWMutex
	closed bool
}

// Open builds a retrieval client rooted at dataDir, creating the directory
// if needed. The context covers provider setup only (an ollama embedder
// probes its endpoint for the model's dimensions); it does not bound the
// client's lifetime.
func Open(ctx context.Context, dataDir string, opts ...Option) (*Client, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}

	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	cfg, err := s.resolveConfig()
	if err != nil {
		return nil, err
	}

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

	c := &Client{cfg: cfg, embedder: embedder}

	// Partition geometry follows the embedder, not the raw config: an
	// ollama model reports its own dimensions and the indexes must match.
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
		return nil, c.abortOpen(err)
	}
	c.registry = registry

	vector, err := source.NewVectorClient(registry, embedder)
	if err != nil {
		return nil, c.abortOpen(err)
	}
	keyword, err := source.NewKeywordClient(registry)
	if err != nil {
		return nil, c.abortOpen(err)
	}

	var engineOpts []engine.Option
	if cfg.TelemetryEnabled() {
		ts, err := telemetry.Open(filepath.Join(dataDir, telemetry.DBFileName))
		if err != nil {
			return nil, c.abortOpen(err)
		}
		c.telemetryStore = ts

		rec, err := telemetry.NewRecorder(ts)
		if err != nil {
			return nil, c.abortOpen(err)
		}
		c.recorder = rec
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
		return nil, c.abortOpen(err)
	}
	c.engine = eng

	var loaderOpts []ingest.Option
	if s.progress != nil {
		loaderOpts = append(loaderOpts, ingest.WithProgress(s.progress))
	}
	loader, err := ingest.NewLoader(registry, embedder,
		ingest.Config{BatchSize: cfg.Embeddings.BatchSize}, loaderOpts...)
	if err != nil {
		return nil, c.abortOpen(err)
	}
	c.loader = loader

	return c, nil
}

// resolveConfig builds the effective config: defaults, then layered file
// and environment config when a config dir was given, then the direct
// option overrides.
func (s settings) resolveConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if s.configDir != "" {
		loaded, err := config.Load(s.configDir)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if s.weightsSet {
		cfg.Search.VectorWeight = s.vectorWeight
		cfg.Search.KeywordWeight = s.keywordWeight
	}
	if s.fanoutTimeout > 0 {
		cfg.Search.FanoutTimeoutMS = int(s.fanoutTimeout / time.Millisecond)
	}
	if s.defaultTopK > 0 {
		cfg.Search.DefaultTopK = s.defaultTopK
	}
	if s.maxTopK > 0 {
		cfg.Search.MaxTopK = s.maxTopK
	}
	if s.provider != "" {
		cfg.Embeddings.Provider = s.provider
	}
	if s.model != "" {
		cfg.Embeddings.Model = s.model
	}
	if s.keywordBackend != "" {
		cfg.Search.KeywordBackend = s.keywordBackend
	}
	if s.telemetry != nil {
		cfg.Telemetry.Enabled = s.telemetry
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Search runs one hybrid search. A degraded outcome is a success: inspect
// the outcome's Tier, not the error, to tell how many sources answered.
// The error is non-nil only for invalid requests.
func (c *Client) Search(ctx context.Context, req Request) (*Outcome, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}

	outcome, err := c.engine.HybridSearch(ctx, engine.SearchRequest{
		TenantID: req.TenantID,
		Query:    req.Query,
		TopK:     req.TopK,
		Filters:  req.filters(),
	})
	if err != nil {
		return nil, err
	}
	return toOutcome(outcome), nil
}

// Load indexes a JSONL corpus into the tenant's partition, creating the
// tenant on first load. path may be a single .jsonl file or a directory
// of them.
func (c *Client) Load(ctx context.Context, tenantID, path string) (*LoadResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}

	if _, err := c.registry.Create(tenantID); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat corpus path %s: %w", path, err)
	}

	var res *ingest.Result
	if info.IsDir() {
		res, err = c.loader.LoadDir(ctx, tenantID, path)
	} else {
		res, err = c.loader.LoadFile(ctx, tenantID, path)
	}
	if err != nil {
		return nil, err
	}

	return &LoadResult{
		Documents: res.Documents,
		Files:     res.Files,
		Batches:   res.Batches,
		Duration:  res.Duration,
	}, nil
}

// Tenants lists the tenants present in the data directory, sorted.
func (c *Client) Tenants() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}
	return c.registry.List()
}

// Close flushes telemetry and releases every open partition. Closing an
// already closed client returns nil.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.closeParts()
}

// abortOpen tears down whatever Open had built so far and passes the
// original error through.
func (c *Client) abortOpen(err error) error {
	_ = c.closeParts()
	return err
}

// closeParts closes the built components in dependency order: the recorder
// first so its final flush still has a store underneath.
func (c *Client) closeParts() error {
	var errs []error

	if c.recorder != nil {
		if err := c.recorder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close telemetry recorder: %w", err))
		}
	}
	if c.telemetryStore != nil {
		if err := c.telemetryStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close telemetry store: %w", err))
		}
	}
	if c.registry != nil {
		if err := c.registry.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close tenant registry: %w", err))
		}
	}
	if c.embedder != nil {
		if err := c.embedder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close embedder: %w", err))
		}
	}

	return errors.Join(errs...)
}

// filters maps the request's filter fields onto the form the bundled
// source clients accept. A request with no filter fields set passes nil so
// the sources skip the metadata pre-pass entirely.
func (r Request) filters() any {
	f := source.Filters{
		Types:  r.Types,
		Tags:   r.Tags,
		After:  r.After,
		Before: r.Before,
	}
	if f.IsZero() {
		return nil
	}
	return f
}

func toOutcome(o *engine.FusionOutcome) *Outcome {
	out := &Outcome{
		Results:        make([]Result, 0, len(o.Results)),
		Tier:           Tier(o.Tier),
		ElapsedMS:      o.ElapsedMS,
		DegradedReason: string(o.DegradedReason),
	}
	for _, r := range o.Results {
		sources := make([]string, 0, len(r.Sources))
		for _, src := range r.Sources {
			sources = append(sources, string(src))
		}
		out.Results = append(out.Results, Result{
			DocID:         r.DocID,
			CombinedScore: r.CombinedScore,
			Sources:       sources,
			VectorScore:   r.VectorScore,
			KeywordScore:  r.KeywordScore,
		})
	}
	return out
}

package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/riptide-search/riptide/internal/embed"
	rterrors "github.com/riptide-search/riptide/internal/errors"
	"github.com/riptide-search/riptide/internal/store"
	"github.com/riptide-search/riptide/internal/tenant"
)

// DefaultParallelism bounds concurrent embedding batches.
const DefaultParallelism = 4

// Config tunes the load pipeline.
type Config struct {
	// BatchSize is how many documents go through embedding and indexing
	// together.
	BatchSize int

	// Parallelism is how many embedding batches run at once.
	Parallelism int
}

// DefaultConfig returns the loader defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:   embed.DefaultBatchSize,
		Parallelism: DefaultParallelism,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.Parallelism <= 0 {
		c.Parallelism = d.Parallelism
	}
	return c
}

// ProgressFunc reports documents processed out of total. Called from the
// loader's goroutines; implementations synchronize their own state.
type ProgressFunc func(processed, total int)

// Result summarizes a completed load.
type Result struct {
	Documents int
	Batches   int
	Files     int
	Duration  time.Duration
}

// Loader reads JSONL corpora into a tenant partition: keyword batch insert,
// embedding batch to vector upsert, metadata batch put. Loads are serialized
// with a mutex; a load never runs concurrently with itself.
type Loader struct {
	registry *tenant.Registry
	embedder embed.Embedder
	config   Config
	progress ProgressFunc

	mu sync.Mutex
}

// Option configures a Loader.
type Option func(*Loader)

// WithProgress attaches a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(l *Loader) { l.progress = fn }
}

// NewLoader creates a loader over the registry and embedder.
func NewLoader(registry *tenant.Registry, embedder embed.Embedder, cfg Config, opts ...Option) (*Loader, error) {
	if registry == nil {
		return nil, fmt.Errorf("tenant registry is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	l := &Loader{
		registry: registry,
		embedder: embedder,
		config:   cfg.withDefaults(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// LoadFile loads one JSONL file into the tenant's partition.
func (l *Loader) LoadFile(ctx context.Context, tenantID, path string) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx, tenantID, []string{path})
}

// LoadDir loads every *.jsonl file under dir, in name order.
func (l *Loader) LoadDir(ctx context.Context, tenantID, dir string) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("list corpus dir %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, rterrors.New(rterrors.ErrCodeIngestFailed,
			fmt.Sprintf("no .jsonl files under %s", dir), nil).
			WithSuggestion("Point at a JSONL file or a directory containing them.")
	}
	sort.Strings(paths)
	return l.load(ctx, tenantID, paths)
}

func (l *Loader) load(ctx context.Context, tenantID string, paths []string) (*Result, error) {
	start := time.Now()

	p, err := l.registry.Get(tenantID)
	if err != nil {
		return nil, err
	}

	var docs []*store.Document
	for _, path := range paths {
		fileDocs, err := readDocuments(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, fileDocs...)
	}

	result := &Result{Documents: len(docs), Files: len(paths)}
	if len(docs) == 0 {
		result.Duration = time.Since(start)
		return result, nil
	}

	batches := splitBatches(docs, l.config.BatchSize)
	result.Batches = len(batches)
	total := len(docs)
	l.report(0, total)

	// Stage 1: embed all batches, bounded fan-out. Embedding dominates the
	// load time; the index writes below stay serial.
	vectors := make([][][]float32, len(batches))
	var done int
	var doneMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.config.Parallelism)
	for i, batch := range batches {
		g.Go(func() error {
			texts := make([]string, len(batch))
			for j, doc := range batch {
				texts[j] = doc.Text
			}
			vecs, err := l.embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch %d of %d: %w", i+1, len(batches), err)
			}
			vectors[i] = vecs

			doneMu.Lock()
			done += len(batch)
			processed := done
			doneMu.Unlock()
			l.report(processed, total)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Stage 2: land each batch in all three stores.
	for i, batch := range batches {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("load interrupted after %d of %d batches: %w", i, len(batches), ctx.Err())
		default:
		}

		ids := make([]string, len(batch))
		for j, doc := range batch {
			ids[j] = doc.ID
		}

		if err := p.Keyword.Index(ctx, batch); err != nil {
			return nil, fmt.Errorf("keyword index batch %d: %w", i+1, err)
		}
		if err := p.Vector.Upsert(ctx, ids, vectors[i]); err != nil {
			return nil, fmt.Errorf("vector upsert batch %d: %w", i+1, err)
		}
		if err := p.Meta.PutBatch(ctx, batch); err != nil {
			return nil, fmt.Errorf("metadata put batch %d: %w", i+1, err)
		}
	}

	if err := p.Save(); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	slog.Info("corpus loaded",
		slog.String("tenant", tenantID),
		slog.Int("documents", result.Documents),
		slog.Int("files", result.Files),
		slog.Int("batches", result.Batches),
		slog.Int64("duration_ms", result.Duration.Milliseconds()),
		slog.String("embedder_model", l.embedder.ModelName()))
	return result, nil
}

func (l *Loader) report(processed, total int) {
	if l.progress != nil {
		l.progress(processed, total)
	}
}

func splitBatches(docs []*store.Document, size int) [][]*store.Document {
	batches := make([][]*store.Document, 0, (len(docs)+size-1)/size)
	for start := 0; start < len(docs); start += size {
		end := start + size
		if end > len(docs) {
			end = len(docs)
		}
		batches = append(batches, docs[start:end])
	}
	return batches
}

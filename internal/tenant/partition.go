// Package tenant manages per-tenant index partitions. A partition bundles
// the keyword index, the vector index, and the metadata store that live
// under a tenant's directory, guarded by a cross-process file lock. The
// Registry caches open partitions in an LRU and is the only component that
// hands out partition handles, which is what keeps tenant isolation a
// structural property rather than a filtering convention.
package tenant

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gofrs/flock"

	rterrors "github.com/riptide-search/riptide/internal/errors"
	"github.com/riptide-search/riptide/internal/store"
)

const (
	// LockFileName is the per-partition lock file, held for as long as the
	// partition is open.
	LockFileName = ".partition.lock"

	// VectorFileName holds the serialized HNSW graph. Its sidecar
	// (ID mappings, dimensions, metric) sits next to it with a .meta suffix.
	VectorFileName = "vectors.hnsw"

	// MetaFileName is the SQLite metadata database.
	MetaFileName = "meta.db"
)

// PartitionConfig carries the store settings applied when a partition is
// created. Partitions that already exist on disk keep their recorded
// backend and dimensions regardless of what the config says.
type PartitionConfig struct {
	// KeywordBackend selects the keyword index implementation for new
	// partitions ("bleve" or "sqlite").
	KeywordBackend string

	// Vector configures the HNSW index for new partitions.
	Vector store.VectorConfig
}

// Partition is an open tenant partition: three stores plus the file lock
// that keeps other processes out. The store fields are safe for concurrent
// use; each implementation synchronizes internally.
type Partition struct {
	tenantID string
	dir      string

	Keyword store.KeywordIndex
	Vector  store.VectorIndex
	Meta    store.MetadataStore

	lock *flock.Flock

	mu     sync.Mutex
	closed bool
}

// OpenPartition opens the stores under dir, acquiring the partition lock
// first. The directory must already exist; Registry.Get and Registry.Create
// handle directory creation and tenant ID validation.
func OpenPartition(tenantID, dir string, cfg PartitionConfig) (*Partition, error) {
	lockPath := filepath.Join(dir, LockFileName)
	lock := flock.New(lockPath)

	acquired, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire partition lock: %w", err)
	}
	if !acquired {
		return nil, rterrors.New(rterrors.ErrCodePartitionLocked,
			fmt.Sprintf("partition for tenant %q is held by another process", tenantID), nil).
			WithDetail("tenant_id", tenantID).
			WithDetail("lock_file", lockPath).
			WithSuggestion("Stop the other riptide process using this data directory, or give this one its own data_dir.")
	}

	p := &Partition{
		tenantID: tenantID,
		dir:      dir,
		lock:     lock,
	}

	if err := p.openStores(cfg); err != nil {
		p.abandon()
		return nil, err
	}

	slog.Debug("partition opened",
		slog.String("tenant", tenantID),
		slog.String("dir", dir))
	return p, nil
}

// openStores opens the keyword, vector, and metadata stores in order,
// leaving whatever succeeded attached to p so abandon can release it.
func (p *Partition) openStores(cfg PartitionConfig) error {
	// An existing partition keeps its on-disk keyword backend even when the
	// config changed; switching backends would silently start a second,
	// empty index next to the populated one.
	basePath := filepath.Join(p.dir, "keyword")
	backend := string(store.DetectKeywordBackend(basePath))
	if backend == "" {
		backend = cfg.KeywordBackend
	}
	keyword, err := store.NewKeywordIndex(basePath, backend)
	if err != nil {
		return fmt.Errorf("open keyword index for tenant %q: %w", p.tenantID, err)
	}
	p.Keyword = keyword

	vectorPath := filepath.Join(p.dir, VectorFileName)
	onDisk, err := store.ReadVectorDimensions(vectorPath)
	if err != nil {
		return rterrors.New(rterrors.ErrCodeCorruptIndex,
			fmt.Sprintf("vector index metadata for tenant %q is unreadable", p.tenantID), err).
			WithDetail("path", vectorPath+".meta").
			WithSuggestion("Delete the partition's vectors.hnsw and vectors.hnsw.meta files and reindex.")
	}
	if onDisk > 0 && cfg.Vector.Dimensions > 0 && onDisk != cfg.Vector.Dimensions {
		return rterrors.New(rterrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("tenant %q was indexed with %d-dimensional vectors but the configured embedder produces %d",
				p.tenantID, onDisk, cfg.Vector.Dimensions), nil).
			WithDetail("tenant_id", p.tenantID).
			WithDetail("index_dimensions", strconv.Itoa(onDisk)).
			WithDetail("embedder_dimensions", strconv.Itoa(cfg.Vector.Dimensions)).
			WithSuggestion("Reindex the tenant with the current embedder, or restore the embeddings config that built the index.")
	}

	vcfg := cfg.Vector
	if onDisk > 0 {
		// Load restores the persisted config; seed dimensions from disk so
		// the graph is constructed compatibly even if the config is stale.
		vcfg.Dimensions = onDisk
	}
	vector, err := store.NewHNSWIndex(vcfg)
	if err != nil {
		return fmt.Errorf("open vector index for tenant %q: %w", p.tenantID, err)
	}
	p.Vector = vector

	if fileExists(vectorPath) {
		if err := vector.Load(vectorPath); err != nil {
			return rterrors.New(rterrors.ErrCodeCorruptIndex,
				fmt.Sprintf("vector index for tenant %q failed to load", p.tenantID), err).
				WithDetail("path", vectorPath).
				WithSuggestion("Delete the partition's vectors.hnsw and vectors.hnsw.meta files and reindex.")
		}
	}

	meta, err := store.NewSQLiteMetadataStore(filepath.Join(p.dir, MetaFileName))
	if err != nil {
		return fmt.Errorf("open metadata store for tenant %q: %w", p.tenantID, err)
	}
	p.Meta = meta

	return nil
}

// abandon tears down a partially opened partition: close whatever stores
// came up, then drop the lock. Errors are logged, not returned, because the
// caller is already propagating the open failure.
func (p *Partition) abandon() {
	if p.Keyword != nil {
		if err := p.Keyword.Close(); err != nil {
			slog.Warn("failed to close keyword index during cleanup",
				slog.String("tenant", p.tenantID), slog.String("error", err.Error()))
		}
	}
	if p.Vector != nil {
		if err := p.Vector.Close(); err != nil {
			slog.Warn("failed to close vector index during cleanup",
				slog.String("tenant", p.tenantID), slog.String("error", err.Error()))
		}
	}
	if p.Meta != nil {
		if err := p.Meta.Close(); err != nil {
			slog.Warn("failed to close metadata store during cleanup",
				slog.String("tenant", p.tenantID), slog.String("error", err.Error()))
		}
	}
	if err := p.lock.Unlock(); err != nil {
		slog.Warn("failed to release partition lock during cleanup",
			slog.String("tenant", p.tenantID), slog.String("error", err.Error()))
	}
}

// TenantID returns the tenant this partition belongs to.
func (p *Partition) TenantID() string {
	return p.tenantID
}

// Dir returns the partition directory.
func (p *Partition) Dir() string {
	return p.dir
}

// VectorPath returns the path the HNSW graph is persisted to.
func (p *Partition) VectorPath() string {
	return filepath.Join(p.dir, VectorFileName)
}

// Save persists the vector index. The keyword and metadata stores write
// through on every batch, so the HNSW graph is the only store with unsaved
// in-memory state.
func (p *Partition) Save() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("partition for tenant %q is closed", p.tenantID)
	}
	if err := p.Vector.Save(p.VectorPath()); err != nil {
		return fmt.Errorf("save vector index for tenant %q: %w", p.tenantID, err)
	}
	return nil
}

// Close saves the vector index, closes all three stores, and releases the
// partition lock. Safe to call more than once.
func (p *Partition) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error

	// Best effort: a partition evicted mid-flight should still land its
	// vectors on disk before the handle goes away.
	if p.Vector.Count() > 0 {
		if err := p.Vector.Save(p.VectorPath()); err != nil {
			errs = append(errs, fmt.Errorf("save vector index: %w", err))
		}
	}

	if err := p.Keyword.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close keyword index: %w", err))
	}
	if err := p.Vector.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close vector index: %w", err))
	}
	if err := p.Meta.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close metadata store: %w", err))
	}
	if err := p.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("release partition lock: %w", err))
	}

	slog.Debug("partition closed", slog.String("tenant", p.tenantID))

	if len(errs) > 0 {
		return fmt.Errorf("close partition for tenant %q: %v", p.tenantID, errs)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

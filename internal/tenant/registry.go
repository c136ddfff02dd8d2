package tenant

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	rterrors "github.com/riptide-search/riptide/internal/errors"
	"github.com/riptide-search/riptide/internal/validation"
)

// DefaultCacheSize bounds how many partitions stay open at once. Each open
// partition holds file handles for three stores plus the lock file, so the
// cap matters more for file descriptors than for memory.
const DefaultCacheSize = 32

// TenantsDirName is the subdirectory of the data dir that holds one
// partition directory per tenant.
const TenantsDirName = "tenants"

// Registry maps tenant IDs to open partitions under a single data
// directory. Handles are cached in an LRU whose eviction callback closes
// the partition. All methods are safe for concurrent use; opens are
// serialized so two goroutines racing on the same tenant cannot trip over
// the partition lock.
type Registry struct {
	dataDir string
	config  PartitionConfig

	mu     sync.Mutex
	cache  *lru.Cache[string, *Partition]
	closed bool
}

// NewRegistry creates a registry rooted at dataDir. cacheSize bounds the
// number of simultaneously open partitions; values below 1 fall back to
// DefaultCacheSize.
func NewRegistry(dataDir string, cfg PartitionConfig, cacheSize int) (*Registry, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("registry data dir is required")
	}
	if cacheSize < 1 {
		cacheSize = DefaultCacheSize
	}

	cache, err := lru.NewWithEvict(cacheSize, func(tenantID string, p *Partition) {
		if err := p.Close(); err != nil {
			slog.Warn("failed to close evicted partition",
				slog.String("tenant", tenantID),
				slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create partition cache: %w", err)
	}

	return &Registry{
		dataDir: dataDir,
		config:  cfg,
		cache:   cache,
	}, nil
}

// Get returns the open partition for tenantID, opening it if needed. A
// tenant with no partition directory yields ErrCodeTenantNotFound; use
// Create to make one.
func (r *Registry) Get(tenantID string) (*Partition, error) {
	if err := validation.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("tenant registry is closed")
	}

	if p, ok := r.cache.Get(tenantID); ok {
		return p, nil
	}

	dir := r.partitionDir(tenantID)
	if !dirExists(dir) {
		return nil, rterrors.New(rterrors.ErrCodeTenantNotFound,
			fmt.Sprintf("tenant %q has no partition under %s", tenantID, r.dataDir), nil).
			WithDetail("tenant_id", tenantID).
			WithDetail("data_dir", r.dataDir).
			WithSuggestion("Create the tenant first: riptide index <corpus.jsonl> --tenant " + tenantID + " --create")
	}

	return r.open(tenantID, dir)
}

// Create opens the partition for tenantID, making its directory first if
// it does not exist. Calling Create on an existing tenant is equivalent to
// Get.
func (r *Registry) Create(tenantID string) (*Partition, error) {
	if err := validation.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("tenant registry is closed")
	}

	if p, ok := r.cache.Get(tenantID); ok {
		return p, nil
	}

	dir := r.partitionDir(tenantID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create partition directory for tenant %q: %w", tenantID, err)
	}

	return r.open(tenantID, dir)
}

// open opens a partition and caches it. Callers hold r.mu.
func (r *Registry) open(tenantID, dir string) (*Partition, error) {
	p, err := OpenPartition(tenantID, dir, r.config)
	if err != nil {
		return nil, err
	}

	// Add may evict the least recently used partition; the eviction
	// callback closes it. In-flight requests holding the evicted handle see
	// closed-store errors, which the engine reports as a degraded source.
	r.cache.Add(tenantID, p)
	return p, nil
}

// List returns the IDs of every tenant with a partition directory, sorted.
// Entries that are not valid tenant IDs (stray files, editor droppings) are
// skipped.
func (r *Registry) List() ([]string, error) {
	entries, err := os.ReadDir(r.tenantsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := validation.ValidateTenantID(entry.Name()); err != nil {
			continue
		}
		ids = append(ids, entry.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// Len returns the number of currently open partitions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}

// DataDir returns the directory the registry is rooted at.
func (r *Registry) DataDir() string {
	return r.dataDir
}

// Close closes every cached partition and marks the registry unusable.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	// Purge runs the eviction callback for every entry.
	r.cache.Purge()
	return nil
}

func (r *Registry) tenantsDir() string {
	return filepath.Join(r.dataDir, TenantsDirName)
}

func (r *Registry) partitionDir(tenantID string) string {
	return filepath.Join(r.tenantsDir(), tenantID)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

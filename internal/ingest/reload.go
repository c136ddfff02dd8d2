package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riptide-search/riptide/internal/tenant"
	"github.com/riptide-search/riptide/internal/watcher"
)

// Reloader applies settled corpus changes from the watcher to tenant
// partitions. Used by serve --watch.
type Reloader struct {
	loader   *Loader
	registry *tenant.Registry
}

// ReloadOption configures a Reloader.
type ReloadOption func(*Reloader)

// WithAutoCreate makes the reloader register unknown tenants before
// loading, so dropping a new corpus file into the watched directory
// brings the tenant up without a separate index --create run.
func WithAutoCreate(registry *tenant.Registry) ReloadOption {
	return func(r *Reloader) { r.registry = registry }
}

// NewReloader creates a reloader over the loader.
func NewReloader(loader *Loader, opts ...ReloadOption) (*Reloader, error) {
	if loader == nil {
		return nil, fmt.Errorf("corpus loader is required")
	}
	r := &Reloader{loader: loader}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// HandleEvents consumes reload batches until the channel closes or the
// context is cancelled. A failed reload is logged and skipped; a broken
// corpus file must not take down the serve loop.
func (r *Reloader) HandleEvents(ctx context.Context, events <-chan []watcher.ReloadEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-events:
			if !ok {
				return
			}
			for _, ev := range batch {
				if err := r.reload(ctx, ev); err != nil {
					slog.Warn("corpus reload failed",
						slog.String("tenant", ev.TenantID),
						slog.String("path", ev.Path),
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}
}

func (r *Reloader) reload(ctx context.Context, ev watcher.ReloadEvent) error {
	if r.registry != nil {
		if _, err := r.registry.Create(ev.TenantID); err != nil {
			return fmt.Errorf("create tenant %s: %w", ev.TenantID, err)
		}
	}
	if ev.Dir {
		_, err := r.loader.LoadDir(ctx, ev.TenantID, ev.Path)
		return err
	}
	_, err := r.loader.LoadFile(ctx, ev.TenantID, ev.Path)
	return err
}

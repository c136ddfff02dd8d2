// Package watcher turns corpus file changes into per-tenant reload
// triggers for serve --watch.
//
// Two layouts are recognized under the corpus root:
//
//	<root>/<tenant>.jsonl          single-file corpus
//	<root>/<tenant>/<name>.jsonl   directory corpus, reloaded as a unit
//
// Changes are debounced so an editor save-burst collapses into one
// trigger per tenant. The watcher only reports which tenants settled;
// running the loader is the caller's job.
package watcher

import (
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/riptide-search/riptide/internal/validation"
)

// ReloadEvent says a tenant's corpus changed on disk and has settled.
type ReloadEvent struct {
	// TenantID is the tenant whose corpus changed.
	TenantID string

	// Path is what to hand the loader: the .jsonl file itself, or the
	// tenant directory when Dir is true.
	Path string

	// Dir is true when the tenant keeps its corpus as a directory of
	// .jsonl files rather than a single file.
	Dir bool

	// Timestamp is when the last change for this tenant was seen.
	Timestamp time.Time
}

// Options configures the watcher behavior.
type Options struct {
	// DebounceWindow is how long a tenant's corpus must stay quiet
	// before a reload fires. Default: 500ms.
	DebounceWindow time.Duration

	// PollInterval is the scan interval when falling back to polling.
	// Default: 5s.
	PollInterval time.Duration

	// EventBufferSize is the reload channel buffer. Default: 64.
	EventBufferSize int
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  500 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 64,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}

// resolveTenant maps a path relative to the corpus root onto the tenant
// it belongs to. Non-jsonl files, paths nested deeper than one tenant
// directory, and names that are not valid tenant IDs are all skipped.
func resolveTenant(root, relPath string) (ReloadEvent, bool) {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	switch len(parts) {
	case 1:
		name := parts[0]
		if path.Ext(name) != ".jsonl" {
			return ReloadEvent{}, false
		}
		tenantID := strings.TrimSuffix(name, ".jsonl")
		if validation.ValidateTenantID(tenantID) != nil {
			return ReloadEvent{}, false
		}
		return ReloadEvent{
			TenantID: tenantID,
			Path:     filepath.Join(root, name),
		}, true
	case 2:
		if path.Ext(parts[1]) != ".jsonl" {
			return ReloadEvent{}, false
		}
		tenantID := parts[0]
		if validation.ValidateTenantID(tenantID) != nil {
			return ReloadEvent{}, false
		}
		return ReloadEvent{
			TenantID: tenantID,
			Path:     filepath.Join(root, tenantID),
			Dir:      true,
		}, true
	default:
		return ReloadEvent{}, false
	}
}

package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/riptide-search/riptide/internal/validation"
)

// CorpusWatcher watches a corpus directory and emits debounced reload
// events. fsnotify is the primary backend; when it cannot initialize
// (inotify watch limits, some network mounts) the watcher falls back
// to periodic scanning.
type CorpusWatcher struct {
	fsw       *fsnotify.Watcher
	poller    *scanPoller
	debouncer *Debouncer
	events    chan []ReloadEvent
	errors    chan error
	stopCh    chan struct{}
	root      string
	opts      Options
	mu        sync.RWMutex
	stopped   bool
	dropped   atomic.Uint64
}

// NewCorpusWatcher creates a watcher with the given options.
func NewCorpusWatcher(opts Options) (*CorpusWatcher, error) {
	opts = opts.WithDefaults()

	w := &CorpusWatcher{
		debouncer: NewDebouncer(opts.DebounceWindow),
		events:    make(chan []ReloadEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		opts:      opts,
	}

	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		w.fsw = fsw
	} else {
		slog.Warn("fsnotify unavailable, falling back to polling",
			slog.String("error", err.Error()),
			slog.Duration("poll_interval", opts.PollInterval),
		)
		w.poller = newScanPoller(opts.PollInterval)
	}

	return w, nil
}

// Start begins watching the corpus directory. It blocks until the
// context is cancelled or Stop is called.
func (w *CorpusWatcher) Start(ctx context.Context, dir string) error {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve corpus path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("corpus directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("corpus path %s is not a directory", absPath)
	}

	w.mu.Lock()
	w.root = absPath
	w.mu.Unlock()

	go w.forward(ctx)

	if w.fsw != nil {
		return w.startFsnotify(ctx)
	}
	return w.startPolling(ctx)
}

// startFsnotify runs the fsnotify event loop.
func (w *CorpusWatcher) startFsnotify(ctx context.Context) error {
	if err := w.addWatches(); err != nil {
		return fmt.Errorf("watch corpus directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

// addWatches registers the corpus root and each existing tenant
// directory. The layout is one level deep, so no recursion is needed.
func (w *CorpusWatcher) addWatches() error {
	if err := w.fsw.Add(w.root); err != nil {
		return err
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if validation.ValidateTenantID(e.Name()) != nil {
			continue
		}
		if err := w.fsw.Add(filepath.Join(w.root, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// handleFsnotifyEvent filters raw events down to tenant corpus changes.
// Removals and renames of the old path never trigger a reload; the
// last loaded index keeps serving until a new corpus shows up.
func (w *CorpusWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	relPath, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watchNewDir(event.Name)
			return
		}
	}

	ev, ok := resolveTenant(w.root, relPath)
	if !ok {
		return
	}
	ev.Timestamp = time.Now()
	w.debouncer.Add(ev)
}

// watchNewDir registers a tenant directory that appeared after Start.
// A directory moved into place already has its files and no further
// events will fire for them, so they are enqueued here.
func (w *CorpusWatcher) watchNewDir(dir string) {
	if validation.ValidateTenantID(filepath.Base(dir)) != nil {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		w.emitError(fmt.Errorf("watch new directory %s: %w", dir, err))
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.emitError(fmt.Errorf("scan new directory %s: %w", dir, err))
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		relPath, err := filepath.Rel(w.root, filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		ev, ok := resolveTenant(w.root, relPath)
		if !ok {
			continue
		}
		ev.Timestamp = time.Now()
		w.debouncer.Add(ev)
	}
}

// startPolling runs the scan-based fallback.
func (w *CorpusWatcher) startPolling(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case relPath, ok := <-w.poller.Changes():
				if !ok {
					return
				}
				ev, resolved := resolveTenant(w.root, relPath)
				if !resolved {
					continue
				}
				ev.Timestamp = time.Now()
				w.debouncer.Add(ev)
			case err, ok := <-w.poller.Errors():
				if !ok {
					return
				}
				w.emitError(err)
			}
		}
	}()

	return w.poller.Start(ctx, w.root)
}

// forward moves settled batches from the debouncer to the output channel.
func (w *CorpusWatcher) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case batch, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			if len(batch) == 0 {
				continue
			}
			w.emit(batch)
		}
	}
}

// emit sends a batch without blocking the event loop. The lock is held
// across the send so Stop cannot close the channel under a sender.
func (w *CorpusWatcher) emit(batch []ReloadEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return
	}

	select {
	case w.events <- batch:
	default:
		count := w.dropped.Add(1)
		slog.Warn("reload buffer full, dropping batch",
			slog.Int("batch_size", len(batch)),
			slog.Uint64("total_dropped_batches", count),
		)
	}
}

// emitError sends an error without blocking the event loop.
func (w *CorpusWatcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return
	}

	select {
	case w.errors <- err:
	default:
	}
}

// Stop stops the watcher and releases resources.
// Safe to call multiple times.
func (w *CorpusWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}

	w.stopped = true
	close(w.stopCh)

	w.debouncer.Stop()

	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	if w.poller != nil {
		_ = w.poller.Stop()
	}

	close(w.events)
	close(w.errors)
	return nil
}

// Events returns the channel of settled reload batches.
// The channel is closed when the watcher stops.
func (w *CorpusWatcher) Events() <-chan []ReloadEvent {
	return w.events
}

// Errors returns the channel of watcher errors. Errors here are
// non-fatal; the watcher keeps running.
func (w *CorpusWatcher) Errors() <-chan error {
	return w.errors
}

// DroppedBatches returns how many batches were dropped because the
// events channel was full.
func (w *CorpusWatcher) DroppedBatches() uint64 {
	return w.dropped.Load()
}

// Backend reports which watch mechanism is in use, "fsnotify" or
// "polling".
func (w *CorpusWatcher) Backend() string {
	if w.fsw != nil {
		return "fsnotify"
	}
	return "polling"
}

// Root returns the corpus directory being watched.
func (w *CorpusWatcher) Root() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.root
}

package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// scanPoller detects corpus changes by rescanning the directory on an
// interval. Fallback for environments where fsnotify cannot start.
// It reports created and rewritten .jsonl files; deletions are dropped
// from its state without a notice, matching the fsnotify path.
type scanPoller struct {
	interval time.Duration
	seen     map[string]fileStamp
	changes  chan string
	errs     chan error
	stopCh   chan struct{}
	mu       sync.Mutex
	stopped  bool
	root     string
}

type fileStamp struct {
	modTime time.Time
	size    int64
}

func newScanPoller(interval time.Duration) *scanPoller {
	return &scanPoller{
		interval: interval,
		seen:     make(map[string]fileStamp),
		changes:  make(chan string, 100),
		errs:     make(chan error, 10),
		stopCh:   make(chan struct{}),
	}
}

// Start scans once to establish a baseline, then rescans on the
// interval. It blocks until the context is cancelled or Stop is called.
func (p *scanPoller) Start(ctx context.Context, root string) error {
	p.root = root

	baseline, err := p.snapshot()
	if err != nil {
		return fmt.Errorf("initial corpus scan: %w", err)
	}
	p.mu.Lock()
	p.seen = baseline
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.detect(); err != nil {
				select {
				case p.errs <- err:
				default:
				}
			}
		}
	}
}

// Stop stops the poller. Safe to call multiple times.
func (p *scanPoller) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}

	p.stopped = true
	close(p.stopCh)
	close(p.changes)
	close(p.errs)
	return nil
}

// Changes returns the channel of changed corpus paths, relative to the
// root.
func (p *scanPoller) Changes() <-chan string {
	return p.changes
}

// Errors returns the channel of scan errors.
func (p *scanPoller) Errors() <-chan error {
	return p.errs
}

// snapshot records every .jsonl file at the two depths the corpus
// layout allows: direct children and files one tenant directory down.
func (p *scanPoller) snapshot() (map[string]fileStamp, error) {
	out := make(map[string]fileStamp)

	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil, fmt.Errorf("scan corpus root: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			// The directory can vanish between the two reads.
			sub, err := os.ReadDir(filepath.Join(p.root, e.Name()))
			if err != nil {
				continue
			}
			for _, se := range sub {
				if se.IsDir() || filepath.Ext(se.Name()) != ".jsonl" {
					continue
				}
				info, err := se.Info()
				if err != nil {
					continue
				}
				out[filepath.Join(e.Name(), se.Name())] = fileStamp{
					modTime: info.ModTime(),
					size:    info.Size(),
				}
			}
			continue
		}
		if filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out[e.Name()] = fileStamp{modTime: info.ModTime(), size: info.Size()}
	}
	return out, nil
}

// detect compares the current snapshot against the previous one and
// reports new or rewritten files.
func (p *scanPoller) detect() error {
	current, err := p.snapshot()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for relPath, stamp := range current {
		prev, ok := p.seen[relPath]
		if !ok || !prev.modTime.Equal(stamp.modTime) || prev.size != stamp.size {
			p.emit(relPath)
		}
	}
	p.seen = current
	return nil
}

// emit sends a change notice. Must be called with the lock held.
func (p *scanPoller) emit(relPath string) {
	if p.stopped {
		return
	}

	select {
	case p.changes <- relPath:
	default:
		slog.Warn("poller buffer full, dropping change",
			slog.String("path", relPath),
		)
	}
}

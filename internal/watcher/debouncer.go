package watcher

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Debouncer coalesces change notices so at most one reload fires per
// tenant once the corpus directory has been quiet for the full window.
// Every Add pushes the flush out again, which is what makes a
// multi-file editor save or an rsync land as a single batch.
type Debouncer struct {
	window  time.Duration
	pending map[string]ReloadEvent
	mu      sync.Mutex
	output  chan []ReloadEvent
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]ReloadEvent),
		output:  make(chan []ReloadEvent, 10),
	}
}

// Add records a change for the event's tenant. The latest event for a
// tenant wins; earlier ones within the window are discarded.
func (d *Debouncer) Add(event ReloadEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending[event.TenantID] = event
	d.scheduleFlush()
}

// scheduleFlush restarts the quiet-window timer.
func (d *Debouncer) scheduleFlush() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush emits all pending events as one batch, ordered by tenant ID.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	events := make([]ReloadEvent, 0, len(d.pending))
	for _, ev := range d.pending {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].TenantID < events[j].TenantID
	})
	d.pending = make(map[string]ReloadEvent)

	select {
	case d.output <- events:
	default:
		slog.Warn("debouncer output full, dropping batch",
			slog.Int("batch_size", len(events)),
		)
	}
}

// Output returns the channel of settled reload batches.
func (d *Debouncer) Output() <-chan []ReloadEvent {
	return d.output
}

// Stop stops the debouncer and closes the output channel.
// Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}

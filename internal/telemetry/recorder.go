package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/riptide-search/riptide/internal/engine"
)

const (
	// DefaultFlushInterval is how often buffered outcomes hit the store.
	DefaultFlushInterval = 2 * time.Second

	// flushBatch triggers an early flush once this many outcomes buffer up.
	flushBatch = 64

	// maxPending caps the buffer while the store is unreachable; overflow
	// sheds oldest first.
	maxPending = 4096

	flushTimeout = 5 * time.Second
)

// Recorder buffers search outcomes and writes them to the store in the
// background, keeping telemetry off the request path. Recording never fails
// a search: flush errors are logged and the batch is dropped.
type Recorder struct {
	store    *Store
	interval time.Duration

	mu      sync.Mutex
	pending []Outcome
	closed  bool

	kick   chan struct{}
	stopCh chan struct{}
	done   chan struct{}
}

var _ engine.Recorder = (*Recorder)(nil)

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithFlushInterval overrides the background flush cadence.
func WithFlushInterval(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.interval = d
		}
	}
}

// NewRecorder creates a recorder over the store and starts its flush loop.
func NewRecorder(store *Store, opts ...RecorderOption) (*Recorder, error) {
	if store == nil {
		return nil, fmt.Errorf("telemetry store is required")
	}
	r := &Recorder{
		store:    store,
		interval: DefaultFlushInterval,
		kick:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.flushLoop()
	return r, nil
}

// RecordSearch implements engine.Recorder. It only appends to the buffer;
// the flush loop does the I/O.
func (r *Recorder) RecordSearch(_ context.Context, rec engine.SearchRecord) {
	o := Outcome{
		RequestID:      rec.RequestID,
		TenantID:       rec.TenantID,
		Tier:           string(rec.Tier),
		ElapsedMS:      rec.ElapsedMS,
		DegradedReason: string(rec.DegradedReason),
		ResultCount:    rec.ResultCount,
		VectorStatus:   string(rec.VectorStatus),
		KeywordStatus:  string(rec.KeywordStatus),
		RecordedAt:     time.Now().UTC(),
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if len(r.pending) >= maxPending {
		r.pending = r.pending[1:]
	}
	r.pending = append(r.pending, o)
	n := len(r.pending)
	r.mu.Unlock()

	if n >= flushBatch {
		select {
		case r.kick <- struct{}{}:
		default:
		}
	}
}

func (r *Recorder) flushLoop() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.flushLogged()
		case <-r.kick:
			r.flushLogged()
		case <-r.stopCh:
			return
		}
	}
}

func (r *Recorder) flushLogged() {
	if err := r.Flush(); err != nil {
		slog.Warn("telemetry flush failed", "error", err)
	}
}

// Flush writes buffered outcomes now. The background loop covers steady
// state; tests and Close call this directly.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	return r.store.InsertBatch(ctx, batch)
}

// Close stops the flush loop and writes anything still buffered.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.stopCh)
	<-r.done

	return r.Flush()
}

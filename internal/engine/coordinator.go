package engine

import (
	"context"
	"errors"
	"time"

	rterrors "github.com/riptide-search/riptide/internal/errors"
)

// DefaultFanoutTimeout is the shared deadline for one request's concurrent
// source calls.
const DefaultFanoutTimeout = 500 * time.Millisecond

// SourceStatus classifies how one source call ended.
type SourceStatus string

const (
	StatusOK      SourceStatus = "ok"
	StatusTimeout SourceStatus = "timeout"
	StatusError   SourceStatus = "error"
)

// SourceOutcome is everything the coordinator knows about one source call:
// its candidates when it succeeded, how it ended, and how long it ran.
type SourceOutcome struct {
	Batch   CandidateBatch
	Status  SourceStatus
	Err     error
	Elapsed time.Duration
}

// SourceCall is one source invocation run under the coordinator's deadline.
type SourceCall func(ctx context.Context) (CandidateBatch, error)

// Coordinator fans a request out to both sources under a shared deadline.
// Calls start simultaneously and the coordinator returns when both finish
// or the deadline fires, whichever is first. A call still running at the
// deadline is cancelled through its context and reported as a timeout; a
// result that arrived before then stays usable.
type Coordinator struct {
	timeout time.Duration
}

// NewCoordinator creates a coordinator with the given fan-out deadline.
// Non-positive values fall back to DefaultFanoutTimeout.
func NewCoordinator(timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultFanoutTimeout
	}
	return &Coordinator{timeout: timeout}
}

// Timeout returns the configured fan-out deadline.
func (c *Coordinator) Timeout() time.Duration { return c.timeout }

// Run executes both calls concurrently. An earlier deadline on ctx tightens
// the budget; the coordinator never extends it.
func (c *Coordinator) Run(ctx context.Context, vectorCall, keywordCall SourceCall) (vector, keyword SourceOutcome) {
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	vecCh := launch(runCtx, vectorCall)
	kwCh := launch(runCtx, keywordCall)

	vector = await(runCtx, vecCh, start)
	keyword = await(runCtx, kwCh, start)
	return vector, keyword
}

// launch runs call in its own goroutine. The channel is buffered so an
// abandoned call can still deliver its outcome and exit.
func launch(ctx context.Context, call SourceCall) <-chan SourceOutcome {
	ch := make(chan SourceOutcome, 1)
	go func() {
		callStart := time.Now()
		batch, err := call(ctx)
		ch <- SourceOutcome{
			Batch:   batch,
			Status:  classify(err),
			Err:     err,
			Elapsed: time.Since(callStart),
		}
	}()
	return ch
}

// await collects one call's outcome, giving up when the run context ends.
func await(ctx context.Context, ch <-chan SourceOutcome, start time.Time) SourceOutcome {
	select {
	case out := <-ch:
		return out
	case <-ctx.Done():
	}

	// The deadline fired. The call may have delivered in the same instant,
	// so drain once more before writing it off.
	select {
	case out := <-ch:
		return out
	default:
		return SourceOutcome{
			Status:  StatusTimeout,
			Err:     ctx.Err(),
			Elapsed: time.Since(start),
		}
	}
}

// classify maps a source error to its status. Deadline and cancellation
// errors count as timeouts; everything else is a source error.
func classify(err error) SourceStatus {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		rterrors.GetCode(err) == rterrors.ErrCodeSourceTimeout:
		return StatusTimeout
	default:
		return StatusError
	}
}

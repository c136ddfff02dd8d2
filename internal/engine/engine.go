package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/riptide-search/riptide/internal/validation"
)

// ErrNilDependency is returned when a required collaborator is nil.
var ErrNilDependency = errors.New("nil dependency")

// candidateMultiplier over-fetches each source so fusion still fills TopK
// when the sources disagree on the top documents.
const candidateMultiplier = 2

// Engine fans each request out to the vector and keyword sources,
// normalizes and fuses their candidates, and reports the tier achieved.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	vector      SearchClient
	keyword     SearchClient
	coordinator *Coordinator
	fuser       *Fuser
	config      Config
	recorder    Recorder
}

// NewEngine creates a hybrid search engine over the two source clients.
// Returns an error if either client is nil.
func NewEngine(vector, keyword SearchClient, cfg Config, opts ...Option) (*Engine, error) {
	if vector == nil {
		return nil, fmt.Errorf("%w: vector client is required", ErrNilDependency)
	}
	if keyword == nil {
		return nil, fmt.Errorf("%w: keyword client is required", ErrNilDependency)
	}

	cfg = cfg.withDefaults()
	e := &Engine{
		vector:      vector,
		keyword:     keyword,
		coordinator: NewCoordinator(cfg.FanoutTimeout),
		fuser:       NewFuser(cfg.Weights),
		config:      cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the resolved engine configuration.
func (e *Engine) Config() Config { return e.config }

// HybridSearch runs one search request end to end. The returned error is
// non-nil only when the request itself is invalid; source failures degrade
// the outcome's tier instead of failing the call.
func (e *Engine) HybridSearch(ctx context.Context, req SearchRequest) (*FusionOutcome, error) {
	start := time.Now()

	req, err := e.prepare(req)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	fetchK := req.TopK * candidateMultiplier

	vec, kw := e.coordinator.Run(ctx,
		func(ctx context.Context) (CandidateBatch, error) {
			return e.vector.Search(ctx, req.TenantID, req.Query, req.Filters, fetchK)
		},
		func(ctx context.Context) (CandidateBatch, error) {
			return e.keyword.Search(ctx, req.TenantID, req.Query, req.Filters, fetchK)
		},
	)

	outcome := e.assemble(req, vec, kw)
	outcome.ElapsedMS = time.Since(start).Milliseconds()

	e.logOutcome(requestID, req, outcome, vec, kw)

	if e.recorder != nil {
		e.recorder.RecordSearch(ctx, SearchRecord{
			RequestID:      requestID,
			TenantID:       req.TenantID,
			Tier:           outcome.Tier,
			ElapsedMS:      outcome.ElapsedMS,
			DegradedReason: outcome.DegradedReason,
			ResultCount:    len(outcome.Results),
			VectorStatus:   vec.Status,
			KeywordStatus:  kw.Status,
		})
	}

	return outcome, nil
}

// prepare validates the request and resolves defaults. Nothing downstream
// runs when this fails.
func (e *Engine) prepare(req SearchRequest) (SearchRequest, error) {
	if err := validation.ValidateTenantID(req.TenantID); err != nil {
		return req, err
	}
	req.Query = strings.TrimSpace(req.Query)
	if err := validation.ValidateQuery(req.Query); err != nil {
		return req, err
	}
	if err := validation.ValidateTopK(req.TopK); err != nil {
		return req, err
	}
	req.TopK = validation.ClampTopK(req.TopK, e.config.DefaultTopK, e.config.MaxTopK)
	return req, nil
}

// assemble picks the tier from the two source statuses and fuses whatever
// survived.
func (e *Engine) assemble(req SearchRequest, vec, kw SourceOutcome) *FusionOutcome {
	switch {
	case vec.Status == StatusOK && kw.Status == StatusOK:
		return &FusionOutcome{
			Results: e.fuser.Fuse(
				Normalize(vec.Batch.Candidates, vec.Batch.Metric),
				Normalize(kw.Batch.Candidates, kw.Batch.Metric),
				req.TopK,
			),
			Tier: TierHybrid,
		}

	case vec.Status == StatusOK:
		return &FusionOutcome{
			Results:        e.fuser.FuseSingle(Normalize(vec.Batch.Candidates, vec.Batch.Metric), req.TopK),
			Tier:           TierVectorOnly,
			DegradedReason: reasonFor(kw.Status),
		}

	case kw.Status == StatusOK:
		return &FusionOutcome{
			Results:        e.fuser.FuseSingle(Normalize(kw.Batch.Candidates, kw.Batch.Metric), req.TopK),
			Tier:           TierKeywordOnly,
			DegradedReason: reasonFor(vec.Status),
		}

	default:
		return &FusionOutcome{
			Results:        []*FusedResult{},
			Tier:           TierUnavailable,
			DegradedReason: unavailableReason(vec.Status, kw.Status),
		}
	}
}

// reasonFor converts a failed source status to the outcome's reason.
func reasonFor(s SourceStatus) DegradedReason {
	if s == StatusTimeout {
		return DegradedTimeout
	}
	return DegradedError
}

// unavailableReason picks the reason when both sources went down. With
// mixed causes the deadline was the binding constraint, so timeout wins.
func unavailableReason(vec, kw SourceStatus) DegradedReason {
	if vec == StatusTimeout || kw == StatusTimeout {
		return DegradedTimeout
	}
	return DegradedError
}

func (e *Engine) logOutcome(requestID string, req SearchRequest, out *FusionOutcome, vec, kw SourceOutcome) {
	if vec.Status != StatusOK {
		slog.Warn("vector source degraded",
			slog.String("request_id", requestID),
			slog.String("tenant_id", req.TenantID),
			slog.String("status", string(vec.Status)),
			slog.Duration("source_elapsed", vec.Elapsed),
			slog.String("error", errText(vec.Err)))
	}
	if kw.Status != StatusOK {
		slog.Warn("keyword source degraded",
			slog.String("request_id", requestID),
			slog.String("tenant_id", req.TenantID),
			slog.String("status", string(kw.Status)),
			slog.Duration("source_elapsed", kw.Elapsed),
			slog.String("error", errText(kw.Err)))
	}

	slog.Debug("hybrid search completed",
		slog.String("request_id", requestID),
		slog.String("tenant_id", req.TenantID),
		slog.String("tier", string(out.Tier)),
		slog.Int("results", len(out.Results)),
		slog.Int64("elapsed_ms", out.ElapsedMS),
		slog.String("degraded_reason", string(out.DegradedReason)))
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

package source

import (
	"context"
	"fmt"

	"github.com/riptide-search/riptide/internal/engine"
	rterrors "github.com/riptide-search/riptide/internal/errors"
	"github.com/riptide-search/riptide/internal/tenant"
)

// KeywordClient serves the keyword half of the fan-out over the tenant's
// full-text index. BM25 relevance reaches the engine as similarity-style
// raw scores.
type KeywordClient struct {
	registry *tenant.Registry
	breaker  *rterrors.CircuitBreaker
}

var _ engine.SearchClient = (*KeywordClient)(nil)

// NewKeywordClient creates the keyword search client.
func NewKeywordClient(registry *tenant.Registry) (*KeywordClient, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: tenant registry is required", engine.ErrNilDependency)
	}
	return &KeywordClient{
		registry: registry,
		breaker:  rterrors.NewCircuitBreaker("keyword-source"),
	}, nil
}

// Breaker exposes the client's circuit breaker for status reporting.
func (c *KeywordClient) Breaker() *rterrors.CircuitBreaker { return c.breaker }

// Search implements engine.SearchClient. As with the vector client, tenant
// resolution and the empty-index check stay outside the breaker.
func (c *KeywordClient) Search(ctx context.Context, tenantID, query string, filters any, topK int) (engine.CandidateBatch, error) {
	f, err := resolveFilters(filters)
	if err != nil {
		return engine.CandidateBatch{}, err
	}

	p, err := c.registry.Get(tenantID)
	if err != nil {
		return engine.CandidateBatch{}, err
	}

	if stats := p.Keyword.Stats(); stats == nil || stats.DocumentCount == 0 {
		return engine.CandidateBatch{}, rterrors.New(rterrors.ErrCodeEmptyIndex,
			fmt.Sprintf("tenant %q has no documents indexed", tenantID), nil).
			WithDetail("tenant_id", tenantID).
			WithSuggestion("Load documents first: riptide index <corpus.jsonl> --tenant " + tenantID)
	}

	return rterrors.CircuitExecuteWithResult(c.breaker,
		func() (engine.CandidateBatch, error) {
			return c.search(ctx, p, query, f, topK)
		},
		func() (engine.CandidateBatch, error) {
			return engine.CandidateBatch{}, rterrors.New(rterrors.ErrCodeSourceFailed,
				"keyword source circuit is open", rterrors.ErrCircuitOpen)
		})
}

func (c *KeywordClient) search(ctx context.Context, p *tenant.Partition, query string, f Filters, topK int) (engine.CandidateBatch, error) {
	fetchK := topK
	var allowed map[string]struct{}
	if !f.IsZero() {
		ids, err := p.Meta.MatchIDs(ctx, f.metaQuery())
		if err != nil {
			return engine.CandidateBatch{}, err
		}
		if len(ids) == 0 {
			return engine.CandidateBatch{Metric: engine.MetricSimilarity}, nil
		}
		allowed = ids
		fetchK = topK * filterOverfetch
	}

	hits, err := p.Keyword.Search(ctx, query, fetchK)
	if err != nil {
		return engine.CandidateBatch{}, err
	}

	batch := engine.CandidateBatch{Metric: engine.MetricSimilarity}
	for _, h := range hits {
		if allowed != nil {
			if _, ok := allowed[h.DocID]; !ok {
				continue
			}
		}
		batch.Candidates = append(batch.Candidates, engine.Candidate{
			DocID:    h.DocID,
			RawScore: h.Score,
			Source:   engine.SourceKeyword,
		})
		if len(batch.Candidates) >= topK {
			break
		}
	}
	return batch, nil
}

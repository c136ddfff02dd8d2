package source

import (
	"context"
	"fmt"

	"github.com/riptide-search/riptide/internal/embed"
	"github.com/riptide-search/riptide/internal/engine"
	rterrors "github.com/riptide-search/riptide/internal/errors"
	"github.com/riptide-search/riptide/internal/store"
	"github.com/riptide-search/riptide/internal/tenant"
)

// filterOverfetch widens index queries when a metadata filter is active so
// enough hits survive the trim.
const filterOverfetch = 4

// VectorClient serves the vector half of the fan-out. It owns query
// embedding: callers hand it text, never vectors, so an embedder outage is
// a vector-source failure and nothing more.
type VectorClient struct {
	registry *tenant.Registry
	embedder embed.Embedder
	breaker  *rterrors.CircuitBreaker
}

var _ engine.SearchClient = (*VectorClient)(nil)

// NewVectorClient creates the vector search client.
func NewVectorClient(registry *tenant.Registry, embedder embed.Embedder) (*VectorClient, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: tenant registry is required", engine.ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", engine.ErrNilDependency)
	}
	return &VectorClient{
		registry: registry,
		embedder: embedder,
		breaker:  rterrors.NewCircuitBreaker("vector-source"),
	}, nil
}

// Breaker exposes the client's circuit breaker for status reporting.
func (c *VectorClient) Breaker() *rterrors.CircuitBreaker { return c.breaker }

// Search implements engine.SearchClient. Tenant resolution and the
// empty-index check run outside the breaker: a missing tenant is not a
// backend fault and must not open the circuit for everyone else.
func (c *VectorClient) Search(ctx context.Context, tenantID, query string, filters any, topK int) (engine.CandidateBatch, error) {
	f, err := resolveFilters(filters)
	if err != nil {
		return engine.CandidateBatch{}, err
	}

	p, err := c.registry.Get(tenantID)
	if err != nil {
		return engine.CandidateBatch{}, err
	}

	if p.Vector.Count() == 0 {
		return engine.CandidateBatch{}, rterrors.New(rterrors.ErrCodeEmptyIndex,
			fmt.Sprintf("tenant %q has no vectors indexed", tenantID), nil).
			WithDetail("tenant_id", tenantID).
			WithSuggestion("Load documents first: riptide index <corpus.jsonl> --tenant " + tenantID)
	}

	return rterrors.CircuitExecuteWithResult(c.breaker,
		func() (engine.CandidateBatch, error) {
			return c.search(ctx, p, query, f, topK)
		},
		func() (engine.CandidateBatch, error) {
			return engine.CandidateBatch{}, rterrors.New(rterrors.ErrCodeSourceFailed,
				"vector source circuit is open", rterrors.ErrCircuitOpen)
		})
}

func (c *VectorClient) search(ctx context.Context, p *tenant.Partition, query string, f Filters, topK int) (engine.CandidateBatch, error) {
	fetchK := topK
	var allowed map[string]struct{}
	if !f.IsZero() {
		ids, err := p.Meta.MatchIDs(ctx, f.metaQuery())
		if err != nil {
			return engine.CandidateBatch{}, err
		}
		if len(ids) == 0 {
			// Nothing can match; skip the embedding round-trip.
			return engine.CandidateBatch{Metric: c.metric(p)}, nil
		}
		allowed = ids
		fetchK = topK * filterOverfetch
	}

	queryVec, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return engine.CandidateBatch{}, err
	}

	hits, err := p.Vector.Search(ctx, queryVec, fetchK)
	if err != nil {
		return engine.CandidateBatch{}, err
	}

	metric := c.metric(p)
	batch := engine.CandidateBatch{Metric: metric}
	for _, h := range hits {
		if allowed != nil {
			if _, ok := allowed[h.DocID]; !ok {
				continue
			}
		}
		raw := float64(h.Score)
		if metric == engine.MetricL2 {
			raw = float64(h.Distance)
		}
		batch.Candidates = append(batch.Candidates, engine.Candidate{
			DocID:    h.DocID,
			RawScore: raw,
			Source:   engine.SourceVector,
		})
		if len(batch.Candidates) >= topK {
			break
		}
	}
	return batch, nil
}

// metric maps the partition's distance metric to the normalizer's hint.
// Cosine hits arrive as similarity scores; L2 hits arrive as raw distances.
func (c *VectorClient) metric(p *tenant.Partition) engine.MetricHint {
	if p.Vector.Metric() == store.MetricL2 {
		return engine.MetricL2
	}
	return engine.MetricSimilarity
}

package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptide-search/riptide/internal/embed"
	"github.com/riptide-search/riptide/internal/engine"
	rterrors "github.com/riptide-search/riptide/internal/errors"
)

func TestVectorClient_Search_RanksLexicalOverlapFirst(t *testing.T) {
	// Given a tenant with three seeded documents
	r := newTestRegistry(t)
	seedTenant(t, r, "acme", maritimeDocs())

	client, err := NewVectorClient(r, embed.NewStaticEmbedder(testDims))
	require.NoError(t, err)

	// When searching with terms that overlap one document heavily
	batch, err := client.Search(context.Background(), "acme", "harbor dredging permit", nil, 10)

	// Then the overlapping document ranks first with similarity scores
	require.NoError(t, err)
	require.NotEmpty(t, batch.Candidates)
	assert.Equal(t, engine.MetricSimilarity, batch.Metric)
	assert.Equal(t, "doc-dredge", batch.Candidates[0].DocID)
	for _, c := range batch.Candidates {
		assert.Equal(t, engine.SourceVector, c.Source)
	}
}

func TestVectorClient_Search_ScopedToTenant(t *testing.T) {
	// Given two tenants with disjoint corpora
	r := newTestRegistry(t)
	seedTenant(t, r, "acme", maritimeDocs())
	seedTenant(t, r, "globex", globexDocs())

	client, err := NewVectorClient(r, embed.NewStaticEmbedder(testDims))
	require.NoError(t, err)

	acmeIDs := docIDSet(maritimeDocs())
	globexIDs := docIDSet(globexDocs())

	// When searching each tenant with the other tenant's vocabulary
	acmeBatch, err := client.Search(context.Background(), "acme", "crane inspection", nil, 10)
	require.NoError(t, err)
	globexBatch, err := client.Search(context.Background(), "globex", "harbor dredging permit", nil, 10)
	require.NoError(t, err)

	// Then no candidate crosses the partition boundary
	for _, c := range acmeBatch.Candidates {
		assert.True(t, acmeIDs[c.DocID], "acme result %q must come from acme", c.DocID)
	}
	for _, c := range globexBatch.Candidates {
		assert.True(t, globexIDs[c.DocID], "globex result %q must come from globex", c.DocID)
	}
}

func TestVectorClient_Search_HonorsTopK(t *testing.T) {
	r := newTestRegistry(t)
	seedTenant(t, r, "acme", maritimeDocs())

	client, err := NewVectorClient(r, embed.NewStaticEmbedder(testDims))
	require.NoError(t, err)

	batch, err := client.Search(context.Background(), "acme", "harbor", nil, 1)

	require.NoError(t, err)
	assert.Len(t, batch.Candidates, 1)
}

func TestVectorClient_Search_EmptyIndex(t *testing.T) {
	// Given a tenant that exists but holds no documents
	r := newTestRegistry(t)
	_, err := r.Create("acme")
	require.NoError(t, err)

	client, err := NewVectorClient(r, embed.NewStaticEmbedder(testDims))
	require.NoError(t, err)

	// When searching it
	_, err = client.Search(context.Background(), "acme", "harbor", nil, 10)

	// Then the error names the empty index, and the breaker is untouched
	require.Error(t, err)
	assert.Equal(t, rterrors.ErrCodeEmptyIndex, rterrors.GetCode(err))
	assert.Equal(t, 0, client.Breaker().Failures())
}

func TestVectorClient_Search_UnknownTenant(t *testing.T) {
	r := newTestRegistry(t)

	client, err := NewVectorClient(r, embed.NewStaticEmbedder(testDims))
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "ghost", "harbor", nil, 10)

	require.Error(t, err)
	assert.Equal(t, rterrors.ErrCodeTenantNotFound, rterrors.GetCode(err))
	assert.Equal(t, 0, client.Breaker().Failures())
}

func TestVectorClient_Search_InvalidFilterValue(t *testing.T) {
	r := newTestRegistry(t)
	seedTenant(t, r, "acme", maritimeDocs())

	emb := newCountingEmbedder()
	client, err := NewVectorClient(r, emb)
	require.NoError(t, err)

	// When the filter value is not a source.Filters
	_, err = client.Search(context.Background(), "acme", "harbor", 42, 10)

	// Then the request is rejected before any backend work
	require.Error(t, err)
	assert.Equal(t, rterrors.ErrCodeInvalidFilter, rterrors.GetCode(err))
	assert.Equal(t, 0, emb.queryCount())
	assert.Equal(t, 0, client.Breaker().Failures())
}

func TestVectorClient_Search_TypeFilter(t *testing.T) {
	r := newTestRegistry(t)
	seedTenant(t, r, "acme", maritimeDocs())

	client, err := NewVectorClient(r, embed.NewStaticEmbedder(testDims))
	require.NoError(t, err)

	batch, err := client.Search(context.Background(), "acme", "harbor",
		Filters{Types: []string{"note"}}, 10)

	require.NoError(t, err)
	require.Len(t, batch.Candidates, 1)
	assert.Equal(t, "doc-tide", batch.Candidates[0].DocID)
}

func TestVectorClient_Search_FilterWithNoMatches(t *testing.T) {
	r := newTestRegistry(t)
	seedTenant(t, r, "acme", maritimeDocs())

	emb := newCountingEmbedder()
	client, err := NewVectorClient(r, emb)
	require.NoError(t, err)

	// When the predicate matches nothing
	batch, err := client.Search(context.Background(), "acme", "harbor",
		Filters{Types: []string{"memo"}}, 10)

	// Then the result is an empty batch, not an error, and the embedding
	// round-trip is skipped
	require.NoError(t, err)
	assert.Empty(t, batch.Candidates)
	assert.Equal(t, 0, emb.queryCount())
}

func TestVectorClient_Search_TimeFilter(t *testing.T) {
	r := newTestRegistry(t)
	seedTenant(t, r, "acme", maritimeDocs())

	client, err := NewVectorClient(r, embed.NewStaticEmbedder(testDims))
	require.NoError(t, err)

	batch, err := client.Search(context.Background(), "acme", "harbor",
		Filters{After: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}, 10)

	require.NoError(t, err)
	got := make(map[string]bool)
	for _, c := range batch.Candidates {
		got[c.DocID] = true
	}
	assert.False(t, got["doc-berth"], "doc-berth predates the cutoff")
	assert.True(t, got["doc-dredge"])
	assert.True(t, got["doc-tide"])
}

func TestVectorClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	// Given a vector client whose embedder is down
	r := newTestRegistry(t)
	seedTenant(t, r, "acme", maritimeDocs())

	emb := newFailingEmbedder()
	client, err := NewVectorClient(r, emb)
	require.NoError(t, err)

	// When five consecutive searches fail
	for i := 0; i < 5; i++ {
		_, err := client.Search(context.Background(), "acme", "harbor", nil, 10)
		require.Error(t, err)
		assert.Equal(t, rterrors.ErrCodeEmbeddingFailed, rterrors.GetCode(err))
	}

	// Then the circuit opens and the sixth call is rejected without
	// touching the embedder
	require.Equal(t, rterrors.StateOpen, client.Breaker().State())

	_, err = client.Search(context.Background(), "acme", "harbor", nil, 10)
	require.Error(t, err)
	assert.Equal(t, rterrors.ErrCodeSourceFailed, rterrors.GetCode(err))
	assert.True(t, errors.Is(err, rterrors.ErrCircuitOpen))
	assert.Equal(t, 5, emb.callCount())
}

func TestNewVectorClient_NilDependencies(t *testing.T) {
	r := newTestRegistry(t)

	_, err := NewVectorClient(nil, embed.NewStaticEmbedder(testDims))
	assert.ErrorIs(t, err, engine.ErrNilDependency)

	_, err = NewVectorClient(r, nil)
	assert.ErrorIs(t, err, engine.ErrNilDependency)
}

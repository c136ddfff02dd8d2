package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptide-search/riptide/internal/engine"
	rterrors "github.com/riptide-search/riptide/internal/errors"
)

func TestKeywordClient_Search_MatchesQueryTerms(t *testing.T) {
	// Given a tenant with three seeded documents
	r := newTestRegistry(t)
	seedTenant(t, r, "acme", maritimeDocs())

	client, err := NewKeywordClient(r)
	require.NoError(t, err)

	// When searching for a term that appears in exactly one document
	batch, err := client.Search(context.Background(), "acme", "dredging", nil, 10)

	// Then only that document comes back, scored by relevance
	require.NoError(t, err)
	require.Len(t, batch.Candidates, 1)
	assert.Equal(t, "doc-dredge", batch.Candidates[0].DocID)
	assert.Equal(t, engine.SourceKeyword, batch.Candidates[0].Source)
	assert.Equal(t, engine.MetricSimilarity, batch.Metric)
	assert.Greater(t, batch.Candidates[0].RawScore, 0.0)
}

func TestKeywordClient_Search_ScopedToTenant(t *testing.T) {
	r := newTestRegistry(t)
	seedTenant(t, r, "acme", maritimeDocs())
	seedTenant(t, r, "globex", globexDocs())

	client, err := NewKeywordClient(r)
	require.NoError(t, err)

	// When searching globex for acme's vocabulary
	batch, err := client.Search(context.Background(), "globex", "harbor dredging", nil, 10)

	// Then nothing leaks across the partition boundary
	require.NoError(t, err)
	assert.Empty(t, batch.Candidates)
}

func TestKeywordClient_Search_HonorsTopK(t *testing.T) {
	r := newTestRegistry(t)
	seedTenant(t, r, "acme", maritimeDocs())

	client, err := NewKeywordClient(r)
	require.NoError(t, err)

	// "harbor" appears in all three documents
	batch, err := client.Search(context.Background(), "acme", "harbor", nil, 2)

	require.NoError(t, err)
	assert.Len(t, batch.Candidates, 2)
}

func TestKeywordClient_Search_EmptyIndex(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Create("acme")
	require.NoError(t, err)

	client, err := NewKeywordClient(r)
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "acme", "harbor", nil, 10)

	require.Error(t, err)
	assert.Equal(t, rterrors.ErrCodeEmptyIndex, rterrors.GetCode(err))
	assert.Equal(t, 0, client.Breaker().Failures())
}

func TestKeywordClient_Search_UnknownTenant(t *testing.T) {
	r := newTestRegistry(t)

	client, err := NewKeywordClient(r)
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "ghost", "harbor", nil, 10)

	require.Error(t, err)
	assert.Equal(t, rterrors.ErrCodeTenantNotFound, rterrors.GetCode(err))
	assert.Equal(t, 0, client.Breaker().Failures())
}

func TestKeywordClient_Search_InvalidFilterValue(t *testing.T) {
	r := newTestRegistry(t)
	seedTenant(t, r, "acme", maritimeDocs())

	client, err := NewKeywordClient(r)
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "acme", "harbor", "not-a-filter", 10)

	require.Error(t, err)
	assert.Equal(t, rterrors.ErrCodeInvalidFilter, rterrors.GetCode(err))
	assert.Equal(t, 0, client.Breaker().Failures())
}

func TestKeywordClient_Search_TagFilter(t *testing.T) {
	r := newTestRegistry(t)
	seedTenant(t, r, "acme", maritimeDocs())

	client, err := NewKeywordClient(r)
	require.NoError(t, err)

	batch, err := client.Search(context.Background(), "acme", "harbor",
		Filters{Tags: []string{"permits"}}, 10)

	require.NoError(t, err)
	require.Len(t, batch.Candidates, 1)
	assert.Equal(t, "doc-dredge", batch.Candidates[0].DocID)
}

func TestKeywordClient_Search_TimeFilter(t *testing.T) {
	r := newTestRegistry(t)
	seedTenant(t, r, "acme", maritimeDocs())

	client, err := NewKeywordClient(r)
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

func TestKeywordClient_Search_FilterWithNoMatches(t *testing.T) {
	r := newTestRegistry(t)
	seedTenant(t, r, "acme", maritimeDocs())

	client, err := NewKeywordClient(r)
	require.NoError(t, err)

	batch, err := client.Search(context.Background(), "acme", "harbor",
		Filters{Types: []string{"memo"}}, 10)

	require.NoError(t, err)
	assert.Empty(t, batch.Candidates)
}

func TestKeywordClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	// Given a seeded tenant whose metadata store has gone down
	r := newTestRegistry(t)
	seedTenant(t, r, "acme", maritimeDocs())

	p, err := r.Get("acme")
	require.NoError(t, err)
	require.NoError(t, p.Meta.Close())

	client, err := NewKeywordClient(r)
	require.NoError(t, err)

	// Filtered searches resolve metadata inside the guarded section, so
	// each one counts as a backend failure
	filter := Filters{Tags: []string{"permits"}}
	for i := 0; i < 5; i++ {
		_, err := client.Search(context.Background(), "acme", "harbor", filter, 10)
		require.Error(t, err)
	}

	// Then the circuit opens and the next call short-circuits
	require.Equal(t, rterrors.StateOpen, client.Breaker().State())

	_, err = client.Search(context.Background(), "acme", "harbor", filter, 10)
	require.Error(t, err)
	assert.Equal(t, rterrors.ErrCodeSourceFailed, rterrors.GetCode(err))
	assert.True(t, errors.Is(err, rterrors.ErrCircuitOpen))

	// Unfiltered searches sharing the breaker are rejected too
	_, err = client.Search(context.Background(), "acme", "harbor", nil, 10)
	require.Error(t, err)
	assert.Equal(t, rterrors.ErrCodeSourceFailed, rterrors.GetCode(err))
}

func TestNewKeywordClient_NilRegistry(t *testing.T) {
	_, err := NewKeywordClient(nil)
	assert.ErrorIs(t, err, engine.ErrNilDependency)
}

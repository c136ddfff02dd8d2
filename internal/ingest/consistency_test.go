package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptide-search/riptide/internal/store"
	"github.com/riptide-search/riptide/internal/tenant"
)

func loadedPartition(t *testing.T) *tenant.Partition {
	t.Helper()

	r := newTestRegistry(t)
	p, err := r.Create("acme")
	require.NoError(t, err)

	path := writeJSONL(t, t.TempDir(), "acme.jsonl", corpusLines...)
	loader := newTestLoader(t, r, DefaultConfig())
	_, err = loader.LoadFile(context.Background(), "acme", path)
	require.NoError(t, err)
	return p
}

func TestCheckPartition_ConsistentAfterLoad(t *testing.T) {
	p := loadedPartition(t)

	report, err := CheckPartition(context.Background(), p)

	require.NoError(t, err)
	assert.True(t, report.Consistent())
	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, "acme", report.TenantID)
	assert.Contains(t, report.Summary(), "consistent")
}

func TestCheckPartition_DetectsMissingVector(t *testing.T) {
	p := loadedPartition(t)
	ctx := context.Background()

	// A vector vanishes but metadata still lists the document
	require.NoError(t, p.Vector.Delete(ctx, []string{"doc-tide"}))

	report, err := CheckPartition(ctx, p)

	require.NoError(t, err)
	assert.False(t, report.Consistent())
	assert.Equal(t, []string{"doc-tide"}, report.MissingVector)
	assert.Empty(t, report.MissingKeyword)
	assert.Contains(t, report.Summary(), "missing")
}

func TestCheckPartition_DetectsMissingKeyword(t *testing.T) {
	p := loadedPartition(t)
	ctx := context.Background()

	require.NoError(t, p.Keyword.Delete(ctx, []string{"doc-berth"}))

	report, err := CheckPartition(ctx, p)

	require.NoError(t, err)
	assert.Equal(t, []string{"doc-berth"}, report.MissingKeyword)
	assert.Empty(t, report.MissingVector)
}

func TestCheckPartition_DetectsOrphans(t *testing.T) {
	p := loadedPartition(t)
	ctx := context.Background()

	// Entries land in the indexes without metadata
	require.NoError(t, p.Keyword.Index(ctx, []*store.Document{
		{ID: "stray-kw", Text: "flotsam"},
	}))
	vec := make([]float32, testDims)
	vec[0] = 1
	require.NoError(t, p.Vector.Upsert(ctx, []string{"stray-vec"}, [][]float32{vec}))

	report, err := CheckPartition(ctx, p)

	require.NoError(t, err)
	assert.False(t, report.Consistent())
	assert.Equal(t, []string{"stray-kw"}, report.OrphanKeyword)
	assert.Equal(t, []string{"stray-vec"}, report.OrphanVector)
	assert.Contains(t, report.Summary(), "orphaned")
}

func TestCheckPartition_EmptyPartition(t *testing.T) {
	r := newTestRegistry(t)
	p, err := r.Create("empty")
	require.NoError(t, err)

	report, err := CheckPartition(context.Background(), p)

	require.NoError(t, err)
	assert.True(t, report.Consistent())
	assert.Equal(t, 0, report.Checked)
}

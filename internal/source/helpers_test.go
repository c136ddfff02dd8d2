package source

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riptide-search/riptide/internal/embed"
	rterrors "github.com/riptide-search/riptide/internal/errors"
	"github.com/riptide-search/riptide/internal/store"
	"github.com/riptide-search/riptide/internal/tenant"
)

const testDims = 64

func newTestRegistry(t *testing.T) *tenant.Registry {
	t.Helper()
	cfg := tenant.PartitionConfig{
		KeywordBackend: string(store.KeywordBackendBleve),
		Vector:         store.DefaultVectorConfig(testDims),
	}
	r, err := tenant.NewRegistry(t.TempDir(), cfg, 8)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = r.Close()
	})
	return r
}

// seedTenant creates the tenant and lands docs in all three stores, the
// same shape the ingest loader produces.
func seedTenant(t *testing.T, r *tenant.Registry, tenantID string, docs []*store.Document) {
	t.Helper()
	ctx := context.Background()

	p, err := r.Create(tenantID)
	require.NoError(t, err)

	ids := make([]string, len(docs))
	texts := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		texts[i] = d.Text
	}

	vectors, err := embed.NewStaticEmbedder(testDims).Embed(ctx, texts)
	require.NoError(t, err)

	require.NoError(t, p.Keyword.Index(ctx, docs))
	require.NoError(t, p.Vector.Upsert(ctx, ids, vectors))
	require.NoError(t, p.Meta.PutBatch(ctx, docs))
}

func maritimeDocs() []*store.Document {
	return []*store.Document{
		{
			ID:        "doc-berth",
			Text:      "berth allocation and mooring plan for the north harbor quay",
			Type:      "report",
			Tags:      []string{"operations"},
			CreatedAt: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:        "doc-dredge",
			Text:      "harbor dredging schedule and sediment disposal permit",
			Type:      "report",
			Tags:      []string{"operations", "permits"},
			CreatedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:        "doc-tide",
			Text:      "tide tables and tidal current predictions for the harbor entrance",
			Type:      "note",
			Tags:      []string{"reference"},
			CreatedAt: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
		},
	}
}

func globexDocs() []*store.Document {
	return []*store.Document{
		{
			ID:        "gx-crane",
			Text:      "crane inspection logbook for the container terminal",
			Type:      "report",
			CreatedAt: time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:        "gx-fuel",
			Text:      "fuel bunkering checklist and spill response drill",
			Type:      "note",
			CreatedAt: time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC),
		},
	}
}

func docIDSet(docs []*store.Document) map[string]bool {
	ids := make(map[string]bool, len(docs))
	for _, d := range docs {
		ids[d.ID] = true
	}
	return ids
}

// countingEmbedder wraps the static embedder and counts query embeddings.
type countingEmbedder struct {
	embed.Embedder
	mu      sync.Mutex
	queries int
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{Embedder: embed.NewStaticEmbedder(testDims)}
}

func (c *countingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.queries++
	c.mu.Unlock()
	return c.Embedder.EmbedQuery(ctx, text)
}

func (c *countingEmbedder) queryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queries
}

// failingEmbedder errors on every query embedding.
type failingEmbedder struct {
	embed.Embedder
	mu    sync.Mutex
	calls int
}

func newFailingEmbedder() *failingEmbedder {
	return &failingEmbedder{Embedder: embed.NewStaticEmbedder(testDims)}
}

func (f *failingEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return nil, rterrors.New(rterrors.ErrCodeEmbeddingFailed, "embedder offline", nil)
}

func (f *failingEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

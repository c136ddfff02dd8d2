package store

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHNSW(t *testing.T, dims int) *HNSWIndex {
	t.Helper()
	idx, err := NewHNSWIndex(DefaultVectorConfig(dims))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestHNSWIndex_UpsertAndSearch_Basic(t *testing.T) {
	// Given: an index with three well-separated vectors
	idx := newTestHNSW(t, 3)
	ids := []string{"a", "b", "c"}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	require.NoError(t, idx.Upsert(context.Background(), ids, vectors))

	// When: searching near one of them
	results, err := idx.Search(context.Background(), []float32{0.9, 0.1, 0}, 3)
	require.NoError(t, err)

	// Then: the nearest vector ranks first with the best score
	require.NotEmpty(t, results)
	assert.Equal(t, "a", results[0].DocID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestHNSWIndex_Upsert_ReplacesExistingID(t *testing.T) {
	// Given: an index with one vector
	idx := newTestHNSW(t, 3)
	require.NoError(t, idx.Upsert(context.Background(), []string{"a"}, [][]float32{{1, 0, 0}}))

	// When: upserting the same ID with a new vector
	require.NoError(t, idx.Upsert(context.Background(), []string{"a"}, [][]float32{{0, 0, 1}}))

	// Then: the count stays at one and search reflects the new vector
	assert.Equal(t, 1, idx.Count())

	results, err := idx.Search(context.Background(), []float32{0, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].DocID)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
}

func TestHNSWIndex_Delete_HidesVector(t *testing.T) {
	// Given: two vectors
	idx := newTestHNSW(t, 3)
	require.NoError(t, idx.Upsert(context.Background(),
		[]string{"a", "b"}, [][]float32{{1, 0, 0}, {0, 1, 0}}))

	// When: deleting one
	require.NoError(t, idx.Delete(context.Background(), []string{"a"}))

	// Then: it disappears from every read path
	assert.False(t, idx.Contains("a"))
	assert.True(t, idx.Contains("b"))
	assert.Equal(t, 1, idx.Count())
	assert.ElementsMatch(t, []string{"b"}, idx.AllIDs())

	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.DocID)
	}
}

func TestHNSWIndex_Delete_NonExistentIsNoop(t *testing.T) {
	idx := newTestHNSW(t, 3)
	require.NoError(t, idx.Upsert(context.Background(), []string{"a"}, [][]float32{{1, 0, 0}}))

	require.NoError(t, idx.Delete(context.Background(), []string{"missing"}))
	assert.Equal(t, 1, idx.Count())
}

func TestHNSWIndex_Search_EmptyIndex(t *testing.T) {
	idx := newTestHNSW(t, 3)

	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWIndex_DimensionMismatch(t *testing.T) {
	idx := newTestHNSW(t, 3)

	// Upsert with the wrong width
	err := idx.Upsert(context.Background(), []string{"a"}, [][]float32{{1, 0}})
	var dimErr ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Got)

	// Search with the wrong width
	_, err = idx.Search(context.Background(), []float32{1, 0}, 1)
	require.ErrorAs(t, err, &dimErr)
}

func TestHNSWIndex_MismatchedIDsAndVectors(t *testing.T) {
	idx := newTestHNSW(t, 3)

	err := idx.Upsert(context.Background(), []string{"a", "b"}, [][]float32{{1, 0, 0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "length mismatch")
}

func TestHNSWIndex_CosineIsScaleInvariant(t *testing.T) {
	// Given: a stored vector and the same direction at 10x magnitude
	idx := newTestHNSW(t, 3)
	require.NoError(t, idx.Upsert(context.Background(), []string{"a"}, [][]float32{{0.2, 0.5, 0.1}}))

	small, err := idx.Search(context.Background(), []float32{0.2, 0.5, 0.1}, 1)
	require.NoError(t, err)
	big, err := idx.Search(context.Background(), []float32{2, 5, 1}, 1)
	require.NoError(t, err)

	// Then: cosine scoring ignores magnitude
	require.Len(t, small, 1)
	require.Len(t, big, 1)
	assert.InDelta(t, float64(small[0].Score), float64(big[0].Score), 1e-5)
	assert.InDelta(t, 1.0, float64(big[0].Score), 1e-5)
}

func TestHNSWIndex_Metric(t *testing.T) {
	cos := newTestHNSW(t, 3)
	assert.Equal(t, MetricCosine, cos.Metric())

	cfg := DefaultVectorConfig(3)
	cfg.Metric = MetricL2
	l2, err := NewHNSWIndex(cfg)
	require.NoError(t, err)
	defer func() { _ = l2.Close() }()
	assert.Equal(t, MetricL2, l2.Metric())
}

func TestHNSWIndex_L2_ReportsRawDistance(t *testing.T) {
	// Given: an L2 index with one vector
	cfg := DefaultVectorConfig(2)
	cfg.Metric = MetricL2
	idx, err := NewHNSWIndex(cfg)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	require.NoError(t, idx.Upsert(context.Background(), []string{"a"}, [][]float32{{0, 0}}))

	// When: searching from distance 3
	results, err := idx.Search(context.Background(), []float32{3, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Then: distance is euclidean and score is 1/(1+d)
	assert.InDelta(t, 3.0, float64(results[0].Distance), 1e-5)
	assert.InDelta(t, 0.25, float64(results[0].Score), 1e-5)
}

func TestHNSWIndex_InvalidConfig(t *testing.T) {
	_, err := NewHNSWIndex(VectorConfig{Dimensions: 0})
	require.Error(t, err)

	_, err = NewHNSWIndex(VectorConfig{Dimensions: 3, Metric: "manhattan"})
	require.Error(t, err)
}

func TestHNSWIndex_Persistence_RoundTrip(t *testing.T) {
	// Given: a populated index saved to disk
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	idx := newTestHNSW(t, 3)
	require.NoError(t, idx.Upsert(context.Background(),
		[]string{"a", "b"}, [][]float32{{1, 0, 0}, {0, 1, 0}}))
	require.NoError(t, idx.Save(path))

	// When: loading into a fresh index
	loaded, err := NewHNSWIndex(DefaultVectorConfig(3))
	require.NoError(t, err)
	defer func() { _ = loaded.Close() }()
	require.NoError(t, loaded.Load(path))

	// Then: contents and search behavior survive
	assert.Equal(t, 2, loaded.Count())
	assert.ElementsMatch(t, []string{"a", "b"}, loaded.AllIDs())

	results, err := loaded.Search(context.Background(), []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].DocID)
}

func TestHNSWIndex_Persistence_DeletedStayDeleted(t *testing.T) {
	// Given: an index with a lazy-deleted vector, saved and reloaded
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	idx := newTestHNSW(t, 3)
	require.NoError(t, idx.Upsert(context.Background(),
		[]string{"a", "b"}, [][]float32{{1, 0, 0}, {0, 1, 0}}))
	require.NoError(t, idx.Delete(context.Background(), []string{"a"}))
	require.NoError(t, idx.Save(path))

	loaded, err := NewHNSWIndex(DefaultVectorConfig(3))
	require.NoError(t, err)
	defer func() { _ = loaded.Close() }()
	require.NoError(t, loaded.Load(path))

	// Then: the orphan stays invisible
	assert.False(t, loaded.Contains("a"))
	assert.Equal(t, 1, loaded.Count())

	results, err := loaded.Search(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.DocID)
	}
}

func TestHNSWIndex_Load_NonexistentFile(t *testing.T) {
	idx := newTestHNSW(t, 3)
	err := idx.Load(filepath.Join(t.TempDir(), "missing.hnsw"))
	require.Error(t, err)
}

func TestHNSWIndex_ClosedOperations(t *testing.T) {
	idx, err := NewHNSWIndex(DefaultVectorConfig(3))
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close()) // Idempotent

	err = idx.Upsert(context.Background(), []string{"a"}, [][]float32{{1, 0, 0}})
	assert.Error(t, err)

	_, err = idx.Search(context.Background(), []float32{1, 0, 0}, 1)
	assert.Error(t, err)

	assert.False(t, idx.Contains("a"))
	assert.Equal(t, 0, idx.Count())
	assert.Nil(t, idx.AllIDs())
}

func TestHNSWIndex_ConcurrentUpsertAndSearch(t *testing.T) {
	idx := newTestHNSW(t, 8)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(w)))
			for i := 0; i < 50; i++ {
				vec := make([]float32, 8)
				for j := range vec {
					vec[j] = rng.Float32()
				}
				id := fmt.Sprintf("w%d-doc%d", w, i)
				if err := idx.Upsert(context.Background(), []string{id}, [][]float32{vec}); err != nil {
					t.Error(err)
					return
				}
				if _, err := idx.Search(context.Background(), vec, 3); err != nil {
					t.Error(err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 200, idx.Count())
}

func TestReadVectorDimensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	// Nonexistent meta means fresh start
	dims, err := ReadVectorDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 0, dims)

	// After a save it reports the stored dimensions
	idx := newTestHNSW(t, 5)
	require.NoError(t, idx.Upsert(context.Background(), []string{"a"}, [][]float32{{1, 0, 0, 0, 0}}))
	require.NoError(t, idx.Save(path))

	dims, err = ReadVectorDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 5, dims)
}

func TestNormalizeVectorInPlace(t *testing.T) {
	v := []float32{3, 4}
	normalizeVectorInPlace(v)
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)

	// Zero vectors stay untouched instead of dividing by zero
	zero := []float32{0, 0, 0}
	normalizeVectorInPlace(zero)
	assert.Equal(t, []float32{0, 0, 0}, zero)

	// Already normalized vectors keep unit length
	unit := []float32{1, 0}
	normalizeVectorInPlace(unit)
	var norm float64
	for _, x := range unit {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestDistanceToScore(t *testing.T) {
	// Cosine: 0 distance is a perfect match, 2 is opposite
	assert.InDelta(t, 1.0, float64(distanceToScore(0, MetricCosine)), 1e-6)
	assert.InDelta(t, 0.5, float64(distanceToScore(1, MetricCosine)), 1e-6)
	assert.InDelta(t, 0.0, float64(distanceToScore(2, MetricCosine)), 1e-6)

	// L2: inverted so larger distances approach zero
	assert.InDelta(t, 1.0, float64(distanceToScore(0, MetricL2)), 1e-6)
	assert.InDelta(t, 0.5, float64(distanceToScore(1, MetricL2)), 1e-6)
	assert.InDelta(t, 0.25, float64(distanceToScore(3, MetricL2)), 1e-6)

	// Unknown metrics fall back to cosine conversion
	assert.InDelta(t, 0.5, float64(distanceToScore(1, "unknown")), 1e-6)
}

func BenchmarkHNSWIndex_Search1K(b *testing.B) {
	idx, err := NewHNSWIndex(DefaultVectorConfig(64))
	if err != nil {
		b.Fatal(err)
	}
	defer func() { _ = idx.Close() }()

	rng := rand.New(rand.NewSource(42))
	ids := make([]string, 1000)
	vectors := make([][]float32, 1000)
	for i := range ids {
		ids[i] = fmt.Sprintf("doc-%d", i)
		vec := make([]float32, 64)
		for j := range vec {
			vec[j] = rng.Float32()
		}
		vectors[i] = vec
	}
	if err := idx.Upsert(context.Background(), ids, vectors); err != nil {
		b.Fatal(err)
	}

	query := vectors[500]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := idx.Search(context.Background(), query, 10); err != nil {
			b.Fatal(err)
		}
	}
}

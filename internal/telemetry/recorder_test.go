package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptide-search/riptide/internal/engine"
)

// newTestRecorder uses an hour-long interval so only explicit Flush calls
// (or the batch kick) move data; tests stay deterministic.
func newTestRecorder(t *testing.T) (*Recorder, *Store) {
	t.Helper()

	store, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})

	rec, err := NewRecorder(store, WithFlushInterval(time.Hour))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = rec.Close()
	})
	return rec, store
}

func searchRecord(id string, tier engine.Tier) engine.SearchRecord {
	return engine.SearchRecord{
		RequestID:     id,
		TenantID:      "acme",
		Tier:          tier,
		ElapsedMS:     42,
		ResultCount:   7,
		VectorStatus:  engine.StatusOK,
		KeywordStatus: engine.StatusOK,
	}
}

func TestRecorder_FlushPersistsRecords(t *testing.T) {
	rec, store := newTestRecorder(t)
	ctx := context.Background()

	rec.RecordSearch(ctx, searchRecord("req-1", engine.TierHybrid))
	rec.RecordSearch(ctx, searchRecord("req-2", engine.TierVectorOnly))

	// Nothing is on disk until a flush
	got, err := store.RecentOutcomes(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, rec.Flush())

	got, err = store.RecentOutcomes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "req-2", got[0].RequestID)
	assert.Equal(t, string(engine.TierVectorOnly), got[0].Tier)
	assert.Equal(t, "req-1", got[1].RequestID)
	assert.Equal(t, int64(42), got[1].ElapsedMS)
	assert.Equal(t, 7, got[1].ResultCount)
	assert.Equal(t, string(engine.StatusOK), got[1].VectorStatus)
	assert.False(t, got[1].RecordedAt.IsZero())
}

func TestRecorder_CloseFlushesPending(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	rec, err := NewRecorder(store, WithFlushInterval(time.Hour))
	require.NoError(t, err)

	ctx := context.Background()
	rec.RecordSearch(ctx, searchRecord("req-1", engine.TierHybrid))

	require.NoError(t, rec.Close())

	got, err := store.RecentOutcomes(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRecorder_RecordAfterCloseIsDropped(t *testing.T) {
	rec, store := newTestRecorder(t)
	ctx := context.Background()

	require.NoError(t, rec.Close())
	rec.RecordSearch(ctx, searchRecord("req-late", engine.TierHybrid))
	require.NoError(t, rec.Flush())

	got, err := store.RecentOutcomes(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecorder_CloseTwice(t *testing.T) {
	rec, _ := newTestRecorder(t)

	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())
}

func TestRecorder_BatchKickFlushesEarly(t *testing.T) {
	rec, store := newTestRecorder(t)
	ctx := context.Background()

	// Enough records to cross the batch threshold with a flush interval of
	// an hour; only the kick can move them
	for i := 0; i < flushBatch; i++ {
		rec.RecordSearch(ctx, searchRecord("req-bulk", engine.TierHybrid))
	}

	assert.Eventually(t, func() bool {
		got, err := store.RecentOutcomes(ctx, flushBatch)
		return err == nil && len(got) == flushBatch
	}, 3*time.Second, 10*time.Millisecond)
}

func TestRecorder_PeriodicFlush(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	rec, err := NewRecorder(store, WithFlushInterval(20*time.Millisecond))
	require.NoError(t, err)
	defer rec.Close()

	ctx := context.Background()
	rec.RecordSearch(ctx, searchRecord("req-1", engine.TierHybrid))

	assert.Eventually(t, func() bool {
		got, err := store.RecentOutcomes(ctx, 1)
		return err == nil && len(got) == 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestNewRecorder_NilStore(t *testing.T) {
	_, err := NewRecorder(nil)
	assert.Error(t, err)
}

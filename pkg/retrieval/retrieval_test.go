package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var harborCorpus = []string{
	`{"id":"doc-ferry","text":"ferry timetable and passenger boarding rules for the harbor terminal","type":"guide","tags":["transport"],"created_at":"2026-02-01T08:00:00Z"}`,
	`{"id":"doc-pilot","text":"pilotage request procedure for inbound cargo vessels","type":"guide","tags":["operations"],"created_at":"2026-04-12T08:00:00Z"}`,
	`{"id":"doc-light","text":"lighthouse maintenance log and lamp replacement intervals","type":"report","tags":["maintenance"],"created_at":"2026-06-20T08:00:00Z"}`,
}

func writeCorpus(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func openTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, err := Open(context.Background(), t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Close()
	})
	return c
}

func loadHarbor(t *testing.T, c *Client, tenantID string) {
	t.Helper()
	path := writeCorpus(t, t.TempDir(), "harbor.jsonl", harborCorpus...)
	_, err := c.Load(context.Background(), tenantID, path)
	require.NoError(t, err)
}

func TestOpen_EmptyDataDir_ReturnsError(t *testing.T) {
	// When
	c, err := Open(context.Background(), "")

	// Then
	require.Error(t, err)
	assert.Nil(t, c)
	assert.Contains(t, err.Error(), "data directory")
}

func TestOpen_DefaultsProduceWorkingClient(t *testing.T) {
	// When
	c := openTestClient(t)

	// Then
	tenants, err := c.Tenants()
	require.NoError(t, err)
	assert.Empty(t, tenants)
}

func TestOpen_CreatesDataDir(t *testing.T) {
	// Given a data dir path that does not exist yet
	dataDir := filepath.Join(t.TempDir(), "nested", "riptide-data")

	// When
	c, err := Open(context.Background(), dataDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	// Then
	info, err := os.Stat(dataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpen_InvalidWeights_ReturnsError(t *testing.T) {
	// When weights do not sum to 1.0
	c, err := Open(context.Background(), t.TempDir(), WithWeights(0.9, 0.9))

	// Then
	require.Error(t, err)
	assert.Nil(t, c)
	assert.Contains(t, err.Error(), "must equal 1.0")
}

func TestOpen_TelemetryOnByDefault(t *testing.T) {
	// Given
	dataDir := t.TempDir()

	// When
	c, err := Open(context.Background(), dataDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	// Then the outcome database exists in the data dir
	_, err = os.Stat(filepath.Join(dataDir, "telemetry.db"))
	assert.NoError(t, err)
}

func TestOpen_WithTelemetryDisabled_NoDatabase(t *testing.T) {
	// Given
	dataDir := t.TempDir()

	// When
	c, err := Open(context.Background(), dataDir, WithTelemetry(false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	// Then
	_, err = os.Stat(filepath.Join(dataDir, "telemetry.db"))
	assert.True(t, os.IsNotExist(err))
}

func TestOpen_WithConfigDir_LayersProjectConfig(t *testing.T) {
	// Given a project config that overrides the fusion split
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	projectDir := t.TempDir()
	yaml := "version: 1\nsearch:\n  vector_weight: 0.7\n  keyword_weight: 0.3\n"
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".riptide.yaml"), []byte(yaml), 0o644))

	// When
	c, err := Open(context.Background(), t.TempDir(), WithConfigDir(projectDir))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	// Then
	assert.InDelta(t, 0.7, c.cfg.Search.VectorWeight, 0.001)
	assert.InDelta(t, 0.3, c.cfg.Search.KeywordWeight, 0.001)
}

func TestClient_Load_FileCreatesTenant(t *testing.T) {
	// Given
	c := openTestClient(t)
	path := writeCorpus(t, t.TempDir(), "harbor.jsonl", harborCorpus...)

	// When
	res, err := c.Load(context.Background(), "harbor", path)

	// Then
	require.NoError(t, err)
	assert.Equal(t, 3, res.Documents)
	assert.Equal(t, 1, res.Files)
	assert.Greater(t, res.Duration, time.Duration(0))

	tenants, err := c.Tenants()
	require.NoError(t, err)
	assert.Equal(t, []string{"harbor"}, tenants)
}

func TestClient_Load_Directory(t *testing.T) {
	// Given two corpus files in one directory
	c := openTestClient(t)
	dir := t.TempDir()
	writeCorpus(t, dir, "a.jsonl", harborCorpus[0], harborCorpus[1])
	writeCorpus(t, dir, "b.jsonl", harborCorpus[2])

	// When
	res, err := c.Load(context.Background(), "harbor", dir)

	// Then
	require.NoError(t, err)
	assert.Equal(t, 3, res.Documents)
	assert.Equal(t, 2, res.Files)
}

func TestClient_Load_MissingPath_ReturnsError(t *testing.T) {
	// Given
	c := openTestClient(t)

	// When
	res, err := c.Load(context.Background(), "harbor", filepath.Join(t.TempDir(), "nope.jsonl"))

	// Then
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "stat corpus path")
}

func TestClient_Load_InvalidTenant_ReturnsError(t *testing.T) {
	// Given
	c := openTestClient(t)
	path := writeCorpus(t, t.TempDir(), "harbor.jsonl", harborCorpus...)

	// When the tenant ID fails validation
	res, err := c.Load(context.Background(), "Not A Tenant", path)

	// Then
	require.Error(t, err)
	assert.Nil(t, res)
}

func TestClient_Search_HybridFindsDocuments(t *testing.T) {
	// Given
	c := openTestClient(t)
	loadHarbor(t, c, "harbor")

	// When
	outcome, err := c.Search(context.Background(), Request{
		TenantID: "harbor",
		Query:    "ferry timetable",
	})

	// Then both sources answered and the matching document leads
	require.NoError(t, err)
	assert.Equal(t, TierHybrid, outcome.Tier)
	assert.False(t, outcome.Degraded())
	assert.Empty(t, outcome.DegradedReason)
	require.NotEmpty(t, outcome.Results)
	assert.Equal(t, "doc-ferry", outcome.Results[0].DocID)
	assert.Greater(t, outcome.Results[0].CombinedScore, 0.0)
	assert.NotEmpty(t, outcome.Results[0].Sources)
}

func TestClient_Search_EmptyQuery_ReturnsError(t *testing.T) {
	// Given
	c := openTestClient(t)
	loadHarbor(t, c, "harbor")

	// When
	outcome, err := c.Search(context.Background(), Request{TenantID: "harbor", Query: "   "})

	// Then
	require.Error(t, err)
	assert.Nil(t, outcome)
}

func TestClient_Search_UnknownTenant_Unavailable(t *testing.T) {
	// Given a tenant that was never loaded
	c := openTestClient(t)

	// When
	outcome, err := c.Search(context.Background(), Request{
		TenantID: "ghost",
		Query:    "anything at all",
	})

	// Then the search degrades instead of failing
	require.NoError(t, err)
	assert.Equal(t, TierUnavailable, outcome.Tier)
	assert.True(t, outcome.Degraded())
	assert.Empty(t, outcome.Results)
	assert.NotEmpty(t, outcome.DegradedReason)
}

func TestClient_Search_TypeFilter(t *testing.T) {
	// Given guides and a report
	c := openTestClient(t)
	loadHarbor(t, c, "harbor")

	// When filtering to reports only
	outcome, err := c.Search(context.Background(), Request{
		TenantID: "harbor",
		Query:    "maintenance log",
		Types:    []string{"report"},
	})

	// Then only the report comes back
	require.NoError(t, err)
	require.NotEmpty(t, outcome.Results)
	for _, r := range outcome.Results {
		assert.Equal(t, "doc-light", r.DocID)
	}
}

func TestClient_Search_TimeFilter(t *testing.T) {
	// Given
	c := openTestClient(t)
	loadHarbor(t, c, "harbor")

	// When keeping only documents from May onward
	outcome, err := c.Search(context.Background(), Request{
		TenantID: "harbor",
		Query:    "harbor",
		After:    time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	})

	// Then the earlier documents are filtered out
	require.NoError(t, err)
	require.NotEmpty(t, outcome.Results)
	for _, r := range outcome.Results {
		assert.Equal(t, "doc-light", r.DocID)
	}
}

func TestClient_Search_TopKLimitApplies(t *testing.T) {
	// Given a client whose default top_k is 1
	c := openTestClient(t, WithTopKLimits(1, 5))
	loadHarbor(t, c, "harbor")

	// When searching without an explicit TopK
	outcome, err := c.Search(context.Background(), Request{
		TenantID: "harbor",
		Query:    "harbor vessels maintenance",
	})

	// Then at most one result returns
	require.NoError(t, err)
	assert.LessOrEqual(t, len(outcome.Results), 1)
}

func TestClient_Close_Idempotent(t *testing.T) {
	// Given
	c, err := Open(context.Background(), t.TempDir())
	require.NoError(t, err)

	// When
	require.NoError(t, c.Close())

	// Then a second close is a no-op and operations refuse
	assert.NoError(t, c.Close())

	_, err = c.Search(context.Background(), Request{TenantID: "harbor", Query: "x"})
	assert.ErrorIs(t, err, ErrClosed)

	_, err = c.Load(context.Background(), "harbor", "whatever.jsonl")
	assert.ErrorIs(t, err, ErrClosed)

	_, err = c.Tenants()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClient_LoadProgress_Reported(t *testing.T) {
	// Given a progress callback
	var mu sync.Mutex
	var calls, last, total int
	c := openTestClient(t, WithLoadProgress(func(processed, totalDocs int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		last = processed
		total = totalDocs
	}))

	// When
	loadHarbor(t, c, "harbor")

	// Then progress reached the full document count
	mu.Lock()
	defer mu.Unlock()
	assert.Greater(t, calls, 0)
	assert.Equal(t, 3, last)
	assert.Equal(t, 3, total)
}

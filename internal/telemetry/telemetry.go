// Package telemetry records per-search outcomes for the stats command.
// Everything is stored locally in the data directory - no external
// reporting.
package telemetry

import "time"

// DBFileName is the telemetry database file, created in the data dir.
const DBFileName = "telemetry.db"

// Outcome is one completed search, as persisted.
type Outcome struct {
	RequestID      string    `json:"request_id"`
	TenantID       string    `json:"tenant_id"`
	Tier           string    `json:"tier"`
	ElapsedMS      int64     `json:"elapsed_ms"`
	DegradedReason string    `json:"degraded_reason,omitempty"`
	ResultCount    int       `json:"result_count"`
	VectorStatus   string    `json:"vector_status,omitempty"`
	KeywordStatus  string    `json:"keyword_status,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// Percentiles summarizes search latency over a window.
type Percentiles struct {
	P50   int64 `json:"p50_ms"`
	P95   int64 `json:"p95_ms"`
	P99   int64 `json:"p99_ms"`
	Count int64 `json:"count"`
}

// percentile returns the nearest-rank percentile of an ascending-sorted
// slice. p is a whole percentage (50, 95, 99).
func percentile(sorted []int64, p int) int64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := (p*n+99)/100 - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

package retrieval

import "time"

// Tier is the service level a search achieved.
type Tier string

const (
	// TierHybrid means both sources answered in time.
	TierHybrid Tier = "HYBRID"

	// TierVectorOnly means the keyword source degraded.
	TierVectorOnly Tier = "VECTOR_ONLY"

	// TierKeywordOnly means the vector source degraded.
	TierKeywordOnly Tier = "KEYWORD_ONLY"

	// TierUnavailable means both sources degraded. Results are empty but
	// the call itself succeeded.
	TierUnavailable Tier = "UNAVAILABLE"
)

// Request is a single hybrid search call.
type Request struct {
	// TenantID scopes the search to one tenant's indexes.
	TenantID string

	// Query is the raw query text.
	Query string

	// TopK caps the result count. Zero means the configured default.
	TopK int

	// Types keeps only documents whose type matches any entry.
	Types []string

	// Tags keeps only documents carrying every entry.
	Tags []string

	// After keeps only documents created at or after this time.
	After time.Time

	// Before keeps only documents created at or before this time.
	Before time.Time
}

// Result is one ranked document.
type Result struct {
	// DocID is the document identifier, unique within the tenant.
	DocID string

	// CombinedScore is the weighted fusion score in [0,1].
	CombinedScore float64

	// Sources lists which sources contributed: "vector", "keyword", or both.
	Sources []string

	// VectorScore is the normalized vector score, zero when the vector
	// source did not contribute.
	VectorScore float64

	// KeywordScore is the normalized keyword score, zero when the keyword
	// source did not contribute.
	KeywordScore float64
}

// Outcome is the complete response to one search.
type Outcome struct {
	// Results is the fused ranking, at most TopK entries.
	Results []Result

	// Tier reports which sources contributed.
	Tier Tier

	// ElapsedMS is the wall time spent serving the request.
	ElapsedMS int64

	// DegradedReason is "timeout" or "error" whenever Tier is not HYBRID.
	DegradedReason string
}

// Degraded reports whether the search ran below the hybrid tier.
func (o *Outcome) Degraded() bool { return o.Tier != TierHybrid }

// LoadResult summarizes a completed corpus load.
type LoadResult struct {
	// Documents is how many documents were indexed.
	Documents int

	// Files is how many corpus files contributed.
	Files int

	// Batches is how many embedding batches ran.
	Batches int

	// Duration is the wall time of the whole load.
	Duration time.Duration
}

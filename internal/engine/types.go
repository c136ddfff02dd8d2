// Package engine fuses candidates from a vector source and a keyword source
// into one ranked result list. Both sources are queried concurrently under a
// shared deadline; when one degrades the other still answers, and the tier
// achieved is reported alongside the results.
package engine

import "context"

// Source identifies which retrieval source produced a candidate.
type Source string

const (
	SourceVector  Source = "vector"
	SourceKeyword Source = "keyword"
)

// MetricHint tells the normalizer how to read a batch's raw scores.
type MetricHint string

const (
	// MetricSimilarity marks higher-is-better scores: cosine similarity,
	// inner product, BM25 relevance.
	MetricSimilarity MetricHint = "similarity"

	// MetricL2 marks raw L2 distances, where lower is better.
	MetricL2 MetricHint = "l2"
)

// Candidate is a single raw hit from one source, before normalization.
// Candidates are request-scoped and never persisted.
type Candidate struct {
	// DocID is the external document identifier, unique within a tenant.
	DocID string

	// RawScore is native to the source: similarity or distance for the
	// vector index, BM25 relevance for the keyword index.
	RawScore float64

	// Source tags which index produced the hit.
	Source Source
}

// CandidateBatch is one source's full response: its hits plus the metric
// needed to normalize them.
type CandidateBatch struct {
	Candidates []Candidate
	Metric     MetricHint
}

// NormalizedResult is a candidate with its score mapped onto [0,1], higher
// meaning more relevant regardless of the source's native convention.
type NormalizedResult struct {
	DocID  string
	Score  float64
	Source Source
}

// FusedResult is one ranked document in the final response.
type FusedResult struct {
	// DocID is the external document identifier.
	DocID string

	// CombinedScore is the weighted fusion score in [0,1].
	CombinedScore float64

	// Sources lists which sources contributed this document.
	Sources []Source

	// VectorScore is the normalized vector score, 0 when the vector
	// source did not contribute.
	VectorScore float64

	// KeywordScore is the normalized keyword score, 0 when the keyword
	// source did not contribute.
	KeywordScore float64
}

// FromVector reports whether the vector source contributed to this result.
func (r *FusedResult) FromVector() bool { return r.hasSource(SourceVector) }

// FromKeyword reports whether the keyword source contributed to this result.
func (r *FusedResult) FromKeyword() bool { return r.hasSource(SourceKeyword) }

func (r *FusedResult) hasSource(s Source) bool {
	for _, have := range r.Sources {
		if have == s {
			return true
		}
	}
	return false
}

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
	// the call itself did not fail; callers tell "no matches" from
	// "engine down" by the tier, never by an error.
	TierUnavailable Tier = "UNAVAILABLE"
)

// DegradedReason explains what took a degraded tier down.
type DegradedReason string

const (
	DegradedNone    DegradedReason = ""
	DegradedTimeout DegradedReason = "timeout"
	DegradedError   DegradedReason = "error"
)

// SearchRequest is a single hybrid search call.
type SearchRequest struct {
	// TenantID scopes every downstream index access.
	TenantID string

	// Query is the raw query text.
	Query string

	// TopK caps the result count. Zero means the configured default.
	TopK int

	// Filters is an optional predicate passed through to both clients
	// unchanged. The bundled clients accept a source.Filters value.
	Filters any
}

// FusionOutcome is the complete response to one search request.
type FusionOutcome struct {
	// Results is the fused ranking, at most TopK entries.
	Results []*FusedResult

	// Tier reports which sources contributed.
	Tier Tier

	// ElapsedMS is the wall time spent serving the request.
	ElapsedMS int64

	// DegradedReason is set whenever Tier is not HYBRID.
	DegradedReason DegradedReason
}

// SearchClient retrieves scored candidates from one source. Implementations
// must honor ctx cancellation promptly and must never return documents
// belonging to another tenant.
type SearchClient interface {
	Search(ctx context.Context, tenantID, query string, filters any, topK int) (CandidateBatch, error)
}

// Recorder observes completed searches for telemetry. The engine calls it
// synchronously on the request path, so implementations must be fast and
// must never fail the request.
type Recorder interface {
	RecordSearch(ctx context.Context, rec SearchRecord)
}

// SearchRecord summarizes one completed search. Query text is deliberately
// absent; outcomes are recorded, not queries.
type SearchRecord struct {
	RequestID      string
	TenantID       string
	Tier           Tier
	ElapsedMS      int64
	DegradedReason DegradedReason
	ResultCount    int
	VectorStatus   SourceStatus
	KeywordStatus  SourceStatus
}

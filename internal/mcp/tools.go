package mcp

import (
	"fmt"
	"time"

	"github.com/riptide-search/riptide/internal/engine"
	"github.com/riptide-search/riptide/internal/source"
)

// Registered tool names.
const (
	ToolHybridSearch = "hybrid_search"
	ToolTenantStatus = "tenant_status"
)

// HybridSearchInput defines the input schema for the hybrid_search tool.
type HybridSearchInput struct {
	TenantID      string   `json:"tenant_id" jsonschema:"the tenant whose corpus to search"`
	Query         string   `json:"query" jsonschema:"the search query text"`
	TopK          int      `json:"top_k,omitempty" jsonschema:"maximum number of results, default 20"`
	Types         []string `json:"types,omitempty" jsonschema:"filter by document type (any-of)"`
	Tags          []string `json:"tags,omitempty" jsonschema:"filter by tags (all-of)"`
	CreatedAfter  string   `json:"created_after,omitempty" jsonschema:"only documents created at or after this time (RFC 3339 or YYYY-MM-DD)"`
	CreatedBefore string   `json:"created_before,omitempty" jsonschema:"only documents created at or before this time (RFC 3339 or YYYY-MM-DD)"`
}

// HybridSearchOutput defines the output schema for the hybrid_search tool.
type HybridSearchOutput struct {
	Results        []SearchResultOutput `json:"results" jsonschema:"fused results, best first"`
	Tier           string               `json:"tier" jsonschema:"service level achieved: HYBRID, VECTOR_ONLY, KEYWORD_ONLY, or UNAVAILABLE"`
	ElapsedMS      int64                `json:"elapsed_ms" jsonschema:"wall time spent serving the request"`
	DegradedReason string               `json:"degraded_reason,omitempty" jsonschema:"why the tier is below HYBRID: timeout or error"`
}

// SearchResultOutput defines a single fused result with its per-source
// score breakdown.
type SearchResultOutput struct {
	DocumentID    string   `json:"document_id" jsonschema:"document identifier, unique within the tenant"`
	CombinedScore float64  `json:"combined_score" jsonschema:"weighted fusion score between 0 and 1"`
	Sources       []string `json:"sources" jsonschema:"which sources contributed: vector, keyword, or both"`
	VectorScore   float64  `json:"vector_score" jsonschema:"normalized vector score, 0 if the vector source did not contribute"`
	KeywordScore  float64  `json:"keyword_score" jsonschema:"normalized keyword score, 0 if the keyword source did not contribute"`
}

// TenantStatusInput defines the input schema for the tenant_status tool.
type TenantStatusInput struct {
	TenantID string `json:"tenant_id" jsonschema:"the tenant whose partition to inspect"`
}

// TenantStatusOutput defines the output schema for the tenant_status tool.
type TenantStatusOutput struct {
	TenantID         string         `json:"tenant_id"`
	Documents        DocumentCounts `json:"documents"`
	KeywordBackend   string         `json:"keyword_backend" jsonschema:"keyword index backend: bleve or sqlite"`
	VectorMetric     string         `json:"vector_metric" jsonschema:"vector distance metric: cosine or l2"`
	VectorDimensions int            `json:"vector_dimensions" jsonschema:"embedding dimensions the partition was indexed with"`
	Consistent       bool           `json:"consistent" jsonschema:"whether all three stores agree on the document set"`
	MissingKeyword   int            `json:"missing_keyword" jsonschema:"documents the keyword index lost"`
	MissingVector    int            `json:"missing_vector" jsonschema:"documents the vector index lost"`
	OrphanKeyword    int            `json:"orphan_keyword" jsonschema:"keyword entries with no metadata record"`
	OrphanVector     int            `json:"orphan_vector" jsonschema:"vector entries with no metadata record"`
}

// DocumentCounts reports per-store document counts for one partition.
type DocumentCounts struct {
	Metadata int `json:"metadata"`
	Keyword  int `json:"keyword"`
	Vector   int `json:"vector"`
}

// timeBoundLayouts are the accepted formats for created_after/created_before,
// tried in order.
var timeBoundLayouts = []string{time.RFC3339, "2006-01-02"}

// filters builds the engine filter predicate from the tool input. Returns
// nil when no filter field is set so unfiltered requests skip the metadata
// store entirely.
func (in HybridSearchInput) filters() (any, *MCPError) {
	f := source.Filters{
		Types: in.Types,
		Tags:  in.Tags,
	}

	if in.CreatedAfter != "" {
		t, err := parseTimeBound(in.CreatedAfter)
		if err != nil {
			return nil, NewInvalidParamsError(
				fmt.Sprintf("created_after must be RFC 3339 or YYYY-MM-DD, got %q", in.CreatedAfter))
		}
		f.After = t
	}
	if in.CreatedBefore != "" {
		t, err := parseTimeBound(in.CreatedBefore)
		if err != nil {
			return nil, NewInvalidParamsError(
				fmt.Sprintf("created_before must be RFC 3339 or YYYY-MM-DD, got %q", in.CreatedBefore))
		}
		f.Before = t
	}

	if f.IsZero() {
		return nil, nil
	}
	return f, nil
}

func parseTimeBound(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeBoundLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// toSearchOutput converts an engine outcome to the tool's wire shape.
func toSearchOutput(outcome *engine.FusionOutcome) HybridSearchOutput {
	out := HybridSearchOutput{
		Results:        make([]SearchResultOutput, 0, len(outcome.Results)),
		Tier:           string(outcome.Tier),
		ElapsedMS:      outcome.ElapsedMS,
		DegradedReason: string(outcome.DegradedReason),
	}
	for _, r := range outcome.Results {
		sources := make([]string, 0, len(r.Sources))
		for _, s := range r.Sources {
			sources = append(sources, string(s))
		}
		out.Results = append(out.Results, SearchResultOutput{
			DocumentID:    r.DocID,
			CombinedScore: r.CombinedScore,
			Sources:       sources,
			VectorScore:   r.VectorScore,
			KeywordScore:  r.KeywordScore,
		})
	}
	return out
}

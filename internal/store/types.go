// Package store provides the per-tenant persistence layer: a keyword index
// (bleve or SQLite FTS5), an HNSW vector index, and a SQLite metadata store
// that backs filter predicates.
package store

import (
	"context"
	"fmt"
	"time"
)

// Document is the unit of ingestion. Text feeds the keyword and vector
// indexes; Type, Tags, and CreatedAt land in the metadata store for
// filtering.
type Document struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Type      string    `json:"type,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	DocID        string
	Score        float64 // BM25 relevance, higher is better
	MatchedTerms []string
}

// KeywordStats provides statistics about a keyword index.
type KeywordStats struct {
	DocumentCount int
}

// KeywordIndex provides BM25-scored keyword search over document text.
type KeywordIndex interface {
	// Index adds documents. Existing IDs are replaced.
	Index(ctx context.Context, docs []*Document) error

	// Search returns documents matching query, scored by BM25.
	Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error)

	// Delete removes documents from the index.
	Delete(ctx context.Context, docIDs []string) error

	// AllIDs returns all document IDs in the index (for consistency checks).
	AllIDs() ([]string, error)

	// Stats returns index statistics.
	Stats() *KeywordStats

	Close() error
}

// Vector distance metrics.
const (
	MetricCosine = "cosine"
	MetricL2     = "l2"
)

// VectorResult is a single vector search hit. Distance is the raw metric
// value; Score is the metric-appropriate similarity in [0,1].
type VectorResult struct {
	DocID    string
	Distance float32
	Score    float32
}

// VectorConfig configures the vector index.
type VectorConfig struct {
	// Dimensions is the embedding dimension. Must match the embedder.
	Dimensions int

	// Metric is the distance metric: "cosine" or "l2" (default: "cosine").
	Metric string

	// M is the HNSW max connections per layer (default: 16).
	M int

	// EfSearch is the HNSW query-time search width (default: 20).
	EfSearch int
}

// DefaultVectorConfig returns sensible defaults for the vector index.
func DefaultVectorConfig(dimensions int) VectorConfig {
	return VectorConfig{
		Dimensions: dimensions,
		Metric:     MetricCosine,
		M:          16,
		EfSearch:   20,
	}
}

// VectorIndex provides approximate nearest-neighbor search over document
// embeddings.
type VectorIndex interface {
	// Upsert inserts vectors with their IDs. Existing IDs are replaced.
	Upsert(ctx context.Context, ids []string, vectors [][]float32) error

	// Search finds the k nearest neighbors to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// Delete removes vectors by ID.
	Delete(ctx context.Context, ids []string) error

	// Metric reports the distance metric in use ("cosine" or "l2").
	Metric() string

	// AllIDs returns all vector IDs in the index (for consistency checks).
	AllIDs() []string

	// Contains checks if an ID exists.
	Contains(id string) bool

	// Count returns the number of vectors.
	Count() int

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// MetaQuery is a filter predicate over document metadata. Types match any-of,
// Tags match all-of, and the time bounds are inclusive. Zero fields are
// ignored.
type MetaQuery struct {
	Types  []string
	Tags   []string
	After  time.Time
	Before time.Time
}

// IsZero reports whether the query has no predicate at all.
func (q MetaQuery) IsZero() bool {
	return len(q.Types) == 0 && len(q.Tags) == 0 && q.After.IsZero() && q.Before.IsZero()
}

// MetadataStore persists document metadata for filtering and consistency
// checks. Text is not stored here; it lives in the keyword index.
type MetadataStore interface {
	// Put upserts a single document's metadata.
	Put(ctx context.Context, doc *Document) error

	// PutBatch upserts documents in one transaction.
	PutBatch(ctx context.Context, docs []*Document) error

	// Get returns a document's metadata, or nil if the ID is unknown.
	Get(ctx context.Context, id string) (*Document, error)

	// MatchIDs returns the set of document IDs satisfying the query.
	// A zero query matches everything.
	MatchIDs(ctx context.Context, q MetaQuery) (map[string]struct{}, error)

	// AllIDs returns all document IDs, sorted (for consistency checks).
	AllIDs(ctx context.Context) ([]string, error)

	// Count returns the number of documents.
	Count(ctx context.Context) (int, error)

	Close() error
}

// ErrDimensionMismatch indicates a vector dimension mismatch between the
// index and an incoming vector.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (reindex with the current embedder)", e.Expected, e.Got)
}

// Package embed turns document and query text into vectors. Two providers
// ship: a deterministic token-hash embedder that works offline, and an
// Ollama HTTP client. A caching decorator keeps repeated query embeddings
// off the wire.
package embed

import (
	"context"
	"math"
)

const (
	// MaxBatchSize caps a single embedding request.
	MaxBatchSize = 256

	// DefaultBatchSize is the batch size used when the config leaves it unset.
	DefaultBatchSize = 32
)

// Embedder generates vector embeddings for text. Embed is the bulk ingest
// path; EmbedQuery embeds one search query and is the only method on the
// request hot path.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the width of produced vectors.
	Dimensions() int

	// ModelName identifies the model, and with it the vector space. Vectors
	// from different model names are never comparable.
	ModelName() string

	// Available reports whether the embedder can serve requests right now.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector scales a vector to unit length. Zero vectors are returned
// unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}

package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// StaticModelName identifies the token-hash embedding scheme. Bump the
// version suffix if the hashing ever changes; vectors are only comparable
// within one scheme.
const StaticModelName = "token-hash-v1"

// DefaultStaticDimensions is the vector width when the config leaves it
// unset.
const DefaultStaticDimensions = 256

// Weights for combining token and character n-gram features.
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// englishStopWords are dropped before hashing; they carry no signal and
// would otherwise dominate the vector for long prose.
var englishStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true,
	"in": true, "is": true, "it": true, "of": true, "on": true, "or": true,
	"that": true, "the": true, "this": true, "to": true, "was": true,
	"were": true, "with": true,
}

// StaticEmbedder produces deterministic hash-based embeddings with no
// network or model dependency. Same text, same vector, forever. Semantic
// quality is limited to lexical overlap, which is acceptable for the
// offline default and for tests.
type StaticEmbedder struct {
	dims int

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*StaticEmbedder)(nil)

// NewStaticEmbedder creates a static embedder producing vectors of the
// given width. Non-positive dimensions fall back to
// DefaultStaticDimensions.
func NewStaticEmbedder(dimensions int) *StaticEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultStaticDimensions
	}
	return &StaticEmbedder{dims: dimensions}
}

// Embed returns one vector per text, in order.
func (e *StaticEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	results := make([][]float32, len(texts))
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		results[i] = e.embedOne(text)
	}
	return results, nil
}

// EmbedQuery embeds a single query string.
func (e *StaticEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *StaticEmbedder) embedOne(text string) []float32 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, e.dims)
	}

	vector := make([]float32, e.dims)

	for _, token := range hashTokens(trimmed) {
		vector[hashToIndex(token, e.dims)] += tokenWeight
	}

	// Character trigrams give partial credit for morphological variants
	// ("dredge" vs "dredging") that whole-token hashing misses.
	squashed := squashForNgrams(trimmed)
	for i := 0; i+ngramSize <= len(squashed); i++ {
		vector[hashToIndex(squashed[i:i+ngramSize], e.dims)] += ngramWeight
	}

	return normalizeVector(vector)
}

// hashTokens lowercases, splits on non-alphanumerics, and drops stop words.
// The same split the FTS5 backend uses for query terms, so the two views of
// a document stay roughly aligned.
func hashTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if !englishStopWords[f] {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// squashForNgrams lowercases and strips everything but letters and digits
// so trigrams never straddle punctuation.
func squashForNgrams(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// hashToIndex maps a string to a vector index with FNV-64.
func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// Dimensions returns the configured vector width.
func (e *StaticEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the token-hash scheme identifier.
func (e *StaticEmbedder) ModelName() string {
	return StaticModelName
}

// Available reports true until the embedder is closed; there is nothing
// external to be unavailable.
func (e *StaticEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close releases resources.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

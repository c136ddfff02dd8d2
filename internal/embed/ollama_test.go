package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rterrors "github.com/riptide-search/riptide/internal/errors"
)

// fakeOllama is an httptest-backed stand-in for the Ollama API. Embeddings
// are deterministic: vector[0] carries len(text) and vector[1] is 1, so
// after normalization vector[0]/vector[1] recovers the text length and
// per-text routing can be asserted.
type fakeOllama struct {
	dims   int
	models []string

	mu             sync.Mutex
	embedCalls     int
	failFirst      int
	shortResponses bool
	lastBatchSize  int
	sawStringInput bool
}

func (f *fakeOllama) server(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		models := make([]map[string]any, 0, len(f.models))
		for _, m := range f.models {
			models = append(models, map[string]any{"name": m})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"models": models})
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
			Input any    `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var texts []string
		switch input := req.Input.(type) {
		case string:
			texts = []string{input}
		case []any:
			for _, v := range input {
				texts = append(texts, v.(string))
			}
		}

		f.mu.Lock()
		f.embedCalls++
		calls := f.embedCalls
		f.lastBatchSize = len(texts)
		if _, isString := req.Input.(string); isString {
			f.sawStringInput = true
		}
		failing := calls <= f.failFirst
		short := f.shortResponses
		f.mu.Unlock()

		if failing {
			http.Error(w, "model overloaded", http.StatusInternalServerError)
			return
		}

		count := len(texts)
		if short && count > 1 {
			count = 1
		}
		embeddings := make([][]float64, count)
		for i := 0; i < count; i++ {
			v := make([]float64, f.dims)
			v[0] = float64(len(texts[i]))
			v[1] = 1
			embeddings[i] = v
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"model": req.Model, "embeddings": embeddings})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeOllama) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embedCalls
}

func TestNewOllamaEmbedder_ProbeResolvesModelAndDimensions(t *testing.T) {
	fake := &fakeOllama{dims: 4, models: []string{"nomic-embed-text:latest"}}
	srv := fake.server(t)

	// When the embedder is built against a model configured without a tag
	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:  srv.URL,
		Model: "nomic-embed-text",
	})
	require.NoError(t, err)
	defer e.Close()

	// Then the probe resolved the tagged name and measured the dimensions
	assert.Equal(t, "nomic-embed-text:latest", e.ModelName())
	assert.Equal(t, 4, e.Dimensions())
}

func TestNewOllamaEmbedder_HostUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL})

	require.Error(t, err)
	assert.Equal(t, rterrors.ErrCodeEmbedderOffline, rterrors.GetCode(err))
}

func TestNewOllamaEmbedder_ModelNotPulled(t *testing.T) {
	fake := &fakeOllama{dims: 4, models: []string{"mxbai-embed-large:latest"}}
	srv := fake.server(t)

	_, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:  srv.URL,
		Model: "nomic-embed-text",
	})

	require.Error(t, err)
	assert.Equal(t, rterrors.ErrCodeEmbedderOffline, rterrors.GetCode(err))
	assert.Contains(t, err.Error(), "not pulled")
}

func newTestOllama(t *testing.T, fake *fakeOllama, cfg OllamaConfig) *OllamaEmbedder {
	t.Helper()
	srv := fake.server(t)
	cfg.Host = srv.URL
	if cfg.Model == "" {
		cfg.Model = "test-embed"
	}
	cfg.SkipProbe = true
	if cfg.Dimensions == 0 {
		cfg.Dimensions = fake.dims
	}
	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestOllamaEmbedder_BatchesPreserveOrder(t *testing.T) {
	ctx := context.Background()
	fake := &fakeOllama{dims: 4}
	e := newTestOllama(t, fake, OllamaConfig{BatchSize: 2})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}

	vectors, err := e.Embed(ctx, texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	// Three requests for five texts at batch size two
	assert.Equal(t, 3, fake.calls())

	// Each vector decodes back to its text's length, proving order held
	for i, text := range texts {
		require.NotZero(t, vectors[i][1])
		assert.InDelta(t, float64(len(text)), float64(vectors[i][0]/vectors[i][1]), 0.001)
	}
}

func TestOllamaEmbedder_WhitespaceTextsSkipTheAPI(t *testing.T) {
	ctx := context.Background()
	fake := &fakeOllama{dims: 4}
	e := newTestOllama(t, fake, OllamaConfig{})

	vectors, err := e.Embed(ctx, []string{"", "riptide warning", "   "})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	assert.Zero(t, vectorMagnitude(vectors[0]))
	assert.NotZero(t, vectorMagnitude(vectors[1]))
	assert.Zero(t, vectorMagnitude(vectors[2]))

	// Only the non-empty text went over the wire
	assert.Equal(t, 1, fake.calls())
	assert.Equal(t, 1, fake.lastBatchSize)
}

func TestOllamaEmbedder_EmbedQueryUsesStringInput(t *testing.T) {
	fake := &fakeOllama{dims: 4}
	e := newTestOllama(t, fake, OllamaConfig{})

	vec, err := e.EmbedQuery(context.Background(), "rip current forecast")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.InDelta(t, 1.0, vectorMagnitude(vec), 0.001)
	assert.True(t, fake.sawStringInput)
}

func TestOllamaEmbedder_RetriesTransientFailures(t *testing.T) {
	fake := &fakeOllama{dims: 4, failFirst: 2}
	e := newTestOllama(t, fake, OllamaConfig{MaxRetries: 3})

	vec, err := e.EmbedQuery(context.Background(), "storm surge")

	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Equal(t, 3, fake.calls())
}

func TestOllamaEmbedder_RetryBudgetExhausted(t *testing.T) {
	fake := &fakeOllama{dims: 4, failFirst: 100}
	e := newTestOllama(t, fake, OllamaConfig{MaxRetries: 2})

	_, err := e.EmbedQuery(context.Background(), "storm surge")

	require.Error(t, err)
	assert.Equal(t, rterrors.ErrCodeEmbeddingFailed, rterrors.GetCode(err))
	// One initial attempt plus two retries
	assert.Equal(t, 3, fake.calls())
}

func TestOllamaEmbedder_ShortResponseRejected(t *testing.T) {
	fake := &fakeOllama{dims: 4, shortResponses: true}
	e := newTestOllama(t, fake, OllamaConfig{MaxRetries: 1})

	_, err := e.Embed(context.Background(), []string{"first", "second"})

	require.Error(t, err)
	var rerr *rterrors.RiptideError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Cause.Error(), "expected 2 embeddings")
}

func TestOllamaEmbedder_Available(t *testing.T) {
	ctx := context.Background()
	fake := &fakeOllama{dims: 4, models: []string{"test-embed:latest"}}
	srv := fake.server(t)

	e, err := NewOllamaEmbedder(ctx, OllamaConfig{
		Host:       srv.URL,
		Model:      "test-embed",
		Dimensions: 4,
		SkipProbe:  true,
	})
	require.NoError(t, err)

	assert.True(t, e.Available(ctx))

	srv.Close()
	assert.False(t, e.Available(ctx))

	require.NoError(t, e.Close())
	assert.False(t, e.Available(ctx))
}

func TestOllamaEmbedder_SkipProbeDimensionFallback(t *testing.T) {
	fake := &fakeOllama{dims: 4}
	srv := fake.server(t)

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:      srv.URL,
		Model:     "test-embed",
		SkipProbe: true,
	})
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, DefaultOllamaDimensions, e.Dimensions())
}

func TestOllamaEmbedder_ClosedErrors(t *testing.T) {
	ctx := context.Background()
	fake := &fakeOllama{dims: 4}
	e := newTestOllama(t, fake, OllamaConfig{})

	require.NoError(t, e.Close())

	_, err := e.Embed(ctx, []string{"late"})
	assert.Error(t, err)
	_, err = e.EmbedQuery(ctx, "late")
	assert.Error(t, err)
	assert.NoError(t, e.Close())
}

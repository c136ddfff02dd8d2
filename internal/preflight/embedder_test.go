package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riptide-search/riptide/internal/config"
)

func TestChecker_CheckEmbedder_Static(t *testing.T) {
	// Given: the default static provider
	cfg := config.NewConfig()

	// When: checking the embedder
	checker := New()
	result := checker.CheckEmbedder(context.Background(), cfg)

	// Then: passes without touching the network
	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "embedder", result.Name)
	assert.False(t, result.Required, "embedder check should not be required")
	assert.Contains(t, result.Message, "static")
	assert.Contains(t, result.Message, "no external dependencies")
}

func TestChecker_CheckEmbedder_OllamaUnreachable(t *testing.T) {
	// Given: an ollama provider pointing at a dead port
	cfg := config.NewConfig()
	cfg.Embeddings.Provider = "ollama"
	cfg.Embeddings.OllamaHost = "http://127.0.0.1:1"

	// When: checking the embedder
	checker := New()
	result := checker.CheckEmbedder(context.Background(), cfg)

	// Then: warns instead of failing the run
	assert.Equal(t, StatusWarn, result.Status)
	assert.Contains(t, result.Message, "cannot reach ollama")
	assert.NotEmpty(t, result.Details, "should carry the suggestion")
}

func TestChecker_CheckEmbedder_OllamaReachable(t *testing.T) {
	// Given: a fake ollama answering the tags and embed probes
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"models": []map[string]any{{"name": "nomic-embed-text:latest"}},
			})
		case "/api/embed":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"model":      "nomic-embed-text",
				"embeddings": [][]float64{{0.1, 0.2, 0.3, 0.4}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := config.NewConfig()
	cfg.Embeddings.Provider = "ollama"
	cfg.Embeddings.OllamaHost = srv.URL
	cfg.Embeddings.Model = "nomic-embed-text"
	cfg.Embeddings.Dimensions = 0 // auto-detect from the probe embedding

	// When: checking the embedder
	checker := New()
	result := checker.CheckEmbedder(context.Background(), cfg)

	// Then: reports the reachable model and detected dimensions
	assert.Equal(t, StatusPass, result.Status)
	assert.Contains(t, result.Message, "ollama reachable")
	assert.Contains(t, result.Message, "nomic-embed-text")
	assert.Contains(t, result.Message, "4 dims")
	assert.Contains(t, result.Details, srv.URL)
}

func TestChecker_CheckEmbedder_OllamaModelNotPulled(t *testing.T) {
	// Given: a fake ollama that has a different model installed
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"models": []map[string]any{{"name": "llama3:latest"}},
			})
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := config.NewConfig()
	cfg.Embeddings.Provider = "ollama"
	cfg.Embeddings.OllamaHost = srv.URL
	cfg.Embeddings.Model = "nomic-embed-text"

	// When: checking the embedder
	checker := New()
	result := checker.CheckEmbedder(context.Background(), cfg)

	// Then: warns that the model is missing
	assert.Equal(t, StatusWarn, result.Status)
	assert.Contains(t, result.Message, "not pulled")
	assert.Contains(t, result.Details, "ollama pull")
}

func TestChecker_CheckEmbedder_OfflineSkipsOllama(t *testing.T) {
	// Given: an ollama provider with the network off-limits
	cfg := config.NewConfig()
	cfg.Embeddings.Provider = "ollama"

	// When: checking in offline mode
	checker := New(WithOffline(true))
	result := checker.CheckEmbedder(context.Background(), cfg)

	// Then: skips the probe and says so
	assert.Equal(t, StatusWarn, result.Status)
	assert.Contains(t, result.Message, "offline")
	assert.Contains(t, result.Details, "localhost:11434")
}

func TestChecker_CheckEmbedder_OfflineStillChecksStatic(t *testing.T) {
	// Given: the static provider in offline mode
	cfg := config.NewConfig()

	// When: checking the embedder
	checker := New(WithOffline(true))
	result := checker.CheckEmbedder(context.Background(), cfg)

	// Then: static needs no network and passes as usual
	assert.Equal(t, StatusPass, result.Status)
	assert.Contains(t, result.Message, "static")
}

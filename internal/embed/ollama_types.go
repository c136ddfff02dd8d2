package embed

import "time"

const (
	// DefaultOllamaHost is the default Ollama API endpoint.
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultOllamaModel is the default embedding model. nomic-embed-text is
	// the most widely pulled text embedding model on Ollama and handles
	// prose well.
	DefaultOllamaModel = "nomic-embed-text"

	// DefaultOllamaTimeout bounds a single embedding request. Cold model
	// loads dominate this; warm requests finish in well under a second.
	DefaultOllamaTimeout = 60 * time.Second

	// DefaultOllamaMaxRetries is the retry budget for transient failures.
	DefaultOllamaMaxRetries = 3

	// ollamaPoolSize sizes the HTTP connection pool.
	ollamaPoolSize = 4
)

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	// Host is the Ollama API endpoint (default: http://localhost:11434).
	Host string

	// Model is the embedding model to use (default: nomic-embed-text).
	Model string

	// Dimensions overrides auto-detection when non-zero.
	Dimensions int

	// BatchSize caps texts per /api/embed request (default: 32).
	BatchSize int

	// Timeout bounds a single request attempt (default: 60s).
	Timeout time.Duration

	// MaxRetries is the retry budget for transient failures (default: 3).
	MaxRetries int

	// SkipProbe skips the startup connectivity and model check. Tests use
	// this to construct clients against httptest servers without the
	// dimension-detection round trip.
	SkipProbe bool
}

// DefaultOllamaConfig returns the defaults documented on OllamaConfig.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:       DefaultOllamaHost,
		Model:      DefaultOllamaModel,
		BatchSize:  DefaultBatchSize,
		Timeout:    DefaultOllamaTimeout,
		MaxRetries: DefaultOllamaMaxRetries,
	}
}

// ollamaEmbedRequest is the /api/embed request body. Input is a string for
// a single text or []string for a batch.
type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

// ollamaEmbedResponse is the /api/embed response body.
type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// ollamaModelListResponse is the /api/tags response body.
type ollamaModelListResponse struct {
	Models []ollamaModelInfo `json:"models"`
}

// ollamaModelInfo describes an installed model.
type ollamaModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}

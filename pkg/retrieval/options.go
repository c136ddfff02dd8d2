package retrieval

import "time"

// settings collects Open options before the client is built.
type settings struct {
	configDir      string
	vectorWeight   float64
	keywordWeight  float64
	weightsSet     bool
	fanoutTimeout  time.Duration
	defaultTopK    int
	maxTopK        int
	provider       string
	model          string
	keywordBackend string
	telemetry      *bool
	progress       func(processed, total int)
}

// Option configures Open.
type Option func(*settings)

// WithConfigDir layers user config, the project config under dir, and
// RIPTIDE_* environment variables over the built-in defaults. The other
// options still apply on top. Without it the client runs on defaults
// alone; no files are consulted.
func WithConfigDir(dir string) Option {
	return func(s *settings) { s.configDir = dir }
}

// WithWeights overrides the fusion split. The pair must sum to 1.0.
func WithWeights(vector, keyword float64) Option {
	return func(s *settings) {
		s.vectorWeight = vector
		s.keywordWeight = keyword
		s.weightsSet = true
	}
}

// WithFanoutTimeout overrides the shared deadline both sources race
// against on every search.
func WithFanoutTimeout(d time.Duration) Option {
	return func(s *settings) { s.fanoutTimeout = d }
}

// WithTopKLimits overrides the default and maximum result counts. Zero
// leaves the corresponding limit unchanged.
func WithTopKLimits(defaultTopK, maxTopK int) Option {
	return func(s *settings) {
		s.defaultTopK = defaultTopK
		s.maxTopK = maxTopK
	}
}

// WithEmbeddings selects the embedding provider, "static" or "ollama".
// The model names the ollama embedding model; the static provider treats
// it as a label. An empty string leaves the corresponding value unchanged.
func WithEmbeddings(provider, model string) Option {
	return func(s *settings) {
		s.provider = provider
		s.model = model
	}
}

// WithKeywordBackend selects the keyword index backend, "bleve" or
// "sqlite". Only applies to partitions created after the change; existing
// partitions keep the backend they were built with.
func WithKeywordBackend(backend string) Option {
	return func(s *settings) { s.keywordBackend = backend }
}

// WithTelemetry toggles per-request outcome recording in the data
// directory's telemetry database. On unless disabled here or in config.
func WithTelemetry(enabled bool) Option {
	return func(s *settings) { s.telemetry = &enabled }
}

// WithLoadProgress attaches a progress callback to corpus loads. It is
// called from loader goroutines; fn synchronizes its own state.
func WithLoadProgress(fn func(processed, total int)) Option {
	return func(s *settings) { s.progress = fn }
}

package embed

import (
	"context"
	"fmt"
	"strings"
)

// Provider names accepted in config.
const (
	// ProviderStatic is the offline token-hash embedder, the default.
	ProviderStatic = "static"

	// ProviderOllama embeds via a local Ollama server.
	ProviderOllama = "ollama"
)

// Options carries the embeddings config the factory builds from. Values
// come from the resolved config; the factory does not read the environment.
type Options struct {
	// Provider is "static" or "ollama".
	Provider string

	// Model names the embedding model. Static ignores it and always
	// reports its own scheme name.
	Model string

	// Dimensions is the vector width for static, or an auto-detection
	// override for ollama.
	Dimensions int

	// BatchSize caps texts per provider request.
	BatchSize int

	// OllamaHost is the Ollama endpoint; empty means the default.
	OllamaHost string

	// CacheSize bounds the embedding LRU. Non-positive means the default.
	CacheSize int
}

// NewEmbedder builds the configured provider wrapped in the embedding
// cache. Unknown providers are rejected here as well as in config
// validation, so a hand-rolled Options can't slip past.
func NewEmbedder(ctx context.Context, opts Options) (Embedder, error) {
	var inner Embedder

	switch strings.ToLower(opts.Provider) {
	case ProviderStatic, "":
		inner = NewStaticEmbedder(opts.Dimensions)

	case ProviderOllama:
		cfg := DefaultOllamaConfig()
		cfg.Host = opts.OllamaHost
		cfg.Model = opts.Model
		cfg.Dimensions = opts.Dimensions
		if opts.BatchSize > 0 {
			cfg.BatchSize = opts.BatchSize
		}
		ollama, err := NewOllamaEmbedder(ctx, cfg)
		if err != nil {
			return nil, err
		}
		inner = ollama

	default:
		return nil, fmt.Errorf("unknown embeddings provider %q (valid options: static, ollama)", opts.Provider)
	}

	return NewCachedEmbedder(inner, opts.CacheSize), nil
}

// Info describes an embedder for status surfaces (doctor, stats,
// tenant_status).
type Info struct {
	Provider   string
	Model      string
	Dimensions int
	Available  bool
}

// GetInfo inspects an embedder, unwrapping the cache decorator.
func GetInfo(ctx context.Context, embedder Embedder) Info {
	info := Info{
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Available:  embedder.Available(ctx),
	}

	inner := embedder
	if cached, ok := embedder.(*CachedEmbedder); ok {
		inner = cached.Inner()
	}

	switch inner.(type) {
	case *OllamaEmbedder:
		info.Provider = ProviderOllama
	default:
		info.Provider = ProviderStatic
	}

	return info
}

package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/riptide-search/riptide/internal/config"
	"github.com/riptide-search/riptide/internal/embed"
	rterrors "github.com/riptide-search/riptide/internal/errors"
)

// CheckEmbedder verifies the configured embedding provider is usable.
// The static provider has no external dependencies and always passes;
// ollama needs a reachable server with the model pulled.
//
// The check is non-critical: a down embedder degrades search to
// KEYWORD_ONLY instead of blocking the server.
func (c *Checker) CheckEmbedder(ctx context.Context, cfg *config.Config) CheckResult {
	result := CheckResult{
		Name:     "embedder",
		Required: false,
	}

	if c.offline && strings.ToLower(cfg.Embeddings.Provider) == embed.ProviderOllama {
		result.Status = StatusWarn
		result.Message = "ollama not probed (offline mode)"
		result.Details = fmt.Sprintf("Configured host: %s", ollamaHost(cfg))
		return result
	}

	embedder, err := embed.NewEmbedder(ctx, embed.Options{
		Provider:   cfg.Embeddings.Provider,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
		OllamaHost: cfg.Embeddings.OllamaHost,
		CacheSize:  cfg.Embeddings.CacheSize,
	})
	if err != nil {
		result.Status = StatusWarn
		var rerr *rterrors.RiptideError
		if errors.As(err, &rerr) {
			result.Message = rerr.Message
			result.Details = rerr.Suggestion
		} else {
			result.Message = err.Error()
		}
		return result
	}
	defer func() { _ = embedder.Close() }()

	info := embed.GetInfo(ctx, embedder)
	if !info.Available {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s embedder constructed but not answering (model %s)",
			info.Provider, info.Model)
		return result
	}

	result.Status = StatusPass
	if info.Provider == embed.ProviderOllama {
		result.Message = fmt.Sprintf("ollama reachable (%s, %d dims)", info.Model, info.Dimensions)
		result.Details = fmt.Sprintf("Host: %s", ollamaHost(cfg))
	} else {
		result.Message = fmt.Sprintf("static (%s, %d dims), no external dependencies",
			info.Model, info.Dimensions)
	}
	return result
}

// ollamaHost resolves the configured host, showing the default when the
// config leaves it empty.
func ollamaHost(cfg *config.Config) string {
	if cfg.Embeddings.OllamaHost != "" {
		return cfg.Embeddings.OllamaHost
	}
	return embed.DefaultOllamaHost
}

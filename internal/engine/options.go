package engine

import (
	"time"

	"github.com/riptide-search/riptide/internal/validation"
)

// Config tunes the engine. Zero fields fall back to defaults, so a zero
// Config is usable.
type Config struct {
	// Weights is the fusion split. Zero means the 60/40 default.
	Weights Weights

	// FanoutTimeout is the shared deadline for the concurrent source
	// calls. Zero means DefaultFanoutTimeout.
	FanoutTimeout time.Duration

	// DefaultTopK is used when a request leaves TopK unset.
	DefaultTopK int

	// MaxTopK caps requested result counts.
	MaxTopK int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Weights:       DefaultWeights(),
		FanoutTimeout: DefaultFanoutTimeout,
		DefaultTopK:   validation.DefaultTopK,
		MaxTopK:       validation.MaxTopK,
	}
}

func (c Config) withDefaults() Config {
	if c.Weights.IsZero() {
		c.Weights = DefaultWeights()
	}
	if c.FanoutTimeout <= 0 {
		c.FanoutTimeout = DefaultFanoutTimeout
	}
	if c.DefaultTopK <= 0 {
		c.DefaultTopK = validation.DefaultTopK
	}
	if c.MaxTopK <= 0 {
		c.MaxTopK = validation.MaxTopK
	}
	return c
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithRecorder attaches a telemetry recorder. Every completed search is
// recorded; validation rejections are not.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Riptide configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	DataDir    string           `yaml:"data_dir" json:"data_dir"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Tenants    TenantsConfig    `yaml:"tenants" json:"tenants"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" json:"telemetry"`
}

// SearchConfig configures the hybrid fan-out and fusion.
// Weights are configurable via:
//  1. User config (~/.config/riptide/config.yaml) - personal defaults
//  2. Project config (.riptide.yaml) - per-corpus tuning
//  3. Env vars (RIPTIDE_VECTOR_WEIGHT, RIPTIDE_KEYWORD_WEIGHT) - highest priority
type SearchConfig struct {
	// VectorWeight is the fusion weight for the vector source (0.0-1.0).
	// Must sum to 1.0 with KeywordWeight.
	VectorWeight float64 `yaml:"vector_weight" json:"vector_weight"`

	// KeywordWeight is the fusion weight for the keyword source (0.0-1.0).
	// Must sum to 1.0 with VectorWeight.
	KeywordWeight float64 `yaml:"keyword_weight" json:"keyword_weight"`

	// FanoutTimeoutMS is the shared deadline for the concurrent fan-out, in
	// milliseconds. Both sources race against this budget.
	FanoutTimeoutMS int `yaml:"fanout_timeout_ms" json:"fanout_timeout_ms"`

	// DefaultTopK is the result count when a request leaves top_k unset.
	DefaultTopK int `yaml:"default_top_k" json:"default_top_k"`

	// MaxTopK caps the requested result count.
	MaxTopK int `yaml:"max_top_k" json:"max_top_k"`

	// KeywordBackend selects the keyword index backend.
	// Options: "bleve" (default) or "sqlite" (FTS5, concurrent access).
	KeywordBackend string `yaml:"keyword_backend" json:"keyword_backend"`

	// VectorMetric selects the vector distance metric: "cosine" or "l2".
	VectorMetric string `yaml:"vector_metric" json:"vector_metric"`

	// HNSW holds the vector graph tuning parameters.
	HNSW HNSWConfig `yaml:"hnsw" json:"hnsw"`
}

// HNSWConfig tunes the HNSW vector graph.
type HNSWConfig struct {
	// M is the maximum number of graph neighbors per node (default: 16).
	M int `yaml:"m" json:"m"`
	// EfSearch is the search beam width (default: 20). Higher is more
	// accurate and slower.
	EfSearch int `yaml:"ef_search" json:"ef_search"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "static" (offline, default) or "ollama".
	Provider string `yaml:"provider" json:"provider"`
	// Model is the embedding model name (ollama) or a label (static).
	Model string `yaml:"model" json:"model"`
	// Dimensions is the vector width for the static provider (default: 256).
	// The ollama provider reports its own dimensions.
	Dimensions int `yaml:"dimensions" json:"dimensions"`
	// BatchSize is texts per embedding call during ingest (default: 32).
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// OllamaHost is the Ollama API endpoint (default: http://localhost:11434).
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	// CacheSize is the embedding LRU capacity (default: 1024, 0 disables).
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// TenantsConfig configures the partition registry.
type TenantsConfig struct {
	// CacheSize is the number of tenant partitions held open at once
	// (default: 32). Eviction closes the partition.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	// Transport is the MCP transport (only "stdio" is supported).
	Transport string `yaml:"transport" json:"transport"`
	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level" json:"log_level"`
	// WatchDebounce is the settle window for 'serve --watch' reloads.
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
}

// TelemetryConfig configures per-request outcome recording.
type TelemetryConfig struct {
	// Enabled toggles the telemetry recorder (default: true). A pointer
	// distinguishes "unset" from an explicit false in layered configs.
	Enabled *bool `yaml:"enabled" json:"enabled"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		DataDir: ".riptide",
		Search: SearchConfig{
			// The 60/40 vector/keyword split is the tuned production
			// default; validation enforces that overrides still sum to 1.0.
			VectorWeight:    0.6,
			KeywordWeight:   0.4,
			FanoutTimeoutMS: 500,
			DefaultTopK:     20,
			MaxTopK:         100,
			KeywordBackend:  "bleve",
			VectorMetric:    "cosine",
			HNSW: HNSWConfig{
				M:        16,
				EfSearch: 20,
			},
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "static",
			Model:      "token-hash-v1",
			Dimensions: 256,
			BatchSize:  32,
			OllamaHost: "", // Empty uses default http://localhost:11434
			CacheSize:  1024,
		},
		Tenants: TenantsConfig{
			CacheSize: 32,
		},
		Server: ServerConfig{
			Transport:     "stdio",
			LogLevel:      "debug", // File logs are the only serve-mode diagnostics
			WatchDebounce: "500ms",
		},
		Telemetry: TelemetryConfig{
			Enabled: nil, // Unset means enabled
		},
	}
}

// FanoutTimeout returns the fan-out deadline as a duration.
func (c *Config) FanoutTimeout() time.Duration {
	return time.Duration(c.Search.FanoutTimeoutMS) * time.Millisecond
}

// WatchDebounce returns the watch settle window, falling back to 500ms on
// a malformed value.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Server.WatchDebounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// TelemetryEnabled reports whether outcome recording is on.
func (c *Config) TelemetryEnabled() bool {
	if c.Telemetry.Enabled == nil {
		return true
	}
	return *c.Telemetry.Enabled
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/riptide/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/riptide/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "riptide", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "riptide", "config.yaml")
	}
	return filepath.Join(home, ".config", "riptide", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil // No user config is fine
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// Load loads configuration for the given project directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/riptide/config.yaml)
//  3. Project config (.riptide.yaml in the project root)
//  4. Environment variables (RIPTIDE_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .riptide.yaml or .riptide.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".riptide.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".riptide.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.DataDir != "" {
		c.DataDir = other.DataDir
	}

	// Search: zero is not a practical value for any of these, so non-zero
	// means "explicitly set".
	if other.Search.VectorWeight != 0 {
		c.Search.VectorWeight = other.Search.VectorWeight
	}
	if other.Search.KeywordWeight != 0 {
		c.Search.KeywordWeight = other.Search.KeywordWeight
	}
	if other.Search.FanoutTimeoutMS != 0 {
		c.Search.FanoutTimeoutMS = other.Search.FanoutTimeoutMS
	}
	if other.Search.DefaultTopK != 0 {
		c.Search.DefaultTopK = other.Search.DefaultTopK
	}
	if other.Search.MaxTopK != 0 {
		c.Search.MaxTopK = other.Search.MaxTopK
	}
	if other.Search.KeywordBackend != "" {
		c.Search.KeywordBackend = other.Search.KeywordBackend
	}
	if other.Search.VectorMetric != "" {
		c.Search.VectorMetric = other.Search.VectorMetric
	}
	if other.Search.HNSW.M != 0 {
		c.Search.HNSW.M = other.Search.HNSW.M
	}
	if other.Search.HNSW.EfSearch != 0 {
		c.Search.HNSW.EfSearch = other.Search.HNSW.EfSearch
	}

	// Embeddings
	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	// Tenants
	if other.Tenants.CacheSize != 0 {
		c.Tenants.CacheSize = other.Tenants.CacheSize
	}

	// Server
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	if other.Server.WatchDebounce != "" {
		c.Server.WatchDebounce = other.Server.WatchDebounce
	}

	// Telemetry: the pointer distinguishes unset from explicit false.
	if other.Telemetry.Enabled != nil {
		c.Telemetry.Enabled = other.Telemetry.Enabled
	}
}

// applyEnvOverrides applies RIPTIDE_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RIPTIDE_DATA_DIR"); v != "" {
		c.DataDir = v
	}

	// Fusion weights accept explicit zero so one source can be muted.
	if v := os.Getenv("RIPTIDE_VECTOR_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && w >= 0 && w <= 1 {
			c.Search.VectorWeight = w
		}
	}
	if v := os.Getenv("RIPTIDE_KEYWORD_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && w >= 0 && w <= 1 {
			c.Search.KeywordWeight = w
		}
	}
	if v := os.Getenv("RIPTIDE_FANOUT_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			c.Search.FanoutTimeoutMS = ms
		}
	}
	if v := os.Getenv("RIPTIDE_KEYWORD_BACKEND"); v != "" {
		c.Search.KeywordBackend = v
	}
	if v := os.Getenv("RIPTIDE_VECTOR_METRIC"); v != "" {
		c.Search.VectorMetric = v
	}

	if v := os.Getenv("RIPTIDE_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	// RIPTIDE_EMBEDDER is an alias for RIPTIDE_EMBEDDINGS_PROVIDER.
	if v := os.Getenv("RIPTIDE_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("RIPTIDE_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("RIPTIDE_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}

	if v := os.Getenv("RIPTIDE_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("RIPTIDE_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}

	if v := os.Getenv("RIPTIDE_TELEMETRY_ENABLED"); v != "" {
		enabled := strings.ToLower(v) == "true" || v == "1"
		c.Telemetry.Enabled = &enabled
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Search.VectorWeight < 0 || c.Search.VectorWeight > 1 {
		return fmt.Errorf("vector_weight must be between 0 and 1, got %f", c.Search.VectorWeight)
	}
	if c.Search.KeywordWeight < 0 || c.Search.KeywordWeight > 1 {
		return fmt.Errorf("keyword_weight must be between 0 and 1, got %f", c.Search.KeywordWeight)
	}

	sum := c.Search.VectorWeight + c.Search.KeywordWeight
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("vector_weight + keyword_weight must equal 1.0, got %.2f", sum)
	}

	if c.Search.FanoutTimeoutMS <= 0 {
		return fmt.Errorf("fanout_timeout_ms must be positive, got %d", c.Search.FanoutTimeoutMS)
	}
	if c.Search.DefaultTopK <= 0 {
		return fmt.Errorf("default_top_k must be positive, got %d", c.Search.DefaultTopK)
	}
	if c.Search.MaxTopK < c.Search.DefaultTopK {
		return fmt.Errorf("max_top_k (%d) must be at least default_top_k (%d)", c.Search.MaxTopK, c.Search.DefaultTopK)
	}

	validBackends := map[string]bool{"bleve": true, "sqlite": true}
	if !validBackends[strings.ToLower(c.Search.KeywordBackend)] {
		return fmt.Errorf("search.keyword_backend must be 'bleve' or 'sqlite', got %s", c.Search.KeywordBackend)
	}

	validMetrics := map[string]bool{"cosine": true, "l2": true}
	if !validMetrics[strings.ToLower(c.Search.VectorMetric)] {
		return fmt.Errorf("search.vector_metric must be 'cosine' or 'l2', got %s", c.Search.VectorMetric)
	}

	validProviders := map[string]bool{"static": true, "ollama": true}
	if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
		return fmt.Errorf("embeddings.provider must be 'static' or 'ollama', got %s", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}
	if c.Embeddings.BatchSize <= 0 {
		return fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}

	if c.Tenants.CacheSize <= 0 {
		return fmt.Errorf("tenants.cache_size must be positive, got %d", c.Tenants.CacheSize)
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	if c.Server.WatchDebounce != "" {
		if d, err := time.ParseDuration(c.Server.WatchDebounce); err != nil || d < 0 {
			return fmt.Errorf("server.watch_debounce must be a non-negative duration, got %s", c.Server.WatchDebounce)
		}
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// FindProjectRoot finds the project root directory by walking up from
// startDir looking for a .git directory or a .riptide.yaml/.yml file.
// Falls back to startDir when nothing is found.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		if fileExists(filepath.Join(currentDir, ".riptide.yaml")) ||
			fileExists(filepath.Join(currentDir, ".riptide.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// ResolveDataDir resolves the data directory against the project root.
// Absolute paths pass through; relative paths are joined to root.
func (c *Config) ResolveDataDir(root string) string {
	if filepath.IsAbs(c.DataDir) {
		return c.DataDir
	}
	return filepath.Join(root, c.DataDir)
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

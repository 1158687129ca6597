// Package config loads the machine-wide orag configuration and per-vault
// configuration files.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Embedding providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderStatic = "static"
)

// Vector index modes.
const (
	IndexHNSW = "hnsw"
	IndexFlat = "flat"
)

// Chunking units.
const (
	UnitChars  = "chars"
	UnitTokens = "tokens"
)

// GlobalConfig holds cross-vault defaults.
type GlobalConfig struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Search    SearchConfig    `yaml:"search"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	// Provider is one of "ollama", "openai" or "static".
	Provider string `yaml:"provider"`

	// Model is the embedding model identifier. Must match between index and query.
	Model string `yaml:"model"`

	// Host is the provider endpoint. Empty uses the provider default.
	Host string `yaml:"host,omitempty"`

	BatchSize int `yaml:"batch_size"`

	// CacheSize is the number of query/chunk embeddings kept in memory. 0 disables.
	CacheSize int `yaml:"cache_size"`
}

// ChunkingConfig controls document splitting.
type ChunkingConfig struct {
	Size    int    `yaml:"size"`
	Overlap int    `yaml:"overlap"`
	Unit    string `yaml:"unit"`
}

// SearchConfig holds retrieval defaults.
type SearchConfig struct {
	DefaultTopK       int     `yaml:"default_top_k"`
	DefaultMaxChars   int     `yaml:"default_max_chars"`
	MinRelevanceScore float64 `yaml:"min_relevance_score"`

	// Index is "flat" (exact brute force) or "hnsw". In hnsw mode small
	// collections are still scanned exactly.
	Index string `yaml:"index"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// NewGlobalConfig returns a GlobalConfig with all defaults applied.
func NewGlobalConfig() GlobalConfig {
	return GlobalConfig{
		Embedding: EmbeddingConfig{
			Provider:  ProviderOllama,
			Model:     "all-minilm",
			BatchSize: 32,
			CacheSize: 1000,
		},
		Chunking: ChunkingConfig{
			Size:    512,
			Overlap: 50,
			Unit:    UnitChars,
		},
		Search: SearchConfig{
			DefaultTopK:       5,
			DefaultMaxChars:   10000,
			MinRelevanceScore: 0.3,
			Index:             IndexFlat,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// GlobalConfigPath returns the machine-wide config location.
// Uses $XDG_CONFIG_HOME/orag/config.yaml, falling back to ~/.config/orag/config.yaml.
func GlobalConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "orag", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "orag", "config.yaml")
	}
	return filepath.Join(home, ".config", "orag", "config.yaml")
}

// LoadGlobal loads the global config from GlobalConfigPath.
//
// A missing file is created with defaults. A file that cannot be parsed or
// fails validation is ignored and defaults are used instead. Environment
// overrides are applied last.
func LoadGlobal() GlobalConfig {
	return loadGlobalFrom(GlobalConfigPath())
}

func loadGlobalFrom(path string) GlobalConfig {
	cfg := NewGlobalConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if werr := cfg.WriteYAML(path); werr != nil {
			slog.Debug("global_config_create_failed", slog.String("path", path), slog.String("error", werr.Error()))
		}
	case err != nil:
		slog.Debug("global_config_unreadable", slog.String("path", path), slog.String("error", err.Error()))
	default:
		parsed := NewGlobalConfig()
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			slog.Debug("global_config_malformed", slog.String("path", path), slog.String("error", err.Error()))
			break
		}
		if err := parsed.Validate(); err != nil {
			slog.Debug("global_config_invalid", slog.String("path", path), slog.String("error", err.Error()))
			break
		}
		cfg = parsed
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		slog.Debug("global_config_env_invalid", slog.String("error", err.Error()))
		return NewGlobalConfig()
	}
	return cfg
}

func (c *GlobalConfig) applyEnvOverrides() {
	if v := os.Getenv("ORAG_EMBED_PROVIDER"); v != "" {
		c.Embedding.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("ORAG_EMBED_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("ORAG_EMBED_HOST"); v != "" {
		c.Embedding.Host = v
	}
	if v := os.Getenv("ORAG_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ORAG_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunking.Size = n
		}
	}
	if v := os.Getenv("ORAG_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunking.Overlap = n
		}
	}
	if v := os.Getenv("ORAG_SEARCH_INDEX"); v != "" {
		c.Search.Index = strings.ToLower(v)
	}
}

// Validate checks the global config invariants.
func (c GlobalConfig) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be in [0, %d), got %d", c.Chunking.Size, c.Chunking.Overlap)
	}
	switch c.Chunking.Unit {
	case UnitChars, UnitTokens:
	default:
		return fmt.Errorf("chunking.unit must be 'chars' or 'tokens', got %q", c.Chunking.Unit)
	}

	if c.Search.MinRelevanceScore < 0 || c.Search.MinRelevanceScore > 1 {
		return fmt.Errorf("search.min_relevance_score must be between 0 and 1, got %f", c.Search.MinRelevanceScore)
	}
	if c.Search.DefaultTopK <= 0 {
		return fmt.Errorf("search.default_top_k must be positive, got %d", c.Search.DefaultTopK)
	}
	if c.Search.DefaultMaxChars <= 0 {
		return fmt.Errorf("search.default_max_chars must be positive, got %d", c.Search.DefaultMaxChars)
	}
	switch c.Search.Index {
	case IndexHNSW, IndexFlat:
	default:
		return fmt.Errorf("search.index must be 'hnsw' or 'flat', got %q", c.Search.Index)
	}

	switch c.Embedding.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderStatic:
	default:
		return fmt.Errorf("embedding.provider must be 'ollama', 'openai' or 'static', got %q", c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model must not be empty")
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize)
	}
	if c.Embedding.CacheSize < 0 {
		return fmt.Errorf("embedding.cache_size must be non-negative, got %d", c.Embedding.CacheSize)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be DEBUG, INFO, WARN or ERROR, got %q", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to path, creating parent directories.
func (c GlobalConfig) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

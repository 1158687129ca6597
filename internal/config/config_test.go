package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Global config defaults
// =============================================================================

func TestNewGlobalConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewGlobalConfig()

	assert.Equal(t, ProviderOllama, cfg.Embedding.Provider)
	assert.Equal(t, "all-minilm", cfg.Embedding.Model)
	assert.Equal(t, 512, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, UnitChars, cfg.Chunking.Unit)
	assert.Equal(t, 5, cfg.Search.DefaultTopK)
	assert.Equal(t, 10000, cfg.Search.DefaultMaxChars)
	assert.Equal(t, 0.3, cfg.Search.MinRelevanceScore)
	assert.Equal(t, IndexFlat, cfg.Search.Index)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestGlobalConfigPath_UsesXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "orag", "config.yaml"), GlobalConfigPath())
}

// =============================================================================
// Global config loading
// =============================================================================

func TestLoadGlobal_MissingFileIsCreatedWithDefaults(t *testing.T) {
	// Given: an empty XDG config dir
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	// When: loading the global config
	cfg := LoadGlobal()

	// Then: defaults are returned and the file now exists
	assert.Equal(t, NewGlobalConfig(), cfg)
	_, err := os.Stat(filepath.Join(dir, "orag", "config.yaml"))
	assert.NoError(t, err)
}

func TestLoadGlobal_PartialFileMergesOverDefaults(t *testing.T) {
	// Given: a config that only sets chunk size and log level
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking:\n  size: 800\nlogging:\n  level: debug\n"), 0o644))

	// When: loading
	cfg := loadGlobalFrom(path)

	// Then: set values win, others keep defaults
	assert.Equal(t, 800, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Search.DefaultTopK)
}

func TestLoadGlobal_MalformedFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking: [this is: not valid"), 0o644))

	cfg := loadGlobalFrom(path)

	assert.Equal(t, NewGlobalConfig(), cfg)
}

func TestLoadGlobal_InvalidValuesFallBackToDefaults(t *testing.T) {
	// Given: overlap larger than size
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking:\n  size: 100\n  overlap: 200\n"), 0o644))

	cfg := loadGlobalFrom(path)

	assert.Equal(t, 512, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
}

func TestLoadGlobal_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("ORAG_EMBED_PROVIDER", "STATIC")
	t.Setenv("ORAG_EMBED_MODEL", "static-256")
	t.Setenv("ORAG_CHUNK_SIZE", "300")
	t.Setenv("ORAG_SEARCH_INDEX", "HNSW")

	cfg := loadGlobalFrom(path)

	assert.Equal(t, ProviderStatic, cfg.Embedding.Provider)
	assert.Equal(t, "static-256", cfg.Embedding.Model)
	assert.Equal(t, 300, cfg.Chunking.Size)
	assert.Equal(t, IndexHNSW, cfg.Search.Index)
}

func TestGlobalConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GlobalConfig)
	}{
		{"overlap equals size", func(c *GlobalConfig) { c.Chunking.Overlap = c.Chunking.Size }},
		{"negative overlap", func(c *GlobalConfig) { c.Chunking.Overlap = -1 }},
		{"zero size", func(c *GlobalConfig) { c.Chunking.Size = 0 }},
		{"bad unit", func(c *GlobalConfig) { c.Chunking.Unit = "words" }},
		{"score above one", func(c *GlobalConfig) { c.Search.MinRelevanceScore = 1.5 }},
		{"score below zero", func(c *GlobalConfig) { c.Search.MinRelevanceScore = -0.1 }},
		{"bad index", func(c *GlobalConfig) { c.Search.Index = "ivf" }},
		{"bad provider", func(c *GlobalConfig) { c.Embedding.Provider = "mlx" }},
		{"empty model", func(c *GlobalConfig) { c.Embedding.Model = "" }},
		{"bad level", func(c *GlobalConfig) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewGlobalConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

package embed

import (
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/orag/internal/config"
)

// NewEmbedder builds the configured provider, wrapped in a cache unless
// CacheSize is 0.
func NewEmbedder(cfg config.EmbeddingConfig) (Embedder, error) {
	var (
		inner Embedder
		err   error
	)

	switch cfg.Provider {
	case config.ProviderOllama, "":
		inner = NewOllamaEmbedder(OllamaConfig{
			Host:      cfg.Host,
			Model:     cfg.Model,
			BatchSize: cfg.BatchSize,
		})
	case config.ProviderOpenAI:
		inner, err = NewOpenAIEmbedder(OpenAIConfig{
			Model:     cfg.Model,
			BaseURL:   cfg.Host,
			BatchSize: cfg.BatchSize,
		})
		if err != nil {
			return nil, err
		}
	case config.ProviderStatic:
		inner = NewStaticEmbedder()
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	slog.Debug("embedder created",
		slog.String("provider", cfg.Provider),
		slog.String("model", inner.ModelName()))

	if cfg.CacheSize == 0 {
		return inner, nil
	}
	return NewCachedEmbedder(inner, cfg.CacheSize)
}

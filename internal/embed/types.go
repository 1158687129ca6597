// Package embed maps text to fixed-length vectors.
//
// Providers: Ollama (default, local HTTP), OpenAI, and a static hash-based
// embedder that needs no network or model download. All are deterministic
// for a given model and text. NewEmbedder wraps the chosen provider in an
// LRU cache.
package embed

import (
	"context"
	"math"
	"time"
)

// Defaults shared by providers.
const (
	// DefaultBatchSize is the number of texts per embedding request.
	DefaultBatchSize = 32

	// DefaultTimeout bounds a single embedding request.
	DefaultTimeout = 60 * time.Second

	// StaticDimensions is the vector size of StaticEmbedder.
	StaticDimensions = 256
)

// Embedder generates embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector size, or 0 if not yet known.
	Dimensions() int

	// ModelName returns the model identifier recorded alongside stored vectors.
	ModelName() string

	// Close releases resources.
	Close() error
}

// normalizeVector returns v scaled to unit length. Zero vectors are returned as-is.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

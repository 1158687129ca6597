package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newOllamaServer returns a fake /api/embed that answers with [len(text), 1, 0] per input.
func newOllamaServer(t *testing.T, requests *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}

		var req OllamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var inputs []string
		switch v := req.Input.(type) {
		case string:
			inputs = []string{v}
		case []any:
			for _, s := range v {
				inputs = append(inputs, s.(string))
			}
		}

		resp := OllamaEmbedResponse{Model: req.Model}
		for _, in := range inputs {
			resp.Embeddings = append(resp.Embeddings, []float64{float64(len(in)), 1, 0})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbedder_EmbedBatch_SplitsIntoBatches(t *testing.T) {
	// Given: an embedder with batch size 2
	var requests atomic.Int64
	srv := newOllamaServer(t, &requests)
	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Model: "test-model", BatchSize: 2})
	defer func() { _ = e.Close() }()

	// When: embedding five texts
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})

	// Then: three requests are made and output is ordered and normalized
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	assert.Equal(t, int64(3), requests.Load())
	assert.Equal(t, 3, e.Dimensions())
	assert.InDelta(t, 1.0, vectorMagnitude(vecs[4]), 1e-5)
	assert.Greater(t, vecs[4][0], vecs[0][0])
}

func TestOllamaEmbedder_DimensionsUnknownUntilFirstCall(t *testing.T) {
	e := NewOllamaEmbedder(OllamaConfig{Host: "http://127.0.0.1:1"})
	assert.Equal(t, 0, e.Dimensions())
	assert.Equal(t, DefaultOllamaModel, e.ModelName())
}

func TestOllamaEmbedder_ServerErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL})

	_, err := e.Embed(context.Background(), "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestOllamaEmbedder_UnreachableHostFails(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := srv.URL
	srv.Close()

	e := NewOllamaEmbedder(OllamaConfig{Host: host})

	_, err := e.Embed(context.Background(), "hello")
	assert.Error(t, err)
}

func TestOllamaEmbedder_CancelledContext(t *testing.T) {
	var requests atomic.Int64
	srv := newOllamaServer(t, &requests)
	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.EmbedBatch(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), requests.Load())
}

func TestOllamaEmbedder_ClosedReturnsError(t *testing.T) {
	e := NewOllamaEmbedder(OllamaConfig{})
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err := e.Embed(context.Background(), "x")
	assert.Error(t, err)
}

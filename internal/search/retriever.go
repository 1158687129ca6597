package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Aman-CERP/orag/internal/embed"
	oerrors "github.com/Aman-CERP/orag/internal/errors"
	"github.com/Aman-CERP/orag/internal/scanner"
	"github.com/Aman-CERP/orag/internal/store"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Retriever runs semantic queries against one collection.
type Retriever struct {
	st         *store.Store
	embedder   embed.Embedder
	collection string
}

// NewRetriever creates a Retriever over an open store.
func NewRetriever(st *store.Store, embedder embed.Embedder, collection string) (*Retriever, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: store", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder", ErrNilDependency)
	}
	return &Retriever{st: st, embedder: embedder, collection: collection}, nil
}

// Search embeds query and returns at most topK chunks scoring at least
// minScore. A missing collection is returned as a CollectionNotFound error.
// Every other failure is reported in the response with status "error".
func (r *Retriever) Search(ctx context.Context, query string, topK int, minScore float64) (SearchResponse, error) {
	start := time.Now()
	resp := SearchResponse{Status: StatusSuccess, Query: query, Results: []SearchResult{}}
	fail := func(err error) (SearchResponse, error) {
		slog.Error("search_failed", oerrors.FormatForLog(err)...)
		resp.Status = StatusError
		resp.Results = []SearchResult{}
		resp.Count = 0
		resp.Error = err.Error()
		resp.QueryTimeMS = elapsedMS(start)
		return resp, nil
	}

	if err := validateQuery(query, topK); err != nil {
		return fail(err)
	}
	if minScore < 0 || minScore > 1 {
		return fail(oerrors.ValidationError(fmt.Sprintf("min_score must be within [0, 1], got %g", minScore)))
	}

	coll, err := r.st.GetCollection(ctx, r.collection)
	if errors.Is(err, store.ErrCollectionNotFound) {
		return resp, oerrors.CollectionNotFound(r.collection, err)
	}
	if err != nil {
		return fail(oerrors.BackendFailure("failed to open collection", err))
	}
	if model := r.embedder.ModelName(); coll.Model != "" && coll.Model != model {
		slog.Warn("embedding_model_mismatch",
			slog.String("collection", r.collection),
			slog.String("indexed_with", coll.Model),
			slog.String("querying_with", model))
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return fail(oerrors.BackendFailure("failed to embed query", err))
	}

	matches, err := r.st.Query(ctx, r.collection, vec, topK)
	if err != nil {
		var dimErr store.ErrDimensionMismatch
		if errors.As(err, &dimErr) {
			return fail(oerrors.BackendFailure("query embedding does not match the index", err).
				WithSuggestion("run `orag reindex` after changing the embedding model"))
		}
		return fail(oerrors.BackendFailure("vector query failed", err))
	}

	for _, m := range matches {
		score := float64(m.Score)
		if score < minScore {
			continue
		}
		resp.Results = append(resp.Results, SearchResult{
			FilePath: metaString(m.Metadata, scanner.MetaFilePath, "unknown"),
			Score:    score,
			Chunk:    m.Text,
			Metadata: m.Metadata,
		})
	}
	sort.SliceStable(resp.Results, func(i, j int) bool {
		return resp.Results[i].Score > resp.Results[j].Score
	})

	resp.Count = len(resp.Results)
	resp.QueryTimeMS = elapsedMS(start)
	slog.Debug("search_completed",
		slog.String("collection", r.collection),
		slog.Int("matches", len(matches)),
		slog.Int("results", resp.Count),
		slog.Float64("query_time_ms", resp.QueryTimeMS))
	return resp, nil
}

func validateQuery(query string, limit int) error {
	if strings.TrimSpace(query) == "" {
		return oerrors.ValidationError("query must not be empty")
	}
	if limit <= 0 {
		return oerrors.ValidationError(fmt.Sprintf("limit must be positive, got %d", limit))
	}
	return nil
}

func metaString(meta map[string]any, key, fallback string) string {
	if v, ok := meta[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

package search

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	oerrors "github.com/Aman-CERP/orag/internal/errors"
	"github.com/Aman-CERP/orag/internal/scanner"
)

const (
	// sourceSeparator joins context parts.
	sourceSeparator = "\n\n---\n\n"

	// truncationMarker ends a chunk that was cut to fit the budget.
	truncationMarker = "..."

	// minTruncatedChars is the smallest remaining budget worth a truncated
	// chunk after the first source.
	minTruncatedChars = 100
)

// MsgNoContext is reported when no chunk clears the relevance threshold.
const MsgNoContext = "no relevant context found"

// ContextAggregator packs search results into a single context string.
type ContextAggregator struct {
	retriever *Retriever
	minScore  float64
}

// NewContextAggregator creates an aggregator that filters with minScore.
func NewContextAggregator(r *Retriever, minScore float64) *ContextAggregator {
	return &ContextAggregator{retriever: r, minScore: minScore}
}

// BuildContext retrieves up to maxSources chunks and packs them greedily in
// descending score order so that included chunk characters stay within
// maxChars. A CollectionNotFound error from the retriever is returned.
func (a *ContextAggregator) BuildContext(ctx context.Context, query string, maxChars, maxSources int) (RAGResponse, error) {
	start := time.Now()
	resp := RAGResponse{Status: StatusError, Query: query, Sources: []RAGSource{}}

	if maxChars <= 0 {
		resp.Error = oerrors.ValidationError(fmt.Sprintf("max_chars must be positive, got %d", maxChars)).Error()
		resp.QueryTimeMS = elapsedMS(start)
		return resp, nil
	}

	found, err := a.retriever.Search(ctx, query, maxSources, a.minScore)
	if err != nil {
		return resp, err
	}
	if found.Status != StatusSuccess {
		resp.Error = found.Error
		resp.QueryTimeMS = elapsedMS(start)
		return resp, nil
	}
	if len(found.Results) == 0 {
		resp.Error = MsgNoContext
		resp.QueryTimeMS = elapsedMS(start)
		slog.Info("rag_no_context", slog.String("query", query), slog.Float64("min_score", a.minScore))
		return resp, nil
	}

	resp.Status = StatusSuccess
	resp.Context, resp.Sources = packContext(found.Results, maxChars)
	resp.ContextLength = utf8.RuneCountInString(resp.Context)
	resp.QueryTimeMS = elapsedMS(start)
	return resp, nil
}

// packContext formats results as "## path\n\nchunk" parts. A chunk that does
// not fit is cut with a trailing marker when more than minTruncatedChars
// remain, and packing stops. The first result is always included.
func packContext(results []SearchResult, maxChars int) (string, []RAGSource) {
	parts := make([]string, 0, len(results))
	sources := make([]RAGSource, 0, len(results))
	total := 0

	for i, res := range results {
		chunk := res.Chunk
		n := utf8.RuneCountInString(chunk)
		remaining := maxChars - total

		if n > remaining {
			if i > 0 && remaining <= minTruncatedChars {
				break
			}
			chunk = string([]rune(chunk)[:remaining]) + truncationMarker
			n = remaining
		}

		parts = append(parts, fmt.Sprintf("## %s\n\n%s", res.FilePath, chunk))
		sources = append(sources, RAGSource{
			FileName:       sourceFileName(res),
			FilePath:       res.FilePath,
			RelevanceScore: res.Score,
			CharCount:      n,
		})
		total += n
		if total >= maxChars {
			break
		}
	}

	return strings.Join(parts, sourceSeparator), sources
}

func sourceFileName(res SearchResult) string {
	if name := metaString(res.Metadata, scanner.MetaFileName, ""); name != "" {
		return name
	}
	if res.FilePath == "" || res.FilePath == "unknown" {
		return "unknown"
	}
	return path.Base(res.FilePath)
}

// Package search answers semantic queries against a vault's collection and
// packs the best matches into a size-bounded RAG context.
package search

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// SearchResult is one ranked chunk.
type SearchResult struct {
	FilePath string         `json:"file_path"`
	Score    float64        `json:"score"`
	Chunk    string         `json:"chunk"`
	Metadata map[string]any `json:"metadata"`
}

// SearchResponse is the outcome of a search. Results are ordered by
// descending score.
type SearchResponse struct {
	Status      string         `json:"status"`
	Query       string         `json:"query"`
	Results     []SearchResult `json:"results"`
	Count       int            `json:"count"`
	QueryTimeMS float64        `json:"query_time_ms"`
	Error       string         `json:"error,omitempty"`
}

// RAGSource describes one chunk included in a RAG context. CharCount is the
// number of chunk characters actually included.
type RAGSource struct {
	FileName       string  `json:"file_name"`
	FilePath       string  `json:"file_path"`
	RelevanceScore float64 `json:"relevance_score"`
	CharCount      int     `json:"char_count"`
}

// RAGResponse is the outcome of BuildContext.
type RAGResponse struct {
	Status        string      `json:"status"`
	Query         string      `json:"query"`
	Context       string      `json:"context"`
	Sources       []RAGSource `json:"sources"`
	ContextLength int         `json:"context_length"`
	QueryTimeMS   float64     `json:"query_time_ms"`
	Error         string      `json:"error,omitempty"`
}

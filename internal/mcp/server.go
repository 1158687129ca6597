package mcp

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/orag/internal/search"
	"github.com/Aman-CERP/orag/internal/stats"
	"github.com/Aman-CERP/orag/internal/vault"
	"github.com/Aman-CERP/orag/pkg/version"
)

// Backend answers tool calls. *vault.Client implements it.
type Backend interface {
	Search(ctx context.Context, query string, opts vault.SearchOptions) (search.SearchResponse, error)
	GetRagContext(ctx context.Context, query string, opts vault.RAGOptions) (search.RAGResponse, error)
	GetStats(ctx context.Context) stats.VaultStats
}

// Server is the MCP server for one vault.
type Server struct {
	mcp     *mcp.Server
	backend Backend
	logger  *slog.Logger
}

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query    string   `json:"query" jsonschema:"the search query"`
	TopK     int      `json:"top_k,omitempty" jsonschema:"maximum number of results, default from config"`
	MinScore *float64 `json:"min_score,omitempty" jsonschema:"minimum relevance score between 0 and 1"`
}

// RAGInput defines the input schema for the rag_context tool.
type RAGInput struct {
	Query      string `json:"query" jsonschema:"the question to gather context for"`
	MaxChars   int    `json:"max_chars,omitempty" jsonschema:"maximum context characters, default from config"`
	MaxSources int    `json:"max_sources,omitempty" jsonschema:"maximum number of source chunks, default 5"`
}

// StatsInput is the empty input of the stats tool.
type StatsInput struct{}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{"search", "Semantic search over the Obsidian vault. Returns ranked note chunks with file paths and relevance scores."},
	{"rag_context", "Builds a size-bounded context from the most relevant vault notes, ready to prepend to a prompt."},
	{"stats", "Reports the vault index: document and chunk counts, store size, embedding model and last index time."},
}

// NewServer creates an MCP server backed by b.
func NewServer(b Backend) (*Server, error) {
	if b == nil {
		return nil, errors.New("backend is required")
	}

	s := &Server{backend: b, logger: slog.Default()}
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: "orag", Version: version.Version}, nil)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpRAGHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpStatsHandler)
	s.logger.Debug("MCP tools registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	search.SearchResponse,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, search.SearchResponse{}, NewInvalidParamsError("query parameter is required")
	}

	resp, err := s.backend.Search(ctx, input.Query, vault.SearchOptions{TopK: input.TopK, MinScore: input.MinScore})
	if err != nil {
		return nil, search.SearchResponse{}, MapError(err)
	}
	s.logger.Debug("mcp_search", slog.String("status", resp.Status), slog.Int("count", resp.Count))
	return nil, resp, nil
}

func (s *Server) mcpRAGHandler(ctx context.Context, _ *mcp.CallToolRequest, input RAGInput) (
	*mcp.CallToolResult,
	search.RAGResponse,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, search.RAGResponse{}, NewInvalidParamsError("query parameter is required")
	}

	resp, err := s.backend.GetRagContext(ctx, input.Query, vault.RAGOptions{
		MaxChars:   input.MaxChars,
		MaxSources: input.MaxSources,
	})
	if err != nil {
		return nil, search.RAGResponse{}, MapError(err)
	}
	s.logger.Debug("mcp_rag_context", slog.String("status", resp.Status), slog.Int("sources", len(resp.Sources)))
	return nil, resp, nil
}

func (s *Server) mcpStatsHandler(ctx context.Context, _ *mcp.CallToolRequest, _ StatsInput) (
	*mcp.CallToolResult,
	stats.VaultStats,
	error,
) {
	return nil, s.backend.GetStats(ctx), nil
}

// Serve runs the server over stdio until ctx is canceled or the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("Starting MCP server", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("MCP server stopped gracefully")
	return nil
}

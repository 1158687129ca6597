// Package vault is the programmatic entry point: it binds a vault's config
// to the indexer, retriever, context aggregator and stats collector.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Aman-CERP/orag/internal/config"
	"github.com/Aman-CERP/orag/internal/embed"
	oerrors "github.com/Aman-CERP/orag/internal/errors"
	"github.com/Aman-CERP/orag/internal/index"
	"github.com/Aman-CERP/orag/internal/search"
	"github.com/Aman-CERP/orag/internal/stats"
	"github.com/Aman-CERP/orag/internal/store"
	"github.com/Aman-CERP/orag/internal/ui"
)

// DefaultMaxSources is used when RAGOptions.MaxSources is not set.
const DefaultMaxSources = 5

// SearchOptions overrides the global search defaults. Zero values fall back.
type SearchOptions struct {
	TopK     int
	MinScore *float64
}

// RAGOptions overrides the global context defaults. Zero values fall back.
type RAGOptions struct {
	MaxChars   int
	MaxSources int
}

// Client operates on one vault.
type Client struct {
	vault    config.VaultConfig
	global   config.GlobalConfig
	embedder embed.Embedder
	renderer ui.Renderer
}

// Option configures a Client.
type Option func(*Client)

// WithEmbedder replaces the embedder built from the global config.
func WithEmbedder(e embed.Embedder) Option {
	return func(c *Client) { c.embedder = e }
}

// WithRenderer sets the progress renderer used by IndexVault.
func WithRenderer(r ui.Renderer) Option {
	return func(c *Client) { c.renderer = r }
}

// Open finds the vault containing start (the working directory when empty),
// and loads its config and the global config.
func Open(start string, opts ...Option) (*Client, error) {
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, oerrors.ConfigNotFound(fmt.Sprintf("cannot determine working directory: %v", err))
		}
		start = wd
	}

	root, err := config.FindVaultRoot(start)
	if err != nil {
		return nil, err
	}
	vcfg, err := config.LoadVault(root)
	if err != nil {
		return nil, err
	}
	return New(vcfg, config.LoadGlobal(), opts...)
}

// New creates a Client from loaded configs.
func New(vcfg config.VaultConfig, global config.GlobalConfig, opts ...Option) (*Client, error) {
	c := &Client{vault: vcfg, global: global}
	for _, opt := range opts {
		opt(c)
	}

	if c.embedder == nil {
		e, err := embed.NewEmbedder(global.Embedding)
		if err != nil {
			return nil, oerrors.ConfigInvalid("cannot create embedder", err)
		}
		c.embedder = e
	}
	if c.renderer == nil {
		c.renderer = ui.NopRenderer{}
	}
	return c, nil
}

// Vault returns the vault config.
func (c *Client) Vault() config.VaultConfig { return c.vault }

// Global returns the global config.
func (c *Client) Global() config.GlobalConfig { return c.global }

// Close releases the embedder.
func (c *Client) Close() error {
	return c.embedder.Close()
}

// IndexVault indexes every document. With force the store is cleared first.
func (c *Client) IndexVault(ctx context.Context, force bool) index.Result {
	ix, err := index.New(c.global, index.Dependencies{Embedder: c.embedder, Renderer: c.renderer})
	if err != nil {
		return index.Result{
			Status:          index.StatusError,
			VectorStorePath: c.vault.StorePath(),
			Errors:          []string{err.Error()},
		}
	}
	if force {
		return ix.Reindex(ctx, c.vault)
	}
	return ix.Index(ctx, c.vault)
}

// ReindexVault clears the store and indexes from scratch.
func (c *Client) ReindexVault(ctx context.Context) index.Result {
	return c.IndexVault(ctx, true)
}

// Search runs a semantic query. A vault that was never indexed yields a
// CollectionNotFound error.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (search.SearchResponse, error) {
	topK := opts.TopK
	if topK == 0 {
		topK = c.global.Search.DefaultTopK
	}
	minScore := c.global.Search.MinRelevanceScore
	if opts.MinScore != nil {
		minScore = *opts.MinScore
	}

	st, err := c.openStore()
	if err != nil {
		return search.SearchResponse{Status: search.StatusError, Query: query, Results: []search.SearchResult{}}, err
	}
	defer func() { _ = st.Close() }()

	r, err := search.NewRetriever(st, c.embedder, c.vault.Name)
	if err != nil {
		return search.SearchResponse{}, err
	}
	return r.Search(ctx, query, topK, minScore)
}

// GetRagContext builds a size-bounded context for query.
func (c *Client) GetRagContext(ctx context.Context, query string, opts RAGOptions) (search.RAGResponse, error) {
	maxChars := opts.MaxChars
	if maxChars == 0 {
		maxChars = c.global.Search.DefaultMaxChars
	}
	maxSources := opts.MaxSources
	if maxSources == 0 {
		maxSources = DefaultMaxSources
	}

	st, err := c.openStore()
	if err != nil {
		return search.RAGResponse{Status: search.StatusError, Query: query, Sources: []search.RAGSource{}}, err
	}
	defer func() { _ = st.Close() }()

	r, err := search.NewRetriever(st, c.embedder, c.vault.Name)
	if err != nil {
		return search.RAGResponse{}, err
	}
	return search.NewContextAggregator(r, c.global.Search.MinRelevanceScore).
		BuildContext(ctx, query, maxChars, maxSources)
}

// GetStats reports index statistics. It never fails; problems show up as
// status "error".
func (c *Client) GetStats(ctx context.Context) stats.VaultStats {
	st, err := c.openStore()
	if err != nil {
		slog.Debug("stats_without_store", slog.String("error", err.Error()))
		return stats.Collect(ctx, nil, c.vault, c.global)
	}
	defer func() { _ = st.Close() }()
	return stats.Collect(ctx, st, c.vault, c.global)
}

func (c *Client) openStore() (*store.Store, error) {
	st, err := store.OpenExisting(c.vault.StorePath(), store.Options{Index: c.global.Search.Index})
	if errors.Is(err, store.ErrStoreNotFound) {
		return nil, oerrors.CollectionNotFound(c.vault.Name, err)
	}
	if err != nil {
		return nil, oerrors.BackendFailure("failed to open vector store", err)
	}
	return st, nil
}

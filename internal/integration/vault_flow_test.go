package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/orag/internal/config"
	"github.com/Aman-CERP/orag/internal/index"
	"github.com/Aman-CERP/orag/internal/mcp"
	"github.com/Aman-CERP/orag/internal/search"
	"github.com/Aman-CERP/orag/internal/stats"
	"github.com/Aman-CERP/orag/internal/store"
	"github.com/Aman-CERP/orag/internal/vault"
)

// Integration tests run the full path from a vault on disk, through the
// config files, to indexing, retrieval and the MCP backend.

func testGlobal(indexKind string) config.GlobalConfig {
	g := config.NewGlobalConfig()
	g.Embedding.Provider = config.ProviderStatic
	g.Search.Index = indexKind
	g.Search.MinRelevanceScore = 0
	return g
}

// writeFiles creates files under root.
func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// openVault writes .orag.yaml into a new vault and loads it back the way the
// CLI does.
func openVault(t *testing.T, name string, dirs []string, files map[string]string, indexKind string) *vault.Client {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, files)

	_, err := config.WriteVaultConfig(root, config.VaultConfig{
		Name:        name,
		Dirs:        dirs,
		VectorStore: config.DefaultVectorStore,
	}, false)
	require.NoError(t, err)

	found, err := config.FindVaultRoot(filepath.Join(root, filepath.FromSlash(dirs[0])))
	require.NoError(t, err)
	vcfg, err := config.LoadVault(found)
	require.NoError(t, err)

	c, err := vault.New(vcfg, testGlobal(indexKind))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

var gardenVault = map[string]string{
	"Garden/tomatoes.md":   "# Tomatoes\n\nStake tomatoes early and water them deeply twice a week.",
	"Garden/compost.md":    "# Compost\n\nMix green clippings with brown leaves and turn the pile monthly.",
	"Kitchen/bread.md":     "# Bread\n\nFeed the sourdough starter the night before baking.",
	"Archive/old-plans.md": "# Old plans\n\nA greenhouse that never got built.",
	".obsidian/app.md":     "workspace settings that must never be indexed",
}

// =============================================================================
// Index and search
// =============================================================================

func TestVaultFlow_IndexSearchAndContext(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, kind := range []string{store.IndexFlat, store.IndexHNSW} {
		t.Run(kind, func(t *testing.T) {
			// Given: a vault scoped to two folders
			c := openVault(t, "garden-notes", []string{"Garden", "Kitchen"}, gardenVault, kind)
			ctx := context.Background()

			// When: indexing
			res := c.IndexVault(ctx, false)

			// Then: only the configured folders are indexed
			require.Equal(t, index.StatusSuccess, res.Status, res.Errors)
			assert.Equal(t, 3, res.DocumentsIndexed)

			// When: searching for a phrase from one note
			resp, err := c.Search(ctx, "feed the sourdough starter", vault.SearchOptions{TopK: 3})

			// Then: that note ranks first, ordered by score
			require.NoError(t, err)
			require.Equal(t, search.StatusSuccess, resp.Status)
			require.NotEmpty(t, resp.Results)
			assert.Equal(t, "Kitchen/bread.md", resp.Results[0].FilePath)
			for i := 1; i < len(resp.Results); i++ {
				assert.GreaterOrEqual(t, resp.Results[i-1].Score, resp.Results[i].Score)
			}
			for _, r := range resp.Results {
				assert.NotContains(t, r.FilePath, "Archive/")
				assert.NotContains(t, r.FilePath, ".obsidian/")
			}

			// When: building context
			rag, err := c.GetRagContext(ctx, "watering tomatoes", vault.RAGOptions{MaxChars: 200, MaxSources: 2})

			// Then: the context is headed by source paths and within budget
			require.NoError(t, err)
			require.Equal(t, search.StatusSuccess, rag.Status)
			assert.Contains(t, rag.Context, "## Garden/")
			total := 0
			for _, s := range rag.Sources {
				total += s.CharCount
			}
			assert.LessOrEqual(t, total, 200)

			// When: reading stats
			st := c.GetStats(ctx)

			// Then
			assert.Equal(t, stats.StatusSuccess, st.Status)
			assert.Equal(t, 3, st.DocumentCount)
			assert.Equal(t, "garden-notes", st.VaultName)
		})
	}
}

func TestVaultFlow_EditThenReindex(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: an indexed vault
	c := openVault(t, "edits", []string{"."}, map[string]string{
		"a.md": "Notes about the lighthouse keeper and the long winter.",
		"b.md": "Shopping list: lentils, onions, cumin.",
	}, store.IndexFlat)
	ctx := context.Background()
	require.Equal(t, index.StatusSuccess, c.IndexVault(ctx, false).Status)

	// When: one note is deleted and another added
	root := c.Vault().Root
	require.NoError(t, os.Remove(filepath.Join(root, "b.md")))
	writeFiles(t, root, map[string]string{"c.md": "The ferry to the island leaves at dawn."})
	res := c.IndexVault(ctx, false)

	// Then: stats and search reflect the new state
	require.Equal(t, index.StatusSuccess, res.Status, res.Errors)
	assert.Equal(t, 2, c.GetStats(ctx).DocumentCount)

	resp, err := c.Search(ctx, "shopping list lentils onions cumin", vault.SearchOptions{TopK: 5})
	require.NoError(t, err)
	for _, r := range resp.Results {
		assert.NotEqual(t, "b.md", r.FilePath)
	}
}

// =============================================================================
// MCP backend
// =============================================================================

func TestVaultFlow_ClientServesMCP(t *testing.T) {
	// Given: an indexed vault
	c := openVault(t, "mcp-vault", []string{"."}, map[string]string{
		"a.md": "Cats purr. Cats sleep all day.",
	}, store.IndexFlat)
	require.Equal(t, index.StatusSuccess, c.IndexVault(context.Background(), false).Status)

	// When
	srv, err := mcp.NewServer(c)

	// Then
	require.NoError(t, err)
	names := make([]string, 0, 3)
	for _, tool := range srv.ListTools() {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"search", "rag_context", "stats"}, names)
}

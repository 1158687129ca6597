package search

import (
	"context"
	"path"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/orag/internal/embed"
	"github.com/Aman-CERP/orag/internal/store"
)

const testCollection = "test-vault"

type note struct {
	path string
	text string
}

// seedStore indexes one record per note with the static embedder.
func seedStore(t *testing.T, notes ...note) (*store.Store, embed.Embedder) {
	t.Helper()
	ctx := context.Background()
	e := embed.NewStaticEmbedder()

	st, err := store.Open(t.TempDir(), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, err = st.GetOrCreateCollection(ctx, testCollection, e.Dimensions(), e.ModelName())
	require.NoError(t, err)

	records := make([]store.Record, 0, len(notes))
	for _, n := range notes {
		vec, err := e.Embed(ctx, n.text)
		require.NoError(t, err)
		records = append(records, store.Record{
			ID:   n.path,
			Text: n.text,
			Metadata: map[string]any{
				"file_path":   n.path,
				"file_name":   path.Base(n.path),
				"vault":       testCollection,
				"chunk_index": 0,
			},
			Embedding: vec,
		})
	}
	if len(records) > 0 {
		require.NoError(t, st.Upsert(ctx, testCollection, records))
	}
	return st, e
}

func newTestRetriever(t *testing.T, notes ...note) *Retriever {
	t.Helper()
	st, e := seedStore(t, notes...)
	r, err := NewRetriever(st, e, testCollection)
	require.NoError(t, err)
	return r
}

var petNotes = []note{
	{"cats.md", "Cats are independent pets that purr and chase mice around the house."},
	{"dogs.md", "Dogs are loyal companions that bark, fetch sticks and love long walks."},
	{"garden.md", "Tomatoes and basil grow well together in a sunny vegetable garden."},
	{"bread.md", "Sourdough bread needs a lively starter, flour, water and patience."},
}

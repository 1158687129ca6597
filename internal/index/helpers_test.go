package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/orag/internal/config"
	"github.com/Aman-CERP/orag/internal/embed"
	"github.com/Aman-CERP/orag/internal/ui"
)

// writeVault creates files under a temp vault root and returns its config.
func writeVault(t *testing.T, files map[string]string) config.VaultConfig {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return config.VaultConfig{
		Name:        "test-vault",
		Dirs:        []string{"."},
		VectorStore: config.DefaultVectorStore,
		Root:        root,
	}
}

func testGlobal(index string) config.GlobalConfig {
	g := config.NewGlobalConfig()
	g.Embedding.Provider = config.ProviderStatic
	g.Search.Index = index
	return g
}

func newTestIndexer(t *testing.T, index string, e embed.Embedder, r ui.Renderer) *Indexer {
	t.Helper()
	if e == nil {
		e = embed.NewStaticEmbedder()
	}
	ix, err := New(testGlobal(index), Dependencies{Embedder: e, Renderer: r})
	require.NoError(t, err)
	return ix
}

// failingEmbedder fails every call after the first okCalls.
type failingEmbedder struct {
	*embed.StaticEmbedder
	mu      sync.Mutex
	okCalls int
}

func (f *failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.okCalls <= 0 {
		return nil, errors.New("connection refused")
	}
	f.okCalls--
	return f.StaticEmbedder.EmbedBatch(ctx, texts)
}

// recordingRenderer captures renderer events.
type recordingRenderer struct {
	mu        sync.Mutex
	progress  []ui.ProgressEvent
	errs      []ui.ErrorEvent
	completed *ui.CompletionStats
	stopped   bool
}

func (r *recordingRenderer) Start(context.Context) error { return nil }

func (r *recordingRenderer) UpdateProgress(e ui.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, e)
}

func (r *recordingRenderer) AddError(e ui.ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, e)
}

func (r *recordingRenderer) Complete(s ui.CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = &s
}

func (r *recordingRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	return nil
}

func (r *recordingRenderer) stageEvents(stage ui.Stage) []ui.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ui.ProgressEvent
	for _, e := range r.progress {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}

// Package index runs the vault indexing pipeline: scan, load, chunk,
// embed and upsert into the vault's collection.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/orag/internal/chunk"
	"github.com/Aman-CERP/orag/internal/config"
	"github.com/Aman-CERP/orag/internal/embed"
	oerrors "github.com/Aman-CERP/orag/internal/errors"
	"github.com/Aman-CERP/orag/internal/scanner"
	"github.com/Aman-CERP/orag/internal/store"
	"github.com/Aman-CERP/orag/internal/ui"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// MsgNoDocuments is reported when the configured dirs hold no markdown files.
const MsgNoDocuments = "no markdown files found in configured directories"

// Result is the outcome of an index run.
type Result struct {
	Status           string   `json:"status"`
	DocumentsIndexed int      `json:"documents_indexed"`
	ChunksCreated    int      `json:"chunks_created"`
	TimeElapsedMS    float64  `json:"time_elapsed_ms"`
	VectorStorePath  string   `json:"vector_store_path"`
	Errors           []string `json:"errors"`
}

// Dependencies are injected into the Indexer.
type Dependencies struct {
	// Embedder is required.
	Embedder embed.Embedder

	// Chunker defaults to a TextChunker built from the chunking config.
	Chunker chunk.Chunker

	// Renderer defaults to ui.NopRenderer.
	Renderer ui.Renderer
}

// Indexer writes a vault's documents into its collection.
type Indexer struct {
	global   config.GlobalConfig
	embedder embed.Embedder
	chunker  chunk.Chunker
	renderer ui.Renderer
}

// New creates an Indexer.
func New(global config.GlobalConfig, deps Dependencies) (*Indexer, error) {
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	chunker := deps.Chunker
	if chunker == nil {
		c, err := chunk.New(chunk.Options{
			Size:    global.Chunking.Size,
			Overlap: global.Chunking.Overlap,
			Unit:    global.Chunking.Unit,
		})
		if err != nil {
			return nil, err
		}
		chunker = c
	}

	renderer := deps.Renderer
	if renderer == nil {
		renderer = ui.NopRenderer{}
	}

	return &Indexer{
		global:   global,
		embedder: deps.Embedder,
		chunker:  chunker,
		renderer: renderer,
	}, nil
}

// run holds the state of one Index call.
type run struct {
	ix        *Indexer
	vault     config.VaultConfig
	logger    *slog.Logger
	st        *store.Store
	collected bool // collection exists with the embedder's dimension
	result    Result
}

func (r *run) fail(err error) {
	r.result.Status = StatusError
	r.result.Errors = append(r.result.Errors, err.Error())
}

// Index scans, loads, chunks, embeds and upserts every markdown document of
// the vault. Failures are reported in the Result, never returned.
func (ix *Indexer) Index(ctx context.Context, vault config.VaultConfig) Result {
	start := time.Now()
	r := &run{
		ix:     ix,
		vault:  vault,
		logger: slog.With(slog.String("run_id", uuid.NewString()), slog.String("vault", vault.Name)),
		result: Result{
			Status:          StatusSuccess,
			VectorStorePath: vault.StorePath(),
			Errors:          []string{},
		},
	}

	if err := ix.renderer.Start(ctx); err != nil {
		r.logger.Debug("renderer start failed", slog.String("error", err.Error()))
	}
	defer func() { _ = ix.renderer.Stop() }()

	r.logger.Info("index_started", slog.String("root", vault.Root))
	r.execute(ctx)

	r.result.TimeElapsedMS = float64(time.Since(start).Microseconds()) / 1000
	r.logger.Info("index_finished",
		slog.String("status", r.result.Status),
		slog.Int("documents", r.result.DocumentsIndexed),
		slog.Int("chunks", r.result.ChunksCreated),
		slog.Int("errors", len(r.result.Errors)),
		slog.Float64("elapsed_ms", r.result.TimeElapsedMS))

	if r.result.Status == StatusSuccess {
		ix.renderer.Complete(ui.CompletionStats{
			Documents: r.result.DocumentsIndexed,
			Chunks:    r.result.ChunksCreated,
			Duration:  time.Since(start),
			Warnings:  len(r.result.Errors),
			Embedder: ui.EmbedderInfo{
				Provider:   ix.global.Embedding.Provider,
				Model:      ix.embedder.ModelName(),
				Dimensions: ix.embedder.Dimensions(),
			},
		})
	}
	return r.result
}

func (r *run) execute(ctx context.Context) {
	ix := r.ix

	// Scan
	ix.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageScanning, Message: "Scanning vault"})
	scan, err := scanner.Scan(scanner.ScanOptions{
		RootDir:         r.vault.Root,
		Dirs:            r.vault.Dirs,
		ExcludePatterns: r.vault.Exclude,
		SkipDirs:        []string{r.vault.StorePath()},
	})
	if err != nil {
		r.fail(err)
		return
	}
	for _, w := range scan.Warnings {
		ix.renderer.AddError(ui.ErrorEvent{Err: errors.New(w), IsWarn: true})
	}
	if len(scan.Files) == 0 {
		r.logger.Warn("no_documents",
			slog.String("error_code", oerrors.ErrCodeNoDocuments),
			slog.Any("dirs", r.vault.Dirs))
		r.result.Status = StatusError
		r.result.Errors = append(r.result.Errors, MsgNoDocuments)
		return
	}

	// Load
	ix.renderer.UpdateProgress(ui.ProgressEvent{
		Stage: ui.StageLoading, Total: len(scan.Files), Current: len(scan.Files),
		Message: fmt.Sprintf("Loading %d documents", len(scan.Files)),
	})
	docs, loadErrs := scanner.LoadDocuments(r.vault.Name, scan.Files)
	for _, e := range loadErrs {
		r.result.Errors = append(r.result.Errors, e.Error())
		ix.renderer.AddError(ui.ErrorEvent{File: detailFile(e), Err: e, IsWarn: true})
	}
	if len(docs) == 0 {
		r.fail(fmt.Errorf("all %d documents failed to load", len(scan.Files)))
		return
	}

	// Store and writer lock
	lock := NewFileLock(r.vault.StorePath())
	acquired, err := lock.TryLock()
	if err != nil {
		r.fail(oerrors.BackendFailure("failed to lock vector store", err))
		return
	}
	if !acquired {
		r.fail(oerrors.New(oerrors.ErrCodeIndexLocked,
			"another orag process is indexing this vault", nil).
			WithDetail("lock", lock.Path()))
		return
	}
	defer func() { _ = lock.Unlock() }()

	st, err := store.Open(r.vault.StorePath(), store.Options{Index: ix.global.Search.Index})
	if err != nil {
		r.fail(oerrors.BackendFailure("failed to open vector store", err))
		return
	}
	defer func() { _ = st.Close() }()
	r.st = st

	// Chunk, embed and upsert one document at a time
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("index_cancelled", slog.Int("documents_done", i))
			r.fail(err)
			return
		}

		n, err := r.indexDocument(ctx, doc)
		if err != nil {
			var oerr *oerrors.OragError
			if errors.As(err, &oerr) && oerr.Code == oerrors.ErrCodeBackend {
				r.logger.Error("index_aborted", oerrors.FormatForLog(err)...)
				r.fail(err)
				ix.renderer.AddError(ui.ErrorEvent{File: doc.RelPath, Err: err})
				return
			}
			r.logger.Warn("document_skipped", slog.String("file_path", doc.RelPath), slog.String("error", err.Error()))
			r.result.Errors = append(r.result.Errors, err.Error())
			ix.renderer.AddError(ui.ErrorEvent{File: doc.RelPath, Err: err, IsWarn: true})
			continue
		}

		r.result.DocumentsIndexed++
		r.result.ChunksCreated += n
		ix.renderer.UpdateProgress(ui.ProgressEvent{
			Stage: ui.StageEmbedding, Current: i + 1, Total: len(docs), CurrentFile: doc.RelPath,
		})
	}

	if r.result.DocumentsIndexed == 0 {
		r.fail(fmt.Errorf("none of %d documents could be indexed", len(docs)))
		return
	}

	ix.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageFinalizing, Message: "Building search index"})
	if err := r.finalize(ctx, scan.Files); err != nil {
		r.fail(err)
	}
}

// indexDocument replaces a document's chunks and returns how many were written.
func (r *run) indexDocument(ctx context.Context, doc scanner.Document) (int, error) {
	chunks, err := r.ix.chunker.Split(doc)
	if err != nil {
		return 0, err
	}

	batchSize := r.ix.global.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = embed.DefaultBatchSize
	}

	replaced := false
	for start := 0; start < len(chunks); start += batchSize {
		batch := chunks[start:min(start+batchSize, len(chunks))]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vecs, err := r.ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, oerrors.BackendFailure(fmt.Sprintf("embedding failed for %s", doc.RelPath), err).
				WithDetail("file_path", doc.RelPath)
		}
		if len(vecs) != len(batch) {
			return 0, oerrors.BackendFailure(
				fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vecs), len(batch)), nil)
		}

		if err := r.ensureCollection(ctx, len(vecs[0])); err != nil {
			return 0, err
		}
		if !replaced {
			if err := r.deleteFile(ctx, doc.RelPath); err != nil {
				return 0, err
			}
			replaced = true
		}

		records := make([]store.Record, len(batch))
		for i, c := range batch {
			records[i] = store.Record{ID: c.ID, Text: c.Text, Metadata: c.Metadata, Embedding: vecs[i]}
		}
		if err := r.st.Upsert(ctx, r.vault.Name, records); err != nil {
			return 0, oerrors.BackendFailure(fmt.Sprintf("failed to store chunks for %s", doc.RelPath), err)
		}
	}

	// A document that became empty still drops its old chunks.
	if !replaced {
		if err := r.deleteFile(ctx, doc.RelPath); err != nil {
			return 0, err
		}
	}
	return len(chunks), nil
}

func (r *run) ensureCollection(ctx context.Context, dim int) error {
	if r.collected {
		return nil
	}
	if _, err := r.st.GetOrCreateCollection(ctx, r.vault.Name, dim, r.ix.embedder.ModelName()); err != nil {
		var dimErr store.ErrDimensionMismatch
		if errors.As(err, &dimErr) {
			return oerrors.BackendFailure("embedding dimension differs from the existing index", err).
				WithSuggestion("run `orag reindex` after changing the embedding model")
		}
		return oerrors.BackendFailure("failed to create collection", err)
	}
	r.collected = true
	return nil
}

func (r *run) deleteFile(ctx context.Context, relPath string) error {
	_, err := r.st.DeleteByFile(ctx, r.vault.Name, relPath)
	if err != nil && !errors.Is(err, store.ErrCollectionNotFound) {
		return oerrors.BackendFailure(fmt.Sprintf("failed to replace chunks for %s", relPath), err)
	}
	return nil
}

// finalize drops chunks of files no longer in the vault and builds the ANN graph.
func (r *run) finalize(ctx context.Context, scanned []*scanner.FileInfo) error {
	if !r.collected {
		if dim := r.ix.embedder.Dimensions(); dim > 0 {
			if err := r.ensureCollection(ctx, dim); err != nil {
				return err
			}
		}
	}

	indexed, err := r.st.DistinctValues(ctx, r.vault.Name, scanner.MetaFilePath)
	if errors.Is(err, store.ErrCollectionNotFound) {
		return nil
	}
	if err != nil {
		return oerrors.BackendFailure("failed to list indexed files", err)
	}

	present := make(map[string]struct{}, len(scanned))
	for _, f := range scanned {
		present[f.Path] = struct{}{}
	}
	for _, path := range indexed {
		if _, ok := present[path]; ok {
			continue
		}
		n, err := r.st.DeleteByFile(ctx, r.vault.Name, path)
		if err != nil {
			return oerrors.BackendFailure(fmt.Sprintf("failed to prune %s", path), err)
		}
		r.logger.Info("pruned_removed_file", slog.String("file_path", path), slog.Int64("chunks", n))
	}

	if err := r.st.BuildIndex(ctx, r.vault.Name); err != nil {
		return oerrors.BackendFailure("failed to build search index", err)
	}
	return nil
}

func detailFile(err error) string {
	var oerr *oerrors.OragError
	if errors.As(err, &oerr) {
		return oerr.Details["file_path"]
	}
	return ""
}

// Clear removes the vault's vector store directory. It is idempotent and
// fails if another process holds the writer lock.
func Clear(vault config.VaultConfig) error {
	dir := vault.StorePath()
	if err := checkStoreDir(vault.Root, dir); err != nil {
		return err
	}

	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	lock := NewFileLock(dir)
	acquired, err := lock.TryLock()
	if err != nil {
		return oerrors.BackendFailure("failed to lock vector store", err)
	}
	if !acquired {
		return oerrors.New(oerrors.ErrCodeIndexLocked, "another orag process is indexing this vault", nil)
	}
	_ = lock.Unlock()

	if err := os.RemoveAll(dir); err != nil {
		return oerrors.BackendFailure("failed to remove vector store", err)
	}
	slog.Info("index_cleared", slog.String("vault", vault.Name), slog.String("path", dir))
	return nil
}

// checkStoreDir refuses to delete the vault root or anything above it.
func checkStoreDir(root, dir string) error {
	if dir == "" {
		return oerrors.ConfigInvalid("storage.vector_store is empty", nil)
	}
	if root == "" {
		return nil
	}
	rel, err := filepath.Rel(dir, root)
	if err == nil && !startsWithParent(rel) {
		return oerrors.ConfigInvalid(fmt.Sprintf("refusing to delete %s: it contains the vault", dir), nil)
	}
	return nil
}

func startsWithParent(rel string) bool {
	return rel == ".." || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

// Reindex clears the store and indexes from scratch. The two steps are not atomic.
func (ix *Indexer) Reindex(ctx context.Context, vault config.VaultConfig) Result {
	if err := Clear(vault); err != nil {
		return Result{
			Status:          StatusError,
			VectorStorePath: vault.StorePath(),
			Errors:          []string{err.Error()},
		}
	}
	return ix.Index(ctx, vault)
}

// Package stats reports index statistics for a vault.
package stats

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/Aman-CERP/orag/internal/config"
	"github.com/Aman-CERP/orag/internal/scanner"
	"github.com/Aman-CERP/orag/internal/store"
	"github.com/Aman-CERP/orag/internal/ui"
)

// Statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// chunksPerDocumentEstimate is used when file_path metadata is unusable.
const chunksPerDocumentEstimate = 3

// VaultStats summarizes a vault's index.
type VaultStats struct {
	Status         string  `json:"status"`
	VaultName      string  `json:"vault_name"`
	VaultPath      string  `json:"vault_path"`
	DocumentCount  int     `json:"document_count"`
	ChunkCount     int     `json:"chunk_count"`
	StoreSizeMB    float64 `json:"vector_store_size_mb"`
	EmbeddingModel string  `json:"embedding_model"`
	LastIndexed    string  `json:"last_indexed,omitempty"`
	Error          string  `json:"error,omitempty"`

	storeSizeBytes int64
	lastIndexed    time.Time
}

// Info converts the stats for the terminal renderer.
func (s VaultStats) Info() ui.StatsInfo {
	return ui.StatsInfo{
		Status:         s.Status,
		VaultName:      s.VaultName,
		VaultPath:      s.VaultPath,
		DocumentCount:  s.DocumentCount,
		ChunkCount:     s.ChunkCount,
		StoreSizeBytes: s.storeSizeBytes,
		StoreSizeMB:    s.StoreSizeMB,
		EmbeddingModel: s.EmbeddingModel,
		LastIndexed:    s.lastIndexed,
	}
}

// Collect reads counts from st, which may be nil when the vault has never
// been indexed. Failures are reported with status "error" and zero counts.
func Collect(ctx context.Context, st *store.Store, vault config.VaultConfig, global config.GlobalConfig) VaultStats {
	s := VaultStats{
		Status:         StatusError,
		VaultName:      vault.Name,
		VaultPath:      vault.Root,
		EmbeddingModel: global.Embedding.Model,
	}
	if st == nil {
		s.Error = store.ErrStoreNotFound.Error()
		return s
	}

	coll, err := st.GetCollection(ctx, vault.Name)
	if err != nil {
		slog.Warn("stats_unavailable", slog.String("vault", vault.Name), slog.String("error", err.Error()))
		s.Error = err.Error()
		return s
	}

	count, err := st.Count(ctx, vault.Name)
	if err != nil {
		slog.Error("stats_count_failed", slog.String("vault", vault.Name), slog.String("error", err.Error()))
		s.Error = err.Error()
		return s
	}

	size, err := dirSize(st.Dir())
	if err != nil {
		slog.Warn("stats_size_failed", slog.String("path", st.Dir()), slog.String("error", err.Error()))
	}

	s.Status = StatusSuccess
	s.ChunkCount = count
	s.DocumentCount = documentCount(ctx, st, vault.Name, count)
	s.storeSizeBytes = size
	s.StoreSizeMB = math.Round(float64(size)/(1024*1024)*100) / 100
	if coll.Model != "" {
		s.EmbeddingModel = coll.Model
	}
	if !coll.UpdatedAt.IsZero() {
		s.lastIndexed = coll.UpdatedAt
		s.LastIndexed = coll.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return s
}

// documentCount counts distinct file paths, falling back to an estimate.
func documentCount(ctx context.Context, st *store.Store, name string, chunks int) int {
	paths, err := st.DistinctValues(ctx, name, scanner.MetaFilePath)
	if err != nil {
		slog.Debug("distinct_file_paths_failed", slog.String("error", err.Error()))
	}
	if len(paths) > 0 {
		return len(paths)
	}
	return chunks / chunksPerDocumentEstimate
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total, err
}

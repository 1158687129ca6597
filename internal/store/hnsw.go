package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/coder/hnsw"
)

// annIndex is an in-memory HNSW graph over one collection generation.
// Graph keys are dense uint64s mapped to chunk IDs.
type annIndex struct {
	graph      *hnsw.Graph[uint64]
	keyMap     map[uint64]string
	generation int64
}

// annMetadata is persisted next to the exported graph.
type annMetadata struct {
	IDMap      map[string]uint64
	Generation int64
	Dimension  int
}

func (s *Store) newGraph() *hnsw.Graph[uint64] {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	if s.opts.M > 0 {
		graph.M = s.opts.M
	}
	if s.opts.EfSearch > 0 {
		graph.EfSearch = s.opts.EfSearch
	}
	return graph
}

func (s *Store) sidecarPath(name string) string {
	return filepath.Join(s.dir, name+".hnsw")
}

// BuildIndex builds the collection's HNSW graph from SQLite and writes the
// sidecar files. It is a no-op in flat mode.
func (s *Store) BuildIndex(ctx context.Context, name string) error {
	if s.opts.Index != IndexHNSW {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	coll, err := s.getCollection(ctx, name)
	if err != nil {
		return err
	}
	_, err = s.loadOrBuild(ctx, coll)
	return err
}

// loadOrBuild returns a graph matching the collection generation, loading
// the sidecar when current and rebuilding from SQLite otherwise.
func (s *Store) loadOrBuild(ctx context.Context, coll *Collection) (*annIndex, error) {
	if idx, ok := s.ann[coll.Name]; ok && idx.generation == coll.generation {
		return idx, nil
	}

	path := s.sidecarPath(coll.Name)
	idx, err := s.loadSidecar(path, coll)
	if err == nil {
		s.ann[coll.Name] = idx
		return idx, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		slog.Debug("hnsw sidecar stale, rebuilding",
			slog.String("collection", coll.Name),
			slog.String("reason", err.Error()))
	}

	idx, idMap, err := s.buildFromDB(ctx, coll)
	if err != nil {
		return nil, err
	}
	if err := s.saveSidecar(path, idx, idMap, coll.Dimension); err != nil {
		// The in-memory graph is still usable.
		slog.Warn("failed to save hnsw sidecar",
			slog.String("collection", coll.Name),
			slog.String("error", err.Error()))
	}
	s.ann[coll.Name] = idx
	return idx, nil
}

func (s *Store) buildFromDB(ctx context.Context, coll *Collection) (*annIndex, map[string]uint64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, embedding FROM chunks WHERE collection = ? ORDER BY id`, coll.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("scan chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	idx := &annIndex{
		graph:      s.newGraph(),
		keyMap:     make(map[uint64]string),
		generation: coll.generation,
	}
	idMap := make(map[string]uint64)

	var nextKey uint64
	for rows.Next() {
		var (
			id   string
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, nil, err
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, nil, fmt.Errorf("chunk %s: %w", id, err)
		}
		// Zero vectors have no direction and would poison cosine distance.
		if !normalizeVectorInPlace(vec) {
			continue
		}

		key := nextKey
		nextKey++
		idx.graph.Add(hnsw.MakeNode(key, vec))
		idx.keyMap[key] = id
		idMap[id] = key
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	slog.Debug("hnsw graph built",
		slog.String("collection", coll.Name),
		slog.Int("nodes", idx.graph.Len()))
	return idx, idMap, nil
}

// queryANN searches the graph for topK*annOversample candidates and keeps
// the topK best by exact cosine similarity.
func (s *Store) queryANN(ctx context.Context, coll *Collection, vector []float32, topK int) ([]Match, error) {
	idx, err := s.loadOrBuild(ctx, coll)
	if err != nil {
		return nil, err
	}
	if idx.graph.Len() == 0 {
		return []Match{}, nil
	}

	query := make([]float32, len(vector))
	copy(query, vector)
	if !normalizeVectorInPlace(query) {
		return []Match{}, nil
	}

	candidates := min(topK*annOversample, idx.graph.Len())
	if idx.graph.EfSearch < candidates {
		idx.graph.EfSearch = candidates
	}
	nodes := idx.graph.Search(query, candidates)

	ids := make([]string, 0, len(nodes))
	scores := make(map[string]float32, len(nodes))
	for _, node := range nodes {
		id, ok := idx.keyMap[node.Key]
		if !ok {
			continue
		}
		ids = append(ids, id)
		scores[id] = cosineSimilarity(query, node.Value)
	}

	records, err := s.fetchRecords(ctx, coll.Name, ids)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(ids))
	for _, id := range ids {
		m, ok := records[id]
		if !ok {
			continue
		}
		m.Score = scores[id]
		matches = append(matches, m)
	}
	sortMatches(matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// saveSidecar exports the graph and ID map. Uses temp file + rename.
func (s *Store) saveSidecar(path string, idx *annIndex, idMap map[string]uint64, dim int) error {
	tmpIndexPath := path + ".tmp"
	file, err := os.Create(tmpIndexPath)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	if err := idx.graph.Export(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpIndexPath)
		return fmt.Errorf("failed to export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpIndexPath)
		return fmt.Errorf("failed to close index file: %w", err)
	}
	if err := os.Rename(tmpIndexPath, path); err != nil {
		_ = os.Remove(tmpIndexPath)
		return fmt.Errorf("failed to rename index file: %w", err)
	}

	meta := annMetadata{IDMap: idMap, Generation: idx.generation, Dimension: dim}
	return saveMetadata(path+".meta", meta)
}

func saveMetadata(path string, meta annMetadata) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp metadata file: %w", err)
	}
	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close metadata file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// loadSidecar reads a persisted graph. It fails if the sidecar was written
// for another generation or dimension.
func (s *Store) loadSidecar(path string, coll *Collection) (*annIndex, error) {
	meta, err := loadMetadata(path + ".meta")
	if err != nil {
		return nil, err
	}
	if meta.Generation != coll.generation || meta.Dimension != coll.Dimension {
		return nil, fmt.Errorf("sidecar generation %d, collection generation %d", meta.Generation, coll.generation)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	idx := &annIndex{
		graph:      s.newGraph(),
		keyMap:     make(map[uint64]string, len(meta.IDMap)),
		generation: meta.Generation,
	}
	// Import requires an io.ByteReader.
	if err := idx.graph.Import(bufio.NewReader(file)); err != nil {
		return nil, fmt.Errorf("failed to import graph: %w", err)
	}
	for id, key := range meta.IDMap {
		idx.keyMap[key] = id
	}
	return idx, nil
}

func loadMetadata(path string) (annMetadata, error) {
	var meta annMetadata
	file, err := os.Open(path)
	if err != nil {
		return meta, err
	}
	defer func() { _ = file.Close() }()

	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return meta, fmt.Errorf("decode hnsw metadata: %w", err)
	}
	return meta, nil
}

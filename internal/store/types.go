// Package store persists embedded chunks in named collections.
//
// SQLite (modernc.org/sqlite, pure Go) is the source of truth. Each
// collection optionally has an HNSW graph (coder/hnsw) for approximate
// nearest-neighbour search, persisted as sidecar files and rebuilt from
// SQLite whenever it is stale.
package store

import (
	"errors"
	"fmt"
	"time"
)

// DBFileName is the SQLite database inside the store directory.
const DBFileName = "orag.db"

// Index modes.
const (
	IndexHNSW = "hnsw"
	IndexFlat = "flat"
)

var (
	// ErrCollectionNotFound is returned when a named collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrStoreNotFound is returned by OpenExisting when no database exists.
	ErrStoreNotFound = errors.New("vector store not found")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store is closed")
)

// Options configures a Store.
type Options struct {
	// Index is "flat" (default) or "hnsw".
	Index string

	// M and EfSearch tune the HNSW graph. Zero uses coder/hnsw defaults.
	M        int
	EfSearch int

	// ExactBelow is the record count up to which hnsw mode still scans
	// exactly. Zero uses DefaultExactBelow; negative always uses the graph.
	ExactBelow int
}

// DefaultExactBelow keeps typical vaults on the exact scan in hnsw mode.
const DefaultExactBelow = 20000

// annOversample is the candidate multiplier for graph searches. Candidates
// are re-scored exactly before truncating to topK.
const annOversample = 10

// Collection describes a named group of records sharing one embedding space.
type Collection struct {
	Name      string
	Dimension int
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time

	// generation increases on every write and keys the HNSW sidecar.
	generation int64
}

// Record is a chunk with its embedding, as written by the indexer.
type Record struct {
	ID        string
	Text      string
	Metadata  map[string]any
	Embedding []float32
}

// Match is a query hit. Score is cosine similarity in [-1, 1].
type Match struct {
	ID       string
	Text     string
	Metadata map[string]any
	Score    float32
}

// ErrDimensionMismatch indicates a vector whose length differs from the collection's.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run 'orag reindex')", e.Expected, e.Got)
}

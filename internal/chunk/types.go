// Package chunk splits loaded documents into overlapping, boundary-aware
// chunks for embedding.
package chunk

import "github.com/Aman-CERP/orag/internal/scanner"

// MetaChunkIndex is the metadata key holding a chunk's position in its document.
const MetaChunkIndex = "chunk_index"

// Chunk is the unit that is embedded and stored.
type Chunk struct {
	// ID is stable for a given vault, file and position, so re-indexing
	// an unchanged document overwrites the same records.
	ID string

	Text  string
	Index int

	// Metadata is the parent document's metadata plus chunk_index.
	Metadata map[string]any
}

// Chunker splits a document into chunks.
type Chunker interface {
	Split(doc scanner.Document) ([]Chunk, error)
}

// Options configures a TextChunker.
type Options struct {
	// Size is the target chunk length in Unit.
	Size int

	// Overlap is the length carried over between consecutive chunks.
	Overlap int

	// Unit is "chars" (runes) or "tokens" (cl100k_base).
	Unit string
}

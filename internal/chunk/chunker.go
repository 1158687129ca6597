package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/Aman-CERP/orag/internal/scanner"
)

// separators are tried in order: paragraphs, lines, sentences, words, runes.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// tokenEncoding is used when sizes are measured in tokens.
const tokenEncoding = "cl100k_base"

// The embedded BPE ranks keep token chunking offline.
var installLoader sync.Once

func tokenLen() (func(string) int, error) {
	installLoader.Do(func() {
		tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		return nil, fmt.Errorf("chunk: load %s encoding: %w", tokenEncoding, err)
	}
	return func(s string) int {
		return len(enc.Encode(s, nil, nil))
	}, nil
}

// TextChunker splits markdown text with a recursive character splitter.
type TextChunker struct {
	opts     Options
	splitter textsplitter.RecursiveCharacter
}

// New creates a TextChunker. Overlap must be smaller than Size.
func New(opts Options) (*TextChunker, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("chunk: size must be positive, got %d", opts.Size)
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.Size {
		return nil, fmt.Errorf("chunk: overlap %d must be in [0, %d)", opts.Overlap, opts.Size)
	}

	splitOpts := []textsplitter.Option{
		textsplitter.WithChunkSize(opts.Size),
		textsplitter.WithChunkOverlap(opts.Overlap),
		textsplitter.WithSeparators(separators),
	}

	switch opts.Unit {
	case "", "chars":
		opts.Unit = "chars"
	case "tokens":
		lenFunc, err := tokenLen()
		if err != nil {
			return nil, err
		}
		splitOpts = append(splitOpts, textsplitter.WithLenFunc(lenFunc))
	default:
		return nil, fmt.Errorf("chunk: unknown unit %q", opts.Unit)
	}

	return &TextChunker{
		opts:     opts,
		splitter: textsplitter.NewRecursiveCharacter(splitOpts...),
	}, nil
}

// Split implements Chunker. Whitespace-only documents yield no chunks.
func (c *TextChunker) Split(doc scanner.Document) ([]Chunk, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, nil
	}

	segments, err := c.splitter.SplitText(doc.Text)
	if err != nil {
		return nil, fmt.Errorf("chunk: split %s: %w", doc.RelPath, err)
	}

	vault := doc.Metadata[scanner.MetaVault]
	chunks := make([]Chunk, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg)
		if text == "" {
			continue
		}
		idx := len(chunks)

		meta := make(map[string]any, len(doc.Metadata)+1)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		meta[MetaChunkIndex] = idx

		chunks = append(chunks, Chunk{
			ID:       ChunkID(vault, doc.RelPath, idx),
			Text:     text,
			Index:    idx,
			Metadata: meta,
		})
	}

	return chunks, nil
}

// ChunkID derives the record ID for the idx-th chunk of a vault file.
func ChunkID(vault, relPath string, idx int) string {
	h := sha256.Sum256([]byte(vault + "\x00" + relPath + "\x00" + strconv.Itoa(idx)))
	return hex.EncodeToString(h[:16])
}

var _ Chunker = (*TextChunker)(nil)

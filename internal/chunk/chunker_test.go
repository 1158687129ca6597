package chunk

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/orag/internal/scanner"
)

func testDoc(text string) scanner.Document {
	return scanner.Document{
		AbsPath: "/vault/notes/doc.md",
		RelPath: "notes/doc.md",
		Text:    text,
		Metadata: map[string]string{
			scanner.MetaFilePath: "notes/doc.md",
			scanner.MetaFileName: "doc.md",
			scanner.MetaVault:    "vault",
		},
	}
}

func wordText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%03d", i)
	}
	return strings.Join(words, " ")
}

func TestNew_ValidatesOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"zero size", Options{Size: 0}},
		{"overlap equals size", Options{Size: 10, Overlap: 10}},
		{"negative overlap", Options{Size: 10, Overlap: -1}},
		{"unknown unit", Options{Size: 10, Unit: "words"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestSplit_ShortDocumentIsOneChunk(t *testing.T) {
	c, err := New(Options{Size: 512, Overlap: 50})
	require.NoError(t, err)

	chunks, err := c.Split(testDoc("Alpha content about cats"))

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Alpha content about cats", chunks[0].Text)
}

func TestSplit_EmptyDocumentHasNoChunks(t *testing.T) {
	c, err := New(Options{Size: 100, Overlap: 10})
	require.NoError(t, err)

	chunks, err := c.Split(testDoc("  \n\n \t"))

	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_RespectsSizeAndOverlaps(t *testing.T) {
	// Given: 200 five-char words on one line
	c, err := New(Options{Size: 60, Overlap: 15})
	require.NoError(t, err)

	// When: splitting
	chunks, err := c.Split(testDoc(wordText(200)))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 10)

	// Then: no chunk exceeds the size and consecutive chunks overlap
	for i, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), 60, "chunk %d too long", i)
		if i == 0 {
			continue
		}
		prevWords := strings.Fields(chunks[i-1].Text)
		last := prevWords[len(prevWords)-1]
		assert.True(t, strings.HasPrefix(chunks[i].Text, last) || strings.Contains(chunks[i].Text, last),
			"chunk %d should repeat %q from the previous chunk", i, last)
	}
}

func TestSplit_NoWordIsLost(t *testing.T) {
	c, err := New(Options{Size: 80, Overlap: 0})
	require.NoError(t, err)
	text := wordText(120)

	chunks, err := c.Split(testDoc(text))
	require.NoError(t, err)

	var rebuilt []string
	for _, ch := range chunks {
		rebuilt = append(rebuilt, strings.Fields(ch.Text)...)
	}
	assert.Equal(t, strings.Fields(text), rebuilt)
}

func TestSplit_PrefersParagraphBreaks(t *testing.T) {
	// Given: two paragraphs that fit individually but not together
	p1 := strings.Repeat("cat ", 20)
	p2 := strings.Repeat("dog ", 20)
	c, err := New(Options{Size: 100, Overlap: 10})
	require.NoError(t, err)

	// When: splitting
	chunks, err := c.Split(testDoc(p1 + "\n\n" + p2))

	// Then: each paragraph is its own chunk
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.TrimSpace(p1), chunks[0].Text)
	assert.Equal(t, strings.TrimSpace(p2), chunks[1].Text)
}

func TestSplit_HardCutsUnbrokenText(t *testing.T) {
	c, err := New(Options{Size: 50, Overlap: 5})
	require.NoError(t, err)

	chunks, err := c.Split(testDoc(strings.Repeat("x", 180)))

	require.NoError(t, err)
	require.Greater(t, len(chunks), 3)
	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), 50)
	}
}

func TestSplit_MetadataInheritedVerbatim(t *testing.T) {
	c, err := New(Options{Size: 40, Overlap: 5})
	require.NoError(t, err)

	chunks, err := c.Split(testDoc(wordText(40)))
	require.NoError(t, err)

	for i, ch := range chunks {
		assert.Equal(t, "notes/doc.md", ch.Metadata[scanner.MetaFilePath])
		assert.Equal(t, "doc.md", ch.Metadata[scanner.MetaFileName])
		assert.Equal(t, "vault", ch.Metadata[scanner.MetaVault])
		assert.Equal(t, i, ch.Metadata[MetaChunkIndex])
		assert.Equal(t, i, ch.Index)
	}
}

func TestSplit_TokenUnit(t *testing.T) {
	// Given: a token-measured chunker
	c, err := New(Options{Size: 64, Overlap: 8, Unit: "tokens"})
	require.NoError(t, err)
	count, err := tokenLen()
	require.NoError(t, err)

	// When: splitting a long document
	chunks, err := c.Split(testDoc(wordText(600)))

	// Then: several chunks, none longer than Size tokens
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, count(ch.Text), 64, ch.Text)
	}
	assert.Contains(t, chunks[0].Text, "w000")
	assert.Contains(t, chunks[len(chunks)-1].Text, "w599")
}

func TestSplit_IDDependsOnPositionNotText(t *testing.T) {
	c, err := New(Options{Size: 512, Overlap: 50})
	require.NoError(t, err)

	before, err := c.Split(testDoc("Original text of the note"))
	require.NoError(t, err)
	after, err := c.Split(testDoc("Edited text of the note"))
	require.NoError(t, err)

	require.Len(t, before, 1)
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, ChunkID("vault", "notes/doc.md", 0), after[0].ID)
}

func TestChunkID_StableAndDistinct(t *testing.T) {
	a := ChunkID("v", "a.md", 0)

	assert.Equal(t, a, ChunkID("v", "a.md", 0))
	assert.NotEqual(t, a, ChunkID("v", "a.md", 1))
	assert.NotEqual(t, a, ChunkID("w", "a.md", 0))
	assert.NotEqual(t, a, ChunkID("v", "b.md", 0))
	assert.Len(t, a, 32)
}

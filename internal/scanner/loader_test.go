package scanner

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/Aman-CERP/orag/internal/errors"
)

func TestLoadDocument_AttachesMetadata(t *testing.T) {
	// Given: a markdown file in a subdirectory
	root := t.TempDir()
	abs := writeFile(t, root, "notes/cats.md", "\xEF\xBB\xBFAlpha content about cats")

	// When: loading it
	doc, err := LoadDocument("my-vault", &FileInfo{Path: "notes/cats.md", AbsPath: abs})

	// Then: the BOM is stripped and metadata is attached
	require.NoError(t, err)
	assert.Equal(t, "Alpha content about cats", doc.Text)
	assert.Equal(t, "notes/cats.md", doc.RelPath)
	assert.Equal(t, map[string]string{
		MetaFilePath: "notes/cats.md",
		MetaFileName: "cats.md",
		MetaVault:    "my-vault",
	}, doc.Metadata)
}

func TestLoadDocuments_SkipsFailures(t *testing.T) {
	// Given: one readable file, one missing file, one invalid UTF-8 file
	root := t.TempDir()
	good := writeFile(t, root, "good.md", "fine")
	bad := writeFile(t, root, "bad.md", "\xff\xfe\xfd")
	files := []*FileInfo{
		{Path: "good.md", AbsPath: good},
		{Path: "gone.md", AbsPath: filepath.Join(root, "gone.md")},
		{Path: "bad.md", AbsPath: bad},
	}

	// When: loading all of them
	docs, errs := LoadDocuments("v", files)

	// Then: the good one loads and the others are partial-load errors
	require.Len(t, docs, 1)
	assert.Equal(t, "good.md", docs[0].RelPath)
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.True(t, oerrors.IsCode(err, oerrors.ErrCodePartialLoad))
	}
}

package scanner

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	oerrors "github.com/Aman-CERP/orag/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadDocument reads one discovered file as UTF-8 text and tags it with
// vault metadata. Failures are PartialLoadFailure errors.
func LoadDocument(vaultName string, fi *FileInfo) (Document, error) {
	data, err := os.ReadFile(fi.AbsPath)
	if err != nil {
		return Document{}, oerrors.New(oerrors.ErrCodePartialLoad,
			fmt.Sprintf("failed to read %s", fi.Path), err).
			WithDetail("file_path", fi.Path)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return Document{}, oerrors.New(oerrors.ErrCodePartialLoad,
			fmt.Sprintf("%s is not valid UTF-8", fi.Path), nil).
			WithDetail("file_path", fi.Path)
	}

	return Document{
		AbsPath: fi.AbsPath,
		RelPath: fi.Path,
		Text:    string(data),
		Metadata: map[string]string{
			MetaFilePath: fi.Path,
			MetaFileName: filepath.Base(fi.AbsPath),
			MetaVault:    vaultName,
		},
	}, nil
}

// LoadDocuments loads every file, skipping and logging the ones that fail.
func LoadDocuments(vaultName string, files []*FileInfo) ([]Document, []error) {
	docs := make([]Document, 0, len(files))
	var errs []error

	for _, fi := range files {
		doc, err := LoadDocument(vaultName, fi)
		if err != nil {
			slog.Warn("document_load_failed", oerrors.FormatForLog(err)...)
			errs = append(errs, err)
			continue
		}
		docs = append(docs, doc)
	}

	return docs, errs
}

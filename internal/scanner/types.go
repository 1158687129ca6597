// Package scanner discovers markdown documents in a vault and loads them
// for indexing.
package scanner

import "time"

// MarkdownExt is the extension of indexable files, matched case-insensitively.
const MarkdownExt = ".md"

// DefaultMaxFileSize is the default maximum document size (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024

// Metadata keys attached to every document and inherited by its chunks.
const (
	MetaFilePath = "file_path"
	MetaFileName = "file_name"
	MetaVault    = "vault"
)

// FileInfo describes a discovered markdown file.
type FileInfo struct {
	Path    string // Vault-relative, slash-separated
	AbsPath string
	Size    int64
	ModTime time.Time
}

// ScanOptions configures a scan.
type ScanOptions struct {
	// RootDir is the vault root. Relative Dirs resolve against it.
	RootDir string

	// Dirs are the configured entries, absolute or vault-relative.
	// An entry may be a single markdown file.
	Dirs []string

	// ExcludePatterns are doublestar globs matched against vault-relative paths.
	ExcludePatterns []string

	// SkipDirs are absolute directories never descended into, such as the
	// vector store.
	SkipDirs []string

	// MaxFileSize skips larger files with a warning (0 = DefaultMaxFileSize).
	MaxFileSize int64
}

// ScanResult is the outcome of a scan.
type ScanResult struct {
	// Files is deduplicated and sorted by absolute path.
	Files []*FileInfo

	// Warnings lists skipped entries, such as configured paths that do not exist.
	Warnings []string
}

// Document is one loaded source file.
type Document struct {
	AbsPath  string
	RelPath  string
	Text     string
	Metadata map[string]string
}

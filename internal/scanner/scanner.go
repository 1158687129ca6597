package scanner

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Scan discovers markdown files under the configured entries.
//
// Missing entries are skipped with a warning. Hidden directories below an
// entry (.obsidian, .git, .trash) and SkipDirs are not descended into.
// Re-scanning an unchanged tree returns the same ordered list.
func Scan(opts ScanOptions) (ScanResult, error) {
	root := opts.RootDir
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return ScanResult{}, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for _, p := range opts.ExcludePatterns {
		if !doublestar.ValidatePattern(p) {
			return ScanResult{}, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	skip := make(map[string]struct{}, len(opts.SkipDirs))
	for _, d := range opts.SkipDirs {
		if abs, err := filepath.Abs(d); err == nil {
			skip[abs] = struct{}{}
		}
	}

	s := &scan{
		root:    absRoot,
		exclude: opts.ExcludePatterns,
		skip:    skip,
		maxSize: maxSize,
		seen:    make(map[string]*FileInfo),
	}

	dirs := opts.Dirs
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	for _, entry := range dirs {
		s.entry(entry)
	}

	files := make([]*FileInfo, 0, len(s.seen))
	for _, fi := range s.seen {
		files = append(files, fi)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].AbsPath < files[j].AbsPath
	})

	return ScanResult{Files: files, Warnings: s.warnings}, nil
}

type scan struct {
	root     string
	exclude  []string
	skip     map[string]struct{}
	maxSize  int64
	seen     map[string]*FileInfo
	warnings []string
}

func (s *scan) warn(msg string, attrs ...any) {
	s.warnings = append(s.warnings, msg)
	slog.Warn("scan_skipped", append([]any{slog.String("reason", msg)}, attrs...)...)
}

func (s *scan) entry(entry string) {
	path := entry
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		s.warn(fmt.Sprintf("configured path does not exist: %s", entry), slog.String("path", path))
		return
	}

	if !info.IsDir() {
		if isMarkdown(path) {
			s.add(path, info)
		} else {
			s.warn(fmt.Sprintf("configured file is not markdown: %s", entry), slog.String("path", path))
		}
		return
	}

	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			s.warn(fmt.Sprintf("cannot read %s: %v", p, err), slog.String("path", p))
			if d != nil && d.IsDir() && p != path {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if p == path {
				return nil
			}
			if _, ok := s.skip[p]; ok || strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || !isMarkdown(p) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			s.warn(fmt.Sprintf("cannot stat %s: %v", p, err), slog.String("path", p))
			return nil
		}
		s.add(p, info)
		return nil
	})
	if err != nil {
		s.warn(fmt.Sprintf("walk %s: %v", entry, err), slog.String("path", path))
	}
}

func (s *scan) add(abs string, info fs.FileInfo) {
	if _, ok := s.seen[abs]; ok {
		return
	}

	rel := RelPath(s.root, abs)
	if s.excluded(rel) {
		slog.Debug("scan_excluded", slog.String("path", rel))
		return
	}
	if info.Size() > s.maxSize {
		s.warn(fmt.Sprintf("file too large (%d bytes): %s", info.Size(), rel), slog.String("path", rel))
		return
	}

	s.seen[abs] = &FileInfo{
		Path:    rel,
		AbsPath: abs,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

func (s *scan) excluded(rel string) bool {
	for _, p := range s.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// RelPath returns abs relative to root with forward slashes.
// Paths outside root keep their leading "../" segments.
func RelPath(root, abs string) string {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

func isMarkdown(path string) bool {
	return strings.EqualFold(filepath.Ext(path), MarkdownExt)
}

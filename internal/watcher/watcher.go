package watcher

import (
	"path"
	"slices"
	"strings"
	"time"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file or directory was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file or directory was deleted.
	OpDelete
	// OpRename indicates a file or directory was renamed away.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a change to a vault path.
type FileEvent struct {
	// Path is slash-separated and relative to the vault root.
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Options configures the watcher.
type Options struct {
	// DebounceWindow is how long the vault must stay quiet before a batch
	// is emitted. Default: 2s
	DebounceWindow time.Duration

	// PollInterval is the scan interval of the polling fallback. Default: 5s
	PollInterval time.Duration

	// EventBufferSize is the number of batches buffered for the consumer.
	// Default: 16
	EventBufferSize int

	// Extensions are the file suffixes that produce events. Default: .md
	Extensions []string

	// IgnoreDirs are vault-relative directories never watched, such as the
	// vector store.
	IgnoreDirs []string

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  2 * time.Second,
		PollInterval:    5 * time.Second,
		EventBufferSize: 16,
		Extensions:      []string{".md"},
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	if len(o.Extensions) == 0 {
		o.Extensions = defaults.Extensions
	}
	return o
}

// filter decides which vault paths are relevant.
type filter struct {
	extensions []string
	ignoreDirs []string
}

func newFilter(opts Options) filter {
	f := filter{extensions: make([]string, 0, len(opts.Extensions))}
	for _, ext := range opts.Extensions {
		f.extensions = append(f.extensions, strings.ToLower(ext))
	}
	for _, d := range opts.IgnoreDirs {
		d = strings.Trim(path.Clean(strings.ReplaceAll(d, "\\", "/")), "/")
		if d != "" && d != "." {
			f.ignoreDirs = append(f.ignoreDirs, d)
		}
	}
	return f
}

// skipDir reports whether a directory is not watched. Hidden directories
// (.obsidian, .git, .trash) and ignored dirs are skipped.
func (f filter) skipDir(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	for _, d := range f.ignoreDirs {
		if rel == d || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}

// relevant reports whether an event for rel should reach the debouncer.
func (f filter) relevant(rel string, isDir bool) bool {
	if rel == "." || rel == "" {
		return false
	}
	if f.skipDir(path.Dir(rel)) {
		return false
	}
	if isDir {
		return !f.skipDir(rel)
	}
	if strings.HasPrefix(path.Base(rel), ".") {
		return false
	}
	return slices.Contains(f.extensions, strings.ToLower(path.Ext(rel)))
}

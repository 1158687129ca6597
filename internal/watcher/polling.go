package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// PollingWatcher detects changes by periodically rescanning the vault.
// Used when fsnotify is unavailable.
type PollingWatcher struct {
	interval  time.Duration
	filter    filter
	fileState map[string]fileSnapshot
	events    chan FileEvent
	errors    chan error
	stopCh    chan struct{}
	mu        sync.Mutex
	stopped   bool
	root      string
	dirs      []string
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
	isDir   bool
}

// NewPollingWatcher creates a polling watcher.
func NewPollingWatcher(interval time.Duration, opts Options) *PollingWatcher {
	return &PollingWatcher{
		interval:  interval,
		filter:    newFilter(opts.WithDefaults()),
		fileState: make(map[string]fileSnapshot),
		events:    make(chan FileEvent, 100),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}
}

// Start records a baseline and polls until ctx is done or Stop is called.
// dirs are vault-relative; empty means the whole vault.
func (p *PollingWatcher) Start(ctx context.Context, root string, dirs []string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	p.root = absRoot
	p.dirs = watchRoots(dirs)

	p.mu.Lock()
	p.fileState = p.snapshot()
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			p.detectChanges()
		}
	}
}

// Stop stops the polling watcher.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

// Events returns the channel of file events.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.events
}

// Errors returns the channel of errors.
func (p *PollingWatcher) Errors() <-chan error {
	return p.errors
}

// snapshot walks the watched dirs and records every relevant entry.
func (p *PollingWatcher) snapshot() map[string]fileSnapshot {
	state := make(map[string]fileSnapshot)
	for _, dir := range p.dirs {
		start := filepath.Join(p.root, filepath.FromSlash(dir))
		_ = filepath.WalkDir(start, func(abs string, d fs.DirEntry, err error) error {
			if err != nil {
				if abs == start {
					p.emitError(fmt.Errorf("scan %s: %w", dir, err))
				}
				return nil
			}
			rel := relSlash(p.root, abs)
			if d.IsDir() && p.filter.skipDir(rel) {
				return filepath.SkipDir
			}
			if !p.filter.relevant(rel, d.IsDir()) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			state[rel] = fileSnapshot{modTime: info.ModTime(), size: info.Size(), isDir: d.IsDir()}
			return nil
		})
	}
	return state
}

// detectChanges diffs a fresh snapshot against the previous one.
func (p *PollingWatcher) detectChanges() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}

	current := p.snapshot()
	now := time.Now()
	for rel, snap := range current {
		prev, ok := p.fileState[rel]
		switch {
		case !ok:
			p.emitEvent(FileEvent{Path: rel, Operation: OpCreate, IsDir: snap.isDir, Timestamp: now})
		case !snap.isDir && (prev.modTime != snap.modTime || prev.size != snap.size):
			p.emitEvent(FileEvent{Path: rel, Operation: OpModify, Timestamp: now})
		}
	}
	for rel, snap := range p.fileState {
		if _, ok := current[rel]; !ok {
			p.emitEvent(FileEvent{Path: rel, Operation: OpDelete, IsDir: snap.isDir, Timestamp: now})
		}
	}
	p.fileState = current
}

// emitEvent must be called with the lock held.
func (p *PollingWatcher) emitEvent(event FileEvent) {
	if p.stopped {
		return
	}
	select {
	case p.events <- event:
	default:
		slog.Warn("polling watcher buffer full, dropping event",
			slog.String("path", event.Path),
			slog.String("op", event.Operation.String()))
	}
}

// emitError must be called with the lock held.
func (p *PollingWatcher) emitError(err error) {
	if p.stopped {
		return
	}
	select {
	case p.errors <- err:
	default:
	}
}

// watchRoots normalizes configured vault dirs; empty means the root.
func watchRoots(dirs []string) []string {
	if len(dirs) == 0 {
		return []string{"."}
	}
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, filepath.ToSlash(filepath.Clean(d)))
	}
	return out
}

func relSlash(root, abs string) string {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

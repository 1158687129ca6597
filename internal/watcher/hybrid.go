package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// HybridWatcher watches a vault with fsnotify, falling back to polling.
// Events are debounced and delivered as batches.
type HybridWatcher struct {
	fsWatcher      *fsnotify.Watcher
	pollWatcher    *PollingWatcher
	useFsnotify    bool
	debouncer      *Debouncer
	filter         filter
	events         chan []FileEvent
	errors         chan error
	stopCh         chan struct{}
	root           string
	watched        map[string]struct{}
	opts           Options
	mu             sync.RWMutex
	stopped        bool
	droppedBatches atomic.Uint64
}

// NewHybridWatcher creates a watcher. fsnotify is used unless it cannot be
// initialized or opts.ForcePolling is set.
func NewHybridWatcher(opts Options) (*HybridWatcher, error) {
	opts = opts.WithDefaults()

	h := &HybridWatcher{
		debouncer: NewDebouncer(opts.DebounceWindow),
		filter:    newFilter(opts),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		watched:   make(map[string]struct{}),
		opts:      opts,
	}

	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			h.fsWatcher = fsw
			h.useFsnotify = true
			return h, nil
		}
		slog.Warn("fsnotify unavailable, falling back to polling", slog.String("error", err.Error()))
	}
	h.pollWatcher = NewPollingWatcher(opts.PollInterval, opts)
	return h, nil
}

// Start watches dirs (vault-relative, empty means the whole vault) under
// root. It blocks until ctx is done or Stop is called.
func (h *HybridWatcher) Start(ctx context.Context, root string, dirs []string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	h.mu.Lock()
	h.root = absRoot
	h.mu.Unlock()

	go h.forwardDebouncedEvents(ctx)

	if h.useFsnotify {
		return h.startFsnotify(ctx, watchRoots(dirs))
	}
	return h.startPolling(ctx, dirs)
}

func (h *HybridWatcher) startFsnotify(ctx context.Context, dirs []string) error {
	for _, dir := range dirs {
		if err := h.addRecursive(filepath.Join(h.root, filepath.FromSlash(dir))); err != nil {
			return fmt.Errorf("add %s to watcher: %w", dir, err)
		}
	}
	slog.Info("watching vault",
		slog.String("root", h.root),
		slog.Int("directories", h.watchedCount()),
		slog.String("mode", "fsnotify"))

	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopCh:
			return nil
		case event, ok := <-h.fsWatcher.Events:
			if !ok {
				return nil
			}
			h.handleFsnotifyEvent(event)
		case err, ok := <-h.fsWatcher.Errors:
			if !ok {
				return nil
			}
			h.emitError(err)
		}
	}
}

func (h *HybridWatcher) startPolling(ctx context.Context, dirs []string) error {
	go func() {
		events, errs := h.pollWatcher.Events(), h.pollWatcher.Errors()
		for events != nil || errs != nil {
			select {
			case <-h.stopCh:
				return
			case event, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				h.debouncer.Add(event)
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				h.emitError(err)
			}
		}
	}()

	slog.Info("watching vault", slog.String("root", h.root), slog.String("mode", "polling"))
	err := h.pollWatcher.Start(ctx, h.root, dirs)
	if ctx.Err() != nil {
		_ = h.Stop()
	}
	return err
}

// handleFsnotifyEvent converts and filters an fsnotify event.
func (h *HybridWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	rel := relSlash(h.root, event.Name)

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	} else {
		h.mu.RLock()
		_, isDir = h.watched[rel]
		h.mu.RUnlock()
	}

	if !h.filter.relevant(rel, isDir) {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir {
			if err := h.addRecursive(event.Name); err != nil {
				h.emitError(err)
			}
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
		h.forget(rel)
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
		h.forget(rel)
	default:
		// Chmod only.
		return
	}

	h.debouncer.Add(FileEvent{Path: rel, Operation: op, IsDir: isDir, Timestamp: time.Now()})
}

// addRecursive watches dir and every non-skipped directory below it.
func (h *HybridWatcher) addRecursive(dir string) error {
	err := filepath.WalkDir(dir, func(abs string, d fs.DirEntry, err error) error {
		if err != nil {
			if abs == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel := relSlash(h.root, abs)
		if h.filter.skipDir(rel) {
			return filepath.SkipDir
		}
		if err := h.fsWatcher.Add(abs); err != nil {
			return err
		}
		h.mu.Lock()
		h.watched[rel] = struct{}{}
		h.mu.Unlock()
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) && dir != h.root {
		// Removed before it could be watched.
		return nil
	}
	return err
}

func (h *HybridWatcher) forget(rel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.watched, rel)
}

func (h *HybridWatcher) watchedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watched)
}

// forwardDebouncedEvents forwards batches to the output channel.
func (h *HybridWatcher) forwardDebouncedEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case batch, ok := <-h.debouncer.Output():
			if !ok {
				return
			}
			if len(batch) > 0 {
				h.emitEvents(batch)
			}
		}
	}
}

// emitEvents holds the read lock so Stop cannot close the channel mid-send.
func (h *HybridWatcher) emitEvents(batch []FileEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.stopped {
		return
	}

	select {
	case h.events <- batch:
	default:
		count := h.droppedBatches.Add(1)
		slog.Warn("event buffer full, dropping batch",
			slog.Int("batch_size", len(batch)),
			slog.Uint64("total_dropped_batches", count))
	}
}

// DroppedBatches returns the number of batches dropped due to a full buffer.
func (h *HybridWatcher) DroppedBatches() uint64 {
	return h.droppedBatches.Load()
}

func (h *HybridWatcher) emitError(err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.stopped {
		return
	}
	select {
	case h.errors <- err:
	default:
	}
}

// Stop stops the watcher and closes its channels. Safe to call multiple times.
func (h *HybridWatcher) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil
	}
	h.stopped = true
	close(h.stopCh)

	h.debouncer.Stop()
	if h.fsWatcher != nil {
		_ = h.fsWatcher.Close()
	}
	if h.pollWatcher != nil {
		_ = h.pollWatcher.Stop()
	}

	close(h.events)
	close(h.errors)
	return nil
}

// Events returns the channel of debounced batches.
func (h *HybridWatcher) Events() <-chan []FileEvent {
	return h.events
}

// Errors returns the channel of non-fatal errors.
func (h *HybridWatcher) Errors() <-chan error {
	return h.errors
}

// WatcherType returns "fsnotify" or "polling".
func (h *HybridWatcher) WatcherType() string {
	if h.useFsnotify {
		return "fsnotify"
	}
	return "polling"
}

// Package watcher follows a vault's markdown files and triggers incremental
// reindexing when they change.
//
// Events come from fsnotify, or from a polling scanner when fsnotify cannot
// be initialized (network shares, synced folders). Bursts of events are
// coalesced by a Debouncer and delivered as batches; Process runs one index
// pass per batch.
package watcher

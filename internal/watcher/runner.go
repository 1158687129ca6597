package watcher

import (
	"context"
	"errors"
	"log/slog"
)

// BatchFunc handles one debounced batch.
type BatchFunc func(ctx context.Context, batch []FileEvent) error

// Process runs fn for each batch, one at a time, until events is closed or
// ctx is done. Errors from fn are logged and do not stop processing.
func Process(ctx context.Context, events <-chan []FileEvent, fn BatchFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-events:
			if !ok {
				return nil
			}
			if err := fn(ctx, batch); err != nil {
				if errors.Is(err, context.Canceled) && ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Error("batch failed",
					slog.Int("events", len(batch)),
					slog.String("error", err.Error()))
			}
		}
	}
}

// Summary counts a batch by operation.
type Summary struct {
	Created  int
	Modified int
	Deleted  int
}

// Summarize counts the file operations in a batch. Renames count as deletes.
func Summarize(batch []FileEvent) Summary {
	var s Summary
	for _, e := range batch {
		switch e.Operation {
		case OpCreate:
			s.Created++
		case OpModify:
			s.Modified++
		case OpDelete, OpRename:
			s.Deleted++
		}
	}
	return s
}

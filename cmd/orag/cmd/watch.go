package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/orag/internal/config"
	"github.com/Aman-CERP/orag/internal/index"
	"github.com/Aman-CERP/orag/internal/output"
	"github.com/Aman-CERP/orag/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var (
		debounce time.Duration
		polling  bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reindex the vault whenever notes change",
		Long: `Index the vault, then watch its directories and run an incremental
index pass after each burst of markdown changes settles.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, watcher.Options{DebounceWindow: debounce, ForcePolling: polling})
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "Quiet period before reindexing")
	cmd.Flags().BoolVar(&polling, "poll", false, "Poll for changes instead of using file system events")

	return cmd
}

func runWatch(cmd *cobra.Command, opts watcher.Options) error {
	ctx := cmd.Context()
	out := output.New(cmd.OutOrStdout())

	client, err := openVault()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	vcfg := client.Vault()
	opts.IgnoreDirs = append(opts.IgnoreDirs, storeDirRel(vcfg))

	res := client.IndexVault(ctx, false)
	if res.Status != index.StatusSuccess {
		out.Warningf("initial index failed: %s", strings.Join(res.Errors, "; "))
	} else {
		out.Successf("Indexed %d documents", res.DocumentsIndexed)
	}

	w, err := watcher.NewHybridWatcher(opts)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- w.Start(ctx, vcfg.Root, watchDirs(vcfg))
	}()
	go func() {
		for err := range w.Errors() {
			slog.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}()

	out.Infof("Watching %s (%s), press Ctrl+C to stop", vcfg.Root, w.WatcherType())

	err = watcher.Process(ctx, w.Events(), func(ctx context.Context, batch []watcher.FileEvent) error {
		s := watcher.Summarize(batch)
		slog.Info("watch_batch",
			slog.Int("created", s.Created),
			slog.Int("modified", s.Modified),
			slog.Int("deleted", s.Deleted))

		res := client.IndexVault(ctx, false)
		if res.Status != index.StatusSuccess {
			out.Errorf("reindex failed: %s", strings.Join(res.Errors, "; "))
			return errors.New(strings.Join(res.Errors, "; "))
		}
		out.Successf("Reindexed after %d changes: %d documents, %d chunks",
			len(batch), res.DocumentsIndexed, res.ChunksCreated)
		return nil
	})
	_ = w.Stop()

	if startErr := <-watchErr; startErr != nil && !errors.Is(startErr, context.Canceled) {
		return startErr
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watchDirs converts the configured dirs to vault-relative paths.
func watchDirs(v config.VaultConfig) []string {
	dirs := make([]string, 0, len(v.Dirs))
	for _, d := range v.Dirs {
		if filepath.IsAbs(d) {
			rel, err := filepath.Rel(v.Root, d)
			if err != nil || strings.HasPrefix(rel, "..") {
				slog.Warn("watch_dir_outside_vault", slog.String("dir", d))
				continue
			}
			d = rel
		}
		dirs = append(dirs, d)
	}
	return dirs
}

// storeDirRel returns the vector store directory relative to the vault root.
func storeDirRel(v config.VaultConfig) string {
	rel, err := filepath.Rel(v.Root, v.StorePath())
	if err != nil {
		return v.VectorStore
	}
	return filepath.ToSlash(rel)
}

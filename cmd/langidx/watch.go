package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"langidx/internal/index"
	"langidx/internal/storage"
	"langidx/internal/watcher"
	"langidx/internal/workspace"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Recompile the workspace whenever source files change",
	Long: `Compiles the workspace, then watches the source tree and recompiles after
every burst of file changes. Each successful compile replaces the stored
snapshot. Stop with Ctrl+C.

Examples:
  langidx watch
  langidx watch -v`,
	Args: cobra.NoArgs,
	Run:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	if err := watchWorkspace(); err != nil {
		fail(err)
	}
}

// watchWorkspace returns instead of exiting so that deferred cleanup runs
// on every path.
func watchWorkspace() error {
	if err := checkFormat(); err != nil {
		return err
	}
	root, err := getRoot()
	if err != nil {
		return err
	}
	cfg := loadConfig(root)
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lock, err := index.AcquireLock(cfg.ScratchPath(root))
	if err != nil {
		return err
	}
	defer lock.Release()

	db, store, err := openSnapshotStore(root, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	ws, err := openWorkspace(root, cfg, logger, persistOnCommit(store, logger))
	if err != nil {
		return err
	}
	defer ws.Close()

	res, err := ws.Initialize(ctx)
	if err != nil {
		return err
	}
	printResponse(convertCompileResult(root, res))

	wcfg := watcher.DefaultConfig()
	wcfg.DebounceMs = cfg.Watch.DebounceMs
	wcfg.Extensions = cfg.Extensions
	wcfg.IgnoreDirs = append(append([]string(nil), cfg.IgnoreDirs...), cfg.ScratchDir)

	w := watcher.New(wcfg, logger, func(_ string, events []watcher.Event) {
		res, err := ws.HandleChangeWatchedFiles(ctx, watcher.FileEvents(events))
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("recompile failed", "error", err)
			}
			return
		}
		printResponse(convertCompileResult(root, res))
	})
	if err := w.Start(root); err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	logger.Info("watching for changes", "root", root, "debounce", time.Duration(cfg.Watch.DebounceMs)*time.Millisecond)
	<-ctx.Done()
	logger.Info("stopping watcher")
	return nil
}

// persistOnCommit stores every committed snapshot. It returns nil when
// storage is disabled.
func persistOnCommit(store *storage.SnapshotStore, logger *slog.Logger) func(*workspace.CompileResult) {
	if store == nil {
		return nil
	}
	return func(res *workspace.CompileResult) {
		info, err := store.Save(res.Snapshot)
		if err != nil {
			logger.Warn("failed to store snapshot", "run", res.RunID, "error", err)
			return
		}
		logger.Debug("stored snapshot", "run", info.RunID, "symbols", info.SymbolCount)
	}
}

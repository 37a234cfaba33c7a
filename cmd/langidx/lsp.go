package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"langidx/internal/index"
	"langidx/internal/lsp"
	"langidx/internal/slogutil"
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run the language server over stdio",
	Long: `Serves the Language Server Protocol over stdin and stdout. Logs go to
logging.file in the scratch directory because stdout carries the protocol.

Editors start this command themselves; it is not meant to be run by hand.`,
	Args: cobra.NoArgs,
	Run:  runLSP,
}

func init() {
	rootCmd.AddCommand(lspCmd)
}

func runLSP(cmd *cobra.Command, args []string) {
	if err := serveLSP(); err != nil {
		fail(err)
	}
}

// serveLSP returns instead of exiting so that the overlays, the lock and
// the database are released on every path.
func serveLSP() error {
	root, err := getRoot()
	if err != nil {
		return err
	}
	cfg := loadConfig(root)

	level := slogutil.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quietFlag {
		level = slogutil.LevelFromVerbosity(verbosity, quietFlag)
	}
	logger, closer, err := slogutil.NewRotatingFileLogger(
		cfg.ResolveInScratch(root, cfg.Logging.File), level, cfg.Logging.MaxSize, cfg.Logging.MaxBackups)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot open log file, logging disabled: %v\n", err)
		logger = slogutil.NewDiscardLogger()
	} else {
		defer closer.Close()
	}

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
	defer func() {
		if err := ws.Close(); err != nil {
			logger.Warn("failed to remove overlays", "error", err)
		}
	}()

	if err := lsp.NewServer(ws, logger).RunStdio(); err != nil {
		logger.Error("language server stopped", "error", err)
		return err
	}
	return nil
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"langidx/internal/frontend"
	"langidx/internal/index"
)

var indexForce bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Compile the workspace and persist its symbol snapshot",
	Long: `Compiles every eligible source file under the workspace root, builds the
symbol, reference and usage indexes, and stores the snapshot in the scratch
directory so later queries can answer without recompiling.

A compile that reports any error message commits nothing; the diagnostics
are printed and the command exits with status 1.

Examples:
  langidx index
  langidx index --force
  langidx index --format=json`,
	Args: cobra.NoArgs,
	Run:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "Recompile even if the stored index is fresh")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) {
	succeeded, err := indexWorkspace()
	if err != nil {
		fail(err)
	}
	if !succeeded {
		os.Exit(1)
	}
}

// indexWorkspace compiles and persists the workspace unless the stored
// index is fresh. It reports whether the compile succeeded; deferred
// cleanup has run by the time it returns.
func indexWorkspace() (bool, error) {
	root, err := getRoot()
	if err != nil {
		return false, err
	}
	cfg := loadConfig(root)
	logger := newLogger(cfg)
	ctx := newContext()
	scratch := cfg.ScratchPath(root)

	lock, err := index.AcquireLock(scratch)
	if err != nil {
		return false, err
	}
	defer lock.Release()

	ws, err := openWorkspace(root, cfg, logger, nil)
	if err != nil {
		return false, err
	}
	defer ws.Close()

	inputs, err := ws.Inputs(ctx)
	if err != nil {
		return false, err
	}
	digest := index.DigestInputs(inputPaths(inputs))

	if !indexForce {
		meta, err := index.LoadMeta(scratch)
		if err != nil {
			logger.Warn("could not load index metadata", "error", err)
		}
		if meta != nil {
			if freshness := meta.CheckFreshness(digest, len(inputs)); freshness.Fresh {
				fmt.Printf("Index is current (run %s)\n", meta.RunID)
				fmt.Printf("  %d files, %d symbols\n", meta.FileCount, meta.SymbolCount)
				fmt.Println("Nothing to do. Use --force to recompile.")
				return true, nil
			} else if freshness.Reason != "" {
				logger.Info("index is stale", "reason", freshness.Reason)
			}
		}
	}

	res, err := ws.Initialize(ctx)
	if err != nil {
		return false, err
	}
	resp := convertCompileResult(root, res)

	if res.Succeeded {
		db, store, err := openSnapshotStore(root, cfg, logger)
		if err != nil {
			logger.Warn("snapshot not stored", "error", err)
		}
		if store != nil {
			if _, err := store.Save(res.Snapshot); err != nil {
				logger.Warn("failed to store snapshot", "error", err)
			} else {
				resp.Stored = true
			}
			_ = db.Close()
		}

		meta := &index.IndexMeta{
			RunID:        res.RunID,
			CreatedAt:    time.Now(),
			Fingerprint:  resp.Fingerprint,
			InputsDigest: digest,
			FileCount:    len(res.Inputs),
			SymbolCount:  resp.Symbols,
			Duration:     res.Duration.Round(time.Millisecond).String(),
			Frontend:     frontendName,
		}
		if err := meta.Save(scratch); err != nil {
			logger.Warn("failed to save index metadata", "error", err)
		}
	}

	printResponse(resp)
	return res.Succeeded, nil
}

// inputPaths returns the paths the compiler reads for inputs.
func inputPaths(inputs []frontend.Input) []string {
	out := make([]string, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, in.Path)
	}
	return out
}

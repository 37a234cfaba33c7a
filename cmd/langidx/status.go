package main

import (
	"github.com/spf13/cobra"

	"langidx/internal/errors"
	"langidx/internal/frontend/treesitter"
	"langidx/internal/index"
	"langidx/internal/version"
	"langidx/internal/workspace"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the workspace index",
	Long: `Reports the last recorded compile, the stored snapshot, and whether the
source files changed since the index was built.`,
	Args: cobra.NoArgs,
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	root := mustGetRoot()
	cfg := loadConfig(root)
	logger := newLogger(cfg)
	scratch := cfg.ScratchPath(root)

	resp := &StatusResponseCLI{
		Version:           version.Info(),
		Root:              root,
		ScratchDir:        scratch,
		FrontendAvailable: treesitter.IsAvailable(),
	}

	meta, err := index.LoadMeta(scratch)
	if err != nil {
		logger.Warn("could not load index metadata", "error", err)
	}
	resp.Index = meta

	if db, store := openStore(root, cfg, logger); store != nil {
		info, err := store.Latest()
		if err != nil && !errors.IsCode(err, errors.IndexMissing) {
			logger.Warn("could not read stored snapshot", "error", err)
		}
		resp.Stored = info
		_ = db.Close()
	}

	// Inputs never reach the compiler, so this also works without CGO.
	ws, err := workspace.New(root, treesitter.New(cfg.ParseWorkers, logger), workspace.OptionsFromConfig(cfg), logger)
	if err != nil {
		fail(err)
	}
	inputs, err := ws.Inputs(newContext())
	_ = ws.Close()
	if err != nil {
		fail(err)
	}
	resp.Freshness = meta.CheckFreshness(index.DigestInputs(inputPaths(inputs)), len(inputs))

	printResponse(resp)
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"langidx/internal/config"
	"langidx/internal/errors"
	"langidx/internal/frontend/treesitter"
	"langidx/internal/index"
	"langidx/internal/paths"
	"langidx/internal/query"
	"langidx/internal/ranges"
	"langidx/internal/slogutil"
	"langidx/internal/storage"
	"langidx/internal/workspace"
)

// frontendName identifies the compiler in index metadata.
const frontendName = "tree-sitter-java"

// getRoot returns the absolute workspace root.
func getRoot() (string, error) {
	root := rootFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	// Snapshot URIs are built under the resolved root.
	return paths.ResolvePath(abs)
}

// mustGetRoot returns the workspace root or exits on error.
func mustGetRoot() string {
	root, err := getRoot()
	if err != nil {
		fail(err)
	}
	return root
}

// loadConfig loads the workspace configuration, falling back to defaults.
func loadConfig(root string) *config.Config {
	cfg, err := config.LoadConfig(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config, using defaults: %v\n", err)
		return config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid config, using defaults: %v\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

// newLogger logs to stderr. -v/-q take precedence over logging.level.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slogutil.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quietFlag {
		level = slogutil.LevelFromVerbosity(verbosity, quietFlag)
	}
	return slogutil.NewFormattedLogger(os.Stderr, cfg.Logging.Format, level)
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}

// openWorkspace creates a workspace backed by the tree-sitter front end.
func openWorkspace(root string, cfg *config.Config, logger *slog.Logger, onCommit func(*workspace.CompileResult)) (*workspace.Workspace, error) {
	if !treesitter.IsAvailable() {
		return nil, errors.New(errors.InvalidWorkspace, "this build has no Java front end", treesitter.ErrNoCGO, nil)
	}
	opts := workspace.OptionsFromConfig(cfg)
	opts.OnCommit = onCommit
	return workspace.New(root, treesitter.New(cfg.ParseWorkers, logger), opts, logger)
}

// mustOpenWorkspace is openWorkspace for commands that hold nothing to
// clean up yet.
func mustOpenWorkspace(root string, cfg *config.Config, logger *slog.Logger, onCommit func(*workspace.CompileResult)) *workspace.Workspace {
	ws, err := openWorkspace(root, cfg, logger, onCommit)
	if err != nil {
		fail(err)
	}
	return ws
}

// openSnapshotStore opens the snapshot database. Both results are nil when
// storage is disabled.
func openSnapshotStore(root string, cfg *config.Config, logger *slog.Logger) (*storage.DB, *storage.SnapshotStore, error) {
	if !cfg.Storage.Enabled {
		return nil, nil, nil
	}
	db, err := storage.Open(cfg.ResolveInScratch(root, cfg.Storage.Path), logger)
	if err != nil {
		return nil, nil, errors.New(errors.ResourceFailure, "failed to open snapshot database", err, nil)
	}
	return db, storage.NewSnapshotStore(db), nil
}

// openStore is openSnapshotStore that exits on failure.
func openStore(root string, cfg *config.Config, logger *slog.Logger) (*storage.DB, *storage.SnapshotStore) {
	db, store, err := openSnapshotStore(root, cfg, logger)
	if err != nil {
		fail(err)
	}
	return db, store
}

// loadSnapshot returns the stored snapshot. Without one it compiles the
// workspace in-process; the result is not persisted.
func loadSnapshot(ctx context.Context, root string, cfg *config.Config, logger *slog.Logger) *index.Snapshot {
	if db, store := openStore(root, cfg, logger); store != nil {
		snap, err := store.Load()
		_ = db.Close()
		if err == nil {
			return snap
		}
		if !errors.IsCode(err, errors.IndexMissing) {
			fail(err)
		}
		logger.Warn("no stored snapshot, compiling workspace", "hint", "run 'langidx index' to persist one")
	}

	ws := mustOpenWorkspace(root, cfg, logger, nil)
	defer ws.Close()
	res, err := ws.Initialize(ctx)
	if err != nil {
		fail(err)
	}
	if !res.Succeeded {
		logger.Warn("workspace has compile errors, answering from an empty snapshot", "files", len(res.Diagnostics))
	}
	return res.Snapshot
}

// mustGetEngine returns a query engine over the latest snapshot.
func mustGetEngine(root string, cfg *config.Config, logger *slog.Logger) *query.Engine {
	return query.NewEngine(query.NewStaticSource(loadSnapshot(newContext(), root, cfg, logger)), logger)
}

// fileURI converts a file argument to the URI the index uses for it.
func fileURI(arg string) (string, error) {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return paths.PathToURI(abs), nil
}

// parsePosition converts 1-based line and column arguments to a position.
func parsePosition(lineArg, colArg string) (ranges.Position, error) {
	line, err := strconv.Atoi(lineArg)
	if err != nil || line < 1 {
		return ranges.Position{}, errors.Newf(errors.InvalidArgument, "invalid line %q", lineArg)
	}
	col, err := strconv.Atoi(colArg)
	if err != nil || col < 1 {
		return ranges.Position{}, errors.Newf(errors.InvalidArgument, "invalid column %q", colArg)
	}
	return ranges.Position{Line: line - 1, Column: col - 1}, nil
}

// checkFormat rejects an unknown --format before a long-running command
// starts printing.
func checkFormat() error {
	switch OutputFormat(formatFlag) {
	case FormatJSON, FormatHuman, FormatYAML:
		return nil
	}
	return errors.Newf(errors.InvalidArgument, "unsupported format: %s", formatFlag)
}

// printResponse formats resp with --format and writes it to stdout.
func printResponse(resp interface{}) {
	output, err := FormatResponse(resp, OutputFormat(formatFlag))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}

// fail prints err with any suggested fixes and exits.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if code := errors.CodeOf(err); code != "" {
		for _, fix := range errors.GetSuggestedFixes(code) {
			if fix.Command != "" {
				fmt.Fprintf(os.Stderr, "  Try: %s  (%s)\n", fix.Command, fix.Description)
			}
		}
	}
	os.Exit(1)
}

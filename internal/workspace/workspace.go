// Package workspace owns the compilation state of one workspace: the
// overlay map, the effective input set and the committed snapshot.
//
// Every lifecycle event is queued to a single worker goroutine, which is the
// only writer of overlays and snapshots. Readers use Snapshot, which never
// blocks on a compile in flight.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"langidx/internal/config"
	"langidx/internal/errors"
	"langidx/internal/frontend"
	"langidx/internal/index"
	"langidx/internal/overlay"
	"langidx/internal/paths"
	"langidx/internal/slogutil"
)

const (
	changedDirName = "changed"
	targetDirName  = "target"

	// DiagnosticSource tags every diagnostic this package produces.
	DiagnosticSource = "langidx"
)

// Options configures a Workspace.
type Options struct {
	// ScratchDir holds overlays and compiler artifacts. Relative paths are
	// resolved against the workspace root.
	ScratchDir    string
	Extensions    []string
	IgnoreDirs    []string
	PromoteOnSave bool
	QueueSize     int

	// OnCommit is called on the worker goroutine after each successful
	// compile, once the new snapshot is visible.
	OnCommit func(*CompileResult)
}

// OptionsFromConfig maps the loaded configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ScratchDir:    cfg.ScratchDir,
		Extensions:    cfg.Extensions,
		IgnoreDirs:    cfg.IgnoreDirs,
		PromoteOnSave: cfg.PromoteOnSave,
		QueueSize:     cfg.QueueSize,
	}
}

// FileChangeType classifies a watched-file event.
type FileChangeType int

const (
	FileCreated FileChangeType = iota + 1
	FileChanged
	FileDeleted
)

func (t FileChangeType) String() string {
	switch t {
	case FileCreated:
		return "created"
	case FileChanged:
		return "changed"
	case FileDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// FileEvent is an external change to a file on disk.
type FileEvent struct {
	URI  string         `json:"uri"`
	Type FileChangeType `json:"type"`
}

// CompileResult is the outcome of one rebuild.
type CompileResult struct {
	RunID     string `json:"runId"`
	Succeeded bool   `json:"succeeded"`
	// Diagnostics is keyed by URI. URIs that had diagnostics after the
	// previous compile and have none now map to an empty slice.
	Diagnostics map[string][]Diagnostic `json:"diagnostics"`
	Inputs      []frontend.Input        `json:"inputs"`
	Duration    time.Duration           `json:"duration"`
	// Snapshot is the committed snapshot after this run: the new one on
	// success, the previous one on failure.
	Snapshot *index.Snapshot `json:"-"`
}

// Workspace is the compilation orchestrator for one root directory.
type Workspace struct {
	root       string
	rootURI    string
	scratchDir string
	changedDir string
	targetDir  string
	compiler   frontend.Compiler
	opts       Options
	extensions map[string]bool
	ignoreDirs map[string]bool
	logger     *slog.Logger

	snapshot atomic.Pointer[index.Snapshot]

	// Owned by the worker goroutine.
	overlays  map[string]*overlay.Overlay
	diagnosed map[string]bool

	requests  chan *request
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New validates root and the scratch directory and starts the worker.
// Nothing is compiled until Initialize or the first lifecycle event.
func New(root string, compiler frontend.Compiler, opts Options, logger *slog.Logger) (*Workspace, error) {
	if compiler == nil {
		return nil, errors.Newf(errors.InvalidWorkspace, "no compiler configured")
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.New(errors.InvalidWorkspace, fmt.Sprintf("invalid workspace root %q", root), err, nil)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.New(errors.InvalidWorkspace, fmt.Sprintf("invalid workspace root %q", root), err, nil)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.InvalidWorkspace, "workspace root %q is not a directory", root)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	if opts.ScratchDir == "" {
		opts.ScratchDir = config.DefaultScratchDir
	}
	scratch := opts.ScratchDir
	if !filepath.IsAbs(scratch) {
		scratch = filepath.Join(abs, scratch)
	}
	changed := filepath.Join(scratch, changedDirName)
	if err := os.MkdirAll(changed, 0755); err != nil {
		return nil, errors.New(errors.InvalidWorkspace, fmt.Sprintf("cannot create overlay directory %s", changed), err, nil)
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".java"}
	}

	w := &Workspace{
		root:       abs,
		rootURI:    paths.PathToURI(abs),
		scratchDir: scratch,
		changedDir: changed,
		targetDir:  filepath.Join(scratch, targetDirName),
		compiler:   compiler,
		opts:       opts,
		extensions: make(map[string]bool),
		ignoreDirs: make(map[string]bool),
		logger:     logger.With(slogutil.ComponentKey, "workspace"),
		overlays:   make(map[string]*overlay.Overlay),
		diagnosed:  make(map[string]bool),
		requests:   make(chan *request, opts.QueueSize),
		done:       make(chan struct{}),
	}
	for _, ext := range opts.Extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		w.extensions[ext] = true
	}
	for _, d := range opts.IgnoreDirs {
		w.ignoreDirs[d] = true
	}
	w.snapshot.Store(index.Empty())

	w.wg.Add(1)
	go w.processQueue()

	w.logger.Info("workspace opened", "root", abs, "scratch", scratch)
	return w, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// RootURI returns the workspace root as a file URI.
func (w *Workspace) RootURI() string { return w.rootURI }

// ScratchDir returns the absolute scratch directory.
func (w *Workspace) ScratchDir() string { return w.scratchDir }

// TargetDir returns the directory wiped and handed to the compiler on
// every rebuild.
func (w *Workspace) TargetDir() string { return w.targetDir }

// Snapshot returns the most recently committed snapshot.
func (w *Workspace) Snapshot() *index.Snapshot {
	return w.snapshot.Load()
}

// Initialize compiles the workspace from disk.
func (w *Workspace) Initialize(ctx context.Context) (*CompileResult, error) {
	return w.submit(ctx, "initialize", w.rebuild)
}

// Compile forces a rebuild of the current effective input set.
func (w *Workspace) Compile(ctx context.Context) (*CompileResult, error) {
	return w.submit(ctx, "compile", w.rebuild)
}

// HandleFileOpened is a no-op: the file was already compiled from disk.
func (w *Workspace) HandleFileOpened(uri string) {
	w.logger.Debug("file opened", "uri", uri)
}

// HandleFileChanged applies edits to the overlay of uri, creating it on
// first use, and rebuilds. Rejected edits leave the overlay untouched and
// skip the rebuild.
func (w *Workspace) HandleFileChanged(ctx context.Context, uri string, edits []overlay.Edit) (*CompileResult, error) {
	return w.submit(ctx, "didChange", func(ctx context.Context) (*CompileResult, error) {
		key, path, err := w.resolveURI(uri)
		if err != nil {
			return nil, err
		}

		ov, existed := w.overlays[key]
		if !existed {
			rel, err := filepath.Rel(w.root, path)
			if err != nil {
				return nil, errors.New(errors.InvalidArgument, fmt.Sprintf("%s is outside the workspace", uri), err, nil)
			}
			ov, err = overlay.Open(path, filepath.Join(w.changedDir, rel))
			if err != nil {
				return nil, err
			}
		}

		if err := ov.ApplyChanges(edits); err != nil {
			if !existed {
				_ = ov.Remove()
			}
			return nil, err
		}
		w.overlays[key] = ov
		return w.rebuild(ctx)
	})
}

// HandleFileClosed discards the overlay of uri and rebuilds.
func (w *Workspace) HandleFileClosed(ctx context.Context, uri string) (*CompileResult, error) {
	return w.submit(ctx, "didClose", func(ctx context.Context) (*CompileResult, error) {
		key, _, err := w.resolveURI(uri)
		if err != nil {
			return nil, err
		}
		if err := w.dropOverlay(key); err != nil {
			return nil, err
		}
		return w.rebuild(ctx)
	})
}

// HandleFileSaved promotes the overlay of uri when PromoteOnSave is set,
// then discards it and rebuilds.
func (w *Workspace) HandleFileSaved(ctx context.Context, uri string) (*CompileResult, error) {
	return w.submit(ctx, "didSave", func(ctx context.Context) (*CompileResult, error) {
		key, _, err := w.resolveURI(uri)
		if err != nil {
			return nil, err
		}
		if ov, ok := w.overlays[key]; ok && w.opts.PromoteOnSave {
			if err := ov.Promote(); err != nil {
				return nil, err
			}
		}
		if err := w.dropOverlay(key); err != nil {
			return nil, err
		}
		return w.rebuild(ctx)
	})
}

// HandleChangeWatchedFiles drops overlays of files changed or deleted on
// disk, since external changes take precedence, and rebuilds once.
func (w *Workspace) HandleChangeWatchedFiles(ctx context.Context, events []FileEvent) (*CompileResult, error) {
	return w.submit(ctx, "didChangeWatchedFiles", func(ctx context.Context) (*CompileResult, error) {
		for _, ev := range events {
			if ev.Type != FileChanged && ev.Type != FileDeleted {
				continue
			}
			key, _, err := w.resolveURI(ev.URI)
			if err != nil {
				w.logger.Warn("ignoring watched-file event", "uri", ev.URI, "error", err.Error())
				continue
			}
			if _, ok := w.overlays[key]; ok {
				w.logger.Info("external change replaces overlay", "uri", key, "type", ev.Type.String())
				if err := w.dropOverlay(key); err != nil {
					return nil, err
				}
			}
		}
		return w.rebuild(ctx)
	})
}

// Overlays returns the URIs that currently have unsaved edits.
func (w *Workspace) Overlays(ctx context.Context) ([]string, error) {
	var uris []string
	_, err := w.submit(ctx, "overlays", func(context.Context) (*CompileResult, error) {
		for uri := range w.overlays {
			uris = append(uris, uri)
		}
		return nil, nil
	})
	sort.Strings(uris)
	return uris, err
}

// Inputs lists the files the next compile would read, without compiling.
func (w *Workspace) Inputs(ctx context.Context) ([]frontend.Input, error) {
	var inputs []frontend.Input
	_, err := w.submit(ctx, "inputs", func(context.Context) (*CompileResult, error) {
		var err error
		inputs, err = w.effectiveInputs()
		return nil, err
	})
	return inputs, err
}

// Close stops the worker and deletes all overlay files. Pending requests
// fail with WORKSPACE_CLOSED.
func (w *Workspace) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
		for uri, ov := range w.overlays {
			if rmErr := ov.Remove(); rmErr != nil && err == nil {
				err = rmErr
			}
			delete(w.overlays, uri)
		}
		w.logger.Info("workspace closed", "root", w.root)
	})
	return err
}

func (w *Workspace) dropOverlay(uri string) error {
	ov, ok := w.overlays[uri]
	if !ok {
		return nil
	}
	delete(w.overlays, uri)
	return ov.Remove()
}

// resolveURI canonicalizes uri and checks that it lies inside the root.
// The returned key and path are expressed under the resolved root, so a
// URI through a symlinked alias of the root names the same file as the walk.
func (w *Workspace) resolveURI(uri string) (string, string, error) {
	clean, err := paths.CanonicalURI(uri)
	if err != nil {
		return "", "", errors.New(errors.InvalidArgument, fmt.Sprintf("invalid document uri %q", uri), err, nil)
	}
	path, err := paths.URIToPath(clean)
	if err != nil {
		return "", "", errors.New(errors.InvalidArgument, fmt.Sprintf("invalid document uri %q", uri), err, nil)
	}
	if !w.contains(path) {
		if !paths.IsWithinRepo(path, w.root) {
			return "", "", errors.Newf(errors.InvalidArgument, "%s is outside the workspace", uri)
		}
		rel, err := paths.CanonicalizePath(path, w.root)
		if err != nil {
			return "", "", errors.New(errors.InvalidArgument, fmt.Sprintf("invalid document uri %q", uri), err, nil)
		}
		path = paths.JoinRepoPath(w.root, rel)
	}
	return paths.PathToURI(path), path, nil
}

// contains reports whether path lies lexically under the root.
func (w *Workspace) contains(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// CanonicalURI returns the key under which the snapshot and the overlay
// map know uri. URIs that cannot be resolved are returned unchanged.
func (w *Workspace) CanonicalURI(uri string) string {
	key, _, err := w.resolveURI(uri)
	if err != nil {
		return uri
	}
	return key
}

// Package watcher turns filesystem notifications under a workspace root
// into batched watched-file events.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"langidx/internal/paths"
	"langidx/internal/slogutil"
	"langidx/internal/workspace"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// Event represents a file system event
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// ChangeHandler is called with each debounced batch.
type ChangeHandler func(root string, events []Event)

// Config contains watcher configuration
type Config struct {
	DebounceMs int `json:"debounceMs" mapstructure:"debounceMs"`
	// Extensions limits events to source files. Empty means every file.
	Extensions []string `json:"extensions" mapstructure:"extensions"`
	// IgnoreDirs are directory names never descended into.
	IgnoreDirs []string `json:"ignoreDirs" mapstructure:"ignoreDirs"`
	// IgnorePatterns are matched against base names.
	IgnorePatterns []string `json:"ignorePatterns" mapstructure:"ignorePatterns"`
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		DebounceMs:     200,
		Extensions:     []string{".java"},
		IgnoreDirs:     []string{".git", ".langidx", "node_modules", "build", "target", "out"},
		IgnorePatterns: []string{"*.swp", "*.tmp", "*~", ".#*"},
	}
}

// Watcher watches one workspace root recursively.
type Watcher struct {
	config     Config
	logger     *slog.Logger
	handler    ChangeHandler
	extensions map[string]bool
	ignoreDirs map[string]bool

	mu        sync.Mutex
	fw        *fsnotify.Watcher
	root      string
	debouncer *BatchDebouncer
	done      chan struct{}
	wg        sync.WaitGroup
}

// New creates a new file system watcher
func New(config Config, logger *slog.Logger, handler ChangeHandler) *Watcher {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	w := &Watcher{
		config:     config,
		logger:     logger.With(slogutil.ComponentKey, "watcher"),
		handler:    handler,
		extensions: make(map[string]bool),
		ignoreDirs: make(map[string]bool),
	}
	for _, ext := range config.Extensions {
		w.extensions[strings.ToLower(ext)] = true
	}
	for _, dir := range config.IgnoreDirs {
		w.ignoreDirs[dir] = true
	}
	return w
}

// Start begins watching root and every directory below it that is not
// ignored. Directories created later are added as they appear.
func (w *Watcher) Start(root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fw != nil {
		return nil
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.addTree(fw, abs); err != nil {
		_ = fw.Close()
		return err
	}

	w.fw = fw
	w.root = abs
	w.done = make(chan struct{})
	w.debouncer = NewBatchDebouncer(time.Duration(w.config.DebounceMs)*time.Millisecond, func(events []Event) {
		w.logger.Debug("file changes detected", "root", abs, "eventCount", len(events))
		if w.handler != nil {
			w.handler(abs, events)
		}
	})

	w.wg.Add(1)
	go w.loop(fw, w.debouncer, w.done)

	w.logger.Info("watching workspace", "root", abs, "debounceMs", w.config.DebounceMs)
	return nil
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.ignoreDirs[d.Name()] {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

func (w *Watcher) loop(fw *fsnotify.Watcher, debouncer *BatchDebouncer, done chan struct{}) {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handle(fw, debouncer, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err.Error())
		case <-done:
			return
		}
	}
}

func (w *Watcher) handle(fw *fsnotify.Watcher, debouncer *BatchDebouncer, ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !w.ignoreDirs[info.Name()] {
				if err := w.addTree(fw, ev.Name); err != nil {
					w.logger.Warn("failed to watch new directory", "path", ev.Name, "error", err.Error())
				}
			}
			return
		}
	}
	if w.IsIgnored(ev.Name) {
		return
	}

	var typ EventType
	switch {
	case ev.Has(fsnotify.Create):
		typ = EventCreate
	case ev.Has(fsnotify.Write):
		typ = EventModify
	case ev.Has(fsnotify.Remove):
		typ = EventDelete
	case ev.Has(fsnotify.Rename):
		typ = EventRename
	default:
		return
	}
	debouncer.Add(Event{Type: typ, Path: ev.Name, Timestamp: time.Now()})
}

// Stop stops watching and flushes any pending batch. Safe to call more
// than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	fw, done, debouncer := w.fw, w.done, w.debouncer
	w.fw, w.done, w.debouncer = nil, nil, nil
	w.mu.Unlock()
	if fw == nil {
		return nil
	}

	close(done)
	err := fw.Close()
	w.wg.Wait()
	debouncer.Flush()
	w.logger.Info("file watcher stopped")
	return err
}

// IsIgnored reports whether path should not produce events: it lies in an
// ignored directory, matches an ignore pattern, or has a foreign extension.
func (w *Watcher) IsIgnored(path string) bool {
	rel := path
	if w.root != "" {
		if r, err := filepath.Rel(w.root, path); err == nil {
			rel = r
		}
	}
	dir := filepath.Dir(rel)
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if w.ignoreDirs[part] {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range w.config.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	if len(w.extensions) > 0 && !w.extensions[strings.ToLower(filepath.Ext(base))] {
		return true
	}
	return false
}

// Root returns the watched root, or "" before Start.
func (w *Watcher) Root() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.root
}

// FileEvents converts a batch into workspace watched-file events. Renames
// are reported as deletions of the old path; the new path arrives as its
// own creation.
func FileEvents(events []Event) []workspace.FileEvent {
	out := make([]workspace.FileEvent, 0, len(events))
	for _, ev := range events {
		var typ workspace.FileChangeType
		switch ev.Type {
		case EventCreate:
			typ = workspace.FileCreated
		case EventModify:
			typ = workspace.FileChanged
		default:
			typ = workspace.FileDeleted
		}
		out = append(out, workspace.FileEvent{URI: paths.PathToURI(ev.Path), Type: typ})
	}
	return out
}

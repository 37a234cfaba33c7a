// Package query answers read-only questions about the most recently
// committed snapshot: symbol listings, glob search, find-references,
// goto-definition and completion candidates.
package query

import (
	"log/slog"

	"langidx/internal/index"
	"langidx/internal/slogutil"
)

// SnapshotSource supplies the latest committed snapshot. Implementations
// must never return a partially built one.
type SnapshotSource interface {
	Snapshot() *index.Snapshot
}

// StaticSource serves one fixed snapshot, such as one loaded from storage.
type StaticSource struct {
	snap *index.Snapshot
}

// NewStaticSource wraps snap. A nil snapshot serves an empty one.
func NewStaticSource(snap *index.Snapshot) *StaticSource {
	if snap == nil {
		snap = index.Empty()
	}
	return &StaticSource{snap: snap}
}

// Snapshot returns the wrapped snapshot.
func (s *StaticSource) Snapshot() *index.Snapshot { return s.snap }

// Engine is the query surface. Every call reads one snapshot and never
// blocks on an in-flight compile.
type Engine struct {
	source SnapshotSource
	logger *slog.Logger
}

// NewEngine creates a query engine over source.
func NewEngine(source SnapshotSource, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Engine{source: source, logger: logger}
}

func (e *Engine) snapshot() *index.Snapshot {
	if snap := e.source.Snapshot(); snap != nil {
		return snap
	}
	return index.Empty()
}

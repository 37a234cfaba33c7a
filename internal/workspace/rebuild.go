package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"langidx/internal/errors"
	"langidx/internal/frontend"
	"langidx/internal/index"
	"langidx/internal/paths"
	"langidx/internal/ranges"
)

// Diagnostic is a compiler message attributed to a document.
type Diagnostic struct {
	URI      string            `json:"uri" yaml:"uri"`
	Range    ranges.Range      `json:"range" yaml:"range"`
	Severity frontend.Severity `json:"severity" yaml:"severity"`
	Message  string            `json:"message" yaml:"message"`
	Code     string            `json:"code,omitempty" yaml:"code,omitempty"`
	Source   string            `json:"source" yaml:"source"`
}

// rebuild wipes the target directory, enumerates the effective inputs and
// compiles them. Only a successful compile replaces the snapshot.
func (w *Workspace) rebuild(ctx context.Context) (*CompileResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := w.logger.With("runId", runID)

	if err := os.RemoveAll(w.targetDir); err != nil {
		return nil, errors.New(errors.ResourceFailure, fmt.Sprintf("cannot delete %s", w.targetDir), err, errors.GetSuggestedFixes(errors.ResourceFailure))
	}
	if err := os.MkdirAll(w.targetDir, 0755); err != nil {
		return nil, errors.New(errors.ResourceFailure, fmt.Sprintf("cannot create %s", w.targetDir), err, errors.GetSuggestedFixes(errors.ResourceFailure))
	}

	inputs, err := w.effectiveInputs()
	if err != nil {
		return nil, err
	}

	forest, messages, err := w.compiler.Compile(ctx, inputs, w.targetDir)
	if err != nil {
		return nil, errors.New(errors.InternalError, "compiler failed to run", err, nil)
	}

	result := &CompileResult{
		RunID:       runID,
		Inputs:      inputs,
		Diagnostics: make(map[string][]Diagnostic),
	}

	if len(messages) > 0 {
		result.Diagnostics = w.diagnostics(messages, inputs)
		result.Snapshot = w.Snapshot()
	} else {
		snap := index.Build(forest, runID)
		w.snapshot.Store(snap)
		result.Succeeded = true
		result.Snapshot = snap
	}

	for uri := range w.diagnosed {
		if _, ok := result.Diagnostics[uri]; !ok {
			result.Diagnostics[uri] = []Diagnostic{}
		}
	}
	w.diagnosed = make(map[string]bool, len(result.Diagnostics))
	for uri, list := range result.Diagnostics {
		if len(list) > 0 {
			w.diagnosed[uri] = true
		}
	}

	result.Duration = time.Since(start)
	logger.Info("compile finished",
		"succeeded", result.Succeeded,
		"inputs", len(inputs),
		"messages", len(messages),
		"symbols", result.Snapshot.SymbolCount(),
		"duration", result.Duration.String(),
	)

	if result.Succeeded && w.opts.OnCommit != nil {
		w.opts.OnCommit(result)
	}
	return result, nil
}

// effectiveInputs lists every eligible source under the root, substituting
// overlays for their originals. Overlays of files not yet on disk are
// included too.
func (w *Workspace) effectiveInputs() ([]frontend.Input, error) {
	seen := make(map[string]bool)
	var inputs []frontend.Input

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == w.root {
				return err
			}
			w.logger.Warn("skipping unreadable path", "path", path, "error", err.Error())
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != w.root && (path == w.scratchDir || w.ignoreDirs[d.Name()]) {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.eligible(path) {
			return nil
		}

		uri := paths.PathToURI(path)
		input := frontend.Input{URI: uri, Path: path}
		if ov, ok := w.overlays[uri]; ok {
			input.Path = ov.Destination()
		}
		seen[uri] = true
		inputs = append(inputs, input)
		return nil
	})
	if err != nil {
		return nil, errors.New(errors.ResourceFailure, fmt.Sprintf("cannot enumerate %s", w.root), err, nil)
	}

	for uri, ov := range w.overlays {
		if !seen[uri] && w.eligible(ov.Source()) {
			inputs = append(inputs, frontend.Input{URI: uri, Path: ov.Destination()})
		}
	}

	sort.Slice(inputs, func(i, j int) bool { return inputs[i].URI < inputs[j].URI })
	return inputs, nil
}

func (w *Workspace) eligible(path string) bool {
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}

// diagnostics converts compiler messages. Positioned messages keep their
// range and file; the rest go to the workspace root with an undefined range.
func (w *Workspace) diagnostics(messages []frontend.Message, inputs []frontend.Input) map[string][]Diagnostic {
	byPath := make(map[string]string, len(inputs))
	for _, in := range inputs {
		byPath[filepath.Clean(in.Path)] = in.URI
	}

	out := make(map[string][]Diagnostic)
	for _, m := range messages {
		d := Diagnostic{
			URI:      w.rootURI,
			Range:    ranges.Undefined,
			Severity: m.Severity,
			Message:  m.Text,
			Code:     m.Code,
			Source:   DiagnosticSource,
		}
		if d.Severity == 0 {
			d.Severity = frontend.SeverityError
		}
		if m.Range != nil && ranges.IsValid(*m.Range) {
			d.Range = *m.Range
			if m.Path != "" {
				d.URI = w.uriForPath(m.Path, byPath)
			}
		}
		out[d.URI] = append(out[d.URI], d)
	}
	return out
}

func (w *Workspace) uriForPath(path string, byPath map[string]string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.root, path)
	}
	if uri, ok := byPath[filepath.Clean(path)]; ok {
		return uri
	}
	return paths.PathToURI(path)
}

package main

import (
	"path/filepath"
	"sort"
	"strings"

	"langidx/internal/export"
	"langidx/internal/index"
	"langidx/internal/paths"
	"langidx/internal/query"
	"langidx/internal/ranges"
	"langidx/internal/storage"
	"langidx/internal/workspace"
)

// LocationCLI is a 1-based source location. Path is relative to the
// workspace root when the file lies inside it.
type LocationCLI struct {
	Path        string `json:"path" yaml:"path"`
	StartLine   int    `json:"startLine" yaml:"startLine"`
	StartColumn int    `json:"startColumn" yaml:"startColumn"`
	EndLine     int    `json:"endLine" yaml:"endLine"`
	EndColumn   int    `json:"endColumn" yaml:"endColumn"`
}

// SymbolCLI represents a symbol in CLI output
type SymbolCLI struct {
	Name          string       `json:"name" yaml:"name"`
	Kind          string       `json:"kind" yaml:"kind"`
	ContainerName string       `json:"containerName,omitempty" yaml:"containerName,omitempty"`
	QualifiedName string       `json:"qualifiedName,omitempty" yaml:"qualifiedName,omitempty"`
	Location      *LocationCLI `json:"location,omitempty" yaml:"location,omitempty"`
}

// DiagnosticCLI represents a compiler diagnostic in CLI output
type DiagnosticCLI struct {
	Path     string `json:"path" yaml:"path"`
	Line     int    `json:"line,omitempty" yaml:"line,omitempty"`
	Column   int    `json:"column,omitempty" yaml:"column,omitempty"`
	Severity string `json:"severity" yaml:"severity"`
	Message  string `json:"message" yaml:"message"`
	Code     string `json:"code,omitempty" yaml:"code,omitempty"`
}

// IndexResponseCLI is the result of one compile.
type IndexResponseCLI struct {
	RunID       string          `json:"runId" yaml:"runId"`
	Succeeded   bool            `json:"succeeded" yaml:"succeeded"`
	Fingerprint string          `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	Files       int             `json:"files" yaml:"files"`
	Symbols     int             `json:"symbols" yaml:"symbols"`
	DurationMs  int64           `json:"durationMs" yaml:"durationMs"`
	Stored      bool            `json:"stored" yaml:"stored"`
	Diagnostics []DiagnosticCLI `json:"diagnostics" yaml:"diagnostics"`
}

// SymbolsResponseCLI lists the symbols of one file.
type SymbolsResponseCLI struct {
	File    string      `json:"file" yaml:"file"`
	Symbols []SymbolCLI `json:"symbols" yaml:"symbols"`
}

// SearchResponseCLI contains search results for CLI output
type SearchResponseCLI struct {
	Query        string      `json:"query" yaml:"query"`
	TotalMatches int         `json:"totalMatches" yaml:"totalMatches"`
	Symbols      []SymbolCLI `json:"symbols" yaml:"symbols"`
}

// ReferencesResponseCLI contains the reference entry of a declaration.
type ReferencesResponseCLI struct {
	Position    LocationCLI   `json:"position" yaml:"position"`
	Declaration *SymbolCLI    `json:"declaration,omitempty" yaml:"declaration,omitempty"`
	References  []SymbolCLI   `json:"references" yaml:"references"`
	Usages      []LocationCLI `json:"usages" yaml:"usages"`
}

// DefinitionResponseCLI contains the declaration a usage resolves to.
type DefinitionResponseCLI struct {
	Position   LocationCLI  `json:"position" yaml:"position"`
	Found      bool         `json:"found" yaml:"found"`
	Definition *LocationCLI `json:"definition,omitempty" yaml:"definition,omitempty"`
}

// CompletionCLI is one completion candidate.
type CompletionCLI struct {
	Label  string `json:"label" yaml:"label"`
	Kind   string `json:"kind" yaml:"kind"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// CompletionResponseCLI lists completion candidates for a file.
type CompletionResponseCLI struct {
	File  string          `json:"file" yaml:"file"`
	Items []CompletionCLI `json:"items" yaml:"items"`
}

// ExportResponseCLI describes a written SCIP index.
type ExportResponseCLI struct {
	Path        string                    `json:"path" yaml:"path"`
	Stats       export.Stats              `json:"stats" yaml:"stats"`
	Directories []export.DirectorySummary `json:"directories" yaml:"directories"`
	Outline     string                    `json:"-" yaml:"-"`
}

// StatusResponseCLI reports the state of the workspace index.
type StatusResponseCLI struct {
	Version           string                `json:"version" yaml:"version"`
	Root              string                `json:"root" yaml:"root"`
	ScratchDir        string                `json:"scratchDir" yaml:"scratchDir"`
	FrontendAvailable bool                  `json:"frontendAvailable" yaml:"frontendAvailable"`
	Index             *index.IndexMeta      `json:"index,omitempty" yaml:"index,omitempty"`
	Stored            *storage.RunInfo      `json:"stored,omitempty" yaml:"stored,omitempty"`
	Freshness         index.FreshnessResult `json:"freshness" yaml:"freshness"`
}

// VersionResponseCLI reports build information.
type VersionResponseCLI struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"buildDate" yaml:"buildDate"`
}

// displayPath renders uri relative to root when possible.
func displayPath(root, uri string) string {
	p, err := paths.URIToPath(uri)
	if err != nil {
		return uri
	}
	if root != "" {
		rel, err := filepath.Rel(root, p)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return filepath.ToSlash(rel)
		}
	}
	return p
}

func convertLocation(root string, loc ranges.Location) *LocationCLI {
	if loc.Range.IsUndefined() {
		return nil
	}
	r := loc.Range
	return &LocationCLI{
		Path:        displayPath(root, loc.URI),
		StartLine:   r.Start.Line + 1,
		StartColumn: r.Start.Column + 1,
		EndLine:     r.End.Line + 1,
		EndColumn:   r.End.Column + 1,
	}
}

func convertSymbol(root string, sym index.Symbol) SymbolCLI {
	return SymbolCLI{
		Name:          sym.Name,
		Kind:          sym.Kind.String(),
		ContainerName: sym.ContainerName,
		QualifiedName: sym.QualifiedName,
		Location:      convertLocation(root, sym.Location),
	}
}

func convertSymbols(root string, syms []index.Symbol) []SymbolCLI {
	out := make([]SymbolCLI, 0, len(syms))
	for _, sym := range syms {
		out = append(out, convertSymbol(root, sym))
	}
	return out
}

func convertPosition(root, uri string, pos ranges.Position) LocationCLI {
	return LocationCLI{
		Path:        displayPath(root, uri),
		StartLine:   pos.Line + 1,
		StartColumn: pos.Column + 1,
		EndLine:     pos.Line + 1,
		EndColumn:   pos.Column + 1,
	}
}

func convertReferences(root, uri string, pos ranges.Position, res *query.ReferencesResult) *ReferencesResponseCLI {
	resp := &ReferencesResponseCLI{
		Position:   convertPosition(root, uri, pos),
		References: convertSymbols(root, res.Symbols),
		Usages:     make([]LocationCLI, 0, len(res.Usages)),
	}
	if res.Declaration != nil {
		decl := convertSymbol(root, *res.Declaration)
		resp.Declaration = &decl
	}
	for _, u := range res.Usages {
		if loc := convertLocation(root, u); loc != nil {
			resp.Usages = append(resp.Usages, *loc)
		}
	}
	return resp
}

func convertCompletions(items []query.Completion) []CompletionCLI {
	out := make([]CompletionCLI, 0, len(items))
	for _, c := range items {
		out = append(out, CompletionCLI{Label: c.Label, Kind: c.Kind.String(), Detail: c.Detail})
	}
	return out
}

// convertCompileResult flattens diagnostics into a path-ordered list.
func convertCompileResult(root string, res *workspace.CompileResult) *IndexResponseCLI {
	resp := &IndexResponseCLI{
		RunID:       res.RunID,
		Succeeded:   res.Succeeded,
		Files:       len(res.Inputs),
		DurationMs:  res.Duration.Milliseconds(),
		Diagnostics: make([]DiagnosticCLI, 0),
	}
	if res.Snapshot != nil && res.Succeeded {
		resp.Fingerprint = res.Snapshot.Meta().Fingerprint
		resp.Symbols = res.Snapshot.SymbolCount()
	}

	uris := make([]string, 0, len(res.Diagnostics))
	for uri := range res.Diagnostics {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	for _, uri := range uris {
		for _, d := range res.Diagnostics[uri] {
			dc := DiagnosticCLI{
				Path:     displayPath(root, uri),
				Severity: d.Severity.String(),
				Message:  d.Message,
				Code:     d.Code,
			}
			if !d.Range.IsUndefined() {
				dc.Line = d.Range.Start.Line + 1
				dc.Column = d.Range.Start.Column + 1
			}
			resp.Diagnostics = append(resp.Diagnostics, dc)
		}
	}
	return resp
}

package lsp

import (
	"context"
	"math"
	"sort"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"langidx/internal/frontend"
	"langidx/internal/index"
	"langidx/internal/overlay"
	"langidx/internal/ranges"
	"langidx/internal/workspace"
)

// Initialize compiles the workspace from disk.
func (s *Server) Initialize(ctx context.Context) ([]protocol.PublishDiagnosticsParams, error) {
	res, err := s.ws.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	return publishParams(res), nil
}

// DidOpen is acknowledged but triggers no compile.
func (s *Server) DidOpen(params *protocol.DidOpenTextDocumentParams) {
	s.ws.HandleFileOpened(params.TextDocument.URI)
}

// DidChange applies the content changes to the document's overlay.
func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) ([]protocol.PublishDiagnosticsParams, error) {
	edits := make([]overlay.Edit, 0, len(params.ContentChanges))
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEvent:
			edits = append(edits, rangedEdit(c))
		case *protocol.TextDocumentContentChangeEvent:
			edits = append(edits, rangedEdit(*c))
		case protocol.TextDocumentContentChangeEventWhole:
			edits = append(edits, overlay.Edit{Text: c.Text})
		case *protocol.TextDocumentContentChangeEventWhole:
			edits = append(edits, overlay.Edit{Text: c.Text})
		}
	}
	res, err := s.ws.HandleFileChanged(ctx, params.TextDocument.URI, edits)
	if err != nil {
		return nil, err
	}
	return publishParams(res), nil
}

func rangedEdit(c protocol.TextDocumentContentChangeEvent) overlay.Edit {
	if c.Range == nil {
		return overlay.Edit{Text: c.Text}
	}
	r := fromProtocolRange(*c.Range)
	return overlay.Edit{Range: &r, Text: c.Text}
}

// DidClose discards unsaved edits of the document.
func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) ([]protocol.PublishDiagnosticsParams, error) {
	res, err := s.ws.HandleFileClosed(ctx, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	return publishParams(res), nil
}

// DidSave drops the overlay once the client has written the file.
func (s *Server) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) ([]protocol.PublishDiagnosticsParams, error) {
	res, err := s.ws.HandleFileSaved(ctx, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	return publishParams(res), nil
}

// DidChangeWatchedFiles forwards external file changes.
func (s *Server) DidChangeWatchedFiles(ctx context.Context, params *protocol.DidChangeWatchedFilesParams) ([]protocol.PublishDiagnosticsParams, error) {
	events := make([]workspace.FileEvent, 0, len(params.Changes))
	for _, c := range params.Changes {
		events = append(events, workspace.FileEvent{URI: c.URI, Type: workspace.FileChangeType(c.Type)})
	}
	res, err := s.ws.HandleChangeWatchedFiles(ctx, events)
	if err != nil {
		return nil, err
	}
	return publishParams(res), nil
}

// DocumentSymbols lists the symbols declared in a document.
func (s *Server) DocumentSymbols(params *protocol.DocumentSymbolParams) []protocol.DocumentSymbol {
	out := []protocol.DocumentSymbol{}
	for _, sym := range s.engine.FileSymbols(s.ws.CanonicalURI(params.TextDocument.URI)) {
		if sym.Synthetic() {
			continue
		}
		r := toProtocolRange(sym.Location.Range)
		ds := protocol.DocumentSymbol{
			Name:           sym.Name,
			Kind:           symbolKind(sym.Kind),
			Range:          r,
			SelectionRange: r,
		}
		if sym.ContainerName != "" {
			detail := sym.ContainerName
			ds.Detail = &detail
		}
		out = append(out, ds)
	}
	return out
}

// WorkspaceSymbols matches symbol names against a glob query.
func (s *Server) WorkspaceSymbols(params *protocol.WorkspaceSymbolParams) []protocol.SymbolInformation {
	query := params.Query
	if query == "" {
		query = "*"
	}
	out := []protocol.SymbolInformation{}
	for _, sym := range s.engine.FilteredSymbols(query) {
		if sym.Synthetic() {
			continue
		}
		info := protocol.SymbolInformation{
			Name:     sym.Name,
			Kind:     symbolKind(sym.Kind),
			Location: toProtocolLocation(sym.Location),
		}
		if sym.ContainerName != "" {
			container := sym.ContainerName
			info.ContainerName = &container
		}
		out = append(out, info)
	}
	return out
}

// References returns the locations of the symbols referencing the symbol
// under the cursor, followed by its usage sites.
func (s *Server) References(params *protocol.ReferenceParams) ([]protocol.Location, error) {
	res, err := s.engine.FindReferences(s.ws.CanonicalURI(params.TextDocument.URI), fromProtocolPosition(params.Position), params.Context.IncludeDeclaration)
	if err != nil {
		return nil, err
	}

	seen := make(map[ranges.Location]bool)
	out := []protocol.Location{}
	add := func(loc ranges.Location) {
		if !ranges.IsValid(loc.Range) || seen[loc] {
			return
		}
		seen[loc] = true
		out = append(out, toProtocolLocation(loc))
	}
	for _, sym := range res.Symbols {
		add(sym.Location)
	}
	for _, loc := range res.Usages {
		add(loc)
	}
	return out, nil
}

// Definition returns the declaration of the symbol used under the cursor,
// or nil.
func (s *Server) Definition(params *protocol.DefinitionParams) ([]protocol.Location, error) {
	loc, err := s.engine.GotoDefinition(s.ws.CanonicalURI(params.TextDocument.URI), fromProtocolPosition(params.Position))
	if err != nil || loc == nil {
		return nil, err
	}
	return []protocol.Location{toProtocolLocation(*loc)}, nil
}

// Completion offers the symbols of the current document.
func (s *Server) Completion(params *protocol.CompletionParams) []protocol.CompletionItem {
	out := []protocol.CompletionItem{}
	for _, c := range s.engine.CompletionCandidates(s.ws.CanonicalURI(params.TextDocument.URI)) {
		kind := completionKind(c.Kind)
		item := protocol.CompletionItem{Label: c.Label, Kind: &kind}
		if c.Detail != "" {
			detail := c.Detail
			item.Detail = &detail
		}
		out = append(out, item)
	}
	return out
}

// publishParams converts a compile result into notifications, sorted by URI.
// URIs whose diagnostics were cleared get an empty list.
func publishParams(res *workspace.CompileResult) []protocol.PublishDiagnosticsParams {
	if res == nil {
		return nil
	}
	uris := make([]string, 0, len(res.Diagnostics))
	for uri := range res.Diagnostics {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	out := make([]protocol.PublishDiagnosticsParams, 0, len(uris))
	for _, uri := range uris {
		diags := []protocol.Diagnostic{}
		for _, d := range res.Diagnostics[uri] {
			diags = append(diags, toProtocolDiagnostic(d))
		}
		out = append(out, protocol.PublishDiagnosticsParams{URI: uri, Diagnostics: diags})
	}
	return out
}

func toProtocolDiagnostic(d workspace.Diagnostic) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	if d.Severity == frontend.SeverityWarning {
		severity = protocol.DiagnosticSeverityWarning
	}
	source := d.Source
	pd := protocol.Diagnostic{
		Range:    toProtocolRange(d.Range),
		Severity: &severity,
		Source:   &source,
		Message:  d.Message,
	}
	if d.Code != "" {
		pd.Code = &protocol.IntegerOrString{Value: d.Code}
	}
	return pd
}

func symbolKind(k index.Kind) protocol.SymbolKind {
	switch k {
	case index.KindClass:
		return protocol.SymbolKindClass
	case index.KindInterface:
		return protocol.SymbolKindInterface
	case index.KindEnum:
		return protocol.SymbolKindEnum
	case index.KindField:
		return protocol.SymbolKindField
	case index.KindMethod:
		return protocol.SymbolKindMethod
	default:
		return protocol.SymbolKindVariable
	}
}

func completionKind(k index.Kind) protocol.CompletionItemKind {
	switch k {
	case index.KindClass:
		return protocol.CompletionItemKindClass
	case index.KindInterface:
		return protocol.CompletionItemKindInterface
	case index.KindEnum:
		return protocol.CompletionItemKindEnum
	case index.KindField:
		return protocol.CompletionItemKindField
	case index.KindMethod:
		return protocol.CompletionItemKindMethod
	default:
		return protocol.CompletionItemKindVariable
	}
}

func fromProtocolPosition(p protocol.Position) ranges.Position {
	return ranges.Position{Line: int(p.Line), Column: int(p.Character)}
}

func fromProtocolRange(r protocol.Range) ranges.Range {
	return ranges.Range{Start: fromProtocolPosition(r.Start), End: fromProtocolPosition(r.End)}
}

// toProtocolRange clamps negative components, so the Undefined range maps
// to the start of the document.
func toProtocolRange(r ranges.Range) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: clampToUint32(r.Start.Line), Character: clampToUint32(r.Start.Column)},
		End:   protocol.Position{Line: clampToUint32(r.End.Line), Character: clampToUint32(r.End.Column)},
	}
}

func toProtocolLocation(loc ranges.Location) protocol.Location {
	return protocol.Location{URI: loc.URI, Range: toProtocolRange(loc.Range)}
}

func clampToUint32(value int) uint32 {
	if value <= 0 {
		return 0
	}
	if value > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(value)
}

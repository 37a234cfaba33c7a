package lsp

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"langidx/internal/frontend"
	"langidx/internal/paths"
	"langidx/internal/ranges"
	"langidx/internal/slogutil"
	"langidx/internal/workspace"
)

// lineCompiler declares one class per file, named after it. Each line of
// the form "field <Type> <name>" declares a field; a line containing BROKEN
// is a syntax error.
type lineCompiler struct{}

func (lineCompiler) Compile(_ context.Context, inputs []frontend.Input, _ string) (*frontend.Forest, []frontend.Message, error) {
	forest := &frontend.Forest{}
	var msgs []frontend.Message
	for _, in := range inputs {
		data, err := os.ReadFile(in.Path)
		if err != nil {
			return nil, nil, err
		}
		lines := strings.Split(string(data), "\n")
		name := strings.TrimSuffix(filepath.Base(in.URI), ".java")
		t := &frontend.TypeDecl{
			Name:      name,
			Kind:      frontend.KindClass,
			Range:     ranges.New(0, 0, len(lines), 0),
			NameRange: ranges.New(0, 6, 0, 6+len(name)),
		}
		for i, line := range lines {
			if strings.Contains(line, "BROKEN") {
				r := ranges.New(i, 0, i, len(line))
				msgs = append(msgs, frontend.Message{Text: "broken line", Severity: frontend.SeverityError, Range: &r, Path: in.Path, Code: "syntax"})
			}
			parts := strings.Fields(line)
			if len(parts) != 3 || parts[0] != "field" {
				continue
			}
			typeStart := strings.Index(line, parts[1])
			nameStart := strings.LastIndex(line, parts[2])
			t.Fields = append(t.Fields, &frontend.FieldDecl{
				Name:      parts[2],
				Type:      &frontend.TypeRef{Name: parts[1], Range: ranges.New(i, typeStart, i, typeStart+len(parts[1]))},
				Range:     ranges.New(i, typeStart, i, len(line)),
				NameRange: ranges.New(i, nameStart, i, nameStart+len(parts[2])),
			})
		}
		forest.Units = append(forest.Units, &frontend.Unit{URI: in.URI, Path: in.Path, Types: []*frontend.TypeDecl{t}})
	}
	return forest, msgs, nil
}

type harness struct {
	root   string
	ws     *workspace.Workspace
	server *Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Cat.java"), []byte("class Cat\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Dog.java"), []byte("class Dog\n  field Cat friend\n"), 0644))

	ws, err := workspace.New(root, lineCompiler{}, workspace.Options{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	s := NewServer(ws, nil)
	_, err = s.Initialize(context.Background())
	require.NoError(t, err)
	return &harness{root: ws.Root(), ws: ws, server: s}
}

func (h *harness) uri(name string) string {
	return paths.PathToURI(filepath.Join(h.root, name))
}

func textDoc(uri string) protocol.TextDocumentIdentifier {
	return protocol.TextDocumentIdentifier{URI: uri}
}

func position(uri string, line, char uint32) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: textDoc(uri),
		Position:     protocol.Position{Line: line, Character: char},
	}
}

func TestDocumentSymbols(t *testing.T) {
	h := newHarness(t)

	got := h.server.DocumentSymbols(&protocol.DocumentSymbolParams{TextDocument: textDoc(h.uri("Dog.java"))})
	require.Len(t, got, 2)
	assert.Equal(t, "Dog", got[0].Name)
	assert.Equal(t, protocol.SymbolKindClass, got[0].Kind)
	assert.Equal(t, "friend", got[1].Name)
	assert.Equal(t, protocol.SymbolKindField, got[1].Kind)
	require.NotNil(t, got[1].Detail)
	assert.Equal(t, "Dog", *got[1].Detail)

	assert.Empty(t, h.server.DocumentSymbols(&protocol.DocumentSymbolParams{TextDocument: textDoc(h.uri("None.java"))}))
}

func TestWorkspaceSymbols(t *testing.T) {
	h := newHarness(t)

	got := h.server.WorkspaceSymbols(&protocol.WorkspaceSymbolParams{Query: "*o*"})
	var names []string
	for _, s := range got {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"Dog"}, names)

	assert.Len(t, h.server.WorkspaceSymbols(&protocol.WorkspaceSymbolParams{}), 3)
}

func TestReferencesAndDefinition(t *testing.T) {
	h := newHarness(t)
	dog := h.uri("Dog.java")

	refs, err := h.server.References(&protocol.ReferenceParams{
		TextDocumentPositionParams: position(dog, 1, 9),
		Context:                    protocol.ReferenceContext{IncludeDeclaration: false},
	})
	require.NoError(t, err)
	require.NotEmpty(t, refs)
	assert.Equal(t, dog, refs[0].URI)
	assert.Equal(t, protocol.Position{Line: 1, Character: 8}, refs[0].Range.Start)

	defs, err := h.server.Definition(&protocol.DefinitionParams{TextDocumentPositionParams: position(dog, 1, 9)})
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, h.uri("Cat.java"), defs[0].URI)

	defs, err = h.server.Definition(&protocol.DefinitionParams{TextDocumentPositionParams: position(dog, 0, 0)})
	require.NoError(t, err)
	assert.Nil(t, defs)
}

func TestCompletion(t *testing.T) {
	h := newHarness(t)

	items := h.server.Completion(&protocol.CompletionParams{TextDocumentPositionParams: position(h.uri("Dog.java"), 0, 0)})
	require.Len(t, items, 2)
	assert.Equal(t, "Dog", items[0].Label)
	require.NotNil(t, items[0].Kind)
	assert.Equal(t, protocol.CompletionItemKindClass, *items[0].Kind)
	assert.Equal(t, protocol.CompletionItemKindField, *items[1].Kind)
}

func TestDidChange_PublishesAndClearsDiagnostics(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cat := h.uri("Cat.java")

	diags, err := h.server.DidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: textDoc(cat), Version: 2},
		ContentChanges: []any{protocol.TextDocumentContentChangeEvent{
			Range: &protocol.Range{Start: protocol.Position{Line: 1, Character: 0}, End: protocol.Position{Line: 1, Character: 0}},
			Text:  "BROKEN",
		}},
	})
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, cat, diags[0].URI)
	require.Len(t, diags[0].Diagnostics, 1)
	d := diags[0].Diagnostics[0]
	assert.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
	assert.Equal(t, "broken line", d.Message)
	assert.Equal(t, workspace.DiagnosticSource, *d.Source)

	// The previous snapshot still answers queries.
	assert.Len(t, h.server.DocumentSymbols(&protocol.DocumentSymbolParams{TextDocument: textDoc(cat)}), 1)

	diags, err = h.server.DidClose(ctx, &protocol.DidCloseTextDocumentParams{TextDocument: textDoc(cat)})
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, cat, diags[0].URI)
	assert.NotNil(t, diags[0].Diagnostics)
	assert.Empty(t, diags[0].Diagnostics)
}

func TestDidChange_WholeDocument(t *testing.T) {
	h := newHarness(t)
	cat := h.uri("Cat.java")

	_, err := h.server.DidChange(context.Background(), &protocol.DidChangeTextDocumentParams{
		TextDocument:   protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: textDoc(cat), Version: 2},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "class Cat\n  field Dog owner\n"}},
	})
	require.NoError(t, err)

	got := h.server.DocumentSymbols(&protocol.DocumentSymbolParams{TextDocument: textDoc(cat)})
	require.Len(t, got, 2)
	assert.Equal(t, "owner", got[1].Name)
}

func TestDidChangeWatchedFiles(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(filepath.Join(h.root, "Fox.java"), []byte("class Fox\n"), 0644))

	_, err := h.server.DidChangeWatchedFiles(context.Background(), &protocol.DidChangeWatchedFilesParams{
		Changes: []protocol.FileEvent{{URI: h.uri("Fox.java"), Type: protocol.FileChangeTypeCreated}},
	})
	require.NoError(t, err)
	assert.Len(t, h.server.DocumentSymbols(&protocol.DocumentSymbolParams{TextDocument: textDoc(h.uri("Fox.java"))}), 1)
}

func TestHandlerPublishesNotifications(t *testing.T) {
	h := newHarness(t)
	cat := h.uri("Cat.java")

	var methods []string
	var published []protocol.PublishDiagnosticsParams
	ctx := &glsp.Context{Notify: func(method string, params any) {
		methods = append(methods, method)
		published = append(published, params.(protocol.PublishDiagnosticsParams))
	}}

	err := h.server.Handler().TextDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument:   protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: textDoc(cat), Version: 2},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "BROKEN"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{protocol.ServerTextDocumentPublishDiagnostics}, methods)
	require.Len(t, published, 1)
	assert.Equal(t, cat, published[0].URI)
}

func TestInitializeCapabilities(t *testing.T) {
	h := newHarness(t)

	res, err := h.server.Handler().Initialize(&glsp.Context{}, &protocol.InitializeParams{})
	require.NoError(t, err)
	result, ok := res.(protocol.InitializeResult)
	require.True(t, ok)
	assert.Equal(t, serverName, result.ServerInfo.Name)
	assert.NotNil(t, result.Capabilities.ReferencesProvider)
	assert.NotNil(t, result.Capabilities.DefinitionProvider)
	assert.NotNil(t, result.Capabilities.CompletionProvider)
}

func TestQueriesAcceptNonCanonicalURIs(t *testing.T) {
	h := newHarness(t)
	dog := strings.Replace(h.uri("Dog.java"), "/Dog.java", "/./D%6Fg.java", 1)
	require.NotEqual(t, h.uri("Dog.java"), dog)

	syms := h.server.DocumentSymbols(&protocol.DocumentSymbolParams{TextDocument: textDoc(dog)})
	assert.Len(t, syms, 2)

	defs, err := h.server.Definition(&protocol.DefinitionParams{TextDocumentPositionParams: position(dog, 1, 9)})
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, h.uri("Cat.java"), defs[0].URI)

	refs, err := h.server.References(&protocol.ReferenceParams{
		TextDocumentPositionParams: position(dog, 1, 9),
		Context:                    protocol.ReferenceContext{IncludeDeclaration: true},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, refs)

	items := h.server.Completion(&protocol.CompletionParams{TextDocumentPositionParams: position(dog, 0, 0)})
	assert.Len(t, items, 2)
}

func TestInitializeWarnsOnForeignRoot(t *testing.T) {
	h := newHarness(t)
	var buf bytes.Buffer
	s := NewServer(h.ws, slogutil.NewLogger(&buf, slog.LevelWarn))

	own := h.ws.RootURI() + "/"
	_, err := s.Handler().Initialize(&glsp.Context{}, &protocol.InitializeParams{RootURI: &own})
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	other := paths.PathToURI(t.TempDir())
	_, err = s.Handler().Initialize(&glsp.Context{}, &protocol.InitializeParams{
		WorkspaceFolders: []protocol.WorkspaceFolder{{URI: other, Name: "other"}},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "client root differs from the workspace root")
	assert.Contains(t, buf.String(), "client="+other)
}

func TestToProtocolRange_ClampsUndefined(t *testing.T) {
	assert.Equal(t, protocol.Range{}, toProtocolRange(ranges.Undefined))
}

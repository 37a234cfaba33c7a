// Package lsp exposes a workspace over the Language Server Protocol (3.16).
//
// Lifecycle notifications are forwarded to the workspace and answered with
// publishDiagnostics notifications; requests are served from the committed
// snapshot through the query engine.
package lsp

import (
	"context"
	"log/slog"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"langidx/internal/query"
	"langidx/internal/slogutil"
	"langidx/internal/version"
	"langidx/internal/workspace"
)

const serverName = "langidx"

// Server adapts a Workspace to glsp handlers.
type Server struct {
	ws      *workspace.Workspace
	engine  *query.Engine
	logger  *slog.Logger
	handler protocol.Handler
}

// NewServer creates a server for ws. The workspace is compiled when the
// client sends initialized.
func NewServer(ws *workspace.Workspace, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	s := &Server{
		ws:     ws,
		engine: query.NewEngine(ws, logger),
		logger: logger.With(slogutil.ComponentKey, "lsp"),
	}
	s.handler = protocol.Handler{
		Initialize:                     s.initialize,
		Initialized:                    s.initialized,
		Shutdown:                       s.shutdown,
		SetTrace:                       s.setTrace,
		TextDocumentDidOpen:            s.textDocumentDidOpen,
		TextDocumentDidChange:          s.textDocumentDidChange,
		TextDocumentDidClose:           s.textDocumentDidClose,
		TextDocumentDidSave:            s.textDocumentDidSave,
		WorkspaceDidChangeWatchedFiles: s.workspaceDidChangeWatchedFiles,
		TextDocumentDocumentSymbol:     s.textDocumentDocumentSymbol,
		WorkspaceSymbol:                s.workspaceSymbol,
		TextDocumentReferences:         s.textDocumentReferences,
		TextDocumentDefinition:         s.textDocumentDefinition,
		TextDocumentCompletion:         s.textDocumentCompletion,
	}
	return s
}

// Handler returns the glsp handler table.
func (s *Server) Handler() *protocol.Handler {
	return &s.handler
}

// RunStdio serves the protocol over stdin/stdout until the client exits.
func (s *Server) RunStdio() error {
	s.logger.Info("serving over stdio", "root", s.ws.Root())
	return server.NewServer(&s.handler, serverName, false).RunStdio()
}

func (s *Server) initialize(_ *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := s.handler.CreateServerCapabilities()
	change := protocol.TextDocumentSyncKindIncremental
	openClose := true
	capabilities.TextDocumentSync = protocol.TextDocumentSyncOptions{
		OpenClose: &openClose,
		Change:    &change,
		Save:      true,
	}

	v := version.Version
	if params.ClientInfo != nil {
		s.logger.Info("client connected", "client", params.ClientInfo.Name)
	}
	s.checkClientRoots(params)
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &v,
		},
	}, nil
}

// checkClientRoots warns about client roots other than the workspace root.
// The workspace is fixed at startup, so requests outside it find nothing.
func (s *Server) checkClientRoots(params *protocol.InitializeParams) {
	var roots []string
	if params.RootURI != nil && *params.RootURI != "" {
		roots = append(roots, *params.RootURI)
	}
	for _, folder := range params.WorkspaceFolders {
		roots = append(roots, folder.URI)
	}
	for _, root := range roots {
		if s.ws.CanonicalURI(root) != s.ws.RootURI() {
			s.logger.Warn("client root differs from the workspace root", "client", root, "root", s.ws.RootURI())
		}
	}
}

func (s *Server) initialized(ctx *glsp.Context, _ *protocol.InitializedParams) error {
	params, err := s.Initialize(context.Background())
	if err != nil {
		return err
	}
	s.publish(ctx, params)
	return nil
}

func (s *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return s.ws.Close()
}

func (s *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) textDocumentDidOpen(_ *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.DidOpen(params)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	diags, err := s.DidChange(context.Background(), params)
	if err != nil {
		return err
	}
	s.publish(ctx, diags)
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	diags, err := s.DidClose(context.Background(), params)
	if err != nil {
		return err
	}
	s.publish(ctx, diags)
	return nil
}

func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	diags, err := s.DidSave(context.Background(), params)
	if err != nil {
		return err
	}
	s.publish(ctx, diags)
	return nil
}

func (s *Server) workspaceDidChangeWatchedFiles(ctx *glsp.Context, params *protocol.DidChangeWatchedFilesParams) error {
	diags, err := s.DidChangeWatchedFiles(context.Background(), params)
	if err != nil {
		return err
	}
	s.publish(ctx, diags)
	return nil
}

func (s *Server) textDocumentDocumentSymbol(_ *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	return s.DocumentSymbols(params), nil
}

func (s *Server) workspaceSymbol(_ *glsp.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	return s.WorkspaceSymbols(params), nil
}

func (s *Server) textDocumentReferences(_ *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	return s.References(params)
}

func (s *Server) textDocumentDefinition(_ *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	locs, err := s.Definition(params)
	if err != nil || locs == nil {
		return nil, err
	}
	return locs, nil
}

func (s *Server) textDocumentCompletion(_ *glsp.Context, params *protocol.CompletionParams) (any, error) {
	return s.Completion(params), nil
}

// publish sends one publishDiagnostics notification per document.
func (s *Server) publish(ctx *glsp.Context, params []protocol.PublishDiagnosticsParams) {
	if ctx == nil || ctx.Notify == nil {
		return
	}
	for _, p := range params {
		ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, p)
	}
}

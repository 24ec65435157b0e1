package server

import (
	"context"

	"github.com/ruffd-lsp/ruffd/document"
	"github.com/ruffd-lsp/ruffd/jsonrpc"
	"github.com/ruffd-lsp/ruffd/protocol"
)

func (s *Server) handleDidOpen(ctx context.Context, raw jsonrpc.RawMessage) {
	var params protocol.DidOpenTextDocumentParams
	if err := unmarshalParams(raw, &params); err != nil {
		s.logger.Warn("didOpen", "error", err)
		return
	}
	s.store.Open(&params)
	s.linter.schedule(params.TextDocument.URI, triggerOpen)
}

func (s *Server) handleDidChange(ctx context.Context, raw jsonrpc.RawMessage) {
	var params protocol.DidChangeTextDocumentParams
	if err := unmarshalParams(raw, &params); err != nil {
		s.logger.Warn("didChange", "error", err)
		return
	}
	if _, err := s.store.Update(&params); err != nil {
		s.logger.Warn("didChange", "uri", params.TextDocument.URI, "error", err)
		return
	}
	s.linter.schedule(params.TextDocument.URI, triggerChange)
}

func (s *Server) handleDidClose(ctx context.Context, raw jsonrpc.RawMessage) {
	var params protocol.DidCloseTextDocumentParams
	if err := unmarshalParams(raw, &params); err != nil {
		s.logger.Warn("didClose", "error", err)
		return
	}
	uri := params.TextDocument.URI
	if doc := s.store.Get(uri); doc != nil && doc.Kind() == document.KindCell {
		// Cell documents are closed through notebook sync.
		return
	}
	s.store.Close(&params)
	s.linter.cancel(uri)
	s.clearDiagnostics(ctx, uri)
}

func (s *Server) handleDidSave(ctx context.Context, raw jsonrpc.RawMessage) {
	var params protocol.DidSaveTextDocumentParams
	if err := unmarshalParams(raw, &params); err != nil {
		s.logger.Warn("didSave", "error", err)
		return
	}
	s.linter.schedule(params.TextDocument.URI, triggerSave)
}

func (s *Server) handleNotebookDidOpen(ctx context.Context, raw jsonrpc.RawMessage) {
	var params protocol.DidOpenNotebookDocumentParams
	if err := unmarshalParams(raw, &params); err != nil {
		s.logger.Warn("notebook didOpen", "error", err)
		return
	}
	s.store.OpenNotebook(&params)
	s.linter.schedule(params.NotebookDocument.URI, triggerOpen)
}

func (s *Server) handleNotebookDidChange(ctx context.Context, raw jsonrpc.RawMessage) {
	var params protocol.DidChangeNotebookDocumentParams
	if err := unmarshalParams(raw, &params); err != nil {
		s.logger.Warn("notebook didChange", "error", err)
		return
	}
	if err := s.store.UpdateNotebook(&params); err != nil {
		s.logger.Warn("notebook didChange", "uri", params.NotebookDocument.URI, "error", err)
		return
	}
	s.linter.schedule(params.NotebookDocument.URI, triggerChange)
}

func (s *Server) handleNotebookDidSave(ctx context.Context, raw jsonrpc.RawMessage) {
	var params protocol.DidSaveNotebookDocumentParams
	if err := unmarshalParams(raw, &params); err != nil {
		s.logger.Warn("notebook didSave", "error", err)
		return
	}
	s.linter.schedule(params.NotebookDocument.URI, triggerSave)
}

func (s *Server) handleNotebookDidClose(ctx context.Context, raw jsonrpc.RawMessage) {
	var params protocol.DidCloseNotebookDocumentParams
	if err := unmarshalParams(raw, &params); err != nil {
		s.logger.Warn("notebook didClose", "error", err)
		return
	}
	s.linter.cancel(params.NotebookDocument.URI)
	for _, cell := range params.CellTextDocuments {
		s.clearDiagnostics(ctx, cell.URI)
	}
	s.store.CloseNotebook(&params)
}

// clearDiagnostics publishes an empty diagnostic list and drops any cached
// violations so closed documents leave no stale markers behind.
func (s *Server) clearDiagnostics(ctx context.Context, uri protocol.DocumentURI) {
	s.registry.Clear(uri)
	if s.client == nil {
		return
	}
	_ = s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
}

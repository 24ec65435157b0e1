package server

import (
	"context"
	"errors"

	"github.com/ruffd-lsp/ruffd/document"
	"github.com/ruffd-lsp/ruffd/engine"
	"github.com/ruffd-lsp/ruffd/format"
	"github.com/ruffd-lsp/ruffd/jsonrpc"
	"github.com/ruffd-lsp/ruffd/protocol"
)

func (s *Server) handleFormatting(ctx context.Context, raw jsonrpc.RawMessage) (interface{}, error) {
	var params protocol.DocumentFormattingParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	uri := params.TextDocument.URI
	doc := s.store.Get(uri)
	if doc == nil {
		return nil, nil
	}

	edits, err := s.formatDocument(ctx, doc)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		if errors.Is(err, engine.ErrNotFound) || errors.Is(err, engine.ErrVersion) {
			s.reportOnce(ctx, "Ruff: "+err.Error())
			return nil, nil
		}
		if errors.Is(err, document.ErrStaleVersion) {
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeContentModified, Message: "document changed during formatting"}
		}
		s.logger.Error("format failed", "uri", uri, "error", err)
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeInternalError, Message: "formatting failed: " + err.Error()}
	}
	return edits, nil
}

// formatDocument runs the engine's format subcommand. Notebook cells are
// wrapped as a one-cell notebook so the engine applies its notebook rules.
func (s *Server) formatDocument(ctx context.Context, doc *document.Document) ([]protocol.TextEdit, error) {
	uri := doc.URI()
	set := s.documentSettings(uri)
	exe, err := s.locator.Find(set, engine.MinFormatterVersion)
	if err != nil {
		return nil, err
	}

	epoch := s.store.Epoch(uri)
	original := doc.Text()
	stdin := original
	if doc.Kind() == document.KindCell {
		stdin, err = document.SingleCellNotebookJSON(original)
		if err != nil {
			return nil, err
		}
	}

	args := engine.FormatArgs(set, uri.Path(), s.logger)
	result, err := s.runner.Run(ctx, exe.Path, args, set.CWD, stdin)
	if err != nil {
		return nil, err
	}
	// The document may have changed while the engine ran; edits computed
	// from the captured text would land on the wrong ranges.
	if s.store.Epoch(uri) != epoch {
		return nil, document.ErrStaleVersion
	}

	fixed, ok, err := format.Output(result, stdin)
	if err != nil || !ok {
		return nil, err
	}
	if doc.Kind() == document.KindCell {
		fixed, err = singleCellSource(fixed)
		if err != nil {
			return nil, err
		}
	}
	return format.Edits(original, fixed), nil
}

package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ruffd-lsp/ruffd/document"
	"github.com/ruffd-lsp/ruffd/engine"
	"github.com/ruffd-lsp/ruffd/format"
	"github.com/ruffd-lsp/ruffd/jsonrpc"
	"github.com/ruffd-lsp/ruffd/protocol"
)

const (
	commandApplyAutofix         = "ruffd.applyAutofix"
	commandApplyOrganizeImports = "ruffd.applyOrganizeImports"
	commandApplyFormat          = "ruffd.applyFormat"
)

// commandArgument is the document reference clients pass to executeCommand.
type commandArgument struct {
	URI protocol.DocumentURI `json:"uri"`
}

func (s *Server) handleExecuteCommand(ctx context.Context, raw jsonrpc.RawMessage) (interface{}, error) {
	var params protocol.ExecuteCommandParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	if len(params.Arguments) == 0 {
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: "missing document argument"}
	}
	var arg commandArgument
	if err := json.Unmarshal(params.Arguments[0], &arg); err != nil || arg.URI == "" {
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: "invalid document argument"}
	}

	var (
		label string
		edit  *protocol.WorkspaceEdit
		err   error
	)
	switch params.Command {
	case commandApplyAutofix:
		label = "Ruff: Fix all auto-fixable problems"
		edit, err = s.fixDocumentEdit(ctx, arg.URI, "")
	case commandApplyOrganizeImports:
		label = "Ruff: Format imports"
		edit, err = s.fixDocumentEdit(ctx, arg.URI, ruleOrganizeImports)
	case commandApplyFormat:
		label = "Ruff: Format document"
		edit, err = s.formatWorkspaceEdit(ctx, arg.URI)
	default:
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: "unknown command: " + params.Command}
	}
	if err != nil {
		s.logger.Error("command failed", "command", params.Command, "uri", arg.URI, "error", err)
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeInternalError, Message: params.Command + ": " + err.Error()}
	}
	if edit == nil {
		return nil, nil
	}

	resp, err := s.client.ApplyEdit(ctx, &protocol.ApplyWorkspaceEditParams{
		Label: label,
		Edit:  *edit,
	})
	if err != nil {
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeInternalError, Message: "applying edit: " + err.Error()}
	}
	if !resp.Applied {
		s.logger.Warn("client rejected edit", "command", params.Command, "reason", resp.FailureReason)
	}
	return nil, nil
}

// formatWorkspaceEdit wraps a format run as a workspace edit. Notebooks are
// formatted in one engine run over the serialized notebook; text documents
// and cells reuse the formatting handler path.
func (s *Server) formatWorkspaceEdit(ctx context.Context, uri protocol.DocumentURI) (*protocol.WorkspaceEdit, error) {
	if nb := s.store.GetNotebook(uri); nb != nil {
		return s.formatNotebookEdit(ctx, nb)
	}
	doc := s.store.Get(uri)
	if doc == nil {
		return nil, nil
	}
	edits, err := s.formatDocument(ctx, doc)
	if err != nil || len(edits) == 0 {
		return nil, err
	}
	return &protocol.WorkspaceEdit{
		DocumentChanges: []protocol.TextDocumentEdit{
			documentEdit(uri, doc.Version(), edits),
		},
	}, nil
}

func (s *Server) formatNotebookEdit(ctx context.Context, nb *document.Notebook) (*protocol.WorkspaceEdit, error) {
	uri := nb.URI()
	payload, err := nb.NotebookJSON()
	if err != nil {
		return nil, err
	}
	set := s.documentSettings(uri)
	exe, err := s.locator.Find(set, engine.MinFormatterVersion)
	if err != nil {
		return nil, err
	}
	args := engine.FormatArgs(set, uri.Path(), s.logger)
	result, err := s.runner.Run(ctx, exe.Path, args, set.CWD, payload)
	if err != nil {
		return nil, err
	}
	fixed, ok, err := format.Output(result, payload)
	if err != nil || !ok {
		return nil, err
	}

	sources, err := notebookCellSources(fixed)
	if err != nil {
		return nil, err
	}
	cells := nb.Cells()
	if len(sources) != len(cells) {
		return nil, fmt.Errorf("engine returned %d cells for a %d-cell notebook", len(sources), len(cells))
	}

	var changes []protocol.TextDocumentEdit
	for i, cell := range cells {
		if cell.Kind != protocol.CellKindCode {
			continue
		}
		cellDoc := s.store.Get(cell.Document)
		if cellDoc == nil {
			continue
		}
		edits := format.Edits(cellDoc.Text(), sources[i])
		if len(edits) == 0 {
			continue
		}
		changes = append(changes, documentEdit(cell.Document, cellDoc.Version(), edits))
	}
	if len(changes) == 0 {
		return nil, nil
	}
	return &protocol.WorkspaceEdit{DocumentChanges: changes}, nil
}

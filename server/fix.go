package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ruffd-lsp/ruffd/document"
	"github.com/ruffd-lsp/ruffd/engine"
	"github.com/ruffd-lsp/ruffd/format"
	"github.com/ruffd-lsp/ruffd/protocol"
)

// ruleOrganizeImports is the engine's import-sorting rule. Organize-imports
// actions run a fix restricted to it.
const ruleOrganizeImports = "I001"

// fixDocumentEdit runs the engine with fixes enabled and wraps the rewritten
// source as a workspace edit. An empty only applies every available fix; a
// rule code restricts fixing to that rule. Returns nil when the document is
// already clean.
func (s *Server) fixDocumentEdit(ctx context.Context, uri protocol.DocumentURI, only string) (*protocol.WorkspaceEdit, error) {
	if nb := s.store.GetNotebook(uri); nb != nil {
		return s.fixNotebookEdit(ctx, nb, only)
	}
	doc := s.store.Get(uri)
	if doc == nil {
		return nil, fmt.Errorf("unknown document: %s", uri)
	}
	if doc.Kind() == document.KindCell {
		return s.fixCellEdit(ctx, doc, only)
	}

	epoch := s.store.Epoch(uri)
	original := doc.Text()
	fixed, ok, err := s.runFix(ctx, uri, original, only)
	if err != nil || !ok {
		return nil, err
	}
	if s.store.Epoch(uri) != epoch {
		return nil, document.ErrStaleVersion
	}
	edits := format.Edits(original, fixed)
	if len(edits) == 0 {
		return nil, nil
	}
	return &protocol.WorkspaceEdit{
		DocumentChanges: []protocol.TextDocumentEdit{
			documentEdit(uri, doc.Version(), edits),
		},
	}, nil
}

// fixNotebookEdit fixes every code cell of a notebook in one engine run over
// the serialized notebook.
func (s *Server) fixNotebookEdit(ctx context.Context, nb *document.Notebook, only string) (*protocol.WorkspaceEdit, error) {
	payload, err := nb.NotebookJSON()
	if err != nil {
		return nil, err
	}
	fixed, ok, err := s.runFix(ctx, nb.URI(), payload, only)
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

// fixCellEdit fixes a single notebook cell by wrapping its source as a
// one-cell notebook.
func (s *Server) fixCellEdit(ctx context.Context, doc *document.Document, only string) (*protocol.WorkspaceEdit, error) {
	epoch := s.store.Epoch(doc.URI())
	original := doc.Text()
	payload, err := document.SingleCellNotebookJSON(original)
	if err != nil {
		return nil, err
	}
	fixed, ok, err := s.runFix(ctx, doc.URI(), payload, only)
	if err != nil || !ok {
		return nil, err
	}
	if s.store.Epoch(doc.URI()) != epoch {
		return nil, document.ErrStaleVersion
	}
	source, err := singleCellSource(fixed)
	if err != nil {
		return nil, err
	}
	edits := format.Edits(original, source)
	if len(edits) == 0 {
		return nil, nil
	}
	return &protocol.WorkspaceEdit{
		DocumentChanges: []protocol.TextDocumentEdit{
			documentEdit(doc.URI(), doc.Version(), edits),
		},
	}, nil
}

// runFix invokes the check subcommand with fixes enabled. ok is false when
// the engine produced no output for a non-blank source, which signals a run
// that should be treated as a no-op rather than an empty document.
func (s *Server) runFix(ctx context.Context, uri protocol.DocumentURI, source, only string) (string, bool, error) {
	set := s.documentSettings(uri)
	exe, err := s.locator.Find(set, engine.MinLinterVersion)
	if err != nil {
		return "", false, err
	}
	args := engine.CheckArgs(exe, set, uri.Path(), []string{"--fix"}, only, s.logger)
	result, err := s.runner.Run(ctx, exe.Path, args, set.CWD, source)
	if err != nil {
		return "", false, err
	}
	if len(result.Stdout) == 0 && strings.TrimSpace(source) != "" {
		return "", false, nil
	}
	return string(result.Stdout), true, nil
}

// notebookCellSources extracts the per-cell sources from a serialized
// notebook, in cell order.
func notebookCellSources(payload string) ([]string, error) {
	var doc struct {
		Cells []struct {
			Source cellSource `json:"source"`
		} `json:"cells"`
	}
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("decoding engine notebook output: %w", err)
	}
	sources := make([]string, len(doc.Cells))
	for i, c := range doc.Cells {
		sources[i] = string(c.Source)
	}
	return sources, nil
}

func singleCellSource(payload string) (string, error) {
	sources, err := notebookCellSources(payload)
	if err != nil {
		return "", err
	}
	if len(sources) != 1 {
		return "", fmt.Errorf("expected a single-cell notebook, got %d cells", len(sources))
	}
	return sources[0], nil
}

// cellSource accepts both notebook source encodings: a plain string or a
// list of line strings.
type cellSource string

func (c *cellSource) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = cellSource(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	*c = cellSource(strings.Join(lines, ""))
	return nil
}

func documentEdit(uri protocol.DocumentURI, version int32, edits []protocol.TextEdit) protocol.TextDocumentEdit {
	return protocol.TextDocumentEdit{
		TextDocument: protocol.OptionalVersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                versionRef(version),
		},
		Edits: edits,
	}
}

func versionRef(v int32) *int32 { return &v }

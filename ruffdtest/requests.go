package ruffdtest

import (
	"encoding/json"
	"time"

	"github.com/ruffd-lsp/ruffd/protocol"
)

// Open sends textDocument/didOpen for a Python document.
func (c *Client) Open(uri, text string) {
	c.t.Helper()
	c.notify(protocol.MethodDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        protocol.DocumentURI(uri),
			LanguageID: "python",
			Version:    1,
			Text:       text,
		},
	})
	time.Sleep(10 * time.Millisecond)
}

// Change sends textDocument/didChange with full content replacement.
func (c *Client) Change(uri string, version int32, text string) {
	c.t.Helper()
	c.notify(protocol.MethodDidChange, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
			Version:                version,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: text}},
	})
	time.Sleep(10 * time.Millisecond)
}

// Save sends textDocument/didSave.
func (c *Client) Save(uri string) {
	c.t.Helper()
	c.notify(protocol.MethodDidSave, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	})
	time.Sleep(10 * time.Millisecond)
}

// Close sends textDocument/didClose.
func (c *Client) Close(uri string) {
	c.t.Helper()
	c.notify(protocol.MethodDidClose, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	})
	time.Sleep(10 * time.Millisecond)
}

// NotebookCellItem pairs a cell's kind with its backing document.
type NotebookCellItem struct {
	Kind protocol.NotebookCellKind
	URI  string
	Text string
}

// OpenNotebook sends notebookDocument/didOpen with the given cells.
func (c *Client) OpenNotebook(uri string, cells []NotebookCellItem) {
	c.t.Helper()
	params := &protocol.DidOpenNotebookDocumentParams{
		NotebookDocument: protocol.NotebookDocument{
			URI:     protocol.DocumentURI(uri),
			Version: 1,
		},
	}
	for _, cell := range cells {
		params.NotebookDocument.Cells = append(params.NotebookDocument.Cells, protocol.NotebookCell{
			Kind:     cell.Kind,
			Document: protocol.DocumentURI(cell.URI),
		})
		params.CellTextDocuments = append(params.CellTextDocuments, protocol.TextDocumentItem{
			URI:        protocol.DocumentURI(cell.URI),
			LanguageID: "python",
			Version:    1,
			Text:       cell.Text,
		})
	}
	c.notify(protocol.MethodNotebookDidOpen, params)
	time.Sleep(10 * time.Millisecond)
}

// CloseNotebook sends notebookDocument/didClose.
func (c *Client) CloseNotebook(uri string, cellURIs ...string) {
	c.t.Helper()
	params := &protocol.DidCloseNotebookDocumentParams{
		NotebookDocument: protocol.NotebookDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	}
	for _, cell := range cellURIs {
		params.CellTextDocuments = append(params.CellTextDocuments, protocol.TextDocumentIdentifier{
			URI: protocol.DocumentURI(cell),
		})
	}
	c.notify(protocol.MethodNotebookDidClose, params)
	time.Sleep(10 * time.Millisecond)
}

// CodeAction sends textDocument/codeAction over the given range.
func (c *Client) CodeAction(uri string, rng protocol.Range, context protocol.CodeActionContext) []protocol.CodeAction {
	c.t.Helper()
	var result []protocol.CodeAction
	c.call(protocol.MethodCodeAction, &protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
		Range:        rng,
		Context:      context,
	}, &result)
	return result
}

// ResolveCodeAction sends codeAction/resolve.
func (c *Client) ResolveCodeAction(action protocol.CodeAction) protocol.CodeAction {
	c.t.Helper()
	var result protocol.CodeAction
	c.call(protocol.MethodCodeActionResolve, action, &result)
	return result
}

// Formatting sends textDocument/formatting.
func (c *Client) Formatting(uri string) []protocol.TextEdit {
	c.t.Helper()
	var result []protocol.TextEdit
	c.call(protocol.MethodFormatting, &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
		Options:      protocol.FormattingOptions{TabSize: 4, InsertSpaces: true},
	}, &result)
	return result
}

// FormattingErr sends textDocument/formatting and returns the error instead
// of failing the test, for asserting on rejected requests.
func (c *Client) FormattingErr(uri string) ([]protocol.TextEdit, error) {
	c.t.Helper()
	var result []protocol.TextEdit
	err := c.callErr(protocol.MethodFormatting, &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
		Options:      protocol.FormattingOptions{TabSize: 4, InsertSpaces: true},
	}, &result)
	return result, err
}

// Hover sends textDocument/hover. A nil result means no hover.
func (c *Client) Hover(uri string, pos protocol.Position) *protocol.Hover {
	c.t.Helper()
	var result *protocol.Hover
	c.call(protocol.MethodHover, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
			Position:     pos,
		},
	}, &result)
	return result
}

// ExecuteCommand sends workspace/executeCommand with a document argument.
func (c *Client) ExecuteCommand(command, uri string) error {
	c.t.Helper()
	arg, _ := json.Marshal(map[string]string{"uri": uri})
	return c.callErr(protocol.MethodExecuteCommand, &protocol.ExecuteCommandParams{
		Command:   command,
		Arguments: []json.RawMessage{arg},
	}, nil)
}

// ChangeConfiguration sends workspace/didChangeConfiguration.
func (c *Client) ChangeConfiguration(settings interface{}) {
	c.t.Helper()
	raw, err := json.Marshal(settings)
	if err != nil {
		c.t.Fatalf("marshalling settings: %v", err)
	}
	c.notify(protocol.MethodDidChangeConfiguration, &protocol.DidChangeConfigurationParams{
		Settings: raw,
	})
	time.Sleep(10 * time.Millisecond)
}

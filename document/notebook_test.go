package document

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ruffd-lsp/ruffd/protocol"
)

func openNotebook(s *Store) *Notebook {
	return s.OpenNotebook(&protocol.DidOpenNotebookDocumentParams{
		NotebookDocument: protocol.NotebookDocument{
			URI:     "file:///tmp/nb.ipynb",
			Version: 1,
			Cells: []protocol.NotebookCell{
				{Kind: protocol.CellKindMarkup, Document: "vscode-notebook-cell:/tmp/nb.ipynb#0"},
				{Kind: protocol.CellKindCode, Document: "vscode-notebook-cell:/tmp/nb.ipynb#1"},
				{Kind: protocol.CellKindCode, Document: "vscode-notebook-cell:/tmp/nb.ipynb#2"},
			},
		},
		CellTextDocuments: []protocol.TextDocumentItem{
			{URI: "vscode-notebook-cell:/tmp/nb.ipynb#0", LanguageID: "markdown", Version: 1, Text: "# Title"},
			{URI: "vscode-notebook-cell:/tmp/nb.ipynb#1", LanguageID: "python", Version: 1, Text: "import os\n"},
			{URI: "vscode-notebook-cell:/tmp/nb.ipynb#2", LanguageID: "python", Version: 1, Text: "x = 1"},
		},
	})
}

func TestOpenNotebook(t *testing.T) {
	s := NewStore()
	nb := openNotebook(s)

	if got := len(nb.Cells()); got != 3 {
		t.Fatalf("cells = %d, want 3", got)
	}
	cell := s.Get("vscode-notebook-cell:/tmp/nb.ipynb#1")
	if cell == nil || cell.Kind() != KindCell {
		t.Fatal("cell document should be stored with KindCell")
	}
	if cell.NotebookURI() != "file:///tmp/nb.ipynb" {
		t.Errorf("NotebookURI = %q", cell.NotebookURI())
	}
	if s.NotebookFor("vscode-notebook-cell:/tmp/nb.ipynb#2") != nb {
		t.Error("NotebookFor should resolve cell to notebook")
	}
}

func TestUpdateNotebookStructure(t *testing.T) {
	s := NewStore()
	nb := openNotebook(s)

	// Remove the markup cell and insert a new code cell at the front.
	err := s.UpdateNotebook(&protocol.DidChangeNotebookDocumentParams{
		NotebookDocument: protocol.VersionedNotebookDocumentIdentifier{URI: nb.URI(), Version: 2},
		Change: protocol.NotebookDocumentChangeEvent{
			Cells: &protocol.NotebookDocumentCellChanges{
				Structure: &protocol.NotebookDocumentCellChangeStructure{
					Array: protocol.NotebookCellArrayChange{
						Start:       0,
						DeleteCount: 1,
						Cells: []protocol.NotebookCell{
							{Kind: protocol.CellKindCode, Document: "vscode-notebook-cell:/tmp/nb.ipynb#3"},
						},
					},
					DidOpen: []protocol.TextDocumentItem{
						{URI: "vscode-notebook-cell:/tmp/nb.ipynb#3", LanguageID: "python", Version: 1, Text: "import sys\n"},
					},
					DidClose: []protocol.TextDocumentIdentifier{
						{URI: "vscode-notebook-cell:/tmp/nb.ipynb#0"},
					},
				},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	cells := nb.Cells()
	if len(cells) != 3 || cells[0].Document != "vscode-notebook-cell:/tmp/nb.ipynb#3" {
		t.Errorf("cells after splice = %+v", cells)
	}
	if s.Get("vscode-notebook-cell:/tmp/nb.ipynb#0") != nil {
		t.Error("closed cell should be removed from store")
	}
	if s.Get("vscode-notebook-cell:/tmp/nb.ipynb#3") == nil {
		t.Error("opened cell should be in store")
	}
}

func TestUpdateNotebookContentAndVersionGate(t *testing.T) {
	s := NewStore()
	nb := openNotebook(s)

	err := s.UpdateNotebook(&protocol.DidChangeNotebookDocumentParams{
		NotebookDocument: protocol.VersionedNotebookDocumentIdentifier{URI: nb.URI(), Version: 2},
		Change: protocol.NotebookDocumentChangeEvent{
			Cells: &protocol.NotebookDocumentCellChanges{
				TextContent: []protocol.NotebookDocumentCellContentChange{
					{
						Document: protocol.VersionedTextDocumentIdentifier{
							TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "vscode-notebook-cell:/tmp/nb.ipynb#2"},
							Version:                2,
						},
						Changes: []protocol.TextDocumentContentChangeEvent{{Text: "x = 2"}},
					},
				},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Get("vscode-notebook-cell:/tmp/nb.ipynb#2").Text(); got != "x = 2" {
		t.Errorf("cell text = %q", got)
	}

	// Same notebook version again is stale.
	err = s.UpdateNotebook(&protocol.DidChangeNotebookDocumentParams{
		NotebookDocument: protocol.VersionedNotebookDocumentIdentifier{URI: nb.URI(), Version: 2},
	})
	if !errors.Is(err, ErrStaleVersion) {
		t.Errorf("err = %v, want ErrStaleVersion", err)
	}
}

func TestNotebookJSON(t *testing.T) {
	s := NewStore()
	nb := openNotebook(s)

	raw, err := nb.NotebookJSON()
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Cells []struct {
			CellType string `json:"cell_type"`
			Source   string `json:"source"`
		} `json:"cells"`
		NBFormat      int `json:"nbformat"`
		NBFormatMinor int `json:"nbformat_minor"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.NBFormat != 4 || decoded.NBFormatMinor != 5 {
		t.Errorf("nbformat = %d.%d", decoded.NBFormat, decoded.NBFormatMinor)
	}
	if len(decoded.Cells) != 3 {
		t.Fatalf("cells = %d", len(decoded.Cells))
	}
	if decoded.Cells[0].CellType != "markdown" || decoded.Cells[1].CellType != "code" {
		t.Errorf("cell types = %q, %q", decoded.Cells[0].CellType, decoded.Cells[1].CellType)
	}
	if decoded.Cells[1].Source != "import os\n" {
		t.Errorf("cell 1 source = %q", decoded.Cells[1].Source)
	}
}

func TestVirtualDocumentMapping(t *testing.T) {
	s := NewStore()
	nb := openNotebook(s)
	v := nb.Virtual()

	// Markup cell is skipped; code cells concatenate in order.
	if v.Text != "import os\nx = 1\n" {
		t.Fatalf("virtual text = %q", v.Text)
	}

	uri, off, ok := v.MapToCell(0)
	if !ok || uri != "vscode-notebook-cell:/tmp/nb.ipynb#1" || off != 0 {
		t.Errorf("MapToCell(0) = %q, %d, %v", uri, off, ok)
	}
	uri, off, ok = v.MapToCell(10)
	if !ok || uri != "vscode-notebook-cell:/tmp/nb.ipynb#2" || off != 0 {
		t.Errorf("MapToCell(10) = %q, %d, %v", uri, off, ok)
	}

	back, ok := v.FromCell("vscode-notebook-cell:/tmp/nb.ipynb#2", 0)
	if !ok || back != 10 {
		t.Errorf("FromCell = %d, %v", back, ok)
	}
	if _, ok := v.FromCell("vscode-notebook-cell:/tmp/nb.ipynb#0", 0); ok {
		t.Error("markup cell should not map into the virtual document")
	}
}

package document

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/ruffd-lsp/ruffd/protocol"
)

// Notebook tracks an open notebook document: its version and the ordered
// list of cells. Cell contents live as ordinary cell documents in the Store;
// the notebook only records cell order and kind.
type Notebook struct {
	mu      sync.RWMutex
	uri     protocol.DocumentURI
	version int32
	cells   []protocol.NotebookCell
	store   *Store
}

// URI returns the notebook's URI.
func (n *Notebook) URI() protocol.DocumentURI {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.uri
}

// Version returns the notebook's current version.
func (n *Notebook) Version() int32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.version
}

// Cells returns a copy of the notebook's cell list in document order.
func (n *Notebook) Cells() []protocol.NotebookCell {
	n.mu.RLock()
	defer n.mu.RUnlock()
	cells := make([]protocol.NotebookCell, len(n.cells))
	copy(cells, n.cells)
	return cells
}

// CellAt returns the URI of the cell at the given zero-based index over all
// cells, markup included.
func (n *Notebook) CellAt(index int) (protocol.DocumentURI, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if index < 0 || index >= len(n.cells) {
		return "", false
	}
	return n.cells[index].Document, true
}

// CellIndex returns the zero-based index of the cell with the given URI.
func (n *Notebook) CellIndex(uri protocol.DocumentURI) (int, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for i, cell := range n.cells {
		if cell.Document == uri {
			return i, true
		}
	}
	return 0, false
}

// OpenNotebook registers a notebook and its cell text documents from a
// didOpen notification.
func (s *Store) OpenNotebook(params *protocol.DidOpenNotebookDocumentParams) *Notebook {
	nb := &Notebook{
		uri:     params.NotebookDocument.URI,
		version: params.NotebookDocument.Version,
		cells:   append([]protocol.NotebookCell(nil), params.NotebookDocument.Cells...),
		store:   s,
	}

	s.mu.Lock()
	s.notebooks[nb.uri] = nb
	s.epochs[nb.uri]++
	for _, item := range params.CellTextDocuments {
		doc := New(item)
		doc.kind = KindCell
		doc.notebook = nb.uri
		s.docs[item.URI] = doc
		s.cellOwner[item.URI] = nb.uri
	}
	s.mu.Unlock()
	return nb
}

// UpdateNotebook applies a didChange notification: structural cell changes
// (cells added, removed, reordered) and cell content changes. The notebook
// version must be strictly greater than the stored one. The notebook's epoch
// advances on success.
func (s *Store) UpdateNotebook(params *protocol.DidChangeNotebookDocumentParams) error {
	s.mu.RLock()
	nb := s.notebooks[params.NotebookDocument.URI]
	s.mu.RUnlock()
	if nb == nil {
		return ErrUnknownDocument
	}

	nb.mu.Lock()
	if params.NotebookDocument.Version <= nb.version {
		nb.mu.Unlock()
		return ErrStaleVersion
	}
	nb.version = params.NotebookDocument.Version

	cells := params.Change.Cells
	if cells != nil && cells.Structure != nil {
		st := cells.Structure
		start := int(st.Array.Start)
		del := int(st.Array.DeleteCount)
		if start > len(nb.cells) {
			start = len(nb.cells)
		}
		if start+del > len(nb.cells) {
			del = len(nb.cells) - start
		}
		spliced := make([]protocol.NotebookCell, 0, len(nb.cells)-del+len(st.Array.Cells))
		spliced = append(spliced, nb.cells[:start]...)
		spliced = append(spliced, st.Array.Cells...)
		spliced = append(spliced, nb.cells[start+del:]...)
		nb.cells = spliced
	}
	if cells != nil {
		for _, updated := range cells.Data {
			for j := range nb.cells {
				if nb.cells[j].Document == updated.Document {
					nb.cells[j].Kind = updated.Kind
				}
			}
		}
	}
	nb.mu.Unlock()

	s.mu.Lock()
	if cells != nil && cells.Structure != nil {
		for _, item := range cells.Structure.DidOpen {
			doc := New(item)
			doc.kind = KindCell
			doc.notebook = nb.uri
			s.docs[item.URI] = doc
			s.cellOwner[item.URI] = nb.uri
		}
		for _, closed := range cells.Structure.DidClose {
			delete(s.docs, closed.URI)
			delete(s.cellOwner, closed.URI)
		}
	}
	s.epochs[nb.uri]++
	s.mu.Unlock()

	if cells != nil {
		for _, content := range cells.TextContent {
			s.mu.RLock()
			doc := s.docs[content.Document.URI]
			s.mu.RUnlock()
			if doc == nil {
				continue
			}
			// Cell versions are gated like any other document.
			if err := doc.applyChanges(content.Document.Version, content.Changes); err != nil {
				return err
			}
		}
	}
	return nil
}

// CloseNotebook removes a notebook and its cells from the store.
func (s *Store) CloseNotebook(params *protocol.DidCloseNotebookDocumentParams) {
	s.mu.Lock()
	delete(s.notebooks, params.NotebookDocument.URI)
	delete(s.epochs, params.NotebookDocument.URI)
	for _, cell := range params.CellTextDocuments {
		delete(s.docs, cell.URI)
		delete(s.cellOwner, cell.URI)
	}
	s.mu.Unlock()
}

// nbCell is the Jupyter notebook format v4 cell shape the engine accepts.
type nbCell struct {
	CellType       string          `json:"cell_type"`
	Source         string          `json:"source"`
	Metadata       map[string]any  `json:"metadata"`
	Outputs        []any           `json:"outputs,omitempty"`
	ExecutionCount json.RawMessage `json:"execution_count,omitempty"`
}

type nbDocument struct {
	Cells         []nbCell       `json:"cells"`
	Metadata      map[string]any `json:"metadata"`
	NBFormat      int            `json:"nbformat"`
	NBFormatMinor int            `json:"nbformat_minor"`
}

// NotebookJSON serializes the notebook as Jupyter format v4 JSON, with each
// cell's current text as its source. This is the form the engine expects on
// stdin for notebook paths.
func (n *Notebook) NotebookJSON() (string, error) {
	n.mu.RLock()
	cells := make([]protocol.NotebookCell, len(n.cells))
	copy(cells, n.cells)
	store := n.store
	n.mu.RUnlock()

	out := nbDocument{
		Metadata:      map[string]any{},
		NBFormat:      4,
		NBFormatMinor: 5,
	}
	for _, cell := range cells {
		var source string
		if doc := store.Get(cell.Document); doc != nil {
			source = doc.Text()
		}
		out.Cells = append(out.Cells, newNBCell(cell.Kind, source))
	}
	return marshalNotebook(out)
}

// SingleCellNotebookJSON wraps one code cell's source as a complete Jupyter
// format v4 notebook. Used when the engine must operate on a lone cell.
func SingleCellNotebookJSON(source string) (string, error) {
	out := nbDocument{
		Cells:         []nbCell{newNBCell(protocol.CellKindCode, source)},
		Metadata:      map[string]any{},
		NBFormat:      4,
		NBFormatMinor: 5,
	}
	return marshalNotebook(out)
}

func newNBCell(kind protocol.NotebookCellKind, source string) nbCell {
	c := nbCell{Source: source, Metadata: map[string]any{}}
	if kind == protocol.CellKindCode {
		c.CellType = "code"
		c.Outputs = []any{}
		c.ExecutionCount = json.RawMessage("null")
	} else {
		c.CellType = "markdown"
	}
	return c
}

func marshalNotebook(doc nbDocument) (string, error) {
	buf, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// CellSpan records where one code cell's text lives inside a virtual
// concatenated document. End is exclusive.
type CellSpan struct {
	URI   protocol.DocumentURI
	Start int
	End   int
}

// VirtualDocument is the concatenation of a notebook's code cell sources,
// separated by newlines, with a span table mapping virtual offsets back to
// cells.
type VirtualDocument struct {
	Text  string
	Spans []CellSpan
}

// Virtual builds the notebook's current virtual concatenated document from
// its code cells, skipping markup cells.
func (n *Notebook) Virtual() *VirtualDocument {
	n.mu.RLock()
	cells := make([]protocol.NotebookCell, len(n.cells))
	copy(cells, n.cells)
	store := n.store
	n.mu.RUnlock()

	var b strings.Builder
	var spans []CellSpan
	for _, cell := range cells {
		if cell.Kind != protocol.CellKindCode {
			continue
		}
		doc := store.Get(cell.Document)
		if doc == nil {
			continue
		}
		text := doc.Text()
		start := b.Len()
		b.WriteString(text)
		spans = append(spans, CellSpan{URI: cell.Document, Start: start, End: start + len(text)})
		if !strings.HasSuffix(text, "\n") {
			b.WriteByte('\n')
		}
	}
	return &VirtualDocument{Text: b.String(), Spans: spans}
}

// MapToCell maps a virtual document offset to the owning cell URI and the
// offset within that cell's text. Offsets landing on a separator between
// cells clamp to the end of the preceding cell.
func (v *VirtualDocument) MapToCell(offset int) (protocol.DocumentURI, int, bool) {
	if offset < 0 {
		return "", 0, false
	}
	for i, span := range v.Spans {
		if offset < span.End {
			if offset < span.Start {
				return "", 0, false
			}
			return span.URI, offset - span.Start, true
		}
		last := i == len(v.Spans)-1
		if last || offset < v.Spans[i+1].Start {
			return span.URI, span.End - span.Start, true
		}
	}
	return "", 0, false
}

// FromCell maps an offset within a cell's text back to a virtual document
// offset. The inverse of MapToCell.
func (v *VirtualDocument) FromCell(uri protocol.DocumentURI, cellOffset int) (int, bool) {
	for _, span := range v.Spans {
		if span.URI == uri {
			if cellOffset < 0 || span.Start+cellOffset > span.End {
				return 0, false
			}
			return span.Start + cellOffset, true
		}
	}
	return 0, false
}

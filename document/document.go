// Package document provides a thread-safe store for open text documents and
// notebook documents, with strictly increasing version tracking, per-document
// epoch counters used to invalidate stale engine invocations, and position
// utilities for LSP text management.
package document

import (
	"sync"

	"github.com/ruffd-lsp/ruffd/protocol"
)

// Kind describes what a stored text document represents.
type Kind int

const (
	// KindText is a plain file.
	KindText Kind = iota
	// KindCell is the text document backing one notebook cell.
	KindCell
)

// Document represents a single managed text document.
type Document struct {
	mu         sync.RWMutex
	uri        protocol.DocumentURI
	languageID string
	version    int32
	text       string
	kind       Kind
	notebook   protocol.DocumentURI
}

// New creates a new Document from an LSP TextDocumentItem.
func New(item protocol.TextDocumentItem) *Document {
	return &Document{
		uri:        item.URI,
		languageID: item.LanguageID,
		version:    item.Version,
		text:       item.Text,
		kind:       KindText,
	}
}

// URI returns the document's URI.
func (d *Document) URI() protocol.DocumentURI {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.uri
}

// LanguageID returns the LSP language identifier (e.g., "python").
func (d *Document) LanguageID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.languageID
}

// Version returns the document's current version number.
func (d *Document) Version() int32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Text returns the full text content of the document.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// Kind reports whether the document is a plain file or a notebook cell.
func (d *Document) Kind() Kind {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.kind
}

// NotebookURI returns the owning notebook's URI for cell documents, or ""
// for plain files.
func (d *Document) NotebookURI() protocol.DocumentURI {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.notebook
}

// LineAt returns the text of the given zero-based line number.
func (d *Document) LineAt(line uint32) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return LineAt(d.text, line)
}

// OffsetAt converts an LSP position to a byte offset in the document text.
func (d *Document) OffsetAt(pos protocol.Position) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return OffsetAt(d.text, pos)
}

// PositionAt converts a byte offset to an LSP position.
func (d *Document) PositionAt(offset int) protocol.Position {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return PositionAt(d.text, offset)
}

// applyChanges applies content changes if the supplied version is strictly
// greater than the stored one. Returns ErrStaleVersion otherwise; the stored
// text is left untouched.
func (d *Document) applyChanges(version int32, changes []protocol.TextDocumentContentChangeEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if version <= d.version {
		return ErrStaleVersion
	}
	d.text = ApplyChanges(d.text, changes)
	d.version = version
	return nil
}

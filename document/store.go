package document

import (
	"errors"
	"sync"

	"github.com/ruffd-lsp/ruffd/protocol"
)

var (
	// ErrUnknownDocument is returned for operations on a URI that is not open.
	ErrUnknownDocument = errors.New("document: unknown document")
	// ErrStaleVersion is returned when a change carries a version that is not
	// strictly greater than the stored one.
	ErrStaleVersion = errors.New("document: stale version")
)

// Store is a thread-safe store of open text documents and notebooks. It
// tracks documents via didOpen/didChange/didClose notifications and keeps a
// per-URI epoch counter that increments on every content change, so that
// results computed against an older snapshot can be discarded.
type Store struct {
	mu        sync.RWMutex
	docs      map[protocol.DocumentURI]*Document
	notebooks map[protocol.DocumentURI]*Notebook
	cellOwner map[protocol.DocumentURI]protocol.DocumentURI
	epochs    map[protocol.DocumentURI]uint64

	onOpenCallbacks  []func(doc *Document)
	onCloseCallbacks []func(uri protocol.DocumentURI)
}

// NewStore creates a new empty document store.
func NewStore() *Store {
	return &Store{
		docs:      make(map[protocol.DocumentURI]*Document),
		notebooks: make(map[protocol.DocumentURI]*Notebook),
		cellOwner: make(map[protocol.DocumentURI]protocol.DocumentURI),
		epochs:    make(map[protocol.DocumentURI]uint64),
	}
}

// OnOpen registers a callback called when a document is opened. Multiple
// callbacks can be registered; they fire in registration order.
func (s *Store) OnOpen(fn func(doc *Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOpenCallbacks = append(s.onOpenCallbacks, fn)
}

// OnClose registers a callback called when a document is closed. Multiple
// callbacks can be registered; they fire in registration order.
func (s *Store) OnClose(fn func(uri protocol.DocumentURI)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCloseCallbacks = append(s.onCloseCallbacks, fn)
}

// Get returns the document for the given URI, or nil if not found.
func (s *Store) Get(uri protocol.DocumentURI) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri]
}

// URIs returns all open document URIs, cells included.
func (s *Store) URIs() []protocol.DocumentURI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uris := make([]protocol.DocumentURI, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	return uris
}

// Epoch returns the current epoch for a URI. Closed and unknown URIs report
// zero, which never matches an epoch captured from an open document.
func (s *Store) Epoch(uri protocol.DocumentURI) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epochs[uri]
}

// Open adds a document to the store from a didOpen notification. Reopening a
// URI replaces the previous document.
func (s *Store) Open(params *protocol.DidOpenTextDocumentParams) *Document {
	doc := New(params.TextDocument)

	s.mu.Lock()
	s.docs[params.TextDocument.URI] = doc
	s.epochs[params.TextDocument.URI]++
	callbacks := make([]func(doc *Document), len(s.onOpenCallbacks))
	copy(callbacks, s.onOpenCallbacks)
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(doc)
	}
	return doc
}

// Update applies edits from a didChange notification. The new version must be
// strictly greater than the stored one; otherwise the document is left
// untouched and ErrStaleVersion is returned. On success the document's epoch
// advances.
func (s *Store) Update(params *protocol.DidChangeTextDocumentParams) (*Document, error) {
	s.mu.RLock()
	doc := s.docs[params.TextDocument.URI]
	s.mu.RUnlock()

	if doc == nil {
		return nil, ErrUnknownDocument
	}
	if err := doc.applyChanges(params.TextDocument.Version, params.ContentChanges); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.epochs[params.TextDocument.URI]++
	s.mu.Unlock()
	return doc, nil
}

// Close removes a document from the store. Closing an unknown URI is a no-op.
func (s *Store) Close(params *protocol.DidCloseTextDocumentParams) {
	s.mu.Lock()
	delete(s.docs, params.TextDocument.URI)
	delete(s.epochs, params.TextDocument.URI)
	callbacks := make([]func(uri protocol.DocumentURI), len(s.onCloseCallbacks))
	copy(callbacks, s.onCloseCallbacks)
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(params.TextDocument.URI)
	}
}

// NotebookFor returns the notebook owning the given cell URI, or nil if the
// URI does not belong to an open notebook.
func (s *Store) NotebookFor(cellURI protocol.DocumentURI) *Notebook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.cellOwner[cellURI]
	if !ok {
		return nil
	}
	return s.notebooks[owner]
}

// GetNotebook returns the notebook for the given URI, or nil if not open.
func (s *Store) GetNotebook(uri protocol.DocumentURI) *Notebook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notebooks[uri]
}

package document

import (
	"errors"
	"testing"

	"github.com/ruffd-lsp/ruffd/protocol"
)

func openParams(uri protocol.DocumentURI, version int32, text string) *protocol.DidOpenTextDocumentParams {
	return &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: "python",
			Version:    version,
			Text:       text,
		},
	}
}

func changeParams(uri protocol.DocumentURI, version int32, text string) *protocol.DidChangeTextDocumentParams {
	return &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                version,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: text}},
	}
}

func TestStoreOpenUpdateClose(t *testing.T) {
	s := NewStore()
	uri := protocol.DocumentURI("file:///tmp/a.py")

	s.Open(openParams(uri, 1, "x = 1\n"))
	doc := s.Get(uri)
	if doc == nil {
		t.Fatal("expected document after open")
	}
	if doc.Version() != 1 || doc.Text() != "x = 1\n" {
		t.Errorf("got version=%d text=%q", doc.Version(), doc.Text())
	}

	if _, err := s.Update(changeParams(uri, 2, "x = 2\n")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if doc.Text() != "x = 2\n" {
		t.Errorf("text after update = %q", doc.Text())
	}

	s.Close(&protocol.DidCloseTextDocumentParams{TextDocument: protocol.TextDocumentIdentifier{URI: uri}})
	if s.Get(uri) != nil {
		t.Error("expected nil after close")
	}
}

func TestStoreStaleVersion(t *testing.T) {
	s := NewStore()
	uri := protocol.DocumentURI("file:///tmp/a.py")
	s.Open(openParams(uri, 5, "x = 1\n"))

	for _, v := range []int32{5, 4} {
		if _, err := s.Update(changeParams(uri, v, "stale")); !errors.Is(err, ErrStaleVersion) {
			t.Errorf("version %d: err = %v, want ErrStaleVersion", v, err)
		}
	}
	if got := s.Get(uri).Text(); got != "x = 1\n" {
		t.Errorf("stale update mutated text: %q", got)
	}
}

func TestStoreUnknownDocument(t *testing.T) {
	s := NewStore()
	_, err := s.Update(changeParams("file:///tmp/missing.py", 1, "x"))
	if !errors.Is(err, ErrUnknownDocument) {
		t.Errorf("err = %v, want ErrUnknownDocument", err)
	}
}

func TestStoreEpoch(t *testing.T) {
	s := NewStore()
	uri := protocol.DocumentURI("file:///tmp/a.py")

	if s.Epoch(uri) != 0 {
		t.Error("epoch of unopened document should be 0")
	}

	s.Open(openParams(uri, 1, "a\n"))
	e1 := s.Epoch(uri)
	if e1 == 0 {
		t.Fatal("epoch should advance on open")
	}

	if _, err := s.Update(changeParams(uri, 2, "b\n")); err != nil {
		t.Fatal(err)
	}
	if s.Epoch(uri) <= e1 {
		t.Error("epoch should advance on update")
	}

	// Rejected updates leave the epoch alone.
	e2 := s.Epoch(uri)
	s.Update(changeParams(uri, 2, "c\n"))
	if s.Epoch(uri) != e2 {
		t.Error("epoch advanced on stale update")
	}

	s.Close(&protocol.DidCloseTextDocumentParams{TextDocument: protocol.TextDocumentIdentifier{URI: uri}})
	if s.Epoch(uri) != 0 {
		t.Error("epoch should reset to 0 after close")
	}
}

func TestStoreCallbacks(t *testing.T) {
	s := NewStore()
	uri := protocol.DocumentURI("file:///tmp/a.py")

	var opened, closed []protocol.DocumentURI
	s.OnOpen(func(doc *Document) { opened = append(opened, doc.URI()) })
	s.OnClose(func(u protocol.DocumentURI) { closed = append(closed, u) })

	s.Open(openParams(uri, 1, ""))
	s.Close(&protocol.DidCloseTextDocumentParams{TextDocument: protocol.TextDocumentIdentifier{URI: uri}})

	if len(opened) != 1 || opened[0] != uri {
		t.Errorf("opened = %v", opened)
	}
	if len(closed) != 1 || closed[0] != uri {
		t.Errorf("closed = %v", closed)
	}
}

package document

import (
	"testing"

	"github.com/ruffd-lsp/ruffd/protocol"
)

func TestOffsetAt(t *testing.T) {
	text := "import os\nimport sys\nx = 1"
	tests := []struct {
		pos  protocol.Position
		want int
	}{
		{protocol.Position{Line: 0, Character: 0}, 0},
		{protocol.Position{Line: 0, Character: 9}, 9},
		{protocol.Position{Line: 1, Character: 0}, 10},
		{protocol.Position{Line: 1, Character: 10}, 20},
		{protocol.Position{Line: 2, Character: 0}, 21},
		{protocol.Position{Line: 2, Character: 5}, 26},
	}
	for _, tt := range tests {
		got := OffsetAt(text, tt.pos)
		if got != tt.want {
			t.Errorf("OffsetAt(%v) = %d, want %d", tt.pos, got, tt.want)
		}
	}
}

func TestPositionAt(t *testing.T) {
	text := "import os\nimport sys\nx = 1"
	tests := []struct {
		offset int
		want   protocol.Position
	}{
		{0, protocol.Position{Line: 0, Character: 0}},
		{9, protocol.Position{Line: 0, Character: 9}},
		{10, protocol.Position{Line: 1, Character: 0}},
		{20, protocol.Position{Line: 1, Character: 10}},
		{21, protocol.Position{Line: 2, Character: 0}},
	}
	for _, tt := range tests {
		got := PositionAt(text, tt.offset)
		if got != tt.want {
			t.Errorf("PositionAt(%d) = %v, want %v", tt.offset, got, tt.want)
		}
	}
}

func TestUTF16Handling(t *testing.T) {
	// '😀' is U+1F600, encoded as a surrogate pair (2 UTF-16 code units)
	text := "a😀b"
	// UTF-16 offsets: a=0, 😀=1-2, b=3
	offset := OffsetAt(text, protocol.Position{Line: 0, Character: 3})
	if text[offset] != 'b' {
		t.Errorf("expected 'b' at UTF-16 offset 3, got %q (byte offset %d)", text[offset], offset)
	}
}

func TestApplyChanges(t *testing.T) {
	text := "x = 1\ny = 2\n"
	changes := []protocol.TextDocumentContentChangeEvent{
		{
			Range: &protocol.Range{
				Start: protocol.Position{Line: 1, Character: 4},
				End:   protocol.Position{Line: 1, Character: 5},
			},
			Text: "42",
		},
	}
	got := ApplyChanges(text, changes)
	want := "x = 1\ny = 42\n"
	if got != want {
		t.Errorf("ApplyChanges = %q, want %q", got, want)
	}
}

func TestApplyChangesFullSync(t *testing.T) {
	got := ApplyChanges("old", []protocol.TextDocumentContentChangeEvent{{Text: "new"}})
	if got != "new" {
		t.Errorf("ApplyChanges full sync = %q, want %q", got, "new")
	}
}

func TestApplyTextEdits(t *testing.T) {
	text := "import sys\nimport os\n"
	edits := []protocol.TextEdit{
		{
			Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 0},
				End:   protocol.Position{Line: 1, Character: 0},
			},
			NewText: "",
		},
		{
			Range: protocol.Range{
				Start: protocol.Position{Line: 1, Character: 9},
				End:   protocol.Position{Line: 1, Character: 9},
			},
			NewText: "  # noqa",
		},
	}
	got := ApplyTextEdits(text, edits)
	want := "import os  # noqa\n"
	if got != want {
		t.Errorf("ApplyTextEdits = %q, want %q", got, want)
	}
}

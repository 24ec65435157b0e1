package document

import (
	"sort"

	"github.com/ruffd-lsp/ruffd/protocol"
)

// ApplyChanges applies a set of LSP content change events to document text.
// Supports both full and incremental sync.
func ApplyChanges(text string, changes []protocol.TextDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
		} else {
			start := OffsetAt(text, change.Range.Start)
			end := OffsetAt(text, change.Range.End)
			if start < 0 {
				start = 0
			}
			if end > len(text) {
				end = len(text)
			}
			if start > end {
				start = end
			}
			text = text[:start] + change.Text + text[end:]
		}
	}
	return text
}

// ApplyTextEdits applies a set of TextEdits to document text. Edits are
// applied back-to-front so earlier offsets stay valid; overlapping edits are
// not supported.
func ApplyTextEdits(text string, edits []protocol.TextEdit) string {
	sorted := make([]protocol.TextEdit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Range.Start, sorted[j].Range.Start
		if a.Line != b.Line {
			return a.Line > b.Line
		}
		return a.Character > b.Character
	})
	for _, edit := range sorted {
		start := OffsetAt(text, edit.Range.Start)
		end := OffsetAt(text, edit.Range.End)
		if start < 0 {
			start = 0
		}
		if end > len(text) {
			end = len(text)
		}
		if start > end {
			start = end
		}
		text = text[:start] + edit.NewText + text[end:]
	}
	return text
}

// Package format turns the engine's reformatted source into LSP text edits.
// The whole document is replaced in a single edit; clients reconcile the
// change themselves.
package format

import (
	"fmt"
	"strings"

	"github.com/ruffd-lsp/ruffd/engine"
	"github.com/ruffd-lsp/ruffd/protocol"
)

// LineEnding returns the first line ending used in text: "\r\n", "\r", or
// "\n". Empty when the text has no line break.
func LineEnding(text string) string {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				return "\r\n"
			}
			return "\r"
		case '\n':
			return "\n"
		}
	}
	return ""
}

// MatchLineEndings rewrites fixed to use the same line endings as original.
// The engine normalizes to \n; documents using \r\n keep their endings.
func MatchLineEndings(original, fixed string) string {
	want := LineEnding(original)
	have := LineEnding(fixed)
	if want == "" || have == "" || want == have {
		return fixed
	}
	return strings.ReplaceAll(fixed, have, want)
}

// Edits diffs the engine output against the original source. A changed
// document becomes one whole-document replacement; an unchanged one yields
// no edits.
func Edits(original, fixed string) []protocol.TextEdit {
	fixed = MatchLineEndings(original, fixed)
	if fixed == original {
		return []protocol.TextEdit{}
	}
	return []protocol.TextEdit{{
		Range: protocol.Range{
			Start: protocol.Position{Line: 0, Character: 0},
			End:   protocol.Position{Line: protocol.UIntegerMax, Character: 0},
		},
		NewText: fixed,
	}}
}

// Output extracts the formatted source from a completed `format` run. A
// non-zero exit is a crash; empty output for a non-blank document means the
// engine declined (excluded file) and ok is false.
func Output(result engine.Result, original string) (string, bool, error) {
	if result.ExitCode != 0 {
		return "", false, engineError(result)
	}
	if len(result.Stdout) == 0 && strings.TrimSpace(original) != "" {
		return "", false, nil
	}
	return string(result.Stdout), true, nil
}

func engineError(result engine.Result) error {
	msg := strings.TrimSpace(string(result.Stderr))
	if msg == "" {
		msg = "no error output"
	}
	return fmt.Errorf("%w: format exit %d: %s", engine.ErrCrashed, result.ExitCode, msg)
}

// Package codeaction synthesizes LSP code actions from published lint
// results: per-violation quick fixes, suppression comments, and the
// source-level fix-all and organize-imports actions.
package codeaction

import (
	"regexp"

	"github.com/ruffd-lsp/ruffd/protocol"
)

// noqaRegex matches a suppression comment: `# noqa`, `# ruff: noqa` or
// `# flake8: noqa`, optionally followed by a code list. Submatch 1 is the
// literal "noqa", submatch 2 the code list.
var noqaRegex = regexp.MustCompile(`(?i:# (?:(?:ruff|flake8): )?(noqa))(?::\s?((?:[A-Z]+[0-9]+(?:[,\s]+)?)+))?`)

// codeRegex matches one rule code inside a noqa code list.
var codeRegex = regexp.MustCompile(`[A-Z]+[0-9]+`)

// AddNoqa returns the line with the given rule code suppressed, extending an
// existing noqa comment when one is present:
//
//	foo                -> foo  # noqa: NEW
//	foo  # noqa        -> foo  # noqa: NEW
//	foo  # noqa: OLD   -> foo  # noqa: OLD, NEW
func AddNoqa(line, code string) string {
	m := noqaRegex.FindStringSubmatchIndex(line)
	switch {
	case m != nil && m[4] >= 0:
		// Existing code list: append.
		return line[:m[5]] + ", " + code + line[m[5]:]
	case m != nil:
		// Bare noqa: attach a code list.
		end := m[3]
		return line[:end] + ": " + code + line[end:]
	default:
		return line + "  # noqa: " + code
	}
}

// NoqaEdit builds the whole-line replacement suppressing code on the given
// 1-based row.
func NoqaEdit(lineText string, row int, code string) protocol.TextEdit {
	line := uint32(row - 1)
	return protocol.TextEdit{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: 0},
			End:   protocol.Position{Line: line, Character: utf16Len(lineText)},
		},
		NewText: AddNoqa(lineText, code),
	}
}

// NoqaCodeAt returns the rule code under the given byte offset within a
// noqa comment's code list, if any. Used by hover to explain the rule.
func NoqaCodeAt(line string, offset int) (string, bool) {
	m := noqaRegex.FindStringSubmatchIndex(line)
	if m == nil || m[4] < 0 {
		return "", false
	}
	codes := line[m[4]:m[5]]
	for _, span := range codeRegex.FindAllStringIndex(codes, -1) {
		start, end := span[0]+m[4], span[1]+m[4]
		if start <= offset && offset < end {
			return line[start:end], true
		}
	}
	return "", false
}

func utf16Len(s string) uint32 {
	n := 0
	for _, r := range s {
		n += utf16RuneLen(r)
	}
	return uint32(n)
}

// utf16RuneLen is utf16.RuneLen, backported from Go 1.23 for older toolchains.
func utf16RuneLen(r rune) int {
	switch {
	case 0 <= r && r < 0xd800, 0xe000 <= r && r < 0x10000:
		return 1
	case 0x10000 <= r && r <= '\U0010FFFF':
		return 2
	default:
		return -1
	}
}

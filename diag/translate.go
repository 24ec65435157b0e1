package diag

import (
	"github.com/ruffd-lsp/ruffd/protocol"
)

// Source is the value reported in Diagnostic.source.
const Source = "Ruff"

// errorCodes are reported as Error severity; everything else the linter
// emits is a Warning.
var errorCodes = map[string]struct{}{
	"F821": {}, // undefined name
	"E902": {}, // IO error
	"E999": {}, // syntax error
}

// syntaxCodes are the engine's parse-failure diagnostics, filtered out when
// showSyntaxErrors is disabled.
var syntaxCodes = map[string]struct{}{
	"E999": {},
	"E902": {},
}

// Severity maps a rule code to an LSP severity.
func Severity(code string) protocol.DiagnosticSeverity {
	if _, ok := errorCodes[code]; ok {
		return protocol.SeverityError
	}
	return protocol.SeverityWarning
}

// Tags returns LSP diagnostic tags for a rule code. Unused imports and
// variables render as faded-out code in most editors.
func Tags(code string) []protocol.DiagnosticTag {
	switch code {
	case "F401", "F841":
		return []protocol.DiagnosticTag{protocol.TagUnnecessary}
	}
	return nil
}

// IsSyntaxError reports whether the code is a parse-failure diagnostic.
func IsSyntaxError(code string) bool {
	_, ok := syntaxCodes[code]
	return ok
}

// Range converts the violation's 1-based row, 1-based column span to an LSP
// range.
func (v Violation) Range() protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: oneBasedLine(v.Location.Row), Character: uint32(max(v.Location.Column-1, 0))},
		End:   protocol.Position{Line: oneBasedLine(v.EndLocation.Row), Character: uint32(max(v.EndLocation.Column-1, 0))},
	}
}

func oneBasedLine(row int) uint32 {
	return uint32(max(row-1, 0))
}

// Diagnostic converts one violation to an LSP diagnostic.
func (v Violation) Diagnostic() protocol.Diagnostic {
	d := protocol.Diagnostic{
		Range:    v.Range(),
		Severity: Severity(v.Code),
		Code:     v.Code,
		Source:   Source,
		Message:  v.Message,
		Tags:     Tags(v.Code),
	}
	if v.URL != "" {
		d.CodeDescription = &protocol.CodeDescription{Href: v.URL}
	}
	return d
}

// Translate converts violations to diagnostics, dropping parse-failure
// diagnostics when showSyntaxErrors is off.
func Translate(violations []Violation, showSyntaxErrors bool) []protocol.Diagnostic {
	diagnostics := make([]protocol.Diagnostic, 0, len(violations))
	for _, v := range violations {
		if !showSyntaxErrors && IsSyntaxError(v.Code) {
			continue
		}
		diagnostics = append(diagnostics, v.Diagnostic())
	}
	return diagnostics
}

package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruffd-lsp/ruffd/protocol"
)

func TestSeverity(t *testing.T) {
	assert.Equal(t, protocol.SeverityError, Severity("F821"))
	assert.Equal(t, protocol.SeverityError, Severity("E902"))
	assert.Equal(t, protocol.SeverityError, Severity("E999"))
	assert.Equal(t, protocol.SeverityWarning, Severity("E501"))
	assert.Equal(t, protocol.SeverityWarning, Severity("F401"))
}

func TestTags(t *testing.T) {
	assert.Equal(t, []protocol.DiagnosticTag{protocol.TagUnnecessary}, Tags("F401"))
	assert.Equal(t, []protocol.DiagnosticTag{protocol.TagUnnecessary}, Tags("F841"))
	assert.Nil(t, Tags("E501"))
}

func TestViolationRange(t *testing.T) {
	v := Violation{
		Location:    Location{Row: 2, Column: 5},
		EndLocation: Location{Row: 2, Column: 6},
	}
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 4},
		End:   protocol.Position{Line: 1, Character: 5},
	}, v.Range())

	// Row 0 clamps rather than underflowing.
	v = Violation{Location: Location{Row: 0, Column: 0}, EndLocation: Location{Row: 0, Column: 0}}
	assert.Equal(t, protocol.Range{}, v.Range())
}

func TestViolationDiagnostic(t *testing.T) {
	v := Violation{
		Code:        "F401",
		Message:     "`os` imported but unused",
		Location:    Location{Row: 1, Column: 8},
		EndLocation: Location{Row: 1, Column: 10},
		URL:         "https://docs.astral.sh/ruff/rules/unused-import",
	}
	d := v.Diagnostic()
	assert.Equal(t, Source, d.Source)
	assert.Equal(t, "F401", d.Code)
	assert.Equal(t, protocol.SeverityWarning, d.Severity)
	assert.Equal(t, []protocol.DiagnosticTag{protocol.TagUnnecessary}, d.Tags)
	require.NotNil(t, d.CodeDescription)
	assert.Equal(t, v.URL, d.CodeDescription.Href)
}

func TestTranslateSyntaxErrorFilter(t *testing.T) {
	violations := []Violation{
		{Code: "E999", Message: "SyntaxError: invalid syntax", Location: Location{Row: 1, Column: 1}, EndLocation: Location{Row: 1, Column: 1}},
		{Code: "F401", Message: "unused import", Location: Location{Row: 2, Column: 1}, EndLocation: Location{Row: 2, Column: 10}},
	}

	shown := Translate(violations, true)
	require.Len(t, shown, 2)

	hidden := Translate(violations, false)
	require.Len(t, hidden, 1)
	assert.Equal(t, "F401", hidden[0].Code)
}

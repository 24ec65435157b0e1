package codeaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruffd-lsp/ruffd/diag"
	"github.com/ruffd-lsp/ruffd/protocol"
	"github.com/ruffd-lsp/ruffd/settings"
)

const testURI = protocol.DocumentURI("file:///ws/a.py")

// fixtureRequest builds a request over two published violations: a safely
// fixable unused import on line 1 and an unfixable long line on line 9.
func fixtureRequest(s settings.Settings) Request {
	violations := []diag.Violation{
		{
			Code:        "F401",
			Message:     "`os` imported but unused",
			Location:    diag.Location{Row: 1, Column: 8},
			EndLocation: diag.Location{Row: 1, Column: 10},
			Fix: &diag.Fix{
				Applicability: "safe",
				Message:       "Remove unused import: `os`",
				Edits: []diag.Edit{{
					Content:     "",
					Location:    diag.Location{Row: 1, Column: 0},
					EndLocation: diag.Location{Row: 2, Column: 0},
				}},
			},
			NoqaRow: 1,
		},
		{
			Code:        "E501",
			Message:     "Line too long",
			Location:    diag.Location{Row: 9, Column: 89},
			EndLocation: diag.Location{Row: 9, Column: 121},
			NoqaRow:     9,
		},
	}
	lines := map[int]string{1: "import os", 9: "x = 1  # a very long line"}

	var context []protocol.Diagnostic
	for _, v := range violations {
		context = append(context, v.Diagnostic())
	}

	return Request{
		URI:      testURI,
		Version:  4,
		Settings: s,
		Context:  protocol.CodeActionContext{Diagnostics: context},
		LineAt:   func(row int) string { return lines[row] },
		Lookup: func(code string, rng protocol.Range) (diag.Violation, bool) {
			for _, v := range violations {
				if v.Code == code && v.Range() == rng {
					return v, true
				}
			}
			return diag.Violation{}, false
		},
		SafeFixes: func() []diag.Violation {
			return violations[:1]
		},
	}
}

func titles(actions []protocol.CodeAction) []string {
	var out []string
	for _, a := range actions {
		out = append(out, a.Title)
	}
	return out
}

func TestSynthesizeFullSet(t *testing.T) {
	actions := Synthesize(fixtureRequest(settings.Defaults()))
	assert.Equal(t, []string{
		"Ruff (F401): Remove unused import: `os`",
		"Ruff: Fix All",
		"Ruff: Organize Imports",
		"Ruff (F401): Disable for this line",
		"Ruff (E501): Disable for this line",
	}, titles(actions))
}

func TestSynthesizeQuickFixEdit(t *testing.T) {
	actions := Synthesize(fixtureRequest(settings.Defaults()))
	fix := actions[0]

	assert.Equal(t, protocol.KindQuickFix, fix.Kind)
	require.NotNil(t, fix.Edit)
	require.Len(t, fix.Edit.DocumentChanges, 1)
	change := fix.Edit.DocumentChanges[0]
	assert.Equal(t, testURI, change.TextDocument.URI)
	require.NotNil(t, change.TextDocument.Version)
	assert.Equal(t, int32(4), *change.TextDocument.Version)
	require.Len(t, change.Edits, 1)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End:   protocol.Position{Line: 1, Character: 0},
	}, change.Edits[0].Range)
	assert.Equal(t, "", change.Edits[0].NewText)
	require.Len(t, fix.Diagnostics, 1)
	assert.Equal(t, "F401", fix.Diagnostics[0].Code)
}

func TestSynthesizeDisableRuleComment(t *testing.T) {
	actions := Synthesize(fixtureRequest(settings.Defaults()))
	var disable *protocol.CodeAction
	for i := range actions {
		if actions[i].Title == "Ruff (E501): Disable for this line" {
			disable = &actions[i]
		}
	}
	require.NotNil(t, disable)
	require.NotNil(t, disable.Edit)
	edit := disable.Edit.DocumentChanges[0].Edits[0]
	assert.Equal(t, uint32(8), edit.Range.Start.Line)
	assert.Equal(t, "x = 1  # a very long line  # noqa: E501", edit.NewText)
}

func TestSynthesizeFixAllAggregatesSafeFixes(t *testing.T) {
	actions := Synthesize(fixtureRequest(settings.Defaults()))
	require.True(t, len(actions) > 1)
	all := actions[1]

	assert.Equal(t, protocol.KindSourceFixAll, all.Kind)
	require.NotNil(t, all.Edit)
	require.Len(t, all.Edit.DocumentChanges, 1)
	assert.Len(t, all.Edit.DocumentChanges[0].Edits, 1)
	// Only the fixable diagnostic is listed as addressed.
	require.Len(t, all.Diagnostics, 1)
	assert.Equal(t, "F401", all.Diagnostics[0].Code)
}

func TestSynthesizeSettingsDisable(t *testing.T) {
	s := settings.Defaults()
	s.FixViolationEnable = false
	s.DisableRuleCommentEnable = false
	s.OrganizeImports = false
	s.FixAll = false

	actions := Synthesize(fixtureRequest(s))
	assert.Empty(t, actions)
}

func TestSynthesizeUnsafeFixGate(t *testing.T) {
	s := settings.Defaults()
	req := fixtureRequest(s)

	// Make the only fix unsafe: with the gate closed it is not offered.
	unsafe := fixtureRequest(s)
	lookup := req.Lookup
	unsafe.Lookup = func(code string, rng protocol.Range) (diag.Violation, bool) {
		v, ok := lookup(code, rng)
		if ok && v.Fix != nil {
			v.Fix = &diag.Fix{Applicability: "unsafe", Message: v.Fix.Message, Edits: v.Fix.Edits}
		}
		return v, ok
	}
	actions := Synthesize(unsafe)
	assert.NotContains(t, titles(actions), "Ruff (F401): Remove unused import: `os`")

	// Opting in to unsafe fixes restores it.
	unsafe.Settings.FixViolationUnsafe = true
	actions = Synthesize(unsafe)
	assert.Contains(t, titles(actions), "Ruff (F401): Remove unused import: `os`")
}

func TestSynthesizeOnlyFilter(t *testing.T) {
	req := fixtureRequest(settings.Defaults())
	req.Context.Only = []protocol.CodeActionKind{protocol.KindSourceOrganizeImports}
	actions := Synthesize(req)
	require.Len(t, actions, 1)
	assert.Equal(t, "Ruff: Organize Imports", actions[0].Title)
	assert.Equal(t, protocol.KindSourceOrganizeImports, actions[0].Kind)
	// The edit is deferred to codeAction/resolve.
	assert.Nil(t, actions[0].Edit)

	req.Context.Only = []protocol.CodeActionKind{protocol.KindSourceFixAllScoped}
	actions = Synthesize(req)
	require.Len(t, actions, 1)
	assert.Equal(t, protocol.KindSourceFixAllScoped, actions[0].Kind)

	req.Context.Only = []protocol.CodeActionKind{protocol.KindQuickFix}
	actions = Synthesize(req)
	assert.Equal(t, []string{
		"Ruff (F401): Remove unused import: `os`",
		"Ruff (F401): Disable for this line",
		"Ruff (E501): Disable for this line",
	}, titles(actions))
}

package codeaction

import (
	"encoding/json"
	"fmt"

	"github.com/ruffd-lsp/ruffd/diag"
	"github.com/ruffd-lsp/ruffd/protocol"
	"github.com/ruffd-lsp/ruffd/settings"
)

// Request carries everything needed to synthesize code actions for one
// textDocument/codeAction request. The callbacks read server-side state so
// synthesis itself stays pure and testable.
type Request struct {
	URI      protocol.DocumentURI
	Version  int32
	Settings settings.Settings
	Context  protocol.CodeActionContext

	// LineAt returns the text of a 1-based source line.
	LineAt func(row int) string
	// Lookup recovers the published violation behind a context diagnostic.
	Lookup func(code string, rng protocol.Range) (diag.Violation, bool)
	// SafeFixes lists published violations whose fixes are safe to apply.
	SafeFixes func() []diag.Violation
}

// Synthesize builds the code actions for a request, in a fixed order: quick
// fixes per violation, then fix-all, organize-imports, and the per-violation
// suppression comments. Source actions carry the document URI in their data
// field; their edits are filled in by codeAction/resolve (organize-imports
// needs an engine run).
func Synthesize(req Request) []protocol.CodeAction {
	var actions []protocol.CodeAction

	s := req.Settings
	if s.FixViolationEnable && wantsKind(req.Context.Only, protocol.KindQuickFix) {
		actions = append(actions, quickFixes(req)...)
	}
	if s.FixAll {
		if kind, ok := sourceKind(req.Context.Only, protocol.KindSourceFixAll, protocol.KindSourceFixAllScoped); ok {
			if action := fixAll(req, kind); action != nil {
				actions = append(actions, *action)
			}
		}
	}
	if s.OrganizeImports {
		if kind, ok := sourceKind(req.Context.Only, protocol.KindSourceOrganizeImports, protocol.KindSourceOrganizeImportsScoped); ok {
			actions = append(actions, protocol.CodeAction{
				Title: "Ruff: Organize Imports",
				Kind:  kind,
				Data:  uriData(req.URI),
			})
		}
	}
	if s.DisableRuleCommentEnable && wantsKind(req.Context.Only, protocol.KindQuickFix) {
		actions = append(actions, disableRuleComments(req)...)
	}
	return actions
}

func quickFixes(req Request) []protocol.CodeAction {
	var actions []protocol.CodeAction
	for _, d := range req.Context.Diagnostics {
		if d.Source != diag.Source {
			continue
		}
		code, _ := d.Code.(string)
		v, ok := req.Lookup(code, d.Range)
		if !ok || v.Fix == nil {
			continue
		}
		if !v.Fix.Safe() && !req.Settings.FixViolationUnsafe {
			continue
		}

		var title string
		switch {
		case v.Fix.Message != "":
			title = fmt.Sprintf("Ruff (%s): %s", v.Code, v.Fix.Message)
		case v.Code != "":
			title = fmt.Sprintf("Ruff: Fix %s", v.Code)
		default:
			title = "Ruff: Fix"
		}

		actions = append(actions, protocol.CodeAction{
			Title:       title,
			Kind:        protocol.KindQuickFix,
			Diagnostics: []protocol.Diagnostic{d},
			Edit:        FixWorkspaceEdit(req.URI, req.Version, v.Fix),
			Data:        uriData(req.URI),
		})
	}
	return actions
}

func disableRuleComments(req Request) []protocol.CodeAction {
	var actions []protocol.CodeAction
	for _, d := range req.Context.Diagnostics {
		if d.Source != diag.Source {
			continue
		}
		code, _ := d.Code.(string)
		v, ok := req.Lookup(code, d.Range)
		if !ok || v.NoqaRow <= 0 {
			continue
		}

		edit := NoqaEdit(req.LineAt(v.NoqaRow), v.NoqaRow, v.Code)
		actions = append(actions, protocol.CodeAction{
			Title:       fmt.Sprintf("Ruff (%s): Disable for this line", v.Code),
			Kind:        protocol.KindQuickFix,
			Diagnostics: []protocol.Diagnostic{d},
			Edit: &protocol.WorkspaceEdit{
				DocumentChanges: []protocol.TextDocumentEdit{{
					TextDocument: protocol.OptionalVersionedTextDocumentIdentifier{
						TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: req.URI},
						Version:                versionPtr(req.Version),
					},
					Edits: []protocol.TextEdit{edit},
				}},
			},
			Data: uriData(req.URI),
		})
	}
	return actions
}

func fixAll(req Request, kind protocol.CodeActionKind) *protocol.CodeAction {
	safe := req.SafeFixes()
	if len(safe) == 0 {
		return nil
	}

	var edits []protocol.TextEdit
	for _, v := range safe {
		edits = append(edits, fixEdits(v.Fix)...)
	}

	var fixed []protocol.Diagnostic
	for _, d := range req.Context.Diagnostics {
		if d.Source != diag.Source {
			continue
		}
		code, _ := d.Code.(string)
		if v, ok := req.Lookup(code, d.Range); ok && v.Fix != nil {
			fixed = append(fixed, d)
		}
	}

	return &protocol.CodeAction{
		Title:       "Ruff: Fix All",
		Kind:        kind,
		Diagnostics: fixed,
		Edit: &protocol.WorkspaceEdit{
			DocumentChanges: []protocol.TextDocumentEdit{{
				TextDocument: protocol.OptionalVersionedTextDocumentIdentifier{
					TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: req.URI},
					Version:                versionPtr(req.Version),
				},
				Edits: edits,
			}},
		},
		Data: uriData(req.URI),
	}
}

// FixWorkspaceEdit wraps a violation's fix as a versioned workspace edit.
func FixWorkspaceEdit(uri protocol.DocumentURI, version int32, fix *diag.Fix) *protocol.WorkspaceEdit {
	return &protocol.WorkspaceEdit{
		DocumentChanges: []protocol.TextDocumentEdit{{
			TextDocument: protocol.OptionalVersionedTextDocumentIdentifier{
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
				Version:                versionPtr(version),
			},
			Edits: fixEdits(fix),
		}},
	}
}

// fixEdits converts engine fix edits (1-based rows, 0-based columns) to LSP
// text edits.
func fixEdits(fix *diag.Fix) []protocol.TextEdit {
	edits := make([]protocol.TextEdit, 0, len(fix.Edits))
	for _, e := range fix.Edits {
		edits = append(edits, protocol.TextEdit{
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(e.Location.Row - 1), Character: uint32(e.Location.Column)},
				End:   protocol.Position{Line: uint32(e.EndLocation.Row - 1), Character: uint32(e.EndLocation.Column)},
			},
			NewText: e.Content,
		})
	}
	return edits
}

// wantsKind reports whether the client's `only` filter allows a kind.
func wantsKind(only []protocol.CodeActionKind, kind protocol.CodeActionKind) bool {
	if len(only) == 0 {
		return true
	}
	for _, k := range only {
		if k == kind {
			return true
		}
	}
	return false
}

// sourceKind picks which variant of a source action to emit: the scoped kind
// when that is what the client asked for, the plain kind otherwise.
func sourceKind(only []protocol.CodeActionKind, plain, scoped protocol.CodeActionKind) (protocol.CodeActionKind, bool) {
	if wantsKind(only, scoped) && len(only) > 0 {
		return scoped, true
	}
	if wantsKind(only, plain) {
		return plain, true
	}
	return "", false
}

func uriData(uri protocol.DocumentURI) json.RawMessage {
	data, _ := json.Marshal(string(uri))
	return data
}

func versionPtr(v int32) *int32 { return &v }

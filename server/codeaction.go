package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ruffd-lsp/ruffd/codeaction"
	"github.com/ruffd-lsp/ruffd/diag"
	"github.com/ruffd-lsp/ruffd/document"
	"github.com/ruffd-lsp/ruffd/jsonrpc"
	"github.com/ruffd-lsp/ruffd/protocol"
)

func (s *Server) handleCodeAction(ctx context.Context, raw jsonrpc.RawMessage) (interface{}, error) {
	var params protocol.CodeActionParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	uri := params.TextDocument.URI
	doc := s.store.Get(uri)
	if doc == nil {
		return nil, nil
	}

	set := s.documentSettings(uri)
	if !set.LintEnable {
		// Without lint results there are no violations to fix or suppress.
		set.FixViolationEnable = false
		set.FixAll = false
		set.DisableRuleCommentEnable = false
	}

	req := codeaction.Request{
		URI:      uri,
		Version:  doc.Version(),
		Settings: set,
		Context:  params.Context,
		LineAt: func(row int) string {
			return doc.LineAt(uint32(row - 1))
		},
		Lookup: func(code string, rng protocol.Range) (diag.Violation, bool) {
			return s.registry.Lookup(uri, doc.Version(), code, rng)
		},
		SafeFixes: func() []diag.Violation {
			return s.registry.SafeFixes(uri, doc.Version())
		},
	}
	actions := codeaction.Synthesize(req)

	if !s.resolveCapable {
		actions = s.resolveInline(ctx, actions)
	}
	return actions, nil
}

// resolveInline fills deferred edits for clients without codeAction/resolve
// support. Only organize-imports actions defer their edit; it needs an
// engine run.
func (s *Server) resolveInline(ctx context.Context, actions []protocol.CodeAction) []protocol.CodeAction {
	out := actions[:0]
	for _, action := range actions {
		if action.Edit != nil || !isOrganizeImports(action.Kind) {
			out = append(out, action)
			continue
		}
		uri, ok := actionURI(action)
		if !ok {
			continue
		}
		edit, err := s.fixDocumentEdit(ctx, uri, ruleOrganizeImports)
		if err != nil {
			s.logger.Warn("organize imports", "uri", uri, "error", err)
			continue
		}
		action.Edit = edit
		out = append(out, action)
	}
	return out
}

func (s *Server) handleCodeActionResolve(ctx context.Context, raw jsonrpc.RawMessage) (interface{}, error) {
	var action protocol.CodeAction
	if err := unmarshalParams(raw, &action); err != nil {
		return nil, err
	}
	if action.Edit != nil {
		return action, nil
	}
	uri, ok := actionURI(action)
	if !ok {
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: "code action carries no document"}
	}

	var only string
	switch {
	case isOrganizeImports(action.Kind):
		only = ruleOrganizeImports
	case isFixAll(action.Kind):
	default:
		return action, nil
	}

	edit, err := s.fixDocumentEdit(ctx, uri, only)
	if err != nil {
		if errors.Is(err, document.ErrStaleVersion) {
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeContentModified, Message: "document changed before the action resolved"}
		}
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeInternalError, Message: "resolving code action: " + err.Error()}
	}
	action.Edit = edit
	return action, nil
}

func isOrganizeImports(kind protocol.CodeActionKind) bool {
	return kind == protocol.KindSourceOrganizeImports || kind == protocol.KindSourceOrganizeImportsScoped
}

func isFixAll(kind protocol.CodeActionKind) bool {
	return kind == protocol.KindSourceFixAll || kind == protocol.KindSourceFixAllScoped
}

// actionURI recovers the document URI a source action was created for.
func actionURI(action protocol.CodeAction) (protocol.DocumentURI, bool) {
	if len(action.Data) == 0 {
		return "", false
	}
	var uri string
	if err := json.Unmarshal(action.Data, &uri); err != nil || uri == "" {
		return "", false
	}
	return protocol.DocumentURI(uri), true
}

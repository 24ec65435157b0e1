package server

import (
	"context"

	"github.com/ruffd-lsp/ruffd/codeaction"
	"github.com/ruffd-lsp/ruffd/engine"
	"github.com/ruffd-lsp/ruffd/jsonrpc"
	"github.com/ruffd-lsp/ruffd/protocol"
)

// handleHover explains the rule code under the cursor when it sits inside a
// noqa comment. Everything else returns no hover.
func (s *Server) handleHover(ctx context.Context, raw jsonrpc.RawMessage) (interface{}, error) {
	var params protocol.HoverParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	doc := s.store.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}

	line := doc.LineAt(params.Position.Line)
	lineStart := doc.OffsetAt(protocol.Position{Line: params.Position.Line})
	offset := doc.OffsetAt(params.Position) - lineStart
	code, ok := codeaction.NoqaCodeAt(line, offset)
	if !ok {
		return nil, nil
	}

	set := s.documentSettings(doc.URI())
	exe, err := s.locator.Find(set, engine.MinLinterVersion)
	if err != nil {
		s.logger.Debug("hover", "error", err)
		return nil, nil
	}
	result, err := s.runner.Run(ctx, exe.Path, []string{"--explain", code}, set.CWD, "")
	if err != nil || result.ExitCode != 0 || len(result.Stdout) == 0 {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: string(result.Stdout),
		},
	}, nil
}

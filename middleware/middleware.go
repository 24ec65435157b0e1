// Package middleware wraps the server's JSON-RPC handlers with cross-cutting
// behavior: request logging, panic recovery, and per-method telemetry.
package middleware

import (
	"context"

	"github.com/ruffd-lsp/ruffd/jsonrpc"
)

// Handler processes a JSON-RPC method call and returns a result.
type Handler func(ctx context.Context, method string, params jsonrpc.RawMessage) (interface{}, error)

// Middleware wraps a Handler to add cross-cutting behavior.
type Middleware func(Handler) Handler

// Chain composes middleware into one. The first element is the outermost
// wrapper and runs first.
func Chain(mws ...Middleware) Middleware {
	return func(next Handler) Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

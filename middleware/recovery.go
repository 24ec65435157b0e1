package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/ruffd-lsp/ruffd/jsonrpc"
)

// Recovery returns middleware that turns a handler panic into an internal
// error response, keeping the connection alive. The stack trace goes to the
// log; the client sees only the panic value. A nil logger falls back to
// slog.Default.
func Recovery(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, method string, params jsonrpc.RawMessage) (result interface{}, err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				logger.Error("handler panicked",
					"method", method,
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()),
				)
				result = nil
				err = &jsonrpc.Error{
					Code:    jsonrpc.CodeInternalError,
					Message: fmt.Sprintf("internal error: %v", r),
				}
			}()
			return next(ctx, method, params)
		}
	}
}

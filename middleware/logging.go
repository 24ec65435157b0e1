package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ruffd-lsp/ruffd/jsonrpc"
)

// Logging returns middleware that records each handled method with its
// duration. Failures log at error level, except cancellations: those are
// routine while the user is typing and stay at debug.
func Logging(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, method string, params jsonrpc.RawMessage) (interface{}, error) {
			start := time.Now()
			result, err := next(ctx, method, params)

			level := slog.LevelDebug
			msg := "request handled"
			attrs := []slog.Attr{
				slog.String("method", method),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				msg = "request failed"
				level = slog.LevelError
				var rpcErr *jsonrpc.Error
				if errors.As(err, &rpcErr) && rpcErr.Code == jsonrpc.CodeRequestCancelled {
					level = slog.LevelDebug
				}
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			logger.LogAttrs(ctx, level, msg, attrs...)
			return result, err
		}
	}
}

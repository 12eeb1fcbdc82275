package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/pickbasic-lsp/pickhost/jsonrpc"
)

// Logging returns middleware that records each server-to-client message:
// the method, the payload size, how long the client took to handle it, and
// the error if handling failed.
func Logging(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, method string, params jsonrpc.RawMessage) (interface{}, error) {
			start := time.Now()
			result, err := next(ctx, method, params)

			args := []any{
				"method", method,
				"bytes", len(params),
				"elapsed", time.Since(start),
			}
			if err != nil {
				logger.Log(ctx, slog.LevelError, "server message failed", append(args, "error", err)...)
			} else {
				logger.Log(ctx, slog.LevelDebug, "server message handled", args...)
			}
			return result, err
		}
	}
}

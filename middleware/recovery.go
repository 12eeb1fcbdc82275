package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/pickbasic-lsp/pickhost/jsonrpc"
)

// Recovery returns middleware that converts a panic in a client handler
// into an internal-error response. The session must outlive a bad handler:
// the server keeps running and only the one message fails. The panic value
// and stack go to the logger, not to the server.
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
				logger.Error("client handler panicked",
					"method", method,
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()),
				)
				result = nil
				err = &jsonrpc.Error{
					Code:    jsonrpc.CodeInternalError,
					Message: fmt.Sprintf("internal error handling %s: %v", method, r),
				}
			}()
			return next(ctx, method, params)
		}
	}
}

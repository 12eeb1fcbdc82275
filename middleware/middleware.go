// Package middleware provides composable middleware for the client's
// incoming message path. Everything the server sends back (publishDiagnostics,
// logMessage, registerCapability) flows through the chain, so cross-cutting
// concerns like logging and panic recovery apply uniformly.
package middleware

import (
	"context"

	"github.com/pickbasic-lsp/pickhost/jsonrpc"
)

// Handler processes an incoming JSON-RPC method and returns a result.
// Notifications discard the result.
type Handler func(ctx context.Context, method string, params jsonrpc.RawMessage) (interface{}, error)

// Middleware wraps a Handler to add cross-cutting behavior.
type Middleware func(Handler) Handler

// Chain composes multiple middleware into one. The first middleware in the
// slice is the outermost wrapper (executes first).
func Chain(mws ...Middleware) Middleware {
	return func(next Handler) Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

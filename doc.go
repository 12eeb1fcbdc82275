// Package pickhost is an LSP client host for the Pick BASIC language
// server. It launches the server as a Python subprocess (python3 -m
// pickbasic_lsp) over stdio, performs the initialize handshake, keeps open
// documents in sync with full-text changes, forwards workspace file events,
// and caches published diagnostics.
//
// The typical embedding activates a single session per process:
//
//	session, err := pickhost.Activate(ctx, workspaceRoot)
//	if err != nil { ... }
//	defer pickhost.Deactivate(ctx)
//
//	session.OpenDocument(ctx, "/ws/INVOICE.bp")
//	diags, _ := session.Diagnostics().Wait(ctx, uri)
package pickhost

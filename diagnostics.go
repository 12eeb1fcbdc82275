package pickhost

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pickbasic-lsp/pickhost/protocol"
)

// Diagnostics caches the latest published diagnostics per document and lets
// callers wait for the next publication on a URI.
type Diagnostics struct {
	mu      sync.Mutex
	byURI   map[protocol.DocumentURI][]protocol.Diagnostic
	waiters map[protocol.DocumentURI][]chan []protocol.Diagnostic
}

// NewDiagnostics creates an empty diagnostics cache.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{
		byURI:   make(map[protocol.DocumentURI][]protocol.Diagnostic),
		waiters: make(map[protocol.DocumentURI][]chan []protocol.Diagnostic),
	}
}

// Publish stores the diagnostics for a URI and wakes any waiters. An empty
// list clears previous diagnostics, which is how the server retracts them.
func (d *Diagnostics) Publish(params protocol.PublishDiagnosticsParams) {
	d.mu.Lock()
	d.byURI[params.URI] = params.Diagnostics
	waiters := d.waiters[params.URI]
	delete(d.waiters, params.URI)
	d.mu.Unlock()

	for _, ch := range waiters {
		ch <- params.Diagnostics
	}
}

// Get returns the cached diagnostics for a URI.
func (d *Diagnostics) Get(uri protocol.DocumentURI) []protocol.Diagnostic {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byURI[uri]
}

// URIs returns every URI with cached diagnostics, including empty lists.
func (d *Diagnostics) URIs() []protocol.DocumentURI {
	d.mu.Lock()
	defer d.mu.Unlock()
	uris := make([]protocol.DocumentURI, 0, len(d.byURI))
	for uri := range d.byURI {
		uris = append(uris, uri)
	}
	return uris
}

// Forget drops the cached diagnostics for a URI, typically after the
// document closes.
func (d *Diagnostics) Forget(uri protocol.DocumentURI) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.byURI, uri)
}

// Wait blocks until the server publishes diagnostics for uri or the context
// is done. It returns the freshly published list, not the cached one.
func (d *Diagnostics) Wait(ctx context.Context, uri protocol.DocumentURI) ([]protocol.Diagnostic, error) {
	ch := make(chan []protocol.Diagnostic, 1)
	d.mu.Lock()
	d.waiters[uri] = append(d.waiters[uri], ch)
	d.mu.Unlock()

	select {
	case diags := <-ch:
		return diags, nil
	case <-ctx.Done():
		d.mu.Lock()
		remaining := d.waiters[uri][:0]
		for _, w := range d.waiters[uri] {
			if w != ch {
				remaining = append(remaining, w)
			}
		}
		d.waiters[uri] = remaining
		d.mu.Unlock()
		return nil, ctx.Err()
	}
}

// FormatDiagnostic renders one diagnostic as "line:col severity: message",
// with one-based positions.
func FormatDiagnostic(diag protocol.Diagnostic) string {
	sev := "error"
	switch diag.Severity {
	case protocol.SeverityWarning:
		sev = "warning"
	case protocol.SeverityInformation:
		sev = "info"
	case protocol.SeverityHint:
		sev = "hint"
	}
	return fmt.Sprintf("%d:%d %s: %s",
		diag.Range.Start.Line+1, diag.Range.Start.Character+1, sev, diag.Message)
}

// FormatDiagnostics renders a diagnostic list one per line.
func FormatDiagnostics(diags []protocol.Diagnostic) string {
	var b strings.Builder
	for i, diag := range diags {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(FormatDiagnostic(diag))
	}
	return b.String()
}

package pickhost

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pickbasic-lsp/pickhost/protocol"
)

func TestPublishReplacesAndClears(t *testing.T) {
	d := NewDiagnostics()
	uri := protocol.DocumentURI("file:///ws/INVOICE.bp")

	d.Publish(protocol.PublishDiagnosticsParams{URI: uri, Diagnostics: []protocol.Diagnostic{
		{Message: "first"},
	}})
	require.Len(t, d.Get(uri), 1)

	// An empty publication retracts previous diagnostics.
	d.Publish(protocol.PublishDiagnosticsParams{URI: uri, Diagnostics: []protocol.Diagnostic{}})
	assert.Empty(t, d.Get(uri))
	assert.Contains(t, d.URIs(), uri)

	d.Forget(uri)
	assert.NotContains(t, d.URIs(), uri)
}

func TestWaitReturnsFreshPublication(t *testing.T) {
	d := NewDiagnostics()
	uri := protocol.DocumentURI("file:///ws/INVOICE.bp")

	go func() {
		time.Sleep(20 * time.Millisecond)
		d.Publish(protocol.PublishDiagnosticsParams{URI: uri, Diagnostics: []protocol.Diagnostic{
			{Message: "late"},
		}})
	}()

	diags, err := d.Wait(context.Background(), uri)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "late", diags[0].Message)
}

func TestWaitHonorsContext(t *testing.T) {
	d := NewDiagnostics()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.Wait(ctx, "file:///ws/NEVER.bp")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFormatDiagnostics(t *testing.T) {
	diags := []protocol.Diagnostic{
		{
			Range:    protocol.Range{Start: protocol.Position{Line: 0, Character: 4}},
			Severity: protocol.SeverityError,
			Message:  "unterminated string",
		},
		{
			Range:    protocol.Range{Start: protocol.Position{Line: 9, Character: 0}},
			Severity: protocol.SeverityWarning,
			Message:  "unreachable code",
		},
	}

	out := FormatDiagnostics(diags)
	assert.Equal(t, "1:5 error: unterminated string\n10:1 warning: unreachable code", out)
}

package pickhost

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pickbasic-lsp/pickhost/config"
	"github.com/pickbasic-lsp/pickhost/jsonrpc"
	"github.com/pickbasic-lsp/pickhost/lsptest"
	"github.com/pickbasic-lsp/pickhost/protocol"
)

func TestHover(t *testing.T) {
	server := lsptest.NewServer(t)
	server.HandleResult(protocol.MethodHover, protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: "**READ** statement"},
	})
	session := startSession(t, server)

	hover, err := session.Hover(context.Background(), lsptest.FileURI("/ws/INVOICE.bp"), lsptest.Pos(2, 0))
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Equal(t, "**READ** statement", hover.Contents.Value)
}

func TestHoverNullResult(t *testing.T) {
	server := lsptest.NewServer(t)
	server.HandleResult(protocol.MethodHover, nil)
	session := startSession(t, server)

	hover, err := session.Hover(context.Background(), lsptest.FileURI("/ws/INVOICE.bp"), lsptest.Pos(0, 0))
	require.NoError(t, err)
	assert.Nil(t, hover)
}

func TestCompletionDecodesListAndArray(t *testing.T) {
	server := lsptest.NewServer(t)
	session := startSession(t, server)
	uri := lsptest.FileURI("/ws/INVOICE.bp")

	server.HandleResult(protocol.MethodCompletion, protocol.CompletionList{
		IsIncomplete: true,
		Items:        []protocol.CompletionItem{{Label: "READNEXT"}},
	})
	list, err := session.Completion(context.Background(), uri, lsptest.Pos(1, 5), "")
	require.NoError(t, err)
	assert.True(t, list.IsIncomplete)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "READNEXT", list.Items[0].Label)

	// Servers may answer with a bare item array.
	server.HandleResult(protocol.MethodCompletion, []protocol.CompletionItem{
		{Label: "OCONV"}, {Label: "ICONV"},
	})
	list, err = session.Completion(context.Background(), uri, lsptest.Pos(1, 5), ".")
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)
}

func TestCompletionSendsTriggerContext(t *testing.T) {
	server := lsptest.NewServer(t)
	server.Handle(protocol.MethodCompletion, func(params jsonrpc.RawMessage) (interface{}, error) {
		var p protocol.CompletionParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		if p.Context == nil || p.Context.TriggerCharacter != "." {
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: "missing trigger"}
		}
		return protocol.CompletionList{}, nil
	})
	session := startSession(t, server)

	_, err := session.Completion(context.Background(), lsptest.FileURI("/ws/A.bp"), lsptest.Pos(0, 3), ".")
	assert.NoError(t, err)
}

func TestDefinitionDecodesSingleLocation(t *testing.T) {
	server := lsptest.NewServer(t)
	session := startSession(t, server)
	uri := lsptest.FileURI("/ws/INVOICE.bp")
	target := protocol.Location{URI: uri, Range: lsptest.Rng(10, 0, 10, 8)}

	server.HandleResult(protocol.MethodDefinition, target)
	locs, err := session.Definition(context.Background(), uri, lsptest.Pos(3, 6))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, target, locs[0])

	server.HandleResult(protocol.MethodDefinition, []protocol.Location{target, target})
	locs, err = session.Definition(context.Background(), uri, lsptest.Pos(3, 6))
	require.NoError(t, err)
	assert.Len(t, locs, 2)
}

func TestReferences(t *testing.T) {
	server := lsptest.NewServer(t)
	server.Handle(protocol.MethodReferences, func(params jsonrpc.RawMessage) (interface{}, error) {
		var p protocol.ReferenceParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		if !p.Context.IncludeDeclaration {
			return []protocol.Location{}, nil
		}
		return []protocol.Location{{URI: p.TextDocument.URI, Range: lsptest.Rng(0, 0, 0, 5)}}, nil
	})
	session := startSession(t, server)
	uri := lsptest.FileURI("/ws/INVOICE.bp")

	locs, err := session.References(context.Background(), uri, lsptest.Pos(5, 2), true)
	require.NoError(t, err)
	assert.Len(t, locs, 1)

	locs, err = session.References(context.Background(), uri, lsptest.Pos(5, 2), false)
	require.NoError(t, err)
	assert.Empty(t, locs)
}

func TestDocumentSymbols(t *testing.T) {
	server := lsptest.NewServer(t)
	server.HandleResult(protocol.MethodDocumentSymbol, []protocol.DocumentSymbol{
		{Name: "INVOICE", Kind: protocol.SymbolModule},
		{Name: "READ.CUSTOMER", Kind: protocol.SymbolFunction},
	})
	session := startSession(t, server)

	symbols, err := session.DocumentSymbols(context.Background(), lsptest.FileURI("/ws/INVOICE.bp"))
	require.NoError(t, err)
	require.Len(t, symbols, 2)
	assert.Equal(t, "READ.CUSTOMER", symbols[1].Name)
}

func TestSemanticTokensFull(t *testing.T) {
	server := lsptest.NewServer(t)
	server.HandleResult(protocol.MethodSemanticTokensFull, protocol.SemanticTokens{
		Data: []uint32{0, 0, 7, 0, 0},
	})
	session := startSession(t, server)

	tokens, err := session.SemanticTokensFull(context.Background(), lsptest.FileURI("/ws/INVOICE.bp"))
	require.NoError(t, err)
	require.NotNil(t, tokens)
	assert.Equal(t, []uint32{0, 0, 7, 0, 0}, tokens.Data)
}

func TestRequestErrorsPropagate(t *testing.T) {
	server := lsptest.NewServer(t)
	server.Handle(protocol.MethodHover, func(jsonrpc.RawMessage) (interface{}, error) {
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeRequestFailed, Message: "parser unavailable"}
	})
	session := startSession(t, server)

	_, err := session.Hover(context.Background(), lsptest.FileURI("/ws/A.bp"), lsptest.Pos(0, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parser unavailable")
}

func TestRequestsRequireRunningSession(t *testing.T) {
	session, err := NewSession(t.TempDir(),
		WithConfig(config.Default()),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	_, err = session.Hover(context.Background(), lsptest.FileURI("/ws/A.bp"), lsptest.Pos(0, 0))
	assert.ErrorIs(t, err, ErrNotRunning)
}

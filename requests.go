package pickhost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/pickbasic-lsp/pickhost/protocol"
)

// call issues a request and decodes the result into out. A null result
// leaves out untouched, which the feature methods translate to nil.
func (s *Session) call(ctx context.Context, method string, params, out interface{}) error {
	conn, err := s.connection()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := conn.Call(ctx, method, params)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%s: %w", method, resp.Error)
	}
	if out == nil || len(resp.Result) == 0 || bytes.Equal(resp.Result, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}
	return nil
}

func positionParams(uri protocol.DocumentURI, pos protocol.Position) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Position:     pos,
	}
}

// Hover asks the server for hover content at a position. A nil result means
// the server has nothing to show there.
func (s *Session) Hover(ctx context.Context, uri protocol.DocumentURI, pos protocol.Position) (*protocol.Hover, error) {
	var result *protocol.Hover
	err := s.call(ctx, protocol.MethodHover,
		protocol.HoverParams{TextDocumentPositionParams: positionParams(uri, pos)}, &result)
	return result, err
}

// Completion asks the server for completions at a position. The server may
// answer with either a CompletionList or a bare item array; both decode
// into the returned list.
func (s *Session) Completion(ctx context.Context, uri protocol.DocumentURI, pos protocol.Position, trigger string) (*protocol.CompletionList, error) {
	params := protocol.CompletionParams{TextDocumentPositionParams: positionParams(uri, pos)}
	if trigger != "" {
		params.Context = &protocol.CompletionContext{
			TriggerKind:      protocol.TriggerCharacter,
			TriggerCharacter: trigger,
		}
	} else {
		params.Context = &protocol.CompletionContext{TriggerKind: protocol.Invoked}
	}

	var raw json.RawMessage
	if err := s.call(ctx, protocol.MethodCompletion, params, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return &protocol.CompletionList{}, nil
	}

	var list protocol.CompletionList
	if err := json.Unmarshal(raw, &list); err == nil {
		return &list, nil
	}
	var items []protocol.CompletionItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decoding completion result: %w", err)
	}
	return &protocol.CompletionList{Items: items}, nil
}

// Definition asks the server where the symbol at a position is defined.
func (s *Session) Definition(ctx context.Context, uri protocol.DocumentURI, pos protocol.Position) ([]protocol.Location, error) {
	var raw json.RawMessage
	if err := s.call(ctx, protocol.MethodDefinition,
		protocol.DefinitionParams{TextDocumentPositionParams: positionParams(uri, pos)}, &raw); err != nil {
		return nil, err
	}
	return decodeLocations(raw)
}

// References asks the server for every reference to the symbol at a position.
func (s *Session) References(ctx context.Context, uri protocol.DocumentURI, pos protocol.Position, includeDeclaration bool) ([]protocol.Location, error) {
	var locs []protocol.Location
	err := s.call(ctx, protocol.MethodReferences, protocol.ReferenceParams{
		TextDocumentPositionParams: positionParams(uri, pos),
		Context:                    protocol.ReferenceContext{IncludeDeclaration: includeDeclaration},
	}, &locs)
	return locs, err
}

// DocumentSymbols asks the server for the symbol outline of a document.
func (s *Session) DocumentSymbols(ctx context.Context, uri protocol.DocumentURI) ([]protocol.DocumentSymbol, error) {
	var symbols []protocol.DocumentSymbol
	err := s.call(ctx, protocol.MethodDocumentSymbol, protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}, &symbols)
	return symbols, err
}

// SemanticTokensFull asks the server for semantic tokens covering the whole
// document.
func (s *Session) SemanticTokensFull(ctx context.Context, uri protocol.DocumentURI) (*protocol.SemanticTokens, error) {
	var result *protocol.SemanticTokens
	err := s.call(ctx, protocol.MethodSemanticTokensFull, protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}, &result)
	return result, err
}

// decodeLocations accepts a single Location, a Location array, or null.
func decodeLocations(raw json.RawMessage) ([]protocol.Location, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var locs []protocol.Location
	if err := json.Unmarshal(raw, &locs); err == nil {
		return locs, nil
	}
	var single protocol.Location
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("decoding location result: %w", err)
	}
	return []protocol.Location{single}, nil
}

// Package document tracks the text documents a session has opened on the
// server. The session mirrors the editor's view of each file here so that
// didChange notifications carry correct version numbers and didClose is only
// sent for documents that are actually open.
package document

import (
	"sync"

	"github.com/pickbasic-lsp/pickhost/protocol"
)

// Document is one open text document as last sent to the server.
type Document struct {
	mu         sync.RWMutex
	uri        protocol.DocumentURI
	languageID string
	version    int32
	text       string
}

// New creates a Document at version 1 with the given initial content.
func New(uri protocol.DocumentURI, languageID, text string) *Document {
	return &Document{
		uri:        uri,
		languageID: languageID,
		version:    1,
		text:       text,
	}
}

// URI returns the document's URI.
func (d *Document) URI() protocol.DocumentURI {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.uri
}

// LanguageID returns the LSP language identifier (e.g., "pickbasic").
func (d *Document) LanguageID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.languageID
}

// Version returns the version last announced to the server.
func (d *Document) Version() int32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Text returns the full content last announced to the server.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// Item renders the document as an LSP TextDocumentItem for didOpen.
func (d *Document) Item() protocol.TextDocumentItem {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return protocol.TextDocumentItem{
		URI:        d.uri,
		LanguageID: d.languageID,
		Version:    d.version,
		Text:       d.text,
	}
}

// Replace swaps in new full content and returns the bumped version. The Pick
// BASIC server uses full-text sync, so there is no incremental edit path.
func (d *Document) Replace(text string) int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
	d.version++
	return d.version
}

package document

import (
	"sync"

	"github.com/pickbasic-lsp/pickhost/protocol"
)

// Store is a thread-safe set of the documents currently open on the server.
type Store struct {
	mu   sync.RWMutex
	docs map[protocol.DocumentURI]*Document
}

// NewStore creates a new empty document store.
func NewStore() *Store {
	return &Store{docs: make(map[protocol.DocumentURI]*Document)}
}

// Get returns the document for the given URI, or nil if it is not open.
func (s *Store) Get(uri protocol.DocumentURI) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri]
}

// Open records a newly opened document and returns it. Opening a URI that is
// already open replaces the tracked document.
func (s *Store) Open(uri protocol.DocumentURI, languageID, text string) *Document {
	doc := New(uri, languageID, text)
	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
	return doc
}

// Close forgets a document. It returns false if the URI was not open.
func (s *Store) Close(uri protocol.DocumentURI) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[uri]; !ok {
		return false
	}
	delete(s.docs, uri)
	return true
}

// URIs returns all open document URIs.
func (s *Store) URIs() []protocol.DocumentURI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uris := make([]protocol.DocumentURI, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	return uris
}

// Len returns the number of open documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

package pickhost

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/pickbasic-lsp/pickhost/protocol"
)

// DocumentFilter narrows the documents a client session manages. Empty
// fields match everything.
type DocumentFilter struct {
	Language string
	Scheme   string
	Pattern  string
}

// DocumentSelector is a set of filters; a document matches if any filter
// matches.
type DocumentSelector []DocumentFilter

// DefaultSelector matches on-disk Pick BASIC documents.
func DefaultSelector() DocumentSelector {
	return DocumentSelector{
		{Language: LanguageID, Scheme: "file"},
	}
}

// Matches reports whether the filter accepts a document with the given
// language ID and URI.
func (f DocumentFilter) Matches(languageID string, uri protocol.DocumentURI) bool {
	if f.Language != "" && f.Language != languageID {
		return false
	}
	if f.Scheme != "" && f.Scheme != uriScheme(uri) {
		return false
	}
	if f.Pattern != "" {
		ok, err := doublestar.Match(f.Pattern, uri.Path())
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// Matches reports whether any filter in the selector accepts the document.
func (s DocumentSelector) Matches(languageID string, uri protocol.DocumentURI) bool {
	for _, f := range s {
		if f.Matches(languageID, uri) {
			return true
		}
	}
	return false
}

func uriScheme(uri protocol.DocumentURI) string {
	for i := 0; i < len(uri); i++ {
		if uri[i] == ':' {
			return string(uri[:i])
		}
	}
	return ""
}

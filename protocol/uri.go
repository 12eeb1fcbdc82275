package protocol

import (
	"net/url"
	"path/filepath"
	"strings"
)

// URIFromPath converts a filesystem path to a file:// document URI.
func URIFromPath(path string) DocumentURI {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	abs = filepath.ToSlash(abs)
	if !strings.HasPrefix(abs, "/") {
		// Windows drive paths.
		abs = "/" + abs
	}
	u := url.URL{Scheme: "file", Path: abs}
	return DocumentURI(u.String())
}

// Path converts a file:// URI back to a filesystem path. Non-file URIs
// are returned unchanged.
func (u DocumentURI) Path() string {
	parsed, err := url.Parse(string(u))
	if err != nil || parsed.Scheme != "file" {
		return string(u)
	}
	return filepath.FromSlash(parsed.Path)
}

package protocol

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Path converts a file:// URI to a filesystem path. Non-file URIs (such as
// notebook cell URIs) return "".
func (u DocumentURI) Path() string {
	s := string(u)
	if !strings.HasPrefix(s, "file://") {
		return ""
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return strings.TrimPrefix(s, "file://")
	}
	p := parsed.Path
	// Windows drive paths arrive as /C:/...
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

// FileURI converts a filesystem path to a file:// URI.
func FileURI(path string) DocumentURI {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return DocumentURI("file://" + (&url.URL{Path: p}).EscapedPath())
}

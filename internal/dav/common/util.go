package common

import (
	"net/url"
	"path"
	"strings"
)

func TrimQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "W/")
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func SafeSegment(s string) bool {
	return s != "" && s != "." && !strings.Contains(s, "/") && !strings.Contains(s, "\\") && !strings.Contains(s, "..")
}

// JoinURL joins path elements under base, keeping a single leading slash.
// CollectionPath cleans p into an absolute collection path with a trailing
// slash.
func CollectionPath(p string) string {
	c := path.Clean("/" + p)
	if c == "/" {
		return c
	}
	return c + "/"
}

func JoinURL(base string, elems ...string) string {
	return path.Join(append([]string{"/", base}, elems...)...)
}

// Href escapes an absolute path for use in a DAV:href.
func Href(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}

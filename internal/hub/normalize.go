package hub

import (
	"net/url"
	"strings"
)

// NormalizeURL returns the canonical form of a link, used both as the
// duplicate key and as the stored url.
//
// Scheme and host are lower-cased, trailing slashes are removed from the
// path (down to "/", which is also what an empty path becomes) and the
// fragment and userinfo are dropped. Ports are kept as given. Path and query
// keep their case since ids in them are often case sensitive.
//
// Strings that don't parse as an absolute url are returned trimmed, as is.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host) // Port included, as given

	path := u.EscapedPath()
	switch {
	case path == "":
		path = "/"
	case strings.HasSuffix(path, "/"):
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(path)
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}

	return b.String()
}

// HasHTTPScheme reports if s starts with http:// or https://, in any case,
// ignoring surrounding whitespace.
func HasHTTPScheme(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

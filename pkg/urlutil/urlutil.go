package urlutil

import (
	"net/url"
	"strings"
)

// Canonicalize applies a deterministic normalization to an absolute URL,
// mapping equivalent spellings to a single representation.
//
// The normalization follows these rules:
//   - Scheme and host are lowercased (userinfo is left untouched)
//   - Default ports are omitted (:80 for http, :443 for https)
//   - Dot segments are removed; ".." above the root collapses to the root
//   - Repeated slashes in the path collapse to one
//   - An empty path becomes "/"
//   - The fragment is removed
//
// Percent-encoding is preserved byte for byte: nothing is decoded or
// re-encoded, so "%2F" and "/" stay distinct.
//
// Properties:
//   - Pure: no state, no memory
//   - Idempotent: Canonicalize(Canonicalize(u)) == Canonicalize(u)
func Canonicalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	ref, err := parseAbsolute(raw)
	if err != nil {
		return "", err
	}
	if ref.hasQuery && !validEscapes(ref.query) {
		return "", malformed(raw, ErrCauseInvalidEscape, nil)
	}

	scheme := lowerASCII(ref.scheme)

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(canonicalAuthority(scheme, ref.location))

	path := removeDotSegments(collapseSlashes(ref.rawPath()))
	if path == "" {
		path = "/"
	}
	b.WriteString(path)

	if ref.hasQuery && ref.query != "" {
		b.WriteByte('?')
		b.WriteString(ref.query)
	}
	return b.String(), nil
}

// parseAbsolute splits raw and checks that it is an absolute hierarchical URL.
// net/url is used for validation only; components are taken from the raw string.
func parseAbsolute(raw string) (reference, error) {
	if raw == "" {
		return reference{}, malformed(raw, ErrCauseUnparsable, nil)
	}
	if _, err := url.Parse(raw); err != nil {
		return reference{}, malformed(raw, ErrCauseUnparsable, err)
	}
	ref := parseReference(raw)
	if !ref.hasScheme {
		return reference{}, malformed(raw, ErrCauseMissingScheme, nil)
	}
	if !ref.hasLocation || hostOf(ref.location) == "" {
		return reference{}, malformed(raw, ErrCauseMissingHost, nil)
	}
	if !validEscapes(ref.rawPath()) {
		return reference{}, malformed(raw, ErrCauseInvalidEscape, nil)
	}
	return ref, nil
}

// canonicalAuthority lowercases the host and drops a default or empty port.
func canonicalAuthority(scheme, location string) string {
	userinfo := ""
	hostport := location
	if i := strings.LastIndexByte(location, '@'); i >= 0 {
		userinfo = location[:i+1]
		hostport = location[i+1:]
	}

	host, port := splitHostPort(hostport)
	host = lowerASCII(host)
	if port == "" || port == DefaultPort(scheme) {
		return userinfo + host
	}
	return userinfo + host + ":" + port
}

// splitHostPort separates an optional port, keeping IPv6 brackets on the host.
func splitHostPort(hostport string) (host, port string) {
	colon := strings.LastIndexByte(hostport, ':')
	if colon < 0 || colon < strings.LastIndexByte(hostport, ']') {
		return hostport, ""
	}
	return hostport[:colon], hostport[colon+1:]
}

func hostOf(location string) string {
	if i := strings.LastIndexByte(location, '@'); i >= 0 {
		location = location[i+1:]
	}
	host, _ := splitHostPort(location)
	return host
}

// DefaultPort returns the implicit port of scheme, or "" when it has none.
func DefaultPort(scheme string) string {
	switch lowerASCII(scheme) {
	case "http":
		return "80"
	case "https":
		return "443"
	default:
		return ""
	}
}

func collapseSlashes(path string) string {
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return path
}

// removeDotSegments removes "." and ".." segments from a path. A ".." that
// would climb above the root is discarded, so "/../g" becomes "/g".
func removeDotSegments(path string) string {
	for {
		i := strings.Index(path, "/./")
		if i < 0 {
			break
		}
		path = path[:i+1] + path[i+3:]
	}
	if strings.HasSuffix(path, "/.") {
		path = path[:len(path)-1]
	}

	searchFrom := 1
	for searchFrom < len(path) {
		rel := strings.Index(path[searchFrom:], "/../")
		if rel < 0 {
			break
		}
		i := searchFrom + rel
		segStart := strings.LastIndexByte(path[:i], '/') + 1
		if path[segStart:i] == ".." {
			searchFrom = i + 1
			continue
		}
		path = path[:segStart] + path[i+4:]
		searchFrom = 1
	}

	if strings.HasSuffix(path, "/..") {
		prefix := path[:len(path)-3]
		if slash := strings.LastIndexByte(prefix, '/'); slash >= 0 && prefix[slash+1:] != ".." {
			path = prefix[:slash+1]
		}
	}

	return removeLeadingDotDot(path)
}

// removeLeadingDotDot drops ".." segments that remain at the root.
func removeLeadingDotDot(path string) string {
	for strings.HasPrefix(path, "/../") {
		path = path[3:]
	}
	if path == "/.." {
		return "/"
	}
	return path
}

// lowerASCII converts ASCII characters to lowercase without allocating.
// This is faster than strings.ToLower for ASCII-only strings.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

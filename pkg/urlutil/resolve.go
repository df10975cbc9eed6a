package urlutil

import (
	"net/url"
	"strings"
)

// Resolve resolves ref against the absolute URL base following RFC 1808.
//
// Unlike a strict RFC 1808 reading, ".." segments that climb above the root
// are dropped: Resolve("http://a/b/c/d;p?q", "../../../g") is "http://a/g".
// Query and fragment of ref are kept opaque, so "g?y/./x" keeps "/./x".
func Resolve(base, ref string) (string, error) {
	base = strings.TrimSpace(base)
	ref = strings.TrimSpace(ref)

	if base == "" {
		return "", malformed(base, ErrCauseEmptyReference, nil)
	}
	if _, err := url.Parse(base); err != nil {
		return "", malformed(base, ErrCauseUnparsable, err)
	}
	if _, err := url.Parse(ref); err != nil {
		return "", malformed(ref, ErrCauseUnparsable, err)
	}

	b := parseReference(base)
	if !b.hasScheme {
		return "", malformed(base, ErrCauseMissingScheme, nil)
	}

	// an empty reference is the base document itself
	if ref == "" {
		return b.String(), nil
	}

	r := parseReference(ref)
	if r.hasScheme {
		return ref, nil
	}
	r.scheme = b.scheme
	r.hasScheme = true

	if r.hasLocation {
		return r.String(), nil
	}
	r.location = b.location
	r.hasLocation = b.hasLocation

	if r.hasPath && strings.HasPrefix(r.path, "/") {
		r.path = removeLeadingDotDot(r.path)
		return r.String(), nil
	}

	if !r.hasPath {
		r.path = b.path
		r.hasPath = b.hasPath
		if r.hasParams {
			return r.String(), nil
		}
		r.params = b.params
		r.hasParams = b.hasParams
		if r.hasQuery {
			return r.String(), nil
		}
		r.query = b.query
		r.hasQuery = b.hasQuery
		return r.String(), nil
	}

	dir := "/"
	if b.hasPath {
		dir = b.path[:strings.LastIndexByte(b.path, '/')+1]
	}
	r.path = removeDotSegments(dir + r.path)
	return r.String(), nil
}

package urlutil

import "strings"

// reference is a URL split into its RFC 1808 components. Each component keeps
// its raw bytes; the has* flags keep "absent" distinct from "present but empty",
// which the resolution algorithm depends on.
type reference struct {
	scheme   string
	location string
	path     string
	params   string
	query    string
	fragment string

	hasScheme   bool
	hasLocation bool
	hasPath     bool
	hasParams   bool
	hasQuery    bool
	hasFragment bool
}

// parseReference splits raw following RFC 1808 section 2.4: fragment first,
// then scheme, network location, query, parameters and finally the path.
func parseReference(raw string) reference {
	var ref reference
	start := 0
	end := len(raw)

	if i := indexBetween(raw, '#', start, end); i >= 0 {
		ref.fragment = raw[i+1 : end]
		ref.hasFragment = true
		end = i
	}

	if i := indexBetween(raw, ':', start, end); i > 0 {
		if scheme := raw[start:i]; isValidScheme(scheme) {
			ref.scheme = scheme
			ref.hasScheme = true
			start = i + 1
		}
	}

	locStart, locEnd := -1, -1
	if strings.HasPrefix(raw[start:end], "//") {
		locStart = start + 2
		locEnd = indexBetween(raw, '/', locStart, end)
		if q := indexBetween(raw, '?', locStart, end); q >= 0 && (locEnd < 0 || q < locEnd) {
			locEnd = q
		}
		if locEnd >= 0 {
			start = locEnd
		}
	}

	if i := indexBetween(raw, '?', start, end); i >= 0 {
		if locStart >= 0 && locEnd < 0 {
			locEnd = i
			start = i
		}
		ref.query = raw[i+1 : end]
		ref.hasQuery = true
		end = i
	}

	if i := indexBetween(raw, ';', start, end); i >= 0 {
		if locStart >= 0 && locEnd < 0 {
			locEnd = i
			start = i
		}
		ref.params = raw[i+1 : end]
		ref.hasParams = true
		end = i
	}

	if locStart >= 0 && locEnd < 0 {
		locEnd = end
	} else if start < end {
		ref.path = raw[start:end]
		ref.hasPath = true
	}

	if locStart >= 0 && locEnd >= 0 {
		ref.location = raw[locStart:locEnd]
		ref.hasLocation = true
	}

	return ref
}

// String recombines the components (RFC 1808 step 7).
func (r reference) String() string {
	var b strings.Builder
	if r.hasScheme {
		b.WriteString(r.scheme)
		b.WriteByte(':')
	}
	if r.hasLocation {
		b.WriteString("//")
		b.WriteString(r.location)
	}
	b.WriteString(r.rawPath())
	if r.hasQuery {
		b.WriteByte('?')
		b.WriteString(r.query)
	}
	if r.hasFragment {
		b.WriteByte('#')
		b.WriteString(r.fragment)
	}
	return b.String()
}

// rawPath is the path with its ";params" suffix, as it appears on the wire.
func (r reference) rawPath() string {
	if !r.hasParams {
		return r.path
	}
	return r.path + ";" + r.params
}

func indexBetween(s string, c byte, start, end int) int {
	if start >= end {
		return -1
	}
	i := strings.IndexByte(s[start:end], c)
	if i < 0 {
		return -1
	}
	return start + i
}

// isValidScheme reports whether s matches ALPHA *( ALPHA / DIGIT / "+" / "-" / "." ).
func isValidScheme(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// validEscapes reports whether every '%' in s starts a two hex digit escape.
func validEscapes(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
			return false
		}
		i += 2
	}
	return true
}

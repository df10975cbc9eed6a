package urlutil

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ParameterPolicy controls how query parameters contribute to a URL key.
type ParameterPolicy int

const (
	// UseAll keeps every parameter name and value in their original order.
	UseAll ParameterPolicy = iota
	// IgnoreValue keeps only the distinct parameter names, sorted.
	IgnoreValue
	// IgnoreCompletely drops the query altogether.
	IgnoreCompletely
)

func (p ParameterPolicy) String() string {
	switch p {
	case UseAll:
		return "use_all"
	case IgnoreValue:
		return "ignore_value"
	case IgnoreCompletely:
		return "ignore_completely"
	default:
		return fmt.Sprintf("ParameterPolicy(%d)", int(p))
	}
}

// ParseParameterPolicy accepts the String form of a policy, case-insensitively.
func ParseParameterPolicy(s string) (ParameterPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "use_all", "":
		return UseAll, nil
	case "ignore_value":
		return IgnoreValue, nil
	case "ignore_completely":
		return IgnoreCompletely, nil
	default:
		return UseAll, fmt.Errorf("unknown parameter policy %q", s)
	}
}

// KeyPolicy decides which parts of a URL make two URLs "the same page".
type KeyPolicy struct {
	Parameters ParameterPolicy
	// HandleODataPredicates reduces OData key predicates in the path
	// according to Parameters, e.g. /Book(1) becomes /Book().
	HandleODataPredicates bool
}

// BuildKey reduces an absolute URL to the string used for duplicate
// detection: scheme://authority + path + the query as shaped by policy.
// The fragment never contributes.
//
// Query parameters are split on literal '&' and '=' only. A percent escape
// is consumed as a unit, so "%26" and "%3D" never act as delimiters.
func BuildKey(raw string, policy KeyPolicy) (string, error) {
	raw = strings.TrimSpace(raw)
	ref, err := parseAbsolute(raw)
	if err != nil {
		return "", err
	}

	var params []queryParam
	if ref.hasQuery {
		params, err = splitQuery(ref.query)
		if err != nil {
			return "", malformed(raw, ErrCauseInvalidEscape, err)
		}
	}

	path := ref.rawPath()
	if policy.HandleODataPredicates {
		path = cleanODataPath(path, policy.Parameters)
	}

	var b strings.Builder
	b.WriteString(ref.scheme)
	b.WriteString("://")
	b.WriteString(ref.location)
	b.WriteString(path)
	if q := formatQuery(params, policy.Parameters); q != "" {
		b.WriteByte('?')
		b.WriteString(q)
	}
	return b.String(), nil
}

type queryParam struct {
	name     string
	value    string
	hasValue bool
}

// splitQuery tokenizes a raw query without decoding it. Empty segments
// between consecutive '&' are skipped.
func splitQuery(query string) ([]queryParam, error) {
	var params []queryParam
	var name, value strings.Builder
	inValue := false

	flush := func() {
		if name.Len() > 0 || inValue {
			params = append(params, queryParam{
				name:     name.String(),
				value:    value.String(),
				hasValue: inValue,
			})
		}
		name.Reset()
		value.Reset()
		inValue = false
	}

	for i := 0; i < len(query); i++ {
		c := query[i]
		target := &name
		if inValue {
			target = &value
		}
		switch {
		case c == '%':
			if i+2 >= len(query) || !isHex(query[i+1]) || !isHex(query[i+2]) {
				return nil, fmt.Errorf("invalid escape at offset %d", i)
			}
			target.WriteString(query[i : i+3])
			i += 2
		case c == '&':
			flush()
		case c == '=' && !inValue:
			inValue = true
		default:
			target.WriteByte(c)
		}
	}
	flush()
	return params, nil
}

func formatQuery(params []queryParam, policy ParameterPolicy) string {
	switch policy {
	case IgnoreCompletely:
		return ""
	case IgnoreValue:
		seen := make(map[string]struct{}, len(params))
		names := make([]string, 0, len(params))
		for _, p := range params {
			if _, ok := seen[p.name]; ok {
				continue
			}
			seen[p.name] = struct{}{}
			names = append(names, p.name)
		}
		sort.Strings(names)
		return strings.Join(names, "&")
	default:
		parts := make([]string, 0, len(params))
		for _, p := range params {
			if p.hasValue {
				parts = append(parts, p.name+"="+p.value)
			} else {
				parts = append(parts, p.name)
			}
		}
		return strings.Join(parts, "&")
	}
}

var (
	odataSinglePredicate    = regexp.MustCompile(`/([\w%]*)\(([\w']*)\)`)
	odataCompositePredicate = regexp.MustCompile(`/[\w%]*\((.*)\)`)
	odataPredicateKey       = regexp.MustCompile(`([\w%]*)=([\w']*)`)
)

// cleanODataPath rewrites the first OData key predicate found in path.
// A single-value predicate such as /Book(1) loses its value. A composite
// predicate such as /Book(title='x',year=2012) keeps only its key names
// under IgnoreValue, in their original order, and is emptied under
// IgnoreCompletely. UseAll leaves the path unchanged.
func cleanODataPath(path string, policy ParameterPolicy) string {
	if policy == UseAll {
		return path
	}

	if m := odataSinglePredicate.FindStringSubmatchIndex(path); m != nil {
		return path[:m[4]] + path[m[5]:]
	}

	m := odataCompositePredicate.FindStringSubmatchIndex(path)
	if m == nil {
		return path
	}
	inner := path[m[2]:m[3]]
	replacement := ""
	if policy == IgnoreValue {
		var keys []string
		for _, km := range odataPredicateKey.FindAllStringSubmatch(inner, -1) {
			keys = append(keys, km[1])
		}
		replacement = strings.Join(keys, ",")
	}
	return path[:m[2]] + replacement + path[m[3]:]
}

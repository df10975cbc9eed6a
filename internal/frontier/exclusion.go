package frontier

import (
	"fmt"
	"regexp"
)

// ExclusionSet is an ordered list of case-insensitive regular expressions.
// A URL is excluded when one of them matches it entirely. The set is built
// once and never changes.
type ExclusionSet struct {
	patterns []*regexp.Regexp
}

func NewExclusionSet(patterns []string) (*ExclusionSet, error) {
	set := &ExclusionSet{}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)^(?:" + p + ")$")
		if err != nil {
			return nil, fmt.Errorf("invalid exclusion pattern %q: %w", p, err)
		}
		set.patterns = append(set.patterns, re)
	}
	return set, nil
}

// Matches reports whether rawUrl is excluded. A nil set excludes nothing.
func (e *ExclusionSet) Matches(rawUrl string) bool {
	if e == nil {
		return false
	}
	for _, re := range e.patterns {
		if re.MatchString(rawUrl) {
			return true
		}
	}
	return false
}

func (e *ExclusionSet) Len() int {
	if e == nil {
		return 0
	}
	return len(e.patterns)
}

package robots

import (
	"strings"
	"time"
)

// RobotsResponse is the parsed content of a robots.txt file.
type RobotsResponse struct {
	// The host this robots.txt applies to
	Host string

	// Sitemap URLs, in file order
	Sitemaps []string

	// User agent groups, each containing rules for specific user agents
	UserAgents []UserAgentGroup
}

// UserAgentGroup is a set of rules shared by one or more user agents.
type UserAgentGroup struct {
	UserAgents []string
	Allows     []PathRule
	Disallows  []PathRule
	CrawlDelay *time.Duration
}

// PathRule is a single Allow or Disallow value (may include * and $).
type PathRule struct {
	Path string
}

// IsEmpty returns true if the response contains no rules or sitemaps.
func (r RobotsResponse) IsEmpty() bool {
	if len(r.Sitemaps) > 0 {
		return false
	}
	for _, group := range r.UserAgents {
		if len(group.Allows) > 0 || len(group.Disallows) > 0 {
			return false
		}
	}
	return true
}

// GetGroupForUserAgent returns the most specific group for userAgent:
// an exact match, then the longest product-token prefix, then "*".
// Matching is case-insensitive. Returns nil if nothing matches.
func (r RobotsResponse) GetGroupForUserAgent(userAgent string) *UserAgentGroup {
	userAgentLower := strings.ToLower(userAgent)

	for i, group := range r.UserAgents {
		for _, ua := range group.UserAgents {
			if strings.ToLower(ua) == userAgentLower {
				return &r.UserAgents[i]
			}
		}
	}

	var bestMatch *UserAgentGroup
	bestMatchLength := 0
	wildcard := -1

	for i, group := range r.UserAgents {
		for _, ua := range group.UserAgents {
			if ua == "*" {
				if wildcard < 0 {
					wildcard = i
				}
				continue
			}
			uaLower := strings.ToLower(ua)
			if strings.HasPrefix(userAgentLower, uaLower) && len(uaLower) > bestMatchLength {
				bestMatch = &r.UserAgents[i]
				bestMatchLength = len(uaLower)
			}
		}
	}

	if bestMatch == nil && wildcard >= 0 {
		return &r.UserAgents[wildcard]
	}
	return bestMatch
}

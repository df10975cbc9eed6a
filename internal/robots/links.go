package robots

import (
	"strings"

	"github.com/rohmanhakim/site-spider/pkg/urlutil"
)

/*
Responsibilities

- Locate the robots.txt of a site
- Turn a parsed robots.txt into crawlable references

Rules are mined for paths, never enforced: an Allow or Disallow line
names a path that exists on the site, which is all the crawler wants.
*/

const robotsPath = "/robots.txt"

// RobotsURL returns scheme://authority/robots.txt for the site serving pageUrl.
func RobotsURL(pageUrl string) (string, error) {
	return urlutil.Resolve(pageUrl, robotsPath)
}

// IsRobotsURL reports whether rawUrl is a site's root robots.txt.
func IsRobotsURL(rawUrl string) bool {
	canonical, err := urlutil.Canonicalize(rawUrl)
	if err != nil {
		return false
	}
	schemeEnd := strings.Index(canonical, "://")
	if schemeEnd < 0 {
		return false
	}
	rest := canonical[schemeEnd+3:]
	slash := strings.IndexByte(rest, '/')
	return slash >= 0 && rest[slash:] == robotsPath
}

// Links returns the references a robots.txt file names: group by group the
// Allow paths then the Disallow paths, followed by every Sitemap URL.
// Paths are cut before their first wildcard ('*' or '$'); empty and
// duplicate results are skipped. Callers resolve them against the
// robots.txt URL.
func Links(response RobotsResponse) []string {
	seen := make(map[string]struct{})
	var links []string
	add := func(raw string) {
		if raw == "" {
			return
		}
		if _, dup := seen[raw]; dup {
			return
		}
		seen[raw] = struct{}{}
		links = append(links, raw)
	}

	for _, group := range response.UserAgents {
		for _, rules := range [][]PathRule{group.Allows, group.Disallows} {
			for _, rule := range rules {
				add(literalPrefix(rule.Path))
			}
		}
	}
	for _, sitemap := range response.Sitemaps {
		add(sitemap)
	}
	return links
}

func literalPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, "*$"); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

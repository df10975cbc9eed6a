package robots

import (
	"bufio"
	"strconv"
	"strings"
	"time"
)

// MaxRobotsSize is the number of bytes of a robots.txt file that are parsed.
const MaxRobotsSize = 500 * 1024

// ParseRobotsTxt parses robots.txt content. Rules that appear before any
// User-agent line are collected into a leading "*" group.
func ParseRobotsTxt(content, hostname string) RobotsResponse {
	if len(content) > MaxRobotsSize {
		content = content[:MaxRobotsSize]
	}

	response := RobotsResponse{
		Host:       hostname,
		Sitemaps:   []string{},
		UserAgents: []UserAgentGroup{},
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), MaxRobotsSize)

	var currentGroup *UserAgentGroup
	var globalGroup UserAgentGroup

	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx != -1 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		colonIdx := strings.IndexByte(line, ':')
		if colonIdx == -1 {
			continue
		}
		field := strings.ToLower(strings.TrimSpace(line[:colonIdx]))
		value := strings.TrimSpace(line[colonIdx+1:])

		switch field {
		case "user-agent":
			switch {
			case currentGroup == nil:
				currentGroup = &UserAgentGroup{UserAgents: []string{value}}
			case currentGroup.hasRules():
				response.UserAgents = append(response.UserAgents, *currentGroup)
				currentGroup = &UserAgentGroup{UserAgents: []string{value}}
			default:
				// consecutive user-agent lines share the rules that follow
				currentGroup.UserAgents = append(currentGroup.UserAgents, value)
			}

		case "allow", "disallow":
			group := currentGroup
			if group == nil {
				group = &globalGroup
			}
			rule := PathRule{Path: value}
			if field == "allow" {
				group.Allows = append(group.Allows, rule)
			} else {
				group.Disallows = append(group.Disallows, rule)
			}

		case "crawl-delay":
			if currentGroup == nil {
				continue
			}
			seconds, err := strconv.ParseFloat(value, 64)
			if err == nil && seconds >= 0 {
				delay := time.Duration(seconds * float64(time.Second))
				currentGroup.CrawlDelay = &delay
			}

		case "sitemap":
			if value != "" {
				response.Sitemaps = append(response.Sitemaps, value)
			}
		}
	}

	if currentGroup != nil {
		response.UserAgents = append(response.UserAgents, *currentGroup)
	}
	if len(globalGroup.Allows) > 0 || len(globalGroup.Disallows) > 0 {
		globalGroup.UserAgents = []string{"*"}
		response.UserAgents = append([]UserAgentGroup{globalGroup}, response.UserAgents...)
	}

	return response
}

func (g *UserAgentGroup) hasRules() bool {
	return len(g.Allows) > 0 || len(g.Disallows) > 0 || g.CrawlDelay != nil
}

package robots_test

import (
	"strings"
	"testing"
	"time"

	"github.com/rohmanhakim/site-spider/internal/robots"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRobots = `# comment line
User-agent: *
Disallow: /private/
Disallow: /admin/ # trailing comment
Allow: /public/
Crawl-delay: 5

User-agent: Googlebot
User-agent: Bingbot
Disallow: /no-bots/*.php$
Crawl-delay: 0.5

Sitemap: https://example.com/sitemap.xml
`

func TestParseRobotsTxt(t *testing.T) {
	resp := robots.ParseRobotsTxt(sampleRobots, "example.com")

	assert.Equal(t, "example.com", resp.Host)
	assert.Equal(t, []string{"https://example.com/sitemap.xml"}, resp.Sitemaps)
	require.Len(t, resp.UserAgents, 2)

	wildcard := resp.UserAgents[0]
	assert.Equal(t, []string{"*"}, wildcard.UserAgents)
	assert.Equal(t, []robots.PathRule{{Path: "/public/"}}, wildcard.Allows)
	assert.Equal(t, []robots.PathRule{{Path: "/private/"}, {Path: "/admin/"}}, wildcard.Disallows)
	require.NotNil(t, wildcard.CrawlDelay)
	assert.Equal(t, 5*time.Second, *wildcard.CrawlDelay)

	bots := resp.UserAgents[1]
	assert.Equal(t, []string{"Googlebot", "Bingbot"}, bots.UserAgents)
	require.NotNil(t, bots.CrawlDelay)
	assert.Equal(t, 500*time.Millisecond, *bots.CrawlDelay)
}

func TestParseRobotsTxt_RulesBeforeUserAgent(t *testing.T) {
	resp := robots.ParseRobotsTxt("Disallow: /early\nUser-agent: x\nAllow: /late\n", "h")

	require.Len(t, resp.UserAgents, 2)
	assert.Equal(t, []string{"*"}, resp.UserAgents[0].UserAgents)
	assert.Equal(t, "/early", resp.UserAgents[0].Disallows[0].Path)
	assert.Equal(t, "/late", resp.UserAgents[1].Allows[0].Path)
}

func TestParseRobotsTxt_IgnoresGarbage(t *testing.T) {
	resp := robots.ParseRobotsTxt("no colon here\nUser-agent: *\nCrawl-delay: soon\nUnknown: x\n", "h")

	require.Len(t, resp.UserAgents, 1)
	assert.Nil(t, resp.UserAgents[0].CrawlDelay)
	assert.True(t, resp.IsEmpty())
}

func TestParseRobotsTxt_Truncated(t *testing.T) {
	content := "User-agent: *\n" + strings.Repeat("#", robots.MaxRobotsSize) + "\nDisallow: /beyond\n"
	resp := robots.ParseRobotsTxt(content, "h")
	assert.Empty(t, robots.Links(resp))
}

func TestRobotsResponse_GetGroupForUserAgent(t *testing.T) {
	resp := robots.ParseRobotsTxt(sampleRobots, "example.com")

	tests := []struct {
		userAgent string
		expected  []string
	}{
		{"googlebot", []string{"Googlebot", "Bingbot"}},
		{"Googlebot-Image", []string{"Googlebot", "Bingbot"}},
		{"site-spider/1.0", []string{"*"}},
	}
	for _, tt := range tests {
		t.Run(tt.userAgent, func(t *testing.T) {
			group := resp.GetGroupForUserAgent(tt.userAgent)
			require.NotNil(t, group)
			assert.Equal(t, tt.expected, group.UserAgents)
		})
	}

	none := robots.ParseRobotsTxt("User-agent: Googlebot\nDisallow: /\n", "h")
	assert.Nil(t, none.GetGroupForUserAgent("other"))
}

func TestLinks(t *testing.T) {
	resp := robots.ParseRobotsTxt(sampleRobots+"Sitemap: https://example.com/sitemap.xml\nUser-agent: x\nDisallow: /*\nAllow: /public/\n", "example.com")

	assert.Equal(t, []string{
		"/public/",
		"/private/",
		"/admin/",
		"/no-bots/",
		"/",
		"https://example.com/sitemap.xml",
	}, robots.Links(resp))
}

func TestRobotsURL(t *testing.T) {
	got, err := robots.RobotsURL("http://example.com:8080/docs/page?x=1#top")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com:8080/robots.txt", got)

	_, err = robots.RobotsURL("")
	assert.Error(t, err)
}

func TestIsRobotsURL(t *testing.T) {
	assert.True(t, robots.IsRobotsURL("http://example.com/robots.txt"))
	assert.True(t, robots.IsRobotsURL("HTTP://Example.com:80/robots.txt"))
	assert.False(t, robots.IsRobotsURL("http://example.com/docs/robots.txt"))
	assert.False(t, robots.IsRobotsURL("http://example.com/"))
	assert.False(t, robots.IsRobotsURL("not a url"))
}

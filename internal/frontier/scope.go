package frontier

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/rohmanhakim/site-spider/pkg/urlutil"
	"golang.org/x/net/publicsuffix"
)

/*
SeedScope decides which hosts a crawl may fetch from.

A URL is in scope when any of the following holds:
- its host:port is the host:port of a seed
- its host equals, or is a subdomain of, a configured in-scope domain
- its host matches a configured host pattern
- registrable-domain scoping is on and it shares a seed's eTLD+1

Seeds are only ever added. Nothing is removed during a crawl.
*/
type SeedScope struct {
	mu                 sync.RWMutex
	seeds              Set[string]
	registrableDomains Set[string]
	domains            []string
	hostPatterns       []*regexp.Regexp
	registrable        bool
}

func NewSeedScope(domains []string, hostPatterns []string, registrable bool) (*SeedScope, error) {
	s := &SeedScope{
		seeds:              NewSet[string](),
		registrableDomains: NewSet[string](),
		registrable:        registrable,
	}
	for _, d := range domains {
		d = strings.ToLower(strings.Trim(strings.TrimSpace(d), "."))
		if d != "" {
			s.domains = append(s.domains, d)
		}
	}
	for _, p := range hostPatterns {
		re, err := regexp.Compile("(?i)^(?:" + p + ")$")
		if err != nil {
			return nil, fmt.Errorf("invalid host pattern %q: %w", p, err)
		}
		s.hostPatterns = append(s.hostPatterns, re)
	}
	return s, nil
}

// AddSeed puts the host:port of rawUrl in scope.
func (s *SeedScope) AddSeed(rawUrl string) error {
	host, hostPort, err := hostAndPort(rawUrl)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeds.Add(hostPort)
	if s.registrable {
		if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			s.registrableDomains.Add(domain)
		}
	}
	return nil
}

// Contains reports whether rawUrl may be fetched.
func (s *SeedScope) Contains(rawUrl string) bool {
	host, hostPort, err := hostAndPort(rawUrl)
	if err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.seeds.Contains(hostPort) {
		return true
	}
	for _, d := range s.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	for _, re := range s.hostPatterns {
		if re.MatchString(host) {
			return true
		}
	}
	if s.registrable && s.registrableDomains.Size() > 0 {
		if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			return s.registrableDomains.Contains(domain)
		}
	}
	return false
}

// Seeds returns the seed host:port entries.
func (s *SeedScope) Seeds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seeds.Items()
}

// hostAndPort returns the lowercased host and "host:port" of rawUrl, with the
// scheme's default port filled in.
func hostAndPort(rawUrl string) (string, string, error) {
	canonical, err := urlutil.Canonicalize(rawUrl)
	if err != nil {
		return "", "", err
	}
	u, err := url.Parse(canonical)
	if err != nil {
		return "", "", err
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = urlutil.DefaultPort(u.Scheme)
	}
	return host, net.JoinHostPort(host, port), nil
}

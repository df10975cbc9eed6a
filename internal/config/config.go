package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rohmanhakim/site-spider/pkg/urlutil"
	"gopkg.in/yaml.v3"
)

type Config struct {
	//===============
	//  Crawl scope
	//===============
	// Initial pages to give to the spider to begin discovering and traversing other pages.
	seedURLs []string
	// Extra domains treated as in scope, besides the seeds' host:port.
	inScopeDomains []string
	// Regular expressions matched against a host to put it in scope.
	inScopeHostPatterns []string
	// Treat every host sharing a seed's registrable domain (eTLD+1) as in scope.
	scopeRegistrableDomain bool
	// Case-insensitive regular expressions; a URL fully matching one is never fetched.
	excludePatterns []string

	//===============
	// Limits
	//===============
	// Maximum number of hyperlink hops from a seed URL
	maxDepth int
	// Wall-clock budget for a crawl; zero means unlimited
	maxDuration time.Duration

	//===============
	// Workers
	//===============
	// Number of crawl worker goroutines draining the frontier.
	threadCount int
	// How long Stop waits for workers before closing the fetcher under them.
	stopJoinTimeout time.Duration

	//===============
	// Dedup keys
	//===============
	parameterPolicy       urlutil.ParameterPolicy
	handleODataPredicates bool

	//===============
	// Link sources
	//===============
	// Follow HTML forms
	processForms bool
	// Also submit POST forms; requires processForms
	postForms bool
	// Seed /robots.txt and follow the paths it names
	parseRobotsTxt bool

	//===============
	// Fetch
	//===============
	// Maximum time of a single fetch request
	timeout time.Duration
	// User agent that will be used in the request header. In raw string
	userAgent string
	// Responses larger than this are truncated
	maxBodySize int64
	// Minimum, fixed waiting time between two requests to the same host.
	requestDelay time.Duration
	// Randomized variation added on top of the request delay.
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64
	// maximum attempts per fetch; 1 disables retry
	fetchMaxAttempts int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration

	//===============
	// History
	//===============
	// Directory holding the SQLite history database; empty keeps history in memory
	historyDBDir string
	// Session the persisted history rows belong to
	sessionID int64

	//===============
	// Logging
	//===============
	logLevel    string
	logEncoding string
}

type configDTO struct {
	SeedURLs               []string `json:"seedUrls" yaml:"seedUrls"`
	InScopeDomains         []string `json:"inScopeDomains,omitempty" yaml:"inScopeDomains,omitempty"`
	InScopeHostPatterns    []string `json:"inScopeHostPatterns,omitempty" yaml:"inScopeHostPatterns,omitempty"`
	ScopeRegistrableDomain bool     `json:"scopeRegistrableDomain,omitempty" yaml:"scopeRegistrableDomain,omitempty"`
	ExcludePatterns        []string `json:"excludePatterns,omitempty" yaml:"excludePatterns,omitempty"`
	MaxDepth               *int     `json:"maxDepth,omitempty" yaml:"maxDepth,omitempty"`
	MaxDuration            Duration `json:"maxDuration,omitempty" yaml:"maxDuration,omitempty"`
	ThreadCount            int      `json:"threadCount,omitempty" yaml:"threadCount,omitempty"`
	StopJoinTimeout        Duration `json:"stopJoinTimeout,omitempty" yaml:"stopJoinTimeout,omitempty"`
	ParameterPolicy        string   `json:"parameterPolicy,omitempty" yaml:"parameterPolicy,omitempty"`
	HandleODataPredicates  bool     `json:"handleODataPredicates,omitempty" yaml:"handleODataPredicates,omitempty"`
	ProcessForms           *bool    `json:"processForms,omitempty" yaml:"processForms,omitempty"`
	PostForms              bool     `json:"postForms,omitempty" yaml:"postForms,omitempty"`
	ParseRobotsTxt         bool     `json:"parseRobotsTxt,omitempty" yaml:"parseRobotsTxt,omitempty"`
	Timeout                Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	UserAgent              string   `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	MaxBodySize            int64    `json:"maxBodySize,omitempty" yaml:"maxBodySize,omitempty"`
	RequestDelay           Duration `json:"requestDelay,omitempty" yaml:"requestDelay,omitempty"`
	Jitter                 Duration `json:"jitter,omitempty" yaml:"jitter,omitempty"`
	RandomSeed             int64    `json:"randomSeed,omitempty" yaml:"randomSeed,omitempty"`
	FetchMaxAttempts       int      `json:"fetchMaxAttempts,omitempty" yaml:"fetchMaxAttempts,omitempty"`
	BackoffInitialDuration Duration `json:"backoffInitialDuration,omitempty" yaml:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64  `json:"backoffMultiplier,omitempty" yaml:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     Duration `json:"backoffMaxDuration,omitempty" yaml:"backoffMaxDuration,omitempty"`
	HistoryDBDir           string   `json:"historyDbDir,omitempty" yaml:"historyDbDir,omitempty"`
	SessionID              int64    `json:"sessionId,omitempty" yaml:"sessionId,omitempty"`
	LogLevel               string   `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	LogEncoding            string   `json:"logEncoding,omitempty" yaml:"logEncoding,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	cfg := WithDefault(dto.SeedURLs)

	cfg.inScopeDomains = dto.InScopeDomains
	cfg.inScopeHostPatterns = dto.InScopeHostPatterns
	cfg.scopeRegistrableDomain = dto.ScopeRegistrableDomain
	cfg.excludePatterns = dto.ExcludePatterns

	// maxDepth 0 is meaningful (seeds only), so only a missing field keeps the default
	if dto.MaxDepth != nil {
		cfg.maxDepth = *dto.MaxDepth
	}
	if dto.MaxDuration != 0 {
		cfg.maxDuration = time.Duration(dto.MaxDuration)
	}
	if dto.ThreadCount != 0 {
		cfg.threadCount = dto.ThreadCount
	}
	if dto.StopJoinTimeout != 0 {
		cfg.stopJoinTimeout = time.Duration(dto.StopJoinTimeout)
	}
	if dto.ParameterPolicy != "" {
		policy, err := urlutil.ParseParameterPolicy(dto.ParameterPolicy)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
		}
		cfg.parameterPolicy = policy
	}
	cfg.handleODataPredicates = dto.HandleODataPredicates
	if dto.ProcessForms != nil {
		cfg.processForms = *dto.ProcessForms
	}
	cfg.postForms = dto.PostForms
	cfg.parseRobotsTxt = dto.ParseRobotsTxt

	if dto.Timeout != 0 {
		cfg.timeout = time.Duration(dto.Timeout)
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.MaxBodySize != 0 {
		cfg.maxBodySize = dto.MaxBodySize
	}
	if dto.RequestDelay != 0 {
		cfg.requestDelay = time.Duration(dto.RequestDelay)
	}
	if dto.Jitter != 0 {
		cfg.jitter = time.Duration(dto.Jitter)
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.FetchMaxAttempts != 0 {
		cfg.fetchMaxAttempts = dto.FetchMaxAttempts
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = time.Duration(dto.BackoffInitialDuration)
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = time.Duration(dto.BackoffMaxDuration)
	}

	cfg.historyDBDir = dto.HistoryDBDir
	if dto.SessionID != 0 {
		cfg.sessionID = dto.SessionID
	}
	if dto.LogLevel != "" {
		cfg.logLevel = dto.LogLevel
	}
	if dto.LogEncoding != "" {
		cfg.logEncoding = dto.LogEncoding
	}

	return cfg.Build()
}

// WithConfigFile loads a JSON or YAML config file, picked by extension.
func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(configContent, &cfgDTO)
	default:
		err = json.Unmarshal(configContent, &cfgDTO)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(cfgDTO)
}

// WithDefault creates a new Config with the provided seed URLs and default values for all other fields.
// seedUrls is mandatory and must not be empty - Build returns an error if it is.
func WithDefault(seedUrls []string) *Config {
	defaultConfig := Config{
		seedURLs:               seedUrls,
		maxDepth:               5,
		threadCount:            2,
		stopJoinTimeout:        2 * time.Second,
		parameterPolicy:        urlutil.UseAll,
		processForms:           true,
		timeout:                10 * time.Second,
		userAgent:              "site-spider/1.0",
		maxBodySize:            10 << 20,
		randomSeed:             time.Now().UnixNano(),
		fetchMaxAttempts:       1,
		backoffInitialDuration: 100 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     10 * time.Second,
		sessionID:              1,
		logLevel:               "info",
		logEncoding:            "console",
	}
	return &defaultConfig
}

func (c *Config) WithSeedUrls(urls []string) *Config {
	c.seedURLs = urls
	return c
}

func (c *Config) WithInScopeDomains(domains []string) *Config {
	c.inScopeDomains = domains
	return c
}

func (c *Config) WithInScopeHostPatterns(patterns []string) *Config {
	c.inScopeHostPatterns = patterns
	return c
}

func (c *Config) WithScopeRegistrableDomain(enabled bool) *Config {
	c.scopeRegistrableDomain = enabled
	return c
}

func (c *Config) WithExcludePatterns(patterns []string) *Config {
	c.excludePatterns = patterns
	return c
}

func (c *Config) WithMaxDepth(depth int) *Config {
	c.maxDepth = depth
	return c
}

func (c *Config) WithMaxDuration(d time.Duration) *Config {
	c.maxDuration = d
	return c
}

func (c *Config) WithThreadCount(n int) *Config {
	c.threadCount = n
	return c
}

func (c *Config) WithStopJoinTimeout(d time.Duration) *Config {
	c.stopJoinTimeout = d
	return c
}

func (c *Config) WithParameterPolicy(policy urlutil.ParameterPolicy) *Config {
	c.parameterPolicy = policy
	return c
}

func (c *Config) WithHandleODataPredicates(enabled bool) *Config {
	c.handleODataPredicates = enabled
	return c
}

func (c *Config) WithProcessForms(enabled bool) *Config {
	c.processForms = enabled
	return c
}

func (c *Config) WithPostForms(enabled bool) *Config {
	c.postForms = enabled
	return c
}

func (c *Config) WithParseRobotsTxt(enabled bool) *Config {
	c.parseRobotsTxt = enabled
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithMaxBodySize(size int64) *Config {
	c.maxBodySize = size
	return c
}

func (c *Config) WithRequestDelay(delay time.Duration) *Config {
	c.requestDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithFetchMaxAttempts(attempts int) *Config {
	c.fetchMaxAttempts = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithHistoryDBDir(dir string) *Config {
	c.historyDBDir = dir
	return c
}

func (c *Config) WithSessionID(id int64) *Config {
	c.sessionID = id
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = level
	return c
}

func (c *Config) WithLogEncoding(encoding string) *Config {
	c.logEncoding = encoding
	return c
}

func (c *Config) Build() (Config, error) {
	if len(c.seedURLs) == 0 {
		return Config{}, fmt.Errorf("%w: seedUrls cannot be empty", ErrInvalidConfig)
	}
	for _, seed := range c.seedURLs {
		if _, err := urlutil.Canonicalize(seed); err != nil {
			return Config{}, fmt.Errorf("%w: seed %q: %s", ErrInvalidConfig, seed, err.Error())
		}
	}
	if c.maxDepth < 0 {
		return Config{}, fmt.Errorf("%w: maxDepth cannot be negative", ErrInvalidConfig)
	}
	if c.threadCount < 1 {
		return Config{}, fmt.Errorf("%w: threadCount must be at least 1", ErrInvalidConfig)
	}
	if c.fetchMaxAttempts < 1 {
		return Config{}, fmt.Errorf("%w: fetchMaxAttempts must be at least 1", ErrInvalidConfig)
	}
	if c.postForms && !c.processForms {
		return Config{}, fmt.Errorf("%w: postForms requires processForms", ErrInvalidConfig)
	}
	for _, p := range c.excludePatterns {
		if _, err := regexp.Compile(p); err != nil {
			return Config{}, fmt.Errorf("%w: exclude pattern %q: %s", ErrInvalidConfig, p, err.Error())
		}
	}
	for _, p := range c.inScopeHostPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return Config{}, fmt.Errorf("%w: in-scope host pattern %q: %s", ErrInvalidConfig, p, err.Error())
		}
	}
	switch c.logEncoding {
	case "console", "json":
	default:
		return Config{}, fmt.Errorf("%w: unknown logEncoding %q", ErrInvalidConfig, c.logEncoding)
	}

	return *c, nil
}

func (c Config) SeedURLs() []string {
	return copyStrings(c.seedURLs)
}

func (c Config) InScopeDomains() []string {
	return copyStrings(c.inScopeDomains)
}

func (c Config) InScopeHostPatterns() []string {
	return copyStrings(c.inScopeHostPatterns)
}

func (c Config) ScopeRegistrableDomain() bool {
	return c.scopeRegistrableDomain
}

func (c Config) ExcludePatterns() []string {
	return copyStrings(c.excludePatterns)
}

func (c Config) MaxDepth() int {
	return c.maxDepth
}

func (c Config) MaxDuration() time.Duration {
	return c.maxDuration
}

func (c Config) ThreadCount() int {
	return c.threadCount
}

func (c Config) StopJoinTimeout() time.Duration {
	return c.stopJoinTimeout
}

func (c Config) ParameterPolicy() urlutil.ParameterPolicy {
	return c.parameterPolicy
}

func (c Config) HandleODataPredicates() bool {
	return c.handleODataPredicates
}

// KeyPolicy bundles the dedup key settings.
func (c Config) KeyPolicy() urlutil.KeyPolicy {
	return urlutil.KeyPolicy{
		Parameters:            c.parameterPolicy,
		HandleODataPredicates: c.handleODataPredicates,
	}
}

func (c Config) ProcessForms() bool {
	return c.processForms
}

func (c Config) PostForms() bool {
	return c.postForms
}

func (c Config) ParseRobotsTxt() bool {
	return c.parseRobotsTxt
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) MaxBodySize() int64 {
	return c.maxBodySize
}

func (c Config) RequestDelay() time.Duration {
	return c.requestDelay
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) FetchMaxAttempts() int {
	return c.fetchMaxAttempts
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) HistoryDBDir() string {
	return c.historyDBDir
}

func (c Config) SessionID() int64 {
	return c.sessionID
}

func (c Config) LogLevel() string {
	return c.logLevel
}

func (c Config) LogEncoding() string {
	return c.logEncoding
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rohmanhakim/site-spider/internal/config"
	"github.com/rohmanhakim/site-spider/pkg/urlutil"
	"github.com/spf13/cobra"
)

var (
	cfgFile         string
	seedURLs        []string
	maxDepth        int
	maxDuration     time.Duration
	threads         int
	excludes        []string
	inScopeDomains  []string
	parameterPolicy string
	odata           bool
	postForms       bool
	parseRobots     bool
	userAgent       string
	timeout         time.Duration
	requestDelay    time.Duration
	historyDir      string
	logLevel        string
	logEncoding     string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "site-spider",
	Short: "A concurrent web spider.",
	Long: `site-spider discovers every reachable resource of a site: it starts from
one or more seed URLs, follows links found in pages, redirects, forms and
robots.txt, and reports each URL it finds or fetches.

Links are admitted only when in scope, not excluded, not too deep and not
seen before, so every resource is fetched at most once per crawl.`,
}

var crawlCmd = &cobra.Command{
	Use:          "crawl",
	Short:        "Crawl from one or more seed URLs",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(seedURLs) == 0 && cfgFile == "" {
			return fmt.Errorf("--seed-url is required. Please provide at least one seed URL to start crawling")
		}

		cfg, err := InitConfigWithError(seedURLs)
		if err != nil {
			return err
		}

		// SIGINT stops the crawl gracefully
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runCrawl(ctx, cfg, cmd.OutOrStdout())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(crawlCmd, versionCmd)

	crawlCmd.Flags().StringVar(&cfgFile, "config-file", "", "config file path, JSON or YAML (e.g., /home/myuser/spider.yaml)")
	crawlCmd.Flags().StringArrayVar(&seedURLs, "seed-url", []string{}, "one or more starting URLs (can be repeated)")
	crawlCmd.Flags().IntVar(&maxDepth, "max-depth", -1, "maximum link depth from the seeds (-1 keeps the default)")
	crawlCmd.Flags().DurationVar(&maxDuration, "max-duration", 0, "stop the crawl after this long (0 for no limit)")
	crawlCmd.Flags().IntVar(&threads, "threads", 0, "number of concurrent workers")
	crawlCmd.Flags().StringArrayVar(&excludes, "exclude", []string{}, "regular expression of URLs to skip (can be repeated)")
	crawlCmd.Flags().StringArrayVar(&inScopeDomains, "in-scope-domain", []string{}, "extra domain whose hosts and subdomains are in scope")
	crawlCmd.Flags().StringVar(&parameterPolicy, "parameter-policy", "", "query handling for duplicate detection: use_all, ignore_value or ignore_completely")
	crawlCmd.Flags().BoolVar(&odata, "odata", false, "apply the parameter policy to OData key predicates in paths")
	crawlCmd.Flags().BoolVar(&postForms, "post-forms", false, "submit POST forms found in pages")
	crawlCmd.Flags().BoolVar(&parseRobots, "robots", false, "fetch robots.txt of each seed and follow its paths")
	crawlCmd.Flags().StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	crawlCmd.Flags().DurationVar(&timeout, "timeout", 0, "timeout for HTTP requests")
	crawlCmd.Flags().DurationVar(&requestDelay, "request-delay", 0, "delay between requests to the same host")
	crawlCmd.Flags().StringVar(&historyDir, "history-dir", "", "directory of the SQLite history of POST requests (in memory when empty)")
	crawlCmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	crawlCmd.Flags().StringVar(&logEncoding, "log-format", "", "console or json")
}

// InitConfigWithError builds the crawl config from the config file when one
// is given, otherwise from the flags on top of the defaults.
func InitConfigWithError(seeds []string) (config.Config, error) {
	if cfgFile != "" {
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	if len(seeds) == 0 {
		return config.Config{}, fmt.Errorf("%w: seedUrls cannot be empty", config.ErrInvalidConfig)
	}

	configBuilder := config.WithDefault(seeds)

	if maxDepth >= 0 {
		configBuilder = configBuilder.WithMaxDepth(maxDepth)
	}
	if maxDuration > 0 {
		configBuilder = configBuilder.WithMaxDuration(maxDuration)
	}
	if threads > 0 {
		configBuilder = configBuilder.WithThreadCount(threads)
	}
	if len(excludes) > 0 {
		configBuilder = configBuilder.WithExcludePatterns(excludes)
	}
	if len(inScopeDomains) > 0 {
		configBuilder = configBuilder.WithInScopeDomains(inScopeDomains)
	}
	if parameterPolicy != "" {
		policy, err := urlutil.ParseParameterPolicy(parameterPolicy)
		if err != nil {
			return config.Config{}, fmt.Errorf("%w: %s", config.ErrInvalidConfig, err.Error())
		}
		configBuilder = configBuilder.WithParameterPolicy(policy)
	}
	if odata {
		configBuilder = configBuilder.WithHandleODataPredicates(true)
	}
	if postForms {
		configBuilder = configBuilder.WithPostForms(true)
	}
	if parseRobots {
		configBuilder = configBuilder.WithParseRobotsTxt(true)
	}
	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}
	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}
	if requestDelay > 0 {
		configBuilder = configBuilder.WithRequestDelay(requestDelay)
	}
	if historyDir != "" {
		configBuilder = configBuilder.WithHistoryDBDir(historyDir)
	}
	if logLevel != "" {
		configBuilder = configBuilder.WithLogLevel(logLevel)
	}
	if logEncoding != "" {
		configBuilder = configBuilder.WithLogEncoding(logEncoding)
	}

	return configBuilder.Build()
}

func ResetFlags() {
	cfgFile = ""
	seedURLs = []string{}
	maxDepth = -1
	maxDuration = 0
	threads = 0
	excludes = []string{}
	inScopeDomains = []string{}
	parameterPolicy = ""
	odata = false
	postForms = false
	parseRobots = false
	userAgent = ""
	timeout = 0
	requestDelay = 0
	historyDir = ""
	logLevel = ""
	logEncoding = ""
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetMaxDepthForTest(depth int) {
	maxDepth = depth
}

func SetThreadsForTest(n int) {
	threads = n
}

func SetExcludesForTest(patterns []string) {
	excludes = patterns
}

func SetParameterPolicyForTest(policy string) {
	parameterPolicy = policy
}

func SetODataForTest(enabled bool) {
	odata = enabled
}

func SetPostFormsForTest(enabled bool) {
	postForms = enabled
}

func SetLogEncodingForTest(encoding string) {
	logEncoding = encoding
}

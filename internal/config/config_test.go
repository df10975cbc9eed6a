package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohmanhakim/site-spider/internal/config"
	"github.com/rohmanhakim/site-spider/pkg/urlutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDefault(t *testing.T) {
	cfg, err := config.WithDefault([]string{"https://example.org/"}).Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.org/"}, cfg.SeedURLs())
	assert.Equal(t, 5, cfg.MaxDepth())
	assert.Equal(t, 2, cfg.ThreadCount())
	assert.Equal(t, 2*time.Second, cfg.StopJoinTimeout())
	assert.Equal(t, urlutil.UseAll, cfg.ParameterPolicy())
	assert.False(t, cfg.HandleODataPredicates())
	assert.True(t, cfg.ProcessForms())
	assert.False(t, cfg.PostForms())
	assert.False(t, cfg.ParseRobotsTxt())
	assert.Equal(t, time.Duration(0), cfg.MaxDuration())
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, "site-spider/1.0", cfg.UserAgent())
	assert.Equal(t, int64(10<<20), cfg.MaxBodySize())
	assert.Equal(t, 1, cfg.FetchMaxAttempts())
	assert.Empty(t, cfg.HistoryDBDir())
	assert.Equal(t, int64(1), cfg.SessionID())
	assert.Equal(t, "info", cfg.LogLevel())
	assert.Equal(t, "console", cfg.LogEncoding())
	assert.Empty(t, cfg.ExcludePatterns())
}

func TestBuild_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"no seeds", config.WithDefault(nil)},
		{"relative seed", config.WithDefault([]string{"/docs"})},
		{"negative depth", config.WithDefault([]string{"http://example.com/"}).WithMaxDepth(-1)},
		{"zero threads", config.WithDefault([]string{"http://example.com/"}).WithThreadCount(0)},
		{"zero attempts", config.WithDefault([]string{"http://example.com/"}).WithFetchMaxAttempts(0)},
		{"post forms without forms", config.WithDefault([]string{"http://example.com/"}).WithProcessForms(false).WithPostForms(true)},
		{"bad exclude regex", config.WithDefault([]string{"http://example.com/"}).WithExcludePatterns([]string{"("})},
		{"bad host regex", config.WithDefault([]string{"http://example.com/"}).WithInScopeHostPatterns([]string{"[a"})},
		{"bad log encoding", config.WithDefault([]string{"http://example.com/"}).WithLogEncoding("xml")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Build()
			assert.True(t, errors.Is(err, config.ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestBuild_MaxDepthZeroAllowed(t *testing.T) {
	cfg, err := config.WithDefault([]string{"http://example.com/"}).WithMaxDepth(0).Build()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.MaxDepth())
}

func TestAccessorsReturnCopies(t *testing.T) {
	cfg, err := config.WithDefault([]string{"http://example.com/"}).
		WithExcludePatterns([]string{".*logout.*"}).
		Build()
	require.NoError(t, err)

	patterns := cfg.ExcludePatterns()
	patterns[0] = "mutated"
	assert.Equal(t, []string{".*logout.*"}, cfg.ExcludePatterns())
}

func TestKeyPolicy(t *testing.T) {
	cfg, err := config.WithDefault([]string{"http://example.com/"}).
		WithParameterPolicy(urlutil.IgnoreValue).
		WithHandleODataPredicates(true).
		Build()
	require.NoError(t, err)

	assert.Equal(t, urlutil.KeyPolicy{Parameters: urlutil.IgnoreValue, HandleODataPredicates: true}, cfg.KeyPolicy())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWithConfigFile_JSON(t *testing.T) {
	path := writeFile(t, "spider.json", `{
		"seedUrls": ["http://example.com/"],
		"maxDepth": 0,
		"threadCount": 4,
		"parameterPolicy": "ignore_value",
		"handleODataPredicates": true,
		"excludePatterns": [".*\\.pdf"],
		"processForms": false,
		"timeout": "3s",
		"requestDelay": 250000000,
		"historyDbDir": "/tmp/history",
		"logEncoding": "json"
	}`)

	cfg, err := config.WithConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.MaxDepth())
	assert.Equal(t, 4, cfg.ThreadCount())
	assert.Equal(t, urlutil.IgnoreValue, cfg.ParameterPolicy())
	assert.True(t, cfg.HandleODataPredicates())
	assert.Equal(t, []string{`.*\.pdf`}, cfg.ExcludePatterns())
	assert.False(t, cfg.ProcessForms())
	assert.Equal(t, 3*time.Second, cfg.Timeout())
	assert.Equal(t, 250*time.Millisecond, cfg.RequestDelay())
	assert.Equal(t, "/tmp/history", cfg.HistoryDBDir())
	assert.Equal(t, "json", cfg.LogEncoding())
	assert.Equal(t, "site-spider/1.0", cfg.UserAgent())
}

func TestWithConfigFile_YAML(t *testing.T) {
	path := writeFile(t, "spider.yaml", `
seedUrls:
  - http://example.com/
threadCount: 3
parameterPolicy: ignore_completely
inScopeDomains:
  - cdn.example.com
scopeRegistrableDomain: true
maxDuration: 1m
parseRobotsTxt: true
`)

	cfg, err := config.WithConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.ThreadCount())
	assert.Equal(t, 5, cfg.MaxDepth())
	assert.Equal(t, urlutil.IgnoreCompletely, cfg.ParameterPolicy())
	assert.Equal(t, []string{"cdn.example.com"}, cfg.InScopeDomains())
	assert.True(t, cfg.ScopeRegistrableDomain())
	assert.Equal(t, time.Minute, cfg.MaxDuration())
	assert.True(t, cfg.ParseRobotsTxt())
	assert.True(t, cfg.ProcessForms())
}

func TestWithConfigFile_Errors(t *testing.T) {
	_, err := config.WithConfigFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, config.ErrFileDoesNotExist)

	path := writeFile(t, "broken.json", `{"seedUrls": [`)
	_, err = config.WithConfigFile(path)
	assert.ErrorIs(t, err, config.ErrConfigParsingFail)

	path = writeFile(t, "policy.json", `{"seedUrls": ["http://example.com/"], "parameterPolicy": "sometimes"}`)
	_, err = config.WithConfigFile(path)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	path = writeFile(t, "duration.yaml", "seedUrls: [http://example.com/]\ntimeout: soon\n")
	_, err = config.WithConfigFile(path)
	assert.ErrorIs(t, err, config.ErrConfigParsingFail)
}

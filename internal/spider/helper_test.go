package spider_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rohmanhakim/site-spider/internal/config"
	"github.com/rohmanhakim/site-spider/internal/fetcher"
	"github.com/rohmanhakim/site-spider/internal/spider"
	"github.com/rohmanhakim/site-spider/pkg/failure"
	"github.com/stretchr/testify/require"
)

// page is one response of a fakeSite
type page struct {
	status  int
	body    string
	headers map[string]string
}

func htmlPage(body string) page {
	return page{status: http.StatusOK, body: body, headers: map[string]string{"Content-Type": "text/html"}}
}

// fakeSite is an in-memory Fetcher serving a fixed set of pages. Like
// HttpFetcher it fails fetches with ErrCauseClosed between Close and Open.
type fakeSite struct {
	pages map[string]page
	// beforeFetch, when set, runs at the start of every Fetch
	beforeFetch func(ctx context.Context, url string)

	mu      sync.Mutex
	fetches map[string]int
	methods map[string]string
	opens   atomic.Int32
	closes  atomic.Int32
	open    atomic.Bool
}

func newFakeSite(pages map[string]page) *fakeSite {
	return &fakeSite{
		pages:   pages,
		fetches: make(map[string]int),
		methods: make(map[string]string),
	}
}

func (s *fakeSite) Open() error {
	s.opens.Add(1)
	s.open.Store(true)
	return nil
}

func (s *fakeSite) Close() error {
	s.closes.Add(1)
	s.open.Store(false)
	return nil
}

func (s *fakeSite) Fetch(ctx context.Context, crawlDepth int, fetchParam fetcher.FetchParam) (fetcher.FetchResult, failure.ClassifiedError) {
	if s.beforeFetch != nil {
		s.beforeFetch(ctx, fetchParam.URL())
	}
	if !s.open.Load() {
		return fetcher.FetchResult{}, &fetcher.FetchError{
			Message: fetchParam.URL(),
			Cause:   fetcher.ErrCauseClosed,
		}
	}

	s.mu.Lock()
	s.fetches[fetchParam.URL()]++
	s.methods[fetchParam.URL()] = fetchParam.Method()
	s.mu.Unlock()

	p, ok := s.pages[fetchParam.URL()]
	if !ok {
		return fetcher.NewFetchResultForTest(fetchParam.URL(), []byte("not found"), http.StatusNotFound, map[string]string{"Content-Type": "text/plain"}), nil
	}
	return fetcher.NewFetchResultForTest(fetchParam.URL(), []byte(p.body), p.status, p.headers), nil
}

func (s *fakeSite) fetchCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[url]
}

func (s *fakeSite) totalFetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.fetches {
		total += n
	}
	return total
}

func (s *fakeSite) fetched() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.fetches))
	for k, v := range s.fetches {
		out[k] = v
	}
	return out
}

// recordingListener captures every notification
type recordingListener struct {
	mu        sync.Mutex
	found     []spider.FoundResource
	read      []spider.ReadResource
	progress  []int
	completes []bool
	completed chan struct{}
}

func newRecordingListener() *recordingListener {
	return &recordingListener{completed: make(chan struct{}, 16)}
}

func (l *recordingListener) FoundURI(found spider.FoundResource) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.found = append(l.found, found)
}

func (l *recordingListener) ReadURI(read spider.ReadResource) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.read = append(l.read, read)
}

func (l *recordingListener) SpiderProgress(url string, percent int, numVisited int, numQueued int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress = append(l.progress, percent)
}

func (l *recordingListener) SpiderComplete(successful bool) {
	l.mu.Lock()
	l.completes = append(l.completes, successful)
	l.mu.Unlock()
	l.completed <- struct{}{}
}

func (l *recordingListener) readURLs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	urls := make([]string, 0, len(l.read))
	for _, r := range l.read {
		urls = append(urls, r.URL)
	}
	return urls
}

func (l *recordingListener) foundStatus(url string) (spider.FoundResource, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.found {
		if f.URL == url {
			return f, true
		}
	}
	return spider.FoundResource{}, false
}

func (l *recordingListener) completions() []bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]bool(nil), l.completes...)
}

func buildConfig(t *testing.T, seeds []string, configure func(*config.Config)) config.Config {
	t.Helper()
	builder := config.WithDefault(seeds).
		WithMaxDepth(2).
		WithThreadCount(4).
		WithStopJoinTimeout(2 * time.Second)
	if configure != nil {
		configure(builder)
	}
	cfg, err := builder.Build()
	require.NoError(t, err)
	return cfg
}

// runToCompletion starts the controller and waits for the crawl to end.
func runToCompletion(t *testing.T, c *spider.Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Wait(ctx))
}

package spider

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/site-spider/internal/fetcher"
	"github.com/rohmanhakim/site-spider/internal/frontier"
	"github.com/rohmanhakim/site-spider/internal/metadata"
	"github.com/rohmanhakim/site-spider/pkg/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeCountingFetcher struct {
	mu     sync.Mutex
	closes int
}

func (f *closeCountingFetcher) Open() error { return nil }

func (f *closeCountingFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *closeCountingFetcher) Fetch(context.Context, int, fetcher.FetchParam) (fetcher.FetchResult, failure.ClassifiedError) {
	return fetcher.FetchResult{}, nil
}

func (f *closeCountingFetcher) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

type poolOutcome struct {
	stopped bool
	err     error
}

func newTestPool(t *testing.T, f fetcher.Fetcher, process func(context.Context, *frontier.CrawlTask) error) (*workerPool, *frontier.Frontier, chan poolOutcome) {
	t.Helper()
	scope, err := frontier.NewSeedScope(nil, nil, false)
	require.NoError(t, err)
	require.NoError(t, scope.AddSeed("http://example.com/"))

	front := frontier.New(frontier.Options{MaxDepth: 1, Scope: scope}, nil, &metadata.NoopSink{})
	outcomes := make(chan poolOutcome, 2)
	pool := newWorkerPool(front, f, time.Second, process, func(stopped bool, err error) {
		outcomes <- poolOutcome{stopped: stopped, err: err}
	})
	return pool, front, outcomes
}

func TestWorkerPool_HoldDelaysTermination(t *testing.T) {
	var mu sync.Mutex
	var processed []string
	var front *frontier.Frontier
	pool, front, outcomes := newTestPool(t, &closeCountingFetcher{}, func(_ context.Context, task *frontier.CrawlTask) error {
		mu.Lock()
		processed = append(processed, task.URL)
		mu.Unlock()
		front.MarkVisited(task)
		return nil
	})

	// nothing is queued, so without the hold the worker would finish at once
	require.True(t, pool.hold())
	pool.start(context.Background(), 2)

	time.Sleep(50 * time.Millisecond)
	select {
	case <-outcomes:
		t.Fatal("pool finished while held")
	default:
	}

	require.True(t, front.Admit(frontier.NewSeedTask("http://example.com/late")))
	pool.release()

	select {
	case outcome := <-outcomes:
		assert.False(t, outcome.stopped)
		assert.NoError(t, outcome.err)
	case <-time.After(5 * time.Second):
		t.Fatal("pool did not finish")
	}

	mu.Lock()
	assert.Equal(t, []string{"http://example.com/late"}, processed)
	mu.Unlock()

	assert.False(t, pool.hold(), "a finished pool cannot be held")
}

func TestWorkerPool_ClosesFetcherOnceAfterJoinTimeout(t *testing.T) {
	f := &closeCountingFetcher{}
	started := make(chan struct{})
	release := make(chan struct{})
	var front *frontier.Frontier
	pool, front, outcomes := newTestPool(t, f, func(_ context.Context, task *frontier.CrawlTask) error {
		close(started)
		<-release
		front.MarkVisited(task)
		return nil
	})
	pool.joinTimeout = 20 * time.Millisecond

	require.True(t, front.Admit(frontier.NewSeedTask("http://example.com/")))
	pool.start(context.Background(), 1)
	<-started

	pool.stop()
	outcome := <-outcomes
	assert.True(t, outcome.stopped)
	assert.Equal(t, 1, f.closeCount())

	// the straggler exits after the crawl was reported finished
	close(release)
	<-pool.done
	assert.Equal(t, 1, f.closeCount())
}

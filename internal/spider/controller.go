package spider

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rohmanhakim/site-spider/internal/config"
	"github.com/rohmanhakim/site-spider/internal/extractor"
	"github.com/rohmanhakim/site-spider/internal/fetcher"
	"github.com/rohmanhakim/site-spider/internal/frontier"
	"github.com/rohmanhakim/site-spider/internal/history"
	"github.com/rohmanhakim/site-spider/internal/metadata"
	"github.com/rohmanhakim/site-spider/internal/robots"
	"github.com/rohmanhakim/site-spider/pkg/urlutil"
)

/*
 Controller is the control-plane of a crawl.

 Responsibilities:
 - Own the seed list and the exclusion list until the crawl starts
 - Build a fresh frontier, scope and worker pool for every crawl
 - Open the fetcher on start; the pool closes it when the crawl ends
 - Relay pause, resume and stop to the pool
 - Deliver listener notifications and record lifecycle events
 - Record final crawl statistics exactly once per crawl

 Metadata emission is observational only and MUST NOT influence
 scheduling or crawl termination.
*/
type Controller struct {
	cfg            config.Config
	fetcher        fetcher.Fetcher
	store          history.Store
	metadataSink   metadata.MetadataSink
	crawlFinalizer metadata.CrawlFinalizer
	extractor      extractor.LinkExtractor
	listeners      listenerSet

	mu       sync.Mutex
	seeds    []string
	excludes []string
	// run is the crawl in progress; last is the most recent one, kept for Wait
	run  *crawl
	last *crawl
}

// crawl is the state of one run, from Start until its pool finishes.
type crawl struct {
	frontier  *frontier.Frontier
	pool      *workerPool
	startedAt time.Time
	errors    atomic.Int64
	done      chan struct{}
	err       error

	timerMu sync.Mutex
	timer   *time.Timer
}

func (r *crawl) setTimer(t *time.Timer) {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	r.timer = t
}

func (r *crawl) stopTimer() {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
}

// NewController wires a controller. The store keeps non-GET history; a nil
// store keeps it in memory. When sink also implements metadata.CrawlFinalizer
// it receives the final crawl statistics.
func NewController(
	cfg config.Config,
	f fetcher.Fetcher,
	store history.Store,
	metadataSink metadata.MetadataSink,
) *Controller {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	finalizer, ok := metadataSink.(metadata.CrawlFinalizer)
	if !ok {
		finalizer = &metadata.NoopSink{}
	}
	if store == nil {
		store = history.NewMemoryStore()
	}

	c := &Controller{
		cfg:            cfg,
		fetcher:        f,
		store:          store,
		metadataSink:   metadataSink,
		crawlFinalizer: finalizer,
		extractor:      extractor.NewLinkExtractor(metadataSink, cfg.ProcessForms(), cfg.PostForms()),
		excludes:       cfg.ExcludePatterns(),
	}
	for _, seed := range cfg.SeedURLs() {
		_ = c.AddSeed(seed)
	}
	return c
}

// AddSeed registers a seed URL. Before Start it is queued for the next
// crawl; during a crawl its host:port joins the scope and it is submitted
// at depth 0 right away. A seed added while a crawl is ending is kept for
// the next one.
func (c *Controller) AddSeed(rawUrl string) error {
	canonical, err := urlutil.Canonicalize(rawUrl)
	if err != nil {
		return err
	}

	c.mu.Lock()
	for _, existing := range c.seeds {
		if existing == canonical {
			c.mu.Unlock()
			return nil
		}
	}
	c.seeds = append(c.seeds, canonical)
	run := c.run
	c.mu.Unlock()

	// holding the pool keeps workers from declaring the crawl over while
	// the seed is being submitted
	if run != nil && run.pool.hold() {
		defer run.pool.release()
		return c.admitSeed(run, canonical)
	}
	return nil
}

// SetExcludeList replaces the exclusion patterns for the next crawl.
// Patterns are case-insensitive regular expressions matched against the
// whole URL, both as discovered and in canonical form; a match on either
// excludes it. The list is frozen once a crawl starts.
func (c *Controller) SetExcludeList(patterns []string) error {
	if _, err := frontier.NewExclusionSet(patterns); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run != nil {
		return ErrAlreadyRunning
	}
	c.excludes = append([]string(nil), patterns...)
	return nil
}

// Start begins a crawl over the registered seeds and returns immediately.
// Use Wait to block until it ends.
func (c *Controller) Start(ctx context.Context) error {
	run, seeds, err := c.prepare()
	if err != nil {
		return err
	}

	// listeners may call back into the controller, so c.mu is not held here
	for _, seed := range seeds {
		// seeds were canonicalized by AddSeed, so this cannot fail
		_ = c.admitSeed(run, seed)
	}

	c.metadataSink.RecordLifecycle(metadata.LifecycleStarted, []metadata.Attribute{
		metadata.NewAttr(metadata.AttrSeedCount, strconv.Itoa(len(seeds))),
		metadata.NewAttr(metadata.AttrWorkers, strconv.Itoa(c.cfg.ThreadCount())),
	})

	run.pool.start(ctx, c.cfg.ThreadCount())
	if d := c.cfg.MaxDuration(); d > 0 {
		run.setTimer(time.AfterFunc(d, run.pool.stop))
	}
	return nil
}

// prepare checks the start preconditions, opens the fetcher and installs a
// fresh crawl as the running one.
func (c *Controller) prepare() (*crawl, []string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run != nil {
		return nil, nil, ErrAlreadyRunning
	}
	if len(c.seeds) == 0 {
		return nil, nil, ErrNoSeeds
	}

	scope, err := frontier.NewSeedScope(c.cfg.InScopeDomains(), c.cfg.InScopeHostPatterns(), c.cfg.ScopeRegistrableDomain())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	exclusions, err := frontier.NewExclusionSet(c.excludes)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	if err := c.fetcher.Open(); err != nil {
		return nil, nil, err
	}

	run := &crawl{
		frontier: frontier.New(frontier.Options{
			MaxDepth:   c.cfg.MaxDepth(),
			KeyPolicy:  c.cfg.KeyPolicy(),
			SessionID:  c.cfg.SessionID(),
			Scope:      scope,
			Exclusions: exclusions,
		}, c.store, c.metadataSink),
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	run.pool = newWorkerPool(
		run.frontier,
		c.fetcher,
		c.cfg.StopJoinTimeout(),
		func(ctx context.Context, task *frontier.CrawlTask) error {
			return c.crawlTask(ctx, run, task)
		},
		func(stopped bool, err error) {
			c.finish(run, stopped, err)
		},
	)

	c.run = run
	c.last = run
	return run, append([]string(nil), c.seeds...), nil
}

// admitSeed puts the seed's host in scope and submits it, plus its
// robots.txt when robots parsing is on.
func (c *Controller) admitSeed(run *crawl, seed string) error {
	if err := run.frontier.Scope().AddSeed(seed); err != nil {
		return err
	}
	seedTask := frontier.NewSeedTask(seed)
	c.submit(run, seedTask)

	if c.cfg.ParseRobotsTxt() {
		if robotsURL, err := robots.RobotsURL(seed); err == nil {
			robotsTask := frontier.NewSeedTask(robotsURL)
			c.submit(run, robotsTask)
		}
	}
	return nil
}

// Stop ends the crawl: workers finish the task they hold, then exit. Stop
// waits for them up to the configured join timeout and then closes the
// fetcher under the stragglers. It is idempotent and safe from any goroutine.
func (c *Controller) Stop() {
	c.mu.Lock()
	run := c.run
	c.mu.Unlock()

	if run == nil {
		return
	}
	run.pool.stop()
}

// Pause makes workers wait before their next task. A fetch in progress
// is not interrupted.
func (c *Controller) Pause() {
	c.mu.Lock()
	run := c.run
	c.mu.Unlock()

	if run == nil || run.pool.isPaused() {
		return
	}
	run.pool.pause()
	c.metadataSink.RecordLifecycle(metadata.LifecyclePaused, nil)
}

func (c *Controller) Resume() {
	c.mu.Lock()
	run := c.run
	c.mu.Unlock()

	if run == nil || !run.pool.isPaused() {
		return
	}
	run.pool.resume()
	c.metadataSink.RecordLifecycle(metadata.LifecycleResumed, nil)
}

func (c *Controller) IsPaused() bool {
	c.mu.Lock()
	run := c.run
	c.mu.Unlock()
	return run != nil && run.pool.isPaused()
}

func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run != nil
}

// Wait blocks until the most recently started crawl ends and returns the
// error that ended it, if any.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	run := c.last
	c.mu.Unlock()

	if run == nil {
		return ErrNotRunning
	}
	select {
	case <-run.done:
		return run.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddListener registers l. Listeners are compared by identity, so l should
// be a pointer.
func (c *Controller) AddListener(l Listener) {
	c.listeners.add(l)
}

func (c *Controller) RemoveListener(l Listener) {
	c.listeners.remove(l)
}

// Progress estimates crawl completion, in percent, as of task.
func (c *Controller) Progress(task *frontier.CrawlTask) int {
	c.mu.Lock()
	run := c.run
	c.mu.Unlock()

	processed, total := 0, 0
	if run != nil {
		processed, total = run.frontier.Counters(task.Depth)
	}
	return progressPercent(c.cfg.MaxDepth(), task.Depth, processed, total)
}

// finish runs once per crawl, when the pool is done.
func (c *Controller) finish(run *crawl, stopped bool, err error) {
	c.mu.Lock()
	if c.run == run {
		c.run = nil
	}
	c.mu.Unlock()

	run.stopTimer()
	run.err = err
	successful := !stopped && err == nil

	if err != nil {
		c.metadataSink.RecordError(
			time.Now(),
			"spider",
			"Controller.finish",
			metadata.CauseUnknown,
			err.Error(),
			nil,
		)
	}
	event := metadata.LifecycleCompleted
	if !successful {
		event = metadata.LifecycleStopped
	}
	c.metadataSink.RecordLifecycle(event, nil)
	c.crawlFinalizer.RecordFinalCrawlStats(
		run.frontier.VisitedCount(),
		int(run.errors.Load()),
		successful,
		time.Since(run.startedAt),
	)

	c.listeners.spiderComplete(successful)
	close(run.done)
}

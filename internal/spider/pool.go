package spider

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rohmanhakim/site-spider/internal/fetcher"
	"github.com/rohmanhakim/site-spider/internal/frontier"
	"golang.org/x/sync/errgroup"
)

/*
workerPool runs N workers draining one frontier.

Coordination:
- mu guards paused, stopped and busy; cond is signalled on every change
- lock order is pool.mu then frontier's lock, never the reverse
- a worker only checks pause and stop between tasks, never mid-fetch

Termination:
- a worker that finds the frontier empty while no other worker holds a
  task knows nothing can be admitted anymore: the crawl is over
- stop() waits up to joinTimeout for workers, then closes the fetcher
  under any that are still in a request; the fetcher is closed once per pool
- onDone fires exactly once, with the first error a worker returned,
  before done is closed
*/
type workerPool struct {
	frontier    *frontier.Frontier
	fetcher     fetcher.Fetcher
	process     func(ctx context.Context, task *frontier.CrawlTask) error
	joinTimeout time.Duration
	onDone      func(stopped bool, err error)

	mu      sync.Mutex
	cond    *sync.Cond
	paused  bool
	stopped bool
	busy    int

	stopCalled bool

	done      chan struct{}
	finished  atomic.Bool
	stopOnce  sync.Once
	closeOnce sync.Once
}

func newWorkerPool(
	frontier *frontier.Frontier,
	fetcher fetcher.Fetcher,
	joinTimeout time.Duration,
	process func(ctx context.Context, task *frontier.CrawlTask) error,
	onDone func(stopped bool, err error),
) *workerPool {
	p := &workerPool{
		frontier:    frontier,
		fetcher:     fetcher,
		process:     process,
		joinTimeout: joinTimeout,
		onDone:      onDone,
		done:        make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// start spawns n workers. Cancelling ctx stops the pool without waiting.
func (p *workerPool) start(ctx context.Context, n int) {
	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		group.Go(func() error {
			return p.run(groupCtx)
		})
	}

	// a failing worker cancels groupCtx, which halts the others
	stopOnCancel := context.AfterFunc(groupCtx, p.halt)

	go func() {
		err := group.Wait()
		stopOnCancel()
		p.closeFetcher()

		p.mu.Lock()
		stopped := p.stopCalled || ctx.Err() != nil
		p.mu.Unlock()
		p.finish(stopped, err)
		close(p.done)
	}()
}

func (p *workerPool) run(ctx context.Context) error {
	for {
		task, ok := p.next()
		if !ok {
			return nil
		}
		err := p.process(ctx, task)
		p.release()
		if err != nil {
			return err
		}
	}
}

// next blocks until a task is available, the pool is stopped, or the crawl
// is found to be over.
func (p *workerPool) next() (*frontier.CrawlTask, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if p.stopped {
			return nil, false
		}
		if p.paused {
			p.cond.Wait()
			continue
		}
		if task, ok := p.frontier.TakeNext(); ok {
			p.busy++
			return task, true
		}
		if p.busy == 0 {
			// nothing queued and nobody left to discover more
			p.stopped = true
			p.cond.Broadcast()
			return nil, false
		}
		p.cond.Wait()
	}
}

// hold counts the caller as busy so that workers wait for it instead of
// finishing the crawl. It fails once the pool has stopped; a successful hold
// is paired with release, which also wakes idle workers.
func (p *workerPool) hold() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false
	}
	p.busy++
	return true
}

func (p *workerPool) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.busy--
	p.cond.Broadcast()
}

// wake tells idle workers the frontier may have grown.
func (p *workerPool) wake() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cond.Broadcast()
}

func (p *workerPool) pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

func (p *workerPool) resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
	p.cond.Broadcast()
}

func (p *workerPool) isPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// halt sets the stop flag and wakes every waiting worker.
func (p *workerPool) halt() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	p.cond.Broadcast()
}

// stop halts the pool and joins the workers for at most joinTimeout, after
// which the fetcher is closed so that requests in flight return. It is
// idempotent and safe to call from any goroutine.
func (p *workerPool) stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopCalled = true
		p.stopped = true
		p.cond.Broadcast()
		p.mu.Unlock()

		timer := time.NewTimer(p.joinTimeout)
		defer timer.Stop()
		select {
		case <-p.done:
		case <-timer.C:
			p.closeFetcher()
			p.finish(true, nil)
		}
	})
}

// closeFetcher closes the fetcher at most once per pool: after a join timeout
// the next crawl may have reopened it by the time the stragglers exit.
func (p *workerPool) closeFetcher() {
	p.closeOnce.Do(func() {
		_ = p.fetcher.Close()
	})
}

// finish reports the end of the crawl; only the first call has an effect.
func (p *workerPool) finish(stopped bool, err error) {
	if p.finished.CompareAndSwap(false, true) {
		p.onDone(stopped, err)
	}
}

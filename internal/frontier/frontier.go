package frontier

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rohmanhakim/site-spider/internal/history"
	"github.com/rohmanhakim/site-spider/internal/metadata"
	"github.com/rohmanhakim/site-spider/pkg/urlutil"
)

/*
Frontier Responsibilities
- Sole admission point: depth, protocol, scope, exclusion and dedup checks
- Keep pending tasks ordered by depth (BFS)
- Track each visited key from queued to visited
- Count admitted and processed tasks per depth
- Knows nothing about:
	- fetching
	- extraction
	- listeners

It is a data structure + policy module, not a pipeline executor.
Every method is safe for concurrent use; checks and the resulting
insert happen under one lock, so two workers can never both admit the
same key.
*/

// storeTimeout bounds each history lookup or write made under the frontier lock.
const storeTimeout = 5 * time.Second

type Options struct {
	MaxDepth   int
	KeyPolicy  urlutil.KeyPolicy
	SessionID  int64
	Scope      *SeedScope
	Exclusions *ExclusionSet
}

type Frontier struct {
	opts         Options
	store        history.Store
	metadataSink metadata.MetadataSink

	mu             sync.Mutex
	queue          *DepthQueue[*CrawlTask]
	queued         Set[string]
	visited        Set[string]
	counters       DepthCounters
	discoveryOrder uint64
}

// New creates an empty frontier. Without a scope every host is out of scope;
// without a store non-GET history is kept in memory.
func New(opts Options, store history.Store, metadataSink metadata.MetadataSink) *Frontier {
	if opts.Scope == nil {
		opts.Scope, _ = NewSeedScope(nil, nil, false)
	}
	if store == nil {
		store = history.NewMemoryStore()
	}
	return &Frontier{
		opts:         opts,
		store:        store,
		metadataSink: metadataSink,
		queue:        NewDepthQueue(func(t *CrawlTask) int { return t.Depth }),
		queued:       NewSet[string](),
		visited:      NewSet[string](),
		counters:     newDepthCounters(),
	}
}

// Scope returns the scope the frontier admits against.
func (f *Frontier) Scope() *SeedScope {
	return f.opts.Scope
}

// Submit runs admission control for task and, when it passes, queues it.
// The task URL is canonicalized first; the queued copy carries the
// canonical URL, its visited key and its discovery order.
func (f *Frontier) Submit(task CrawlTask) Status {
	status := f.submit(task)
	if status.IsSkipped() {
		f.metadataSink.RecordSkip(task.URL, string(status), task.Depth)
	}
	return status
}

// Admit is Submit reduced to whether the task was queued.
func (f *Frontier) Admit(task CrawlTask) bool {
	return f.Submit(task).Admitted()
}

func (f *Frontier) submit(task CrawlTask) Status {
	if !hasCrawlableScheme(task.URL) {
		return StatusIllegalProtocol
	}

	canonical, err := urlutil.Canonicalize(task.URL)
	if err != nil {
		f.recordMalformed(task, err)
		return StatusMalformed
	}

	if task.Depth > f.opts.MaxDepth {
		return StatusTooDeep
	}
	if !f.opts.Scope.Contains(canonical) {
		return StatusOutOfScope
	}
	// patterns may be written against either form of the URL
	if f.opts.Exclusions.Matches(task.URL) || f.opts.Exclusions.Matches(canonical) {
		return StatusExcluded
	}

	key, err := urlutil.BuildKey(canonical, f.opts.KeyPolicy)
	if err != nil {
		f.recordMalformed(task, err)
		return StatusMalformed
	}

	task.URL = canonical
	if task.Method == "" {
		task.Method = http.MethodGet
	}
	if !task.IsGet() {
		key = task.Method + " " + key + " " + task.BodyHash
	}
	task.key = key

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queued.Contains(key) || f.visited.Contains(key) {
		return StatusDuplicate
	}
	if !task.IsGet() {
		if f.seenInHistory(task) {
			return StatusDuplicate
		}
		f.recordHistory(task, history.KindSpiderTask)
	}

	f.discoveryOrder++
	task.DiscoveryOrder = f.discoveryOrder
	f.queue.Enqueue(&task)
	f.queued.Add(key)
	f.counters.admit(task.Depth)

	if task.Seed {
		return StatusSeed
	}
	return StatusAccepted
}

// TakeNext removes and returns the head of the queue.
func (f *Frontier) TakeNext() (*CrawlTask, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Dequeue()
}

// MarkVisited moves the task's key from queued to visited and counts it as
// processed at its depth, whether or not its fetch succeeded.
func (f *Frontier) MarkVisited(task *CrawlTask) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.queued.Contains(task.key) {
		return
	}
	f.queued.Remove(task.key)
	f.visited.Add(task.key)
	f.counters.process(task.Depth)

	if !task.IsGet() {
		f.recordHistory(*task, history.KindSpiderVisited)
	}
}

// IsEmpty reports whether no task is waiting. Tasks being fetched are not
// counted, so an empty frontier alone does not mean the crawl is over.
func (f *Frontier) IsEmpty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Size() == 0
}

// Len is the number of tasks waiting.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Size()
}

// VisitedCount is the number of tasks marked visited.
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited.Size()
}

// Counters returns the processed and admitted totals at depth.
func (f *Frontier) Counters(depth int) (processed, total int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters.At(depth)
}

// seenInHistory must be called with f.mu held.
// A failing store degrades to "not seen".
func (f *Frontier) seenInHistory(task CrawlTask) bool {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	seen, err := f.store.ContainsURI(ctx, f.opts.SessionID, history.KindSpiderTask, task.Method, task.URL, task.BodyHash)
	if err != nil {
		f.recordPersistenceError("Frontier.Submit", task, err)
		return false
	}
	return seen
}

// recordHistory must be called with f.mu held.
func (f *Frontier) recordHistory(task CrawlTask, kind history.Kind) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	err := f.store.Record(ctx, history.Record{
		SessionID:  f.opts.SessionID,
		Kind:       kind,
		Method:     task.Method,
		URL:        task.URL,
		BodyHash:   task.BodyHash,
		RecordedAt: time.Now(),
	})
	if err != nil {
		f.recordPersistenceError("Frontier.recordHistory", task, err)
	}
}

func (f *Frontier) recordPersistenceError(action string, task CrawlTask, err error) {
	cause := metadata.CauseUnknown
	var persistenceErr *history.PersistenceError
	if errors.As(err, &persistenceErr) {
		cause = metadata.CauseStorageFailure
	}
	f.metadataSink.RecordError(
		time.Now(),
		"frontier",
		action,
		cause,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, task.URL),
			metadata.NewAttr(metadata.AttrMethod, task.Method),
		},
	)
}

func (f *Frontier) recordMalformed(task CrawlTask, err error) {
	f.metadataSink.RecordError(
		time.Now(),
		"frontier",
		"Frontier.Submit",
		metadata.CauseMalformedURL,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, task.URL),
			metadata.NewAttr(metadata.AttrDepth, strconv.Itoa(task.Depth)),
		},
	)
}

// hasCrawlableScheme rejects schemes the crawler does not speak (mailto:,
// javascript:, ftp:). Unparsable or scheme-less input passes through so
// canonicalization reports it as malformed.
func hasCrawlableScheme(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" {
		return true
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

package spider

import (
	"sync"

	"github.com/rohmanhakim/site-spider/internal/frontier"
)

// FoundResource is a URL the spider came across, with the admission outcome.
type FoundResource struct {
	URL    string
	Method string
	Depth  int
	Status frontier.Status
}

// IsSkipped is true when the resource will not be fetched.
func (f FoundResource) IsSkipped() bool {
	return f.Status.IsSkipped()
}

// ReadResource is a fetched task. Err is set when the fetch failed; the
// task still counts as processed.
type ReadResource struct {
	URL         string
	Method      string
	Depth       int
	StatusCode  int
	ContentType string
	Err         error
}

// Listener receives crawl notifications. Calls are made synchronously on the
// worker or controller goroutine that produced them, so a listener must not
// block.
type Listener interface {
	FoundURI(found FoundResource)
	ReadURI(read ReadResource)
	SpiderProgress(url string, percent int, numVisited int, numQueued int)
	SpiderComplete(successful bool)
}

// BaseListener implements Listener with no-ops, for embedding.
type BaseListener struct{}

func (BaseListener) FoundURI(FoundResource)               {}
func (BaseListener) ReadURI(ReadResource)                 {}
func (BaseListener) SpiderProgress(string, int, int, int) {}
func (BaseListener) SpiderComplete(bool)                  {}

type listenerSet struct {
	mu        sync.RWMutex
	listeners []Listener
}

func (s *listenerSet) add(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *listenerSet) remove(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.listeners {
		if existing == l {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *listenerSet) snapshot() []Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listeners
}

func (s *listenerSet) foundURI(found FoundResource) {
	for _, l := range s.snapshot() {
		l.FoundURI(found)
	}
}

func (s *listenerSet) readURI(read ReadResource) {
	for _, l := range s.snapshot() {
		l.ReadURI(read)
	}
}

func (s *listenerSet) spiderProgress(url string, percent, numVisited, numQueued int) {
	for _, l := range s.snapshot() {
		l.SpiderProgress(url, percent, numVisited, numQueued)
	}
}

func (s *listenerSet) spiderComplete(successful bool) {
	for _, l := range s.snapshot() {
		l.SpiderComplete(successful)
	}
}

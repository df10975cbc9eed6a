package frontier

import (
	"net/http"
	"strings"

	"github.com/rohmanhakim/site-spider/pkg/hashutil"
)

// CrawlTask is one request the crawler intends to make. A task is created
// by the caller, stamped by the frontier on admission, and handed to exactly
// one worker by TakeNext.
type CrawlTask struct {
	Method      string
	URL         string
	Body        []byte
	BodyHash    string
	ContentType string
	Depth       int
	// Seed tasks are reported as StatusSeed when admitted.
	Seed bool

	// set by the frontier on admission
	DiscoveryOrder uint64
	key            string
}

// NewTask builds a task for method and url. The body hash is derived from body.
func NewTask(method, url string, body []byte, contentType string, depth int) CrawlTask {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	return CrawlTask{
		Method:      method,
		URL:         url,
		Body:        body,
		BodyHash:    hashutil.BodyHash(body),
		ContentType: contentType,
		Depth:       depth,
	}
}

// NewGetTask builds a body-less GET task.
func NewGetTask(url string, depth int) CrawlTask {
	return NewTask(http.MethodGet, url, nil, "", depth)
}

// NewSeedTask builds the depth 0 GET task for a seed URL.
func NewSeedTask(url string) CrawlTask {
	task := NewGetTask(url, 0)
	task.Seed = true
	return task
}

// Key is the visited key assigned on admission; empty before that.
func (t CrawlTask) Key() string {
	return t.key
}

// IsGet reports whether the task is keyed by URL alone.
func (t CrawlTask) IsGet() bool {
	return t.Method == http.MethodGet
}

// Status is the outcome of submitting a task to the frontier.
type Status string

const (
	StatusAccepted        Status = "valid"
	StatusSeed            Status = "seed"
	StatusOutOfScope      Status = "out_of_scope"
	StatusIllegalProtocol Status = "illegal_protocol"
	StatusExcluded        Status = "excluded"
	StatusTooDeep         Status = "too_deep"
	StatusMalformed       Status = "malformed"
	StatusDuplicate       Status = "duplicate"
)

// Admitted reports whether the task entered the queue.
func (s Status) Admitted() bool {
	return s == StatusAccepted || s == StatusSeed
}

// IsSkipped reports whether a found resource will not be fetched for a
// reason worth telling listeners about. Duplicates are neither admitted
// nor skipped: they are simply not news.
func (s Status) IsSkipped() bool {
	return !s.Admitted() && s != StatusDuplicate
}

package fetcher

import (
	"context"

	"github.com/rohmanhakim/site-spider/pkg/failure"
)

// Fetcher performs one request per call and never follows redirects:
// a 3xx comes back as a result carrying its Location header.
//
// Open prepares the fetcher for a crawl. Close cancels requests still in
// flight and releases connections; Fetch after Close fails with
// ErrCauseClosed until Open is called again.
type Fetcher interface {
	Open() error
	Fetch(ctx context.Context, crawlDepth int, fetchParam FetchParam) (FetchResult, failure.ClassifiedError)
	Close() error
}

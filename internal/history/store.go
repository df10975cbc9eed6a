package history

import (
	"context"
	"time"
)

// Kind separates the rows a crawl writes: tasks recorded at admission and
// tasks recorded once fetched.
type Kind int

const (
	KindSpiderTask Kind = iota + 1
	KindSpiderVisited
)

func (k Kind) String() string {
	switch k {
	case KindSpiderTask:
		return "spider_task"
	case KindSpiderVisited:
		return "spider_visited"
	default:
		return "unknown"
	}
}

// Record is one persisted non-GET request.
type Record struct {
	SessionID  int64
	Kind       Kind
	Method     string
	URL        string
	BodyHash   string
	RecordedAt time.Time
}

// Store is the durable request history used to de-duplicate requests that
// cannot be keyed by URL alone. Rows outlive a crawl.
type Store interface {
	// ContainsURI reports whether a row with the same session, kind,
	// method, url and body hash exists.
	ContainsURI(ctx context.Context, sessionID int64, kind Kind, method, url, bodyHash string) (bool, error)
	// Record persists r. Recording an existing row is a no-op.
	Record(ctx context.Context, r Record) error
}

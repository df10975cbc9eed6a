package metadata

import (
	"time"
)

/*
crawlStats
  - Represents a terminal, derived summary of a completed crawl
  - Contains only aggregate counts and durations
  - Is computed by the controller after crawl termination
  - Is recorded exactly once per crawl
  - Must not influence scheduling or crawl termination
*/
type crawlStats struct {
	totalPages  int
	totalErrors int
	successful  bool
	durationMs  int64
}

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, reporting).

	Rules:
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause values MUST have stable, package-agnostic semantics.
	 - Packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

Meaning:
  - The failure does not map cleanly to any known category.

# CauseNetworkFailure

Meaning:
  - Failure caused by network transport or remote availability.

Examples:
  - TCP timeouts
  - DNS resolution failures
  - Fetcher closed while a request was in flight

# CauseMalformedURL

Meaning:
  - A discovered link or redirect target could not be resolved or keyed.

# CauseContentInvalid

Meaning:
  - Content was fetched but links could not be extracted from it.

# CauseStorageFailure

Meaning:
  - The history store could not be read or written.

# CauseInvariantViolation

Meaning:
  - A system-level invariant was violated.
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CauseMalformedURL
	CauseContentInvalid
	CauseStorageFailure
	CauseInvariantViolation
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CauseMalformedURL:
		return "malformed_url"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// LifecycleEvent names a crawl state transition.
type LifecycleEvent string

const (
	LifecycleStarted   LifecycleEvent = "started"
	LifecyclePaused    LifecycleEvent = "paused"
	LifecycleResumed   LifecycleEvent = "resumed"
	LifecycleStopped   LifecycleEvent = "stopped"
	LifecycleCompleted LifecycleEvent = "completed"
)

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrTime       AttributeKey = "time"
	AttrURL        AttributeKey = "url"
	AttrHost       AttributeKey = "host"
	AttrMethod     AttributeKey = "method"
	AttrDepth      AttributeKey = "depth"
	AttrField      AttributeKey = "field"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrLocation   AttributeKey = "location"
	AttrSeedCount  AttributeKey = "seed_count"
	AttrWorkers    AttributeKey = "workers"
)

type fetchEvent struct {
	fetchUrl    string
	method      string
	httpStatus  int
	duration    time.Duration
	contentType string
	retryCount  int
	crawlDepth  int
}

package metadata

import (
	"time"

	"go.uber.org/zap"
)

/*
Recorder captures structured crawl events and hands them to zap.
It must not:
- perform I/O decisions
- affect control flow
Ordering guarantees:
- Events are recorded synchronously in the order they are received by a single worker.
- No global ordering across workers is guaranteed.

Levels:
- fetches and skipped links at debug
- lifecycle transitions and final stats at info
- errors at warn, invariant violations at error
*/
type Recorder struct {
	logger *zap.Logger
}

func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		logger: logger,
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	fields := append([]zap.Field{
		zap.Time(string(AttrTime), observedAt),
		zap.String("package", packageName),
		zap.String("action", action),
		zap.Stringer("cause", cause),
		zap.String("error", errorString),
	}, attrFields(attrs)...)

	if cause == CauseInvariantViolation {
		r.logger.Error("crawl error", fields...)
		return
	}
	r.logger.Warn("crawl error", fields...)
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	method string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
	crawlDepth int,
) {
	event := fetchEvent{
		fetchUrl:    fetchUrl,
		method:      method,
		httpStatus:  httpStatus,
		duration:    duration,
		contentType: contentType,
		retryCount:  retryCount,
		crawlDepth:  crawlDepth,
	}
	r.logger.Debug("fetched",
		zap.String(string(AttrURL), event.fetchUrl),
		zap.String(string(AttrMethod), event.method),
		zap.Int(string(AttrHTTPStatus), event.httpStatus),
		zap.Duration("duration", event.duration),
		zap.String("content_type", event.contentType),
		zap.Int("retry_count", event.retryCount),
		zap.Int(string(AttrDepth), event.crawlDepth),
	)
}

func (r *Recorder) RecordSkip(url string, reason string, depth int) {
	r.logger.Debug("skipped",
		zap.String(string(AttrURL), url),
		zap.String("reason", reason),
		zap.Int(string(AttrDepth), depth),
	)
}

func (r *Recorder) RecordLifecycle(event LifecycleEvent, attrs []Attribute) {
	r.logger.Info("crawl "+string(event), attrFields(attrs)...)
}

/*
RecordFinalCrawlStats
  - MUST be called only after crawl termination
    (frontier exhausted or crawl stopped).
  - Recorded stats MUST NOT influence control flow or scheduling.
*/
func (r *Recorder) RecordFinalCrawlStats(
	totalPages int,
	totalErrors int,
	successful bool,
	duration time.Duration,
) {
	stats := crawlStats{
		totalPages:  totalPages,
		totalErrors: totalErrors,
		successful:  successful,
		durationMs:  duration.Milliseconds(),
	}

	r.logger.Info("crawl stats",
		zap.Int("total_pages", stats.totalPages),
		zap.Int("total_errors", stats.totalErrors),
		zap.Bool("successful", stats.successful),
		zap.Int64("duration_ms", stats.durationMs),
	)
}

// Sync flushes buffered log entries.
func (r *Recorder) Sync() error {
	return r.logger.Sync()
}

func attrFields(attrs []Attribute) []zap.Field {
	fields := make([]zap.Field, 0, len(attrs))
	for _, a := range attrs {
		fields = append(fields, zap.String(string(a.Key), a.Value))
	}
	return fields
}

type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)

	RecordFetch(
		fetchUrl string,
		method string,
		httpStatus int,
		duration time.Duration,
		contentType string,
		retryCount int,
		crawlDepth int,
	)

	RecordSkip(url string, reason string, depth int)

	RecordLifecycle(event LifecycleEvent, attrs []Attribute)
}

type CrawlFinalizer interface {
	RecordFinalCrawlStats(
		totalPages int,
		totalErrors int,
		successful bool,
		duration time.Duration,
	)
}

// NoopSink, struct that implements MetadataSink and CrawlFinalizer but does nothing
// The controller (or a test) can decide whether to inject Recorder or NoopSink
// Purpose is to make metadata orthogonal

type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	method string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
	crawlDepth int,
) {
}

func (n *NoopSink) RecordSkip(url string, reason string, depth int) {}

func (n *NoopSink) RecordLifecycle(event LifecycleEvent, attrs []Attribute) {}

func (n *NoopSink) RecordFinalCrawlStats(totalPages int, totalErrors int, successful bool, duration time.Duration) {
}

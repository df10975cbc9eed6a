package metadata_test

import (
	"testing"
	"time"

	"github.com/rohmanhakim/site-spider/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedRecorder(level zapcore.Level) (*metadata.Recorder, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return metadata.NewRecorder(zap.New(core)), logs
}

func TestRecordError_WarnsWithAttributes(t *testing.T) {
	recorder, logs := newObservedRecorder(zapcore.DebugLevel)

	recorder.RecordError(
		time.Now(),
		"fetcher",
		"HttpFetcher.Fetch",
		metadata.CauseNetworkFailure,
		"connection refused",
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, "http://example.com/")},
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "fetcher", fields["package"])
	assert.Equal(t, "network_failure", fields["cause"])
	assert.Equal(t, "http://example.com/", fields["url"])
}

func TestRecordError_InvariantViolationIsError(t *testing.T) {
	recorder, logs := newObservedRecorder(zapcore.DebugLevel)

	recorder.RecordError(time.Now(), "frontier", "Submit", metadata.CauseInvariantViolation, "boom", nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
}

func TestRecordFetchAndSkip_AreDebug(t *testing.T) {
	recorder, logs := newObservedRecorder(zapcore.InfoLevel)

	recorder.RecordFetch("http://example.com/", "GET", 200, time.Millisecond, "text/html", 0, 1)
	recorder.RecordSkip("http://other.com/", "out_of_scope", 2)
	assert.Equal(t, 0, logs.Len())

	recorder, logs = newObservedRecorder(zapcore.DebugLevel)
	recorder.RecordFetch("http://example.com/", "GET", 200, time.Millisecond, "text/html", 0, 1)
	recorder.RecordSkip("http://other.com/", "out_of_scope", 2)
	require.Equal(t, 2, logs.Len())
	assert.EqualValues(t, 200, logs.All()[0].ContextMap()["http_status"])
	assert.Equal(t, "out_of_scope", logs.All()[1].ContextMap()["reason"])
}

func TestRecordLifecycleAndStats(t *testing.T) {
	recorder, logs := newObservedRecorder(zapcore.InfoLevel)

	recorder.RecordLifecycle(metadata.LifecycleStarted, []metadata.Attribute{
		metadata.NewAttr(metadata.AttrSeedCount, "2"),
	})
	recorder.RecordFinalCrawlStats(10, 1, true, 1500*time.Millisecond)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "crawl started", entries[0].Message)
	assert.Equal(t, "2", entries[0].ContextMap()["seed_count"])
	assert.Equal(t, "crawl stats", entries[1].Message)
	assert.EqualValues(t, 1500, entries[1].ContextMap()["duration_ms"])
	assert.Equal(t, true, entries[1].ContextMap()["successful"])
}

func TestNewRecorder_NilLogger(t *testing.T) {
	recorder := metadata.NewRecorder(nil)
	assert.NotPanics(t, func() {
		recorder.RecordSkip("http://example.com/", "excluded", 0)
	})
}

func TestNewLogger(t *testing.T) {
	logger, err := metadata.NewLogger("debug", "json")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = metadata.NewLogger("bogus", "console")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = metadata.NewLogger("info", "xml")
	assert.Error(t, err)
}

func TestNoopSinkImplementsInterfaces(t *testing.T) {
	var sink metadata.MetadataSink = &metadata.NoopSink{}
	var finalizer metadata.CrawlFinalizer = &metadata.NoopSink{}
	sink.RecordSkip("http://example.com/", "excluded", 0)
	finalizer.RecordFinalCrawlStats(0, 0, false, 0)
}

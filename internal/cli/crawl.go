package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/rohmanhakim/site-spider/internal/config"
	"github.com/rohmanhakim/site-spider/internal/fetcher"
	"github.com/rohmanhakim/site-spider/internal/history"
	"github.com/rohmanhakim/site-spider/internal/metadata"
	"github.com/rohmanhakim/site-spider/internal/spider"
	"github.com/rohmanhakim/site-spider/pkg/limiter"
	"github.com/rohmanhakim/site-spider/pkg/retry"
	"github.com/rohmanhakim/site-spider/pkg/timeutil"
	"go.uber.org/zap"
)

// runCrawl wires the spider from cfg and crawls until the frontier is
// exhausted or ctx is cancelled. Cancellation is a graceful stop: workers
// finish the request they hold, up to the join timeout.
func runCrawl(ctx context.Context, cfg config.Config, out io.Writer) error {
	logger, err := metadata.NewLogger(cfg.LogLevel(), cfg.LogEncoding())
	if err != nil {
		return err
	}
	recorder := metadata.NewRecorder(logger)
	defer func() { _ = recorder.Sync() }()

	var store history.Store
	if dir := cfg.HistoryDBDir(); dir != "" {
		sqliteStore, err := history.OpenSQLiteStore(ctx, dir)
		if err != nil {
			return err
		}
		defer sqliteStore.Close()
		logger.Info("history store opened", zap.String("path", sqliteStore.Path()))
		store = sqliteStore
	}

	controller := spider.NewController(cfg, newHttpFetcher(cfg, recorder), store, recorder)
	listener := NewPrintingListener(out)
	controller.AddListener(listener)

	// the crawl outlives ctx so that a signal stops it gracefully
	if err := controller.Start(context.Background()); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		if controller.IsRunning() {
			logger.Info("stopping crawl")
			controller.Stop()
		}
	}()

	if err := controller.Wait(context.Background()); err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	listener.Summary()
	return nil
}

func newHttpFetcher(cfg config.Config, sink metadata.MetadataSink) *fetcher.HttpFetcher {
	rateLimiter := limiter.NewConcurrentRateLimiter()
	rateLimiter.SetBaseDelay(cfg.RequestDelay())
	rateLimiter.SetJitter(cfg.Jitter())
	rateLimiter.SetRandomSeed(cfg.RandomSeed())

	retryParam := retry.NewRetryParam(
		cfg.RequestDelay(),
		cfg.Jitter(),
		cfg.RandomSeed(),
		cfg.FetchMaxAttempts(),
		timeutil.NewBackoffParam(
			cfg.BackoffInitialDuration(),
			cfg.BackoffMultiplier(),
			cfg.BackoffMaxDuration(),
		),
	)

	return fetcher.NewHttpFetcher(
		sink,
		cfg.UserAgent(),
		cfg.Timeout(),
		cfg.MaxBodySize(),
		retryParam,
		fetcher.WithRateLimiter(rateLimiter),
	)
}

package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rohmanhakim/site-spider/internal/metadata"
	"github.com/rohmanhakim/site-spider/pkg/failure"
	"github.com/rohmanhakim/site-spider/pkg/limiter"
	"github.com/rohmanhakim/site-spider/pkg/retry"
)

/*
Responsibilities

- Perform HTTP requests with any method
- Apply headers, timeouts and per-host politeness delays
- Never follow redirects; the caller re-admits the Location target
- Classify transport failures

Fetch Semantics

- Every HTTP response is a result, whatever its status code
- Bodies are truncated at the configured size
- All fetches are recorded with metadata

The fetcher never parses content; it only returns bytes and metadata.
*/

type HttpFetcher struct {
	metadataSink metadata.MetadataSink
	rateLimiter  limiter.RateLimiter
	retryParam   retry.RetryParam
	userAgent    string
	timeout      time.Duration
	maxBodySize  int64
	transport    http.RoundTripper

	mu      sync.Mutex
	client  *http.Client
	baseCtx context.Context
	cancel  context.CancelFunc
}

type HttpFetcherOption func(*HttpFetcher)

// WithTransport replaces the default HTTP transport.
func WithTransport(rt http.RoundTripper) HttpFetcherOption {
	return func(h *HttpFetcher) {
		h.transport = rt
	}
}

// WithRateLimiter replaces the per-host limiter.
func WithRateLimiter(l limiter.RateLimiter) HttpFetcherOption {
	return func(h *HttpFetcher) {
		h.rateLimiter = l
	}
}

func NewHttpFetcher(
	metadataSink metadata.MetadataSink,
	userAgent string,
	timeout time.Duration,
	maxBodySize int64,
	retryParam retry.RetryParam,
	opts ...HttpFetcherOption,
) *HttpFetcher {
	h := &HttpFetcher{
		metadataSink: metadataSink,
		rateLimiter:  limiter.NewConcurrentRateLimiter(),
		retryParam:   retryParam,
		userAgent:    userAgent,
		timeout:      timeout,
		maxBodySize:  maxBodySize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Open (re)creates the HTTP client. Calling Open on an open fetcher is a no-op.
func (h *HttpFetcher) Open() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client != nil {
		return nil
	}

	transport := h.transport
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	h.client = &http.Client{
		Transport: transport,
		Timeout:   h.timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	h.baseCtx, h.cancel = context.WithCancel(context.Background())
	return nil
}

// Close aborts in-flight requests and drops idle connections.
func (h *HttpFetcher) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client == nil {
		return nil
	}
	h.cancel()
	h.client.CloseIdleConnections()
	h.client = nil
	return nil
}

func (h *HttpFetcher) session() (*http.Client, context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.client, h.baseCtx
}

func (h *HttpFetcher) Fetch(
	ctx context.Context,
	crawlDepth int,
	fetchParam FetchParam,
) (FetchResult, failure.ClassifiedError) {
	callerMethod := "HttpFetcher.Fetch"

	client, baseCtx := h.session()
	if client == nil {
		err := &FetchError{Message: fetchParam.fetchUrl, Cause: ErrCauseClosed}
		h.recordFetchError(callerMethod, fetchParam, err)
		return FetchResult{}, err
	}

	// Close cancels every request started under the current session
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(baseCtx, cancel)
	defer stop()

	target, err := url.Parse(fetchParam.fetchUrl)
	if err != nil {
		fetchErr := &FetchError{Message: err.Error(), Cause: ErrCauseInvalidRequest}
		h.recordFetchError(callerMethod, fetchParam, fetchErr)
		return FetchResult{}, fetchErr
	}

	startTime := time.Now()
	if err := h.rateLimiter.Wait(reqCtx, target.Host); err != nil {
		fetchErr := h.classifyTransportError(err, baseCtx)
		h.recordFetchError(callerMethod, fetchParam, fetchErr)
		return FetchResult{}, fetchErr
	}

	outcome := retry.Retry(reqCtx, h.retryParam, func() (FetchResult, failure.ClassifiedError) {
		return h.performFetch(reqCtx, baseCtx, client, fetchParam)
	})
	duration := time.Since(startTime)

	var statusCode int
	var contentType string
	if outcome.IsSuccess() {
		result := outcome.Value()
		result.meta.duration = duration
		statusCode = result.Code()
		contentType = result.ContentType()
		h.adjustBackoff(target.Host, statusCode)

		h.metadataSink.RecordFetch(fetchParam.fetchUrl, fetchParam.method, statusCode, duration, contentType, outcome.Attempts()-1, crawlDepth)
		return result, nil
	}

	h.metadataSink.RecordFetch(fetchParam.fetchUrl, fetchParam.method, statusCode, duration, contentType, outcome.Attempts()-1, crawlDepth)
	h.recordFetchError(callerMethod, fetchParam, outcome.Err())
	return FetchResult{}, outcome.Err()
}

// SetCrawlDelay applies a robots.txt Crawl-delay to every later fetch of host.
func (h *HttpFetcher) SetCrawlDelay(host string, delay time.Duration) {
	h.rateLimiter.SetCrawlDelay(host, delay)
}

// adjustBackoff slows a host down while it answers 429 or 503.
func (h *HttpFetcher) adjustBackoff(host string, statusCode int) {
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		h.rateLimiter.Backoff(host)
	default:
		h.rateLimiter.ResetBackoff(host)
	}
}

func (h *HttpFetcher) recordFetchError(callerMethod string, fetchParam FetchParam, err failure.ClassifiedError) {
	cause := metadata.CauseUnknown
	var fetchError *FetchError
	if errors.As(err, &fetchError) {
		cause = mapFetchErrorToMetadataCause(fetchError)
	} else if errors.Is(err, &retry.RetryError{}) {
		cause = metadata.CauseNetworkFailure
	}

	h.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		callerMethod,
		cause,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, fetchParam.fetchUrl),
			metadata.NewAttr(metadata.AttrMethod, fetchParam.method),
		},
	)
}

func (h *HttpFetcher) performFetch(
	ctx context.Context,
	baseCtx context.Context,
	client *http.Client,
	fetchParam FetchParam,
) (FetchResult, failure.ClassifiedError) {
	var body io.Reader
	if len(fetchParam.body) > 0 {
		body = bytes.NewReader(fetchParam.body)
	}

	req, err := http.NewRequestWithContext(ctx, fetchParam.method, fetchParam.fetchUrl, body)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidRequest,
		}
	}

	for key, value := range requestHeaders(h.userAgent) {
		req.Header.Set(key, value)
	}
	if len(fetchParam.body) > 0 && fetchParam.contentType != "" {
		req.Header.Set("Content-Type", fetchParam.contentType)
	}

	resp, err := client.Do(req)
	if err != nil {
		return FetchResult{}, h.classifyTransportError(err, baseCtx)
	}
	defer resp.Body.Close()

	reader := io.Reader(resp.Body)
	if h.maxBodySize > 0 {
		reader = io.LimitReader(resp.Body, h.maxBodySize)
	}
	respBody, err := io.ReadAll(reader)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: baseCtx.Err() == nil,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}

	responseHeaders := make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			responseHeaders[key] = values[0]
		}
	}

	return FetchResult{
		url:  fetchParam.fetchUrl,
		body: respBody,
		meta: ResponseMeta{
			statusCode:          resp.StatusCode,
			transferredSizeByte: uint64(len(respBody)),
			responseHeaders:     responseHeaders,
		},
	}, nil
}

func (h *HttpFetcher) classifyTransportError(err error, baseCtx context.Context) *FetchError {
	if baseCtx.Err() != nil {
		return &FetchError{Message: err.Error(), Retryable: false, Cause: ErrCauseClosed}
	}
	if errors.Is(err, context.Canceled) {
		return &FetchError{Message: err.Error(), Retryable: false, Cause: ErrCauseNetworkFailure}
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &FetchError{Message: err.Error(), Retryable: true, Cause: ErrCauseTimeout}
	}
	return &FetchError{Message: err.Error(), Retryable: true, Cause: ErrCauseNetworkFailure}
}

func requestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
	}
}

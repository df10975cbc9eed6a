package fetcher

import (
	"net/http"
	"strings"
	"time"
)

// HTTP boundary

type FetchParam struct {
	method      string
	fetchUrl    string
	body        []byte
	contentType string
}

// NewFetchParam describes one request. method defaults to GET; contentType
// is only sent when body is non-empty.
func NewFetchParam(method string, fetchUrl string, body []byte, contentType string) FetchParam {
	if method == "" {
		method = http.MethodGet
	}
	return FetchParam{
		method:      strings.ToUpper(method),
		fetchUrl:    fetchUrl,
		body:        body,
		contentType: contentType,
	}
}

func (p FetchParam) Method() string {
	return p.method
}

func (p FetchParam) URL() string {
	return p.fetchUrl
}

func (p FetchParam) Body() []byte {
	return p.body
}

type FetchResult struct {
	url  string
	body []byte
	meta ResponseMeta
}

func (f *FetchResult) URL() string {
	return f.url
}

func (f *FetchResult) Body() []byte {
	return f.body
}

func (f *FetchResult) Code() int {
	return f.meta.statusCode
}

func (f *FetchResult) SizeByte() uint64 {
	return f.meta.transferredSizeByte
}

func (f *FetchResult) Headers() map[string]string {
	return f.meta.responseHeaders
}

// Header returns the first value of a response header, matched case-insensitively.
func (f *FetchResult) Header(name string) string {
	if v, ok := f.meta.responseHeaders[http.CanonicalHeaderKey(name)]; ok {
		return v
	}
	return ""
}

func (f *FetchResult) ContentType() string {
	return f.Header("Content-Type")
}

// Location is the redirect target of a 3xx response, or "".
func (f *FetchResult) Location() string {
	if !f.IsRedirect() {
		return ""
	}
	return f.Header("Location")
}

func (f *FetchResult) IsRedirect() bool {
	return f.meta.statusCode >= 300 && f.meta.statusCode < 400
}

func (f *FetchResult) Duration() time.Duration {
	return f.meta.duration
}

type ResponseMeta struct {
	statusCode          int
	transferredSizeByte uint64
	responseHeaders     map[string]string
	duration            time.Duration
}

// NewFetchResultForTest creates a FetchResult for testing purposes.
// This allows test packages to construct FetchResult values without
// accessing unexported fields directly.
func NewFetchResultForTest(
	url string,
	body []byte,
	statusCode int,
	responseHeaders map[string]string,
) FetchResult {
	canonical := make(map[string]string, len(responseHeaders))
	for k, v := range responseHeaders {
		canonical[http.CanonicalHeaderKey(k)] = v
	}
	return FetchResult{
		url:  url,
		body: body,
		meta: ResponseMeta{
			statusCode:          statusCode,
			transferredSizeByte: uint64(len(body)),
			responseHeaders:     canonical,
		},
	}
}

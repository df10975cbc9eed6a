package urlutil

import (
	"fmt"

	"github.com/rohmanhakim/site-spider/pkg/failure"
)

type MalformedURLCause string

const (
	ErrCauseUnparsable     MalformedURLCause = "unparsable url"
	ErrCauseMissingScheme  MalformedURLCause = "missing scheme"
	ErrCauseMissingHost    MalformedURLCause = "missing host"
	ErrCauseInvalidEscape  MalformedURLCause = "invalid percent-encoding"
	ErrCauseEmptyReference MalformedURLCause = "empty base url"
)

// MalformedURLError is returned when a URL cannot be resolved or reduced to a
// key. The link that produced it is dropped; the crawl continues.
type MalformedURLError struct {
	URL   string
	Cause MalformedURLCause
	Err   error
}

func (e *MalformedURLError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed url %q: %s: %v", e.URL, e.Cause, e.Err)
	}
	return fmt.Sprintf("malformed url %q: %s", e.URL, e.Cause)
}

func (e *MalformedURLError) Unwrap() error {
	return e.Err
}

func (e *MalformedURLError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

// Is allows errors.Is to match any MalformedURLError.
func (e *MalformedURLError) Is(target error) bool {
	_, ok := target.(*MalformedURLError)
	return ok
}

func malformed(raw string, cause MalformedURLCause, err error) *MalformedURLError {
	return &MalformedURLError{URL: raw, Cause: cause, Err: err}
}

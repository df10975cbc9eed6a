package fetcher

import (
	"fmt"

	"github.com/rohmanhakim/site-spider/internal/metadata"
	"github.com/rohmanhakim/site-spider/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseInvalidRequest        FetchErrorCause = "invalid request"
	ErrCauseTimeout               FetchErrorCause = "timeout"
	ErrCauseNetworkFailure        FetchErrorCause = "network issues"
	ErrCauseReadResponseBodyError FetchErrorCause = "failed to read response body"
	ErrCauseClosed                FetchErrorCause = "fetcher closed"
)

// FetchError is a transport failure: no HTTP response was obtained.
// Any response, whatever its status code, is a result and not an error.
type FetchError struct {
	Message   string
	Retryable bool
	Cause     FetchErrorCause
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetcher error: %s: %s", e.Cause, e.Message)
}

// Severity is always recoverable: a failed fetch never aborts the crawl.
func (e *FetchError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

// IsRetryable returns whether this error is retryable
func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// Is allows errors.Is to match FetchError types
func (e *FetchError) Is(target error) bool {
	_, ok := target.(*FetchError)
	return ok
}

// mapFetchErrorToMetadataCause maps fetcher-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapFetchErrorToMetadataCause(err *FetchError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseTimeout, ErrCauseNetworkFailure, ErrCauseClosed, ErrCauseReadResponseBodyError:
		return metadata.CauseNetworkFailure
	case ErrCauseInvalidRequest:
		return metadata.CauseMalformedURL
	default:
		return metadata.CauseUnknown
	}
}

package history

import (
	"fmt"

	"github.com/rohmanhakim/site-spider/pkg/failure"
)

type PersistenceErrorCause string

const (
	ErrCauseOpenFailed   PersistenceErrorCause = "open failed"
	ErrCauseSchemaFailed PersistenceErrorCause = "schema failed"
	ErrCauseQueryFailed  PersistenceErrorCause = "query failed"
	ErrCauseWriteFailed  PersistenceErrorCause = "write failed"
	ErrCauseClosed       PersistenceErrorCause = "store closed"
)

// PersistenceError is returned when the history store cannot be read or
// written. Callers treat the affected request as not yet seen.
type PersistenceError struct {
	Message   string
	Retryable bool
	Cause     PersistenceErrorCause
	Err       error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("history error: %s: %s: %v", e.Cause, e.Message, e.Err)
	}
	return fmt.Sprintf("history error: %s: %s", e.Cause, e.Message)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *PersistenceError) IsRetryable() bool {
	return e.Retryable
}

// Is allows errors.Is to match PersistenceError types
func (e *PersistenceError) Is(target error) bool {
	_, ok := target.(*PersistenceError)
	return ok
}

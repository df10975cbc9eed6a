package failure

type Severity int

// crawl control flow
const (
	// SeverityFatal aborts the operation and is surfaced to the caller.
	SeverityFatal Severity = iota
	// SeverityRecoverable is logged and the crawl continues.
	SeverityRecoverable
)

func (s Severity) String() string {
	switch s {
	case SeverityFatal:
		return "fatal"
	case SeverityRecoverable:
		return "recoverable"
	default:
		return "unknown"
	}
}

type ClassifiedError interface {
	error
	Severity() Severity
}

// IsRecoverable reports whether err is a ClassifiedError that the crawl can
// continue past. Unclassified errors are treated as fatal.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	ce, ok := err.(ClassifiedError)
	if !ok {
		return false
	}
	return ce.Severity() == SeverityRecoverable
}

package spider

import "errors"

// Invariant violations. They are returned to the caller and never logged
// as recoverable crawl errors.
var (
	ErrAlreadyRunning = errors.New("spider already running")
	ErrNoSeeds        = errors.New("no seed URLs")
	ErrNotRunning     = errors.New("spider not running")
)

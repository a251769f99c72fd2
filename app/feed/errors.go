package feed

import "fmt"

// FetchError is a network/transport failure or a non-2xx response from the
// feed source. Recoverable: the poll is logged and skipped.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s failed: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError is a malformed payload. Recoverable: the payload (or entry) is
// skipped, the batch continues.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse error: %s", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// PersistenceError is a failed admission commit. Recoverable at post
// granularity: the post is dropped, the batch continues.
type PersistenceError struct {
	PostID int64
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist post %d: %v", e.PostID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

package errors

import (
	"errors"
	"fmt"
)

// FetchError represents a failed cover download: a transport failure or a
// non-200 response from the media host.
type FetchError struct {
	ID         string
	URL        string
	StatusCode int // 0 when the request never produced a response
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d from %s", e.ID, e.StatusCode, e.URL)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s from %s: %v", e.ID, e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s from %s failed", e.ID, e.URL)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchStatusError creates a FetchError for an unexpected HTTP status.
func NewFetchStatusError(id, url string, statusCode int) *FetchError {
	return &FetchError{ID: id, URL: url, StatusCode: statusCode}
}

// NewFetchError creates a FetchError wrapping a transport or write failure.
func NewFetchError(id, url string, err error) *FetchError {
	return &FetchError{ID: id, URL: url, Err: err}
}

// IsFetchError reports whether err is a FetchError (even when wrapped).
func IsFetchError(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}

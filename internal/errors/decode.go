package errors

import (
	"errors"
	"fmt"
)

// DecodeError represents an image that could not be read, decoded, or whose
// derived thumbnail could not be written.
type DecodeError struct {
	Path string
	Op   string // "open", "save" or "classify"
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError creates a DecodeError for the given operation and path.
func NewDecodeError(op, path string, err error) *DecodeError {
	return &DecodeError{Op: op, Path: path, Err: err}
}

// IsDecodeError reports whether err is a DecodeError (even when wrapped).
func IsDecodeError(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}

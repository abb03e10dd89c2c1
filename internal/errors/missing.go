package errors

import (
	"errors"
	"fmt"
)

// MissingArtifactError is returned when a file the pipeline expects on disk
// (a cover or its thumbnail) is absent.
type MissingArtifactError struct {
	ID   string
	Kind string // "cover" or "thumbnail"
	Path string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("%s %s missing at %s", e.ID, e.Kind, e.Path)
}

// NewMissingArtifactError creates a MissingArtifactError.
func NewMissingArtifactError(id, kind, path string) *MissingArtifactError {
	return &MissingArtifactError{ID: id, Kind: kind, Path: path}
}

// IsMissingArtifactError reports whether err is a MissingArtifactError (even when wrapped).
func IsMissingArtifactError(err error) bool {
	var missingErr *MissingArtifactError
	return errors.As(err, &missingErr)
}

package fileutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var componentEscaper = strings.NewReplacer(
	"~", "~~",
	"_", "~u",
	"/", "~s",
	"\\", "~b",
	":", "~c",
)

// EscapeComponent turns an identifier into a single path component that
// contains no separators and no underscores. The mapping is injective, so
// escaped components joined with "_" never collide.
func EscapeComponent(name string) string {
	return componentEscaper.Replace(name)
}

// FileExists checks if a regular file exists at the given path
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// WriteAtomic streams r into a temporary file next to filePath and renames it
// into place once the copy succeeded. Readers never observe a partial file.
// Returns the number of bytes written.
func WriteAtomic(filePath string, r io.Reader) (int64, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	n, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmpName)
		return n, fmt.Errorf("failed to write %s: %w", filePath, err)
	}

	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return n, fmt.Errorf("failed to set permissions on %s: %w", filePath, err)
	}

	if err := os.Rename(tmpName, filePath); err != nil {
		_ = os.Remove(tmpName)
		return n, fmt.Errorf("failed to move %s into place: %w", filePath, err)
	}

	return n, nil
}

// WriteFileAtomic writes data to filePath using WriteAtomic.
func WriteFileAtomic(filePath string, data []byte) error {
	_, err := WriteAtomic(filePath, bytes.NewReader(data))
	return err
}

// WriteJSONFile writes data as indented JSON to a file, replacing any previous content
func WriteJSONFile(data any, filePath string) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')

	slog.Info("Writing JSON file", "filename", filePath)
	if err := WriteFileAtomic(filePath, jsonData); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	return nil
}

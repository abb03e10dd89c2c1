// Package csvutil reads and writes header-first CSV files.
package csvutil

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/lepinkainen/coverspectrum/internal/fileutil"
)

// ProcessorOptions configures CSV processing behavior.
type ProcessorOptions struct {
	// Header, when set, must match the file's first row exactly.
	Header []string

	// SkipInvalid controls whether to skip invalid records or return an error.
	SkipInvalid bool
}

// ProcessCSV reads a CSV file and parses each record after the header into
// type T. Rows whose field count differs from the header are rejected by the
// CSV reader.
func ProcessCSV[T any](filename string, parser func([]string) (T, error), opts ProcessorOptions) ([]T, error) {
	csvFile, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = csvFile.Close() }()

	if fi, err := csvFile.Stat(); err != nil || fi.Size() == 0 {
		return nil, fmt.Errorf("CSV file %s is empty or cannot be read", filename)
	}

	reader := csv.NewReader(csvFile)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if opts.Header != nil && !slices.Equal(header, opts.Header) {
		return nil, fmt.Errorf("unexpected CSV header in %s: got %v, want %v", filename, header, opts.Header)
	}

	var items []T
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			if opts.SkipInvalid {
				slog.Warn("Error reading record", "file", filename, "line", line, "error", err)
				continue
			}
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		item, err := parser(record)
		if err != nil {
			if opts.SkipInvalid {
				slog.Warn("Skipping invalid record", "file", filename, "line", line, "error", err)
				continue
			}
			return nil, fmt.Errorf("invalid record on line %d: %w", line, err)
		}

		items = append(items, item)
	}

	return items, nil
}

// WriteCSV writes header followed by rows, replacing filename atomically.
func WriteCSV(filename string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}

	if err := fileutil.WriteFileAtomic(filename, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write CSV file: %w", err)
	}
	return nil
}

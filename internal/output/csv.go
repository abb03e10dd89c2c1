// Package output persists assembled cover records: the sorted CSV, the JSON
// snapshot handed between stages, and the optional SQLite/Datasette table.
package output

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/lepinkainen/coverspectrum/internal/csvutil"
	"github.com/lepinkainen/coverspectrum/internal/pipeline"
	"github.com/lepinkainen/coverspectrum/internal/signature"
)

// CSVHeader is the column order of the sorted CSV.
var CSVHeader = []string{
	"seq", "volume", "issue", "image_path", "thumbnail_path",
	"red", "green", "blue", "wavelength_nm", "signature_status",
	"brightness", "is_dark", "classified", "source_url",
}

// WriteCSV writes records in the given order.
func WriteCSV(path string, records []pipeline.CoverRecord) error {
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = csvRow(rec)
	}
	if err := csvutil.WriteCSV(path, CSVHeader, rows); err != nil {
		return err
	}
	slog.Info("Wrote sorted CSV", "path", path, "records", len(records))
	return nil
}

// ReadCSV loads records written by WriteCSV, preserving file order.
func ReadCSV(path string) ([]pipeline.CoverRecord, error) {
	return csvutil.ProcessCSV(path, parseCSVRow, csvutil.ProcessorOptions{Header: CSVHeader})
}

func csvRow(rec pipeline.CoverRecord) []string {
	return []string{
		strconv.Itoa(rec.Seq),
		rec.Volume,
		rec.Issue,
		rec.ImagePath,
		rec.ThumbnailPath,
		strconv.Itoa(int(rec.Signature.RGB.R)),
		strconv.Itoa(int(rec.Signature.RGB.G)),
		strconv.Itoa(int(rec.Signature.RGB.B)),
		formatFloat(rec.Signature.WavelengthNM),
		string(rec.Signature.Status),
		formatFloat(rec.Brightness),
		strconv.FormatBool(rec.IsDark),
		strconv.FormatBool(rec.Classified),
		rec.SourceURL,
	}
}

// formatFloat uses the shortest representation that parses back exactly.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseCSVRow(row []string) (pipeline.CoverRecord, error) {
	var rec pipeline.CoverRecord
	var err error

	if rec.Seq, err = strconv.Atoi(row[0]); err != nil {
		return rec, fmt.Errorf("invalid seq %q: %w", row[0], err)
	}
	rec.Volume = row[1]
	rec.Issue = row[2]
	rec.ImagePath = row[3]
	rec.ThumbnailPath = row[4]

	channels := make([]uint8, 3)
	for i, s := range row[5:8] {
		v, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return rec, fmt.Errorf("invalid color channel %q: %w", s, err)
		}
		channels[i] = uint8(v)
	}
	rec.Signature.RGB = signature.RGB{R: channels[0], G: channels[1], B: channels[2]}

	if rec.Signature.WavelengthNM, err = strconv.ParseFloat(row[8], 64); err != nil {
		return rec, fmt.Errorf("invalid wavelength %q: %w", row[8], err)
	}
	switch status := signature.Status(row[9]); status {
	case signature.StatusOK, signature.StatusDecodeError:
		rec.Signature.Status = status
	default:
		return rec, fmt.Errorf("invalid signature status %q", row[9])
	}
	if rec.Brightness, err = strconv.ParseFloat(row[10], 64); err != nil {
		return rec, fmt.Errorf("invalid brightness %q: %w", row[10], err)
	}
	if rec.IsDark, err = strconv.ParseBool(row[11]); err != nil {
		return rec, fmt.Errorf("invalid is_dark %q: %w", row[11], err)
	}
	if rec.Classified, err = strconv.ParseBool(row[12]); err != nil {
		return rec, fmt.Errorf("invalid classified %q: %w", row[12], err)
	}
	rec.SourceURL = row[13]
	return rec, nil
}

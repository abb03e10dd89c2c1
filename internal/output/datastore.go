package output

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/coverspectrum/internal/config"
	"github.com/lepinkainen/coverspectrum/internal/datastore"
	"github.com/lepinkainen/coverspectrum/internal/pipeline"
)

// Datasette database and table names.
const (
	DatabaseName = "coverspectrum"
	CoversTable  = "covers"
)

// CoversSchema is the SQLite table the records are published to. One row per
// identifier; a later run replaces earlier rows.
const CoversSchema = `CREATE TABLE IF NOT EXISTS covers (
	volume TEXT NOT NULL,
	issue TEXT NOT NULL,
	seq INTEGER,
	image_path TEXT,
	thumbnail_path TEXT,
	red INTEGER,
	green INTEGER,
	blue INTEGER,
	hex TEXT,
	wavelength_nm REAL,
	signature_status TEXT,
	brightness REAL,
	is_dark BOOLEAN,
	classified BOOLEAN,
	source_url TEXT,
	run_id TEXT,
	PRIMARY KEY (volume, issue)
)`

// NewStore returns the destination selected by cfg.Mode.
func NewStore(cfg config.DatasetteConfig) (datastore.Store, error) {
	switch cfg.Mode {
	case "local", "":
		return datastore.NewSQLiteStore(cfg.DBFile), nil
	case "remote":
		return datastore.NewDatasetteClient(cfg.RemoteURL, cfg.APIToken), nil
	default:
		return nil, fmt.Errorf("unknown datasette mode %q", cfg.Mode)
	}
}

// Publish writes records to store, stamping each row with runID.
func Publish(ctx context.Context, store datastore.Store, runID string, records []pipeline.CoverRecord) error {
	if err := store.Connect(); err != nil {
		return fmt.Errorf("failed to connect to datastore: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.CreateTable(CoversSchema); err != nil {
		return err
	}

	rows := make([]map[string]any, len(records))
	for i, rec := range records {
		rows[i] = coverRow(rec, runID)
	}
	if err := store.BatchInsert(ctx, DatabaseName, CoversTable, rows); err != nil {
		return err
	}

	slog.Info("Published cover records", "table", CoversTable, "records", len(rows), "run_id", runID)
	return nil
}

func coverRow(rec pipeline.CoverRecord, runID string) map[string]any {
	return map[string]any{
		"volume":           rec.Volume,
		"issue":            rec.Issue,
		"seq":              rec.Seq,
		"image_path":       rec.ImagePath,
		"thumbnail_path":   rec.ThumbnailPath,
		"red":              int(rec.Signature.RGB.R),
		"green":            int(rec.Signature.RGB.G),
		"blue":             int(rec.Signature.RGB.B),
		"hex":              rec.Signature.RGB.Hex(),
		"wavelength_nm":    rec.Signature.WavelengthNM,
		"signature_status": string(rec.Signature.Status),
		"brightness":       rec.Brightness,
		"is_dark":          rec.IsDark,
		"classified":       rec.Classified,
		"source_url":       rec.SourceURL,
		"run_id":           runID,
	}
}

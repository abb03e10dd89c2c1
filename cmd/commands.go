package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lepinkainen/coverspectrum/internal/acquire"
	"github.com/lepinkainen/coverspectrum/internal/brightness"
	"github.com/lepinkainen/coverspectrum/internal/config"
	"github.com/lepinkainen/coverspectrum/internal/gallery"
	"github.com/lepinkainen/coverspectrum/internal/issues"
	"github.com/lepinkainen/coverspectrum/internal/metrics"
	"github.com/lepinkainen/coverspectrum/internal/output"
	"github.com/lepinkainen/coverspectrum/internal/pipeline"
	"github.com/lepinkainen/coverspectrum/internal/ratelimit"
	"github.com/lepinkainen/coverspectrum/internal/runlock"
	"github.com/lepinkainen/coverspectrum/internal/signature"
)

// RunCmd runs every stage.
type RunCmd struct {
	Index string `short:"i" help:"Index file (overrides index.file)" type:"path"`
}

// AcquireCmd fills the cover cache.
type AcquireCmd struct {
	Index string `short:"i" help:"Index file (overrides index.file)" type:"path"`
}

// AnalyzeCmd builds the records.
type AnalyzeCmd struct {
	Index string `short:"i" help:"Index file (overrides index.file)" type:"path"`
}

// RenderCmd builds the gallery page from persisted records.
type RenderCmd struct {
	Records string `short:"r" help:"Record file to render, .json or .csv (overrides output.records)" type:"path"`
	Output  string `short:"o" help:"HTML file to write (overrides output.html)" type:"path"`
}

// Seams for tests.
var (
	stdout   io.Writer = os.Stdout
	now                = time.Now
	newRunID           = uuid.NewString
)

func (c *RunCmd) Run(ctx context.Context, cfg *config.Config) error {
	idx, err := loadIndex(cfg, c.Index)
	if err != nil {
		return err
	}

	return withLock(cfg, func(m *metrics.Metrics) error {
		runID := newRunID()
		res, err := newAssembler(cfg, m).Assemble(ctx, idx)
		if err != nil {
			return err
		}
		if err := writeAnalysis(ctx, cfg, runID, res); err != nil {
			return err
		}
		if err := gallery.Write(cfg.Output.HTMLFile, res, galleryOptions(cfg, runID)); err != nil {
			return err
		}
		m.Finish(len(res.All), now())
		printSummary(stdout, idx.Len(), res)
		return nil
	})
}

func (c *AcquireCmd) Run(ctx context.Context, cfg *config.Config) error {
	idx, err := loadIndex(cfg, c.Index)
	if err != nil {
		return err
	}

	return withLock(cfg, func(m *metrics.Metrics) error {
		unavailable, err := newAssembler(cfg, m).Prefetch(ctx, idx)
		if err != nil {
			return err
		}
		slog.Info("Cover cache updated",
			"identifiers", idx.Len(),
			"available", idx.Len()-len(unavailable),
			"unavailable", len(unavailable))
		printUnavailable(stdout, unavailable)
		return nil
	})
}

func (c *AnalyzeCmd) Run(ctx context.Context, cfg *config.Config) error {
	idx, err := loadIndex(cfg, c.Index)
	if err != nil {
		return err
	}

	return withLock(cfg, func(m *metrics.Metrics) error {
		res, err := newAssembler(cfg, m).Assemble(ctx, idx)
		if err != nil {
			return err
		}
		if err := writeAnalysis(ctx, cfg, newRunID(), res); err != nil {
			return err
		}
		m.Finish(len(res.All), now())
		printSummary(stdout, idx.Len(), res)
		return nil
	})
}

func (c *RenderCmd) Run(cfg *config.Config) error {
	recordsFile := cfg.Output.RecordsFile
	if c.Records != "" {
		recordsFile = c.Records
	}
	htmlFile := cfg.Output.HTMLFile
	if c.Output != "" {
		htmlFile = c.Output
	}

	snap, err := output.ReadSnapshot(recordsFile)
	if err != nil {
		return fmt.Errorf("run analyze first: %w", err)
	}

	pipeline.Reclassify(snap.Records, brightness.New(cfg.Classify.Threshold))
	if missing := pipeline.DropMissingThumbnails(snap.Records); missing > 0 {
		slog.Info("Left covers without thumbnails out of the gallery", "count", missing)
	}
	res := pipeline.Partition(snap.Records)

	opts := galleryOptions(cfg, snap.RunID)
	if !snap.GeneratedAt.IsZero() {
		opts.GeneratedAt = snap.GeneratedAt
	}
	return gallery.Write(htmlFile, res, opts)
}

func loadIndex(cfg *config.Config, override string) (*issues.Index, error) {
	path := cfg.IndexFile
	if override != "" {
		path = override
	}
	idx, err := issues.Load(path)
	if err != nil {
		return nil, err
	}
	slog.Info("Loaded index", "path", path, "volumes", len(idx.Volumes), "identifiers", idx.Len())
	return idx, nil
}

// withLock holds the cache lock around fn and writes the metrics textfile
// afterwards, also when fn failed.
func withLock(cfg *config.Config, fn func(*metrics.Metrics) error) (err error) {
	lock, err := runlock.Acquire(cfg.CacheDir)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			slog.Warn("Failed to release run lock", "error", releaseErr)
		}
	}()

	var m *metrics.Metrics
	if cfg.Metrics.Textfile != "" {
		m = metrics.New()
	}

	err = fn(m)

	if writeErr := m.WriteTextfile(cfg.Metrics.Textfile); writeErr != nil {
		slog.Warn("Failed to write metrics", "path", cfg.Metrics.Textfile, "error", writeErr)
	}
	return err
}

func newAssembler(cfg *config.Config, m *metrics.Metrics) *pipeline.Assembler {
	fetcher := acquire.New(cfg,
		acquire.WithLimiter(ratelimit.New("covers", cfg.HTTP.RateLimit)),
		acquire.WithMetrics(m),
	)
	return pipeline.NewAssembler(cfg,
		fetcher,
		signature.NewExtractor(cfg.Thumbnails),
		m)
}

func writeAnalysis(ctx context.Context, cfg *config.Config, runID string, res *pipeline.Result) error {
	snap := &output.Snapshot{
		RunID:       runID,
		GeneratedAt: now().UTC(),
		Threshold:   cfg.Classify.Threshold,
		Records:     res.All,
	}
	if err := output.WriteSnapshot(cfg.Output.RecordsFile, snap); err != nil {
		return err
	}
	if err := output.WriteCSV(cfg.Output.CSVFile, res.All); err != nil {
		return err
	}

	if !cfg.Datasette.Enabled {
		return nil
	}
	store, err := output.NewStore(cfg.Datasette)
	if err != nil {
		return err
	}
	return output.Publish(ctx, store, runID, res.All)
}

func galleryOptions(cfg *config.Config, runID string) gallery.Options {
	return gallery.Options{
		Title:       cfg.Output.Title,
		RunID:       runID,
		GeneratedAt: now(),
	}
}

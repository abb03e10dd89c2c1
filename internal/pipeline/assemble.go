package pipeline

import (
	"context"
	"log/slog"

	"github.com/lepinkainen/coverspectrum/internal/brightness"
	"github.com/lepinkainen/coverspectrum/internal/config"
	coverrors "github.com/lepinkainen/coverspectrum/internal/errors"
	"github.com/lepinkainen/coverspectrum/internal/fileutil"
	"github.com/lepinkainen/coverspectrum/internal/issues"
	"github.com/lepinkainen/coverspectrum/internal/metrics"
	"github.com/lepinkainen/coverspectrum/internal/signature"
	"golang.org/x/sync/errgroup"
)

// Fetcher resolves an identifier to a local cover file.
type Fetcher interface {
	Acquire(ctx context.Context, id issues.Identifier) (string, error)
}

// Extractor computes the average color of a cover and persists its thumbnail.
type Extractor interface {
	Extract(imagePath string) (signature.Extraction, error)
}

// Assembler runs the per-cover work over an index on a bounded worker pool.
type Assembler struct {
	fetcher    Fetcher
	extractor  Extractor
	classifier *brightness.Classifier
	sourceURL  string
	workers    int
	metrics    *metrics.Metrics
}

// NewAssembler wires the pipeline stages together. workers below 1 runs
// sequentially.
func NewAssembler(cfg *config.Config, fetcher Fetcher, extractor Extractor, m *metrics.Metrics) *Assembler {
	workers := cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}
	return &Assembler{
		fetcher:    fetcher,
		extractor:  extractor,
		classifier: brightness.New(cfg.Classify.Threshold),
		sourceURL:  cfg.Covers.SourceURLTemplate,
		workers:    workers,
		metrics:    m,
	}
}

// Assemble processes every identifier in idx and returns the grouped,
// sorted records. Per-cover failures are logged and skipped; only context
// cancellation aborts the run.
func (a *Assembler) Assemble(ctx context.Context, idx *issues.Index) (*Result, error) {
	pairs := idx.Pairs()
	slog.Info("Assembling cover records", "identifiers", len(pairs), "workers", a.workers)

	// one slot per identifier, filled by Seq, so scheduling cannot reorder output
	slots := make([]*CoverRecord, len(pairs))

	err := a.forEach(ctx, pairs, func(ctx context.Context, seq int, id issues.Identifier) error {
		rec, err := a.process(ctx, seq, id)
		if err != nil {
			return err
		}
		slots[seq] = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	records := make([]CoverRecord, 0, len(pairs))
	var unavailable []issues.Identifier
	for seq, rec := range slots {
		if rec == nil {
			unavailable = append(unavailable, pairs[seq])
			continue
		}
		records = append(records, *rec)
	}

	res := Partition(records)
	res.Unavailable = unavailable

	slog.Info("Assembled cover records",
		"records", len(res.All),
		"dark", len(res.Dark),
		"light", len(res.Light),
		"unavailable", len(unavailable))
	return res, nil
}

// Prefetch only acquires covers, filling the cache for a later Assemble.
// It returns the identifiers that could not be acquired.
func (a *Assembler) Prefetch(ctx context.Context, idx *issues.Index) ([]issues.Identifier, error) {
	pairs := idx.Pairs()
	failed := make([]bool, len(pairs))

	err := a.forEach(ctx, pairs, func(ctx context.Context, seq int, id issues.Identifier) error {
		if _, ok, err := a.acquire(ctx, id); err != nil {
			return err
		} else if !ok {
			failed[seq] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var unavailable []issues.Identifier
	for seq, f := range failed {
		if f {
			unavailable = append(unavailable, pairs[seq])
		}
	}
	return unavailable, nil
}

func (a *Assembler) forEach(ctx context.Context, pairs []issues.Identifier, fn func(context.Context, int, issues.Identifier) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for seq, id := range pairs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(gctx, seq, id)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// acquire fetches one cover. ok is false when the cover is unavailable; the
// error is non-nil only when ctx has been cancelled.
func (a *Assembler) acquire(ctx context.Context, id issues.Identifier) (path string, ok bool, err error) {
	path, fetchErr := a.fetcher.Acquire(ctx, id)
	if ctx.Err() != nil {
		return path, false, ctx.Err()
	}
	if fetchErr == nil && !fileutil.FileExists(path) {
		fetchErr = coverrors.NewMissingArtifactError(id.String(), "cover", path)
	}
	if fetchErr != nil {
		slog.Warn("Cover unavailable", "id", id.String(), "path", path, "error", fetchErr)
		return path, false, nil
	}
	return path, true, nil
}

// process builds the record for one identifier. A nil record means the
// cover was unavailable.
func (a *Assembler) process(ctx context.Context, seq int, id issues.Identifier) (*CoverRecord, error) {
	path, ok, err := a.acquire(ctx, id)
	if err != nil || !ok {
		return nil, err
	}

	rec := &CoverRecord{
		Seq:       seq,
		Volume:    id.Volume,
		Issue:     id.Issue,
		ImagePath: path,
		SourceURL: config.Expand(a.sourceURL, id.Volume, id.Issue),
	}

	ext, err := a.extractor.Extract(path)
	rec.ThumbnailPath = ext.ThumbnailPath
	if err != nil {
		slog.Warn("Color extraction failed", "id", id.String(), "path", path, "error", err)
		rec.Signature = signature.Failed()
	} else {
		rec.Signature = signature.New(ext.RGB)
	}
	a.metrics.Signature(string(rec.Signature.Status))

	a.classify(rec)
	a.metrics.Class(rec.Class())
	return rec, nil
}

func (a *Assembler) classify(rec *CoverRecord) {
	if !fileutil.FileExists(rec.ThumbnailPath) {
		slog.Warn("Missing thumbnail", "id", rec.ID().String(), "path", rec.ThumbnailPath,
			"error", coverrors.NewMissingArtifactError(rec.ID().String(), "thumbnail", rec.ThumbnailPath))
		return
	}

	mean, err := a.classifier.Mean(rec.ThumbnailPath)
	if err != nil {
		slog.Warn("Missing thumbnail", "id", rec.ID().String(), "path", rec.ThumbnailPath, "error", err)
		return
	}

	rec.Brightness = mean
	rec.IsDark = a.classifier.IsDarkMean(mean)
	rec.Classified = true
}

// Package acquire downloads cover originals into the on-disk cache.
package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/lepinkainen/coverspectrum/internal/config"
	coverrors "github.com/lepinkainen/coverspectrum/internal/errors"
	"github.com/lepinkainen/coverspectrum/internal/fileutil"
	"github.com/lepinkainen/coverspectrum/internal/issues"
	"github.com/lepinkainen/coverspectrum/internal/metrics"
	"github.com/lepinkainen/coverspectrum/internal/ratelimit"
	"golang.org/x/sync/singleflight"
)

// Acquirer maps identifiers to cached cover files, downloading a cover only
// when its file is absent. Files are never overwritten once present.
type Acquirer struct {
	covers    config.CoversConfig
	client    *http.Client
	userAgent string
	limiter   *ratelimit.Limiter
	metrics   *metrics.Metrics

	inflight singleflight.Group
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithHTTPClient replaces the default client (timeout from config).
func WithHTTPClient(client *http.Client) Option {
	return func(a *Acquirer) {
		a.client = client
	}
}

// WithLimiter throttles downloads. A nil limiter disables throttling.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(a *Acquirer) {
		a.limiter = l
	}
}

// WithMetrics records acquisition outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Acquirer) {
		a.metrics = m
	}
}

// New creates an Acquirer from cfg.
func New(cfg *config.Config, opts ...Option) *Acquirer {
	a := &Acquirer{
		covers:    cfg.Covers,
		client:    &http.Client{Timeout: cfg.HTTP.Timeout},
		userAgent: cfg.HTTP.UserAgent,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Path returns the deterministic cache path for id.
func (a *Acquirer) Path(id issues.Identifier) string {
	name := fileutil.EscapeComponent(id.Volume) + "_" + fileutil.EscapeComponent(id.Issue) + ".jpg"
	if a.covers.Prefix != "" {
		name = a.covers.Prefix + "_" + name
	}
	return filepath.Join(a.covers.Dir, name)
}

// URL returns the download URL for id.
func (a *Acquirer) URL(id issues.Identifier) string {
	return config.Expand(a.covers.URLTemplate, id.Volume, id.Issue)
}

// Acquire returns the cache path for id, downloading the cover first when the
// file does not exist yet.
//
// The path is returned even when the download fails; the error is then a
// *errors.FetchError and no file has been written. Callers decide whether a
// failure is fatal.
func (a *Acquirer) Acquire(ctx context.Context, id issues.Identifier) (string, error) {
	path := a.Path(id)

	if fileutil.FileExists(path) {
		slog.Debug("Cover already cached, skipping download", "id", id.String(), "path", path)
		a.metrics.Cover(metrics.CoverCacheHit)
		return path, nil
	}

	// Concurrent callers for the same path share a single request.
	_, err, _ := a.inflight.Do(path, func() (any, error) {
		if fileutil.FileExists(path) {
			return nil, nil
		}
		return nil, a.download(ctx, id, path)
	})
	return path, err
}

func (a *Acquirer) download(ctx context.Context, id issues.Identifier, path string) error {
	url := a.URL(id)

	if err := a.limiter.Wait(ctx); err != nil {
		a.metrics.Cover(metrics.CoverFailed)
		return coverrors.NewFetchError(id.String(), url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		a.metrics.Cover(metrics.CoverFailed)
		return coverrors.NewFetchError(id.String(), url, err)
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		a.metrics.Fetch(0, time.Since(start), 0)
		a.metrics.Cover(metrics.CoverFailed)
		return coverrors.NewFetchError(id.String(), url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		a.metrics.Fetch(resp.StatusCode, time.Since(start), 0)
		a.metrics.Cover(metrics.CoverFailed)
		return coverrors.NewFetchStatusError(id.String(), url, resp.StatusCode)
	}

	n, err := fileutil.WriteAtomic(path, resp.Body)
	a.metrics.Fetch(resp.StatusCode, time.Since(start), n)
	if err != nil {
		a.metrics.Cover(metrics.CoverFailed)
		return coverrors.NewFetchError(id.String(), url, fmt.Errorf("failed to save cover: %w", err))
	}

	a.metrics.Cover(metrics.CoverDownloaded)
	slog.Info("Downloaded cover", "id", id.String(), "path", path, "bytes", n)
	return nil
}

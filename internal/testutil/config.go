package testutil

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/lepinkainen/coverspectrum/internal/config"
)

// NewTestConfig returns the default configuration with every path moved into
// the sandbox and covers fetched from serverURL. Rate limiting is disabled
// and the worker pool is sequential unless the caller changes it.
func NewTestConfig(env *TestEnv, serverURL string) *config.Config {
	env.t.Helper()

	cfg := config.Default()
	cfg.IndexFile = env.Path("cache", "volumes_issues.json")
	cfg.CacheDir = env.Path("cache")
	cfg.Covers.Dir = env.Path("covers")
	cfg.Covers.URLTemplate = serverURL + "/journal/{volume}/{issue}"
	cfg.Thumbnails.Dir = env.Path("thumbnails")
	cfg.Pipeline.Workers = 1
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.HTTP.RateLimit = 0
	cfg.Output.CSVFile = env.Path("cache", "covers_sorted.csv")
	cfg.Output.RecordsFile = env.Path("cache", "covers.json")
	cfg.Output.HTMLFile = env.Path("gallery.html")
	cfg.Datasette.DBFile = env.Path("coverspectrum.db")
	return cfg
}

// CaptureLogs routes the default slog logger into a buffer for the duration
// of the test.
func CaptureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
	t.Cleanup(func() {
		slog.SetDefault(orig)
	})
	return &buf
}

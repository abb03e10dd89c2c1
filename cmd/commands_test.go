package cmd

import (
	"bytes"
	"context"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lepinkainen/coverspectrum/internal/config"
	"github.com/lepinkainen/coverspectrum/internal/output"
	"github.com/lepinkainen/coverspectrum/internal/runlock"
	"github.com/lepinkainen/coverspectrum/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIndex = `{
  "636": ["8041", "8042"],
  "637": ["8043"]
}`

type fixture struct {
	env      *testutil.TestEnv
	cfg      *config.Config
	out      *bytes.Buffer
	requests *atomic.Int32
}

func newFixture(t *testing.T, covers map[string]color.NRGBA) *fixture {
	t.Helper()

	bodies := make(map[string][]byte, len(covers))
	for id, c := range covers {
		bodies[id] = testutil.EncodePNG(t, testutil.Solid(30, 40, c))
	}

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		body, ok := bodies[strings.TrimPrefix(r.URL.Path, "/journal/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)

	env := testutil.NewTestEnv(t)
	env.WriteFileString("cache/volumes_issues.json", testIndex)

	var out bytes.Buffer
	origStdout, origNow, origRunID := stdout, now, newRunID
	stdout = &out
	now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }
	newRunID = func() string { return "test-run" }
	t.Cleanup(func() {
		stdout, now, newRunID = origStdout, origNow, origRunID
	})

	return &fixture{
		env:      env,
		cfg:      testutil.NewTestConfig(env, server.URL),
		out:      &out,
		requests: &requests,
	}
}

func allCovers() map[string]color.NRGBA {
	return map[string]color.NRGBA{
		"636/8041": testutil.RGB(0, 0, 200),
		"636/8042": testutil.RGB(240, 240, 240),
		"637/8043": testutil.RGB(180, 0, 0),
	}
}

func TestRunCmd_EndToEnd(t *testing.T) {
	f := newFixture(t, allCovers())
	f.cfg.Datasette.Enabled = true
	f.cfg.Metrics.Textfile = f.env.Path("metrics", "coverspectrum.prom")

	require.NoError(t, (&RunCmd{}).Run(context.Background(), f.cfg))

	f.env.RequireFileExists("cache/covers.json")
	f.env.RequireFileExists("cache/covers_sorted.csv")
	f.env.RequireFileExists("gallery.html")
	f.env.RequireFileExists("coverspectrum.db")
	f.env.RequireFileExists("metrics/coverspectrum.prom")
	assert.Equal(t, []string{
		"nature_636_8041_thumbnail.jpg", "nature_636_8042_thumbnail.jpg", "nature_637_8043_thumbnail.jpg",
	}, f.env.ListFiles("thumbnails"))

	csv := f.env.ReadFileString("cache/covers_sorted.csv")
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 4)
	// red (380) and near-white gray (380) keep index order, blue last
	assert.True(t, strings.HasPrefix(lines[1], "1,636,8042,"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "2,637,8043,"), lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "0,636,8041,"), lines[3])

	html := f.env.ReadFileString("gallery.html")
	assert.Contains(t, html, `src="thumbnails/nature_636_8041_thumbnail.jpg"`)
	assert.Contains(t, html, "Dark Covers (2)")
	assert.Contains(t, html, "Light Covers (1)")
	assert.Contains(t, html, "run test-run")

	assert.Contains(t, f.env.ReadFileString("metrics/coverspectrum.prom"), "coverspectrum_records 3")
	assert.Contains(t, f.out.String(), "Records")

	snap, err := output.ReadSnapshot(f.cfg.Output.RecordsFile)
	require.NoError(t, err)
	assert.Equal(t, "test-run", snap.RunID)
	assert.Len(t, snap.Records, 3)

	// second run is served entirely from the cache
	require.NoError(t, (&RunCmd{}).Run(context.Background(), f.cfg))
	assert.Equal(t, int32(3), f.requests.Load())
}

func TestAcquireThenAnalyzeThenRender(t *testing.T) {
	covers := allCovers()
	delete(covers, "637/8043")
	f := newFixture(t, covers)

	require.NoError(t, (&AcquireCmd{}).Run(context.Background(), f.cfg))
	assert.Equal(t, []string{"nature_636_8041.jpg", "nature_636_8042.jpg"}, f.env.ListFiles("covers"))
	assert.Nil(t, f.env.ListFiles("thumbnails"))
	assert.Contains(t, f.out.String(), "Unavailable: 637/8043")

	require.NoError(t, (&AnalyzeCmd{}).Run(context.Background(), f.cfg))
	f.env.RequireFileNotExists("gallery.html")

	require.NoError(t, (&RenderCmd{}).Run(f.cfg))
	html := f.env.ReadFileString("gallery.html")
	assert.Contains(t, html, "Issue 8041")
	assert.Contains(t, html, "Issue 8042")
	assert.NotContains(t, html, "Issue 8043")
}

func TestRenderCmd_ThresholdReappliedFromStoredBrightness(t *testing.T) {
	f := newFixture(t, allCovers())
	require.NoError(t, (&AnalyzeCmd{}).Run(context.Background(), f.cfg))

	// every cover is darker than 255
	f.cfg.Classify.Threshold = 255
	out := f.env.Path("all_dark.html")
	require.NoError(t, (&RenderCmd{Output: out}).Run(f.cfg))

	html := f.env.ReadFileString("all_dark.html")
	assert.Contains(t, html, "Dark Covers (3)")
	assert.Contains(t, html, "Light Covers (0)")
}

func TestRenderCmd_FromCSV(t *testing.T) {
	f := newFixture(t, allCovers())
	require.NoError(t, (&AnalyzeCmd{}).Run(context.Background(), f.cfg))

	require.NoError(t, (&RenderCmd{Records: f.cfg.Output.CSVFile}).Run(f.cfg))
	assert.Contains(t, f.env.ReadFileString("gallery.html"), "Dark Covers (2)")
}

func TestRenderCmd_ThumbnailDeletedAfterAnalyze(t *testing.T) {
	f := newFixture(t, allCovers())
	require.NoError(t, (&AnalyzeCmd{}).Run(context.Background(), f.cfg))
	require.NoError(t, os.Remove(f.env.Path("thumbnails", "nature_636_8041_thumbnail.jpg")))

	logs := testutil.CaptureLogs(t)
	require.NoError(t, (&RenderCmd{}).Run(f.cfg))

	html := f.env.ReadFileString("gallery.html")
	assert.NotContains(t, html, "nature_636_8041_thumbnail.jpg")
	assert.NotContains(t, html, "Issue 8041")
	assert.Contains(t, html, "Dark Covers (1)")
	assert.Contains(t, html, "Light Covers (1)")

	var warnings []string
	for _, line := range strings.Split(logs.String(), "\n") {
		if strings.Contains(line, "level=WARN") {
			warnings = append(warnings, line)
		}
	}
	require.Len(t, warnings, 1, logs.String())
	assert.Contains(t, warnings[0], `msg="Missing thumbnail"`)
	assert.Contains(t, warnings[0], "636/8041")
	assert.Contains(t, warnings[0], "thumbnail missing at")
}

func TestRenderCmd_MissingRecords(t *testing.T) {
	f := newFixture(t, nil)

	err := (&RenderCmd{}).Run(f.cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run analyze first")
}

func TestRunCmd_LockHeld(t *testing.T) {
	f := newFixture(t, allCovers())

	lock, err := runlock.Acquire(f.cfg.CacheDir)
	require.NoError(t, err)
	defer func() { _ = lock.Release() }()

	err = (&RunCmd{}).Run(context.Background(), f.cfg)
	require.ErrorIs(t, err, runlock.ErrLocked)
	assert.Zero(t, f.requests.Load())
}

func TestRunCmd_MissingIndex(t *testing.T) {
	f := newFixture(t, allCovers())

	err := (&RunCmd{Index: f.env.Path("nope.json")}).Run(context.Background(), f.cfg)
	assert.Error(t, err)
}

func TestRunCmd_Cancelled(t *testing.T) {
	f := newFixture(t, allCovers())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := (&RunCmd{}).Run(ctx, f.cfg)
	require.ErrorIs(t, err, context.Canceled)
	f.env.RequireFileNotExists("gallery.html")
}

func TestIndexCmd(t *testing.T) {
	f := newFixture(t, nil)
	f.env.WriteFileString("index.yaml", "637:\n  - 8043\n636:\n  - 8041\n  - 8042\n")

	normalized := f.env.Path("normalized.json")
	require.NoError(t, (&IndexCmd{Index: f.env.Path("index.yaml"), Write: normalized}).Run(f.cfg))

	table := f.out.String()
	assert.Contains(t, table, "Volume")
	assert.Less(t, strings.Index(table, "637"), strings.Index(table, "636"), "file order is kept")
	assert.Contains(t, table, "total")

	assert.Equal(t, "{\n    \"637\": [\n        \"8043\"\n    ],\n    \"636\": [\n        \"8041\",\n        \"8042\"\n    ]\n}\n",
		f.env.ReadFileString("normalized.json"))
}

func TestRunDispatchesThroughKong(t *testing.T) {
	f := newFixture(t, nil)
	_, kctx := parseCLI(t, "index")
	f.cfg.IndexFile = f.env.Path("cache", "volumes_issues.json")

	require.NoError(t, run(context.Background(), kctx, f.cfg))
	assert.Contains(t, f.out.String(), "8042")
}

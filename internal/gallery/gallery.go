// Package gallery renders the dark/light cover page.
package gallery

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/lepinkainen/coverspectrum/internal/fileutil"
	"github.com/lepinkainen/coverspectrum/internal/pipeline"
)

//go:embed template.html
var htmlTemplate string

var tmpl = template.Must(template.New("gallery").Parse(htmlTemplate))

// Options controls page metadata.
type Options struct {
	Title       string
	RunID       string
	GeneratedAt time.Time
}

type pageData struct {
	Title       string
	RunID       string
	GeneratedAt string
	Dark        column
	Light       column
}

type column struct {
	Heading string
	Covers  []coverView
}

type coverView struct {
	Href       string
	Src        string
	Label      string
	Hex        template.CSS
	Wavelength float64
}

// Render builds the page for res. Thumbnail sources are made relative to
// baseDir, the directory the page will be written to.
func Render(res *pipeline.Result, baseDir string, opts Options) ([]byte, error) {
	data := pageData{
		Title: opts.Title,
		RunID: opts.RunID,
		Dark:  column{Heading: "Dark Covers", Covers: views(res.Dark, baseDir)},
		Light: column{Heading: "Light Covers", Covers: views(res.Light, baseDir)},
	}
	if !opts.GeneratedAt.IsZero() {
		data.GeneratedAt = opts.GeneratedAt.UTC().Format(time.RFC3339)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders res and writes the page to path.
func Write(path string, res *pipeline.Result, opts Options) error {
	page, err := Render(res, filepath.Dir(path), opts)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, page); err != nil {
		return fmt.Errorf("failed to write gallery: %w", err)
	}
	slog.Info("Wrote gallery", "path", path, "dark", len(res.Dark), "light", len(res.Light))
	return nil
}

func views(records []pipeline.CoverRecord, baseDir string) []coverView {
	out := make([]coverView, len(records))
	for i, rec := range records {
		out[i] = coverView{
			Href:       rec.SourceURL,
			Src:        RelativeSrc(baseDir, rec.ThumbnailPath),
			Label:      fmt.Sprintf("Volume %s Issue %s", rec.Volume, rec.Issue),
			Hex:        template.CSS(rec.Signature.RGB.Hex()),
			Wavelength: rec.Signature.WavelengthNM,
		}
	}
	return out
}

// RelativeSrc returns target as a slash-separated path relative to baseDir.
// Paths that cannot be made relative are returned as they are.
func RelativeSrc(baseDir, target string) string {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return filepath.ToSlash(target)
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	rel, err := filepath.Rel(absBase, absTarget)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}

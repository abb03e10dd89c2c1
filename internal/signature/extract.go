package signature

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lepinkainen/coverspectrum/internal/config"
	coverrors "github.com/lepinkainen/coverspectrum/internal/errors"
	"github.com/lepinkainen/coverspectrum/internal/fileutil"

	// Register WebP so covers served as WebP decode like JPEG/PNG.
	_ "golang.org/x/image/webp"
)

// Extraction is the result of processing one cover image.
type Extraction struct {
	RGB           RGB
	ThumbnailPath string
}

// Extractor produces thumbnails and average colors.
type Extractor struct {
	dir     string
	size    int
	quality int
}

// NewExtractor creates an Extractor writing thumbnails as configured.
func NewExtractor(cfg config.ThumbnailsConfig) *Extractor {
	return &Extractor{
		dir:     cfg.Dir,
		size:    cfg.Size,
		quality: cfg.Quality,
	}
}

// ThumbnailPath derives the thumbnail location from the cover path:
// <thumbnails dir>/<cover stem>_thumbnail.jpg
func (e *Extractor) ThumbnailPath(imagePath string) string {
	base := filepath.Base(imagePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(e.dir, stem+"_thumbnail.jpg")
}

// Extract decodes imagePath, writes its thumbnail when one does not exist yet
// and returns the thumbnail's average color.
//
// On failure the returned Extraction still carries the thumbnail path, its
// RGB is black and the error is a *errors.DecodeError.
func (e *Extractor) Extract(imagePath string) (Extraction, error) {
	res := Extraction{ThumbnailPath: e.ThumbnailPath(imagePath)}

	img, err := imaging.Open(imagePath, imaging.AutoOrientation(true))
	if err != nil {
		return res, coverrors.NewDecodeError("open", imagePath, err)
	}

	thumb := Thumbnail(img, e.size)

	if fileutil.FileExists(res.ThumbnailPath) {
		slog.Debug("Thumbnail exists, reusing", "path", res.ThumbnailPath)
	} else if err := e.save(thumb, res.ThumbnailPath); err != nil {
		return res, coverrors.NewDecodeError("save", res.ThumbnailPath, err)
	}

	res.RGB = Average(thumb)
	return res, nil
}

func (e *Extractor) save(img image.Image, path string) error {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(e.quality)); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes())
}

// Thumbnail flattens img to three opaque channels and resizes it to a
// size×size square with a bicubic filter.
func Thumbnail(img image.Image, size int) *image.NRGBA {
	return imaging.Resize(Opaque(img), size, size, imaging.CatmullRom)
}

// Opaque returns a copy of img with every alpha value set to 255. Color
// channels are kept as stored, i.e. transparency is dropped, not composited.
func Opaque(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// Average returns the mean of each channel over all pixels, truncated toward
// zero. An empty image averages to black.
func Average(img *image.NRGBA) RGB {
	b := img.Bounds()
	n := uint64(b.Dx() * b.Dy())
	if n == 0 {
		return RGB{}
	}

	var r, g, bl uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		row := img.Pix[off : off+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			r += uint64(row[x])
			g += uint64(row[x+1])
			bl += uint64(row[x+2])
		}
	}
	return RGB{R: uint8(r / n), G: uint8(g / n), B: uint8(bl / n)}
}

// Package brightness decides whether a cover thumbnail reads as dark or light.
package brightness

import (
	"image"

	"github.com/disintegration/imaging"
	coverrors "github.com/lepinkainen/coverspectrum/internal/errors"
)

// DefaultThreshold is the mean gray level below which a cover is dark.
const DefaultThreshold = 100.0

// Classifier applies a fixed darkness threshold to grayscale means.
type Classifier struct {
	Threshold float64
}

// New returns a Classifier. A negative threshold falls back to the default.
func New(threshold float64) *Classifier {
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	return &Classifier{Threshold: threshold}
}

// Mean returns the mean ITU-R 601 luma of the image at path, 0-255.
func (c *Classifier) Mean(path string) (float64, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return 0, coverrors.NewDecodeError("classify", path, err)
	}
	return MeanLuminance(img), nil
}

// IsDark reports whether the image at path is darker than the threshold.
func (c *Classifier) IsDark(path string) (bool, error) {
	mean, err := c.Mean(path)
	if err != nil {
		return false, err
	}
	return c.IsDarkMean(mean), nil
}

// IsDarkMean applies the threshold to an already computed mean. Equal to the
// threshold is light.
func (c *Classifier) IsDarkMean(mean float64) bool {
	return mean < c.Threshold
}

// MeanLuminance converts img to grayscale and averages it.
func MeanLuminance(img image.Image) float64 {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}

	var sum uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := gray.PixOffset(b.Min.X, y)
		row := gray.Pix[off : off+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			sum += uint64(row[x])
		}
	}
	return float64(sum) / float64(n)
}

package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// Solid returns a w×h image filled with c.
func Solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

// Gray returns an opaque gray color with all channels set to v.
func Gray(v uint8) color.NRGBA {
	return color.NRGBA{R: v, G: v, B: v, A: 0xff}
}

// RGB returns an opaque color.
func RGB(r, g, b uint8) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}

// EncodePNG encodes img as PNG.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// EncodeJPEG encodes img as JPEG at quality 95.
func EncodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("failed to encode JPEG: %v", err)
	}
	return buf.Bytes()
}

// WritePNG writes img as a PNG file within the test environment and returns
// its absolute path.
func (e *TestEnv) WritePNG(path string, img image.Image) string {
	e.t.Helper()
	e.WriteFile(path, EncodePNG(e.t, img))
	return e.Path(path)
}

// WriteSolidCover writes a solid-color 32×48 PNG cover. Covers are stored
// with a .jpg name by the acquirer regardless of their real format.
func (e *TestEnv) WriteSolidCover(path string, c color.NRGBA) string {
	e.t.Helper()
	return e.WritePNG(path, Solid(32, 48, c))
}

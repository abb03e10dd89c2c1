package signature

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Visible range the hue is projected onto, in nanometers.
const (
	MinWavelength = 380.0
	MaxWavelength = 700.0
)

// Hue returns the HSV hue of c in [0, 1). Achromatic colors (gray, black,
// white) have no defined hue and map to 0.
func Hue(c RGB) float64 {
	col := colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
	h, _, _ := col.Hsv()
	return math.Mod(h/360, 1)
}

// Wavelength maps c linearly from hue onto [380, 700] nm. This is an ordering
// key, not a physical measurement: saturation and value are ignored, so
// near-gray covers get whatever hue their slight tint implies.
func Wavelength(c RGB) float64 {
	return MinWavelength + Hue(c)*(MaxWavelength-MinWavelength)
}

// Package signature reduces a cover image to its color signature: the
// average RGB color of a fixed-size thumbnail and an approximate visible
// wavelength derived from that color's hue.
package signature

import "fmt"

// RGB is an 8-bit per channel color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex returns the color as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Status tells a real signature apart from the sentinel used when the image
// could not be processed.
type Status string

const (
	StatusOK          Status = "ok"
	StatusDecodeError Status = "decode_error"
)

// Signature is the derived color data for one cover.
type Signature struct {
	RGB          RGB     `json:"rgb"`
	WavelengthNM float64 `json:"wavelength_nm"`
	Status       Status  `json:"status"`
}

// OK reports whether the signature was computed from image data.
func (s Signature) OK() bool {
	return s.Status == StatusOK
}

// New builds a signature for c.
func New(c RGB) Signature {
	return Signature{RGB: c, WavelengthNM: Wavelength(c), Status: StatusOK}
}

// Failed returns the sentinel signature: black, mapped like any other color,
// but flagged so it is not mistaken for a genuinely black cover.
func Failed() Signature {
	s := New(RGB{})
	s.Status = StatusDecodeError
	return s
}

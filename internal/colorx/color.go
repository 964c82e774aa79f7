// SPDX-License-Identifier: MIT

// Package colorx derives LED colors from album artwork.
package colorx

import (
	"fmt"
	"math"
)

// RGB is a 24-bit color as pushed to the device LEDs.
type RGB struct {
	R, G, B uint8
}

// Hex renders the color in the device's hex notation, e.g. "FF0000".
// No "#" prefix; the device firmware does not accept one.
func (c RGB) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

// HSV holds a color in normalized hue/saturation/value space. All three
// channels are in [0, 1]; hue wraps.
type HSV struct {
	H, S, V float64
}

// ToHSV converts an 8-bit RGB color into normalized HSV.
func (c RGB) ToHSV() HSV {
	r := float64(c.R) / 255.0
	g := float64(c.G) / 255.0
	b := float64(c.B) / 255.0

	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	delta := max - min

	var h float64
	switch {
	case delta == 0:
		h = 0
	case max == r:
		h = math.Mod((g-b)/delta, 6) / 6
	case max == g:
		h = ((b-r)/delta + 2) / 6
	default:
		h = ((r-g)/delta + 4) / 6
	}
	if h < 0 {
		h += 1
	}

	var s float64
	if max > 0 {
		s = delta / max
	}
	return HSV{H: h, S: s, V: max}
}

// ToRGB converts back to 8-bit RGB. Channel values are truncated, not
// rounded, matching the extraction pipeline's historical behaviour.
func (c HSV) ToRGB() RGB {
	h := math.Mod(c.H, 1)
	if h < 0 {
		h += 1
	}
	i := int(h * 6)
	f := h*6 - float64(i)
	p := c.V * (1 - c.S)
	q := c.V * (1 - f*c.S)
	t := c.V * (1 - (1-f)*c.S)

	var r, g, b float64
	switch i % 6 {
	case 0:
		r, g, b = c.V, t, p
	case 1:
		r, g, b = q, c.V, p
	case 2:
		r, g, b = p, c.V, t
	case 3:
		r, g, b = p, q, c.V
	case 4:
		r, g, b = t, p, c.V
	case 5:
		r, g, b = c.V, p, q
	}
	return RGB{
		R: uint8(r * 255),
		G: uint8(g * 255),
		B: uint8(b * 255),
	}
}

// Complementary rotates the hue by 180 degrees.
func Complementary(c RGB) RGB {
	hsv := c.ToHSV()
	hsv.H = math.Mod(hsv.H+0.5, 1)
	return hsv.ToRGB()
}

// Analogous returns the two colors 30 degrees either side on the wheel.
func Analogous(c RGB) [2]RGB {
	const offset = 1.0 / 12
	hsv := c.ToHSV()

	var out [2]RGB
	for i, shift := range [2]float64{-offset, offset} {
		shifted := hsv
		shifted.H = math.Mod(shifted.H+shift+1, 1)
		out[i] = shifted.ToRGB()
	}
	return out
}

// AdjustBrightness multiplies the value channel by factor, clamping at 1.
func AdjustBrightness(c RGB, factor float64) RGB {
	hsv := c.ToHSV()
	hsv.V = math.Min(1, hsv.V*factor)
	return hsv.ToRGB()
}

// Distance is the Euclidean distance between two colors in RGB space.
func Distance(a, b RGB) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// SPDX-License-Identifier: MIT

package colorx

import "image"

// LEDColor extracts the LED color for artwork according to mode. Unknown
// modes fall back to vibrant extraction.
func LEDColor(img image.Image, mode string, brightness float64) RGB {
	var c RGB
	switch mode {
	case "dominant":
		c = Dominant(img)
	case "complementary":
		c = Complementary(Dominant(img))
	case "bright":
		c = AdjustBrightness(Dominant(img), 1.5)
	default: // vibrant
		c = Vibrant(img)
	}
	if brightness != 1.0 {
		c = AdjustBrightness(c, brightness)
	}
	return c
}

// SPDX-License-Identifier: MIT

package colorx

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

const (
	// sampleSize is the resolution artwork is downscaled to before counting
	// pixel frequencies. Extraction results are defined at this resolution.
	sampleSize = 150
	// edgeMargin crops a border off the sample so artwork frames and
	// letterboxing do not dominate the count.
	edgeMargin = 5

	darkCutoff   = 20
	brightCutoff = 235

	vibrantMinSaturation = 0.5
	vibrantMinValue      = 0.3
)

// Dominant returns the most frequent color in the image after discarding
// near-black and near-white pixels. If the filter removes everything it
// falls back to the most frequent unfiltered pixel. Frequency ties resolve
// to the first-encountered color in row-major order, so results are
// deterministic for a given input.
func Dominant(img image.Image) RGB {
	pixels := samplePixels(img, edgeMargin)

	filtered := make([]RGB, 0, len(pixels))
	for _, p := range pixels {
		mean := (int(p.R) + int(p.G) + int(p.B)) / 3
		if mean > darkCutoff && mean < brightCutoff {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		filtered = pixels
	}
	return mostFrequent(filtered)
}

// Vibrant returns the most frequent strongly saturated color. Pixels must
// exceed both the saturation and value thresholds to qualify; if none do,
// Vibrant falls back to Dominant.
func Vibrant(img image.Image) RGB {
	pixels := samplePixels(img, 0)

	qualifying := make([]RGB, 0, len(pixels))
	for _, p := range pixels {
		hsv := p.ToHSV()
		if hsv.S > vibrantMinSaturation && hsv.V > vibrantMinValue {
			qualifying = append(qualifying, p)
		}
	}
	if len(qualifying) == 0 {
		return Dominant(img)
	}
	return mostFrequent(qualifying)
}

// samplePixels downscales img to the sample resolution, optionally crops a
// margin, and returns the pixels in row-major order.
func samplePixels(img image.Image, margin int) []RGB {
	scaled := image.NewRGBA(image.Rect(0, 0, sampleSize, sampleSize))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	bounds := scaled.Bounds()
	if margin > 0 {
		bounds = image.Rect(
			bounds.Min.X+margin,
			bounds.Min.Y+margin,
			bounds.Max.X-margin,
			bounds.Max.Y-margin,
		)
	}

	pixels := make([]RGB, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			i := scaled.PixOffset(x, y)
			pixels = append(pixels, RGB{
				R: scaled.Pix[i],
				G: scaled.Pix[i+1],
				B: scaled.Pix[i+2],
			})
		}
	}
	return pixels
}

// mostFrequent picks the color with the highest occurrence count. Ties are
// broken by first encounter order.
func mostFrequent(pixels []RGB) RGB {
	if len(pixels) == 0 {
		return RGB{}
	}

	counts := make(map[RGB]int, len(pixels))
	firstSeen := make(map[RGB]int, len(pixels))
	for i, p := range pixels {
		if _, ok := counts[p]; !ok {
			firstSeen[p] = i
		}
		counts[p]++
	}

	best := pixels[0]
	bestCount := counts[best]
	for p, n := range counts {
		if n > bestCount || (n == bestCount && firstSeen[p] < firstSeen[best]) {
			best = p
			bestCount = n
		}
	}
	return best
}

// Palette returns the n most frequent colors from pixels, most frequent
// first. Used to quantize GIF backgrounds without pulling in an external
// quantizer.
func Palette(pixels []RGB, n int) []RGB {
	if n <= 0 || len(pixels) == 0 {
		return nil
	}

	counts := make(map[RGB]int, len(pixels))
	firstSeen := make(map[RGB]int, len(pixels))
	order := make([]RGB, 0, len(pixels))
	for i, p := range pixels {
		if _, ok := counts[p]; !ok {
			firstSeen[p] = i
			order = append(order, p)
		}
		counts[p]++
	}

	// Selection sort over the distinct set; palettes are small and the
	// distinct count is bounded by the sample resolution.
	out := make([]RGB, 0, n)
	used := make(map[RGB]bool, n)
	for len(out) < n && len(out) < len(order) {
		var best RGB
		bestCount := -1
		for _, p := range order {
			if used[p] {
				continue
			}
			if counts[p] > bestCount || (counts[p] == bestCount && firstSeen[p] < firstSeen[best]) {
				best = p
				bestCount = counts[p]
			}
		}
		used[best] = true
		out = append(out, best)
	}
	return out
}

// SampleImage exposes the sampling used by the extractors for callers that
// need raw pixels (the GIF compositor quantizes backgrounds with it).
func SampleImage(img image.Image) []RGB {
	return samplePixels(img, 0)
}

// SPDX-License-Identifier: MIT

package colorx

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func solidImage(c color.RGBA, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestVibrantSolidRed(t *testing.T) {
	img := solidImage(color.RGBA{R: 255, A: 255}, 300, 300)
	got := Vibrant(img)
	assert.Equal(t, RGB{R: 255}, got)
	assert.Equal(t, "FF0000", got.Hex())
}

func TestDominantIgnoresNearBlackAndWhite(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 300, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 300; x++ {
			// Mostly black with a blue band; black must lose despite majority.
			if y >= 100 && y < 200 {
				img.SetRGBA(x, y, color.RGBA{B: 200, A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{A: 255})
			}
		}
	}
	got := Dominant(img)
	assert.Equal(t, RGB{B: 200}, got)
}

func TestDominantFallbackWhenAllFiltered(t *testing.T) {
	// Pure black everywhere: the filter empties the set, so the unfiltered
	// most frequent pixel wins.
	img := solidImage(color.RGBA{A: 255}, 300, 300)
	got := Dominant(img)
	assert.Equal(t, RGB{}, got)
}

func TestVibrantFallsBackToDominant(t *testing.T) {
	// Gray has zero saturation, so nothing qualifies as vibrant.
	img := solidImage(color.RGBA{R: 128, G: 128, B: 128, A: 255}, 300, 300)
	got := Vibrant(img)
	assert.Equal(t, Dominant(img), got)
}

func TestExtractionDeterminism(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 300, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 300; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x % 256),
				G: uint8(y % 256),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	first := Dominant(img)
	firstVibrant := Vibrant(img)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Dominant(img))
		assert.Equal(t, firstVibrant, Vibrant(img))
	}
}

func TestComplementaryRoundTrip(t *testing.T) {
	cases := []RGB{
		{R: 255},
		{G: 200, B: 40},
		{R: 12, G: 90, B: 200},
		{R: 77, G: 77, B: 10},
	}
	for _, c := range cases {
		back := Complementary(Complementary(c))
		assert.InDelta(t, float64(c.R), float64(back.R), 2, "R channel for %v", c)
		assert.InDelta(t, float64(c.G), float64(back.G), 2, "G channel for %v", c)
		assert.InDelta(t, float64(c.B), float64(back.B), 2, "B channel for %v", c)
	}
}

func TestComplementaryOfRed(t *testing.T) {
	got := Complementary(RGB{R: 255})
	// 180 degrees from red is cyan.
	assert.Equal(t, uint8(0), got.R)
	assert.Equal(t, uint8(255), got.G)
	assert.Equal(t, uint8(255), got.B)
}

func TestAnalogous(t *testing.T) {
	got := Analogous(RGB{R: 255})
	// Red +/- 30 degrees keeps full red with a magenta/yellow-ish tint.
	assert.Equal(t, uint8(255), got[0].R)
	assert.Equal(t, uint8(255), got[1].R)
	assert.NotEqual(t, got[0], got[1])
}

func TestAdjustBrightnessClamps(t *testing.T) {
	got := AdjustBrightness(RGB{R: 200}, 2.0)
	assert.Equal(t, uint8(255), got.R)

	darker := AdjustBrightness(RGB{R: 200}, 0.5)
	assert.Less(t, darker.R, uint8(200))
}

func TestHexFormat(t *testing.T) {
	assert.Equal(t, "000000", RGB{}.Hex())
	assert.Equal(t, "0A14FF", RGB{R: 10, G: 20, B: 255}.Hex())
}

func TestMostFrequentTieBreaksFirstEncountered(t *testing.T) {
	pixels := []RGB{
		{R: 1}, {R: 2}, {R: 2}, {R: 1}, {R: 3},
	}
	// 1 and 2 both occur twice; 1 was seen first.
	assert.Equal(t, RGB{R: 1}, mostFrequent(pixels))
}

func TestPaletteOrdering(t *testing.T) {
	pixels := []RGB{
		{R: 9}, {R: 5}, {R: 5}, {R: 5}, {R: 9}, {R: 1},
	}
	got := Palette(pixels, 2)
	assert.Equal(t, []RGB{{R: 5}, {R: 9}}, got)

	all := Palette(pixels, 10)
	assert.Len(t, all, 3)
}

func TestLEDColorModes(t *testing.T) {
	red := solidImage(color.RGBA{R: 255, A: 255}, 64, 64)

	assert.Equal(t, "FF0000", LEDColor(red, "vibrant", 1.0).Hex())
	assert.Equal(t, "FF0000", LEDColor(red, "dominant", 1.0).Hex())
	assert.Equal(t, "00FFFF", LEDColor(red, "complementary", 1.0).Hex())
	// Unknown mode behaves like vibrant.
	assert.Equal(t, "FF0000", LEDColor(red, "sparkle", 1.0).Hex())
}

// SPDX-License-Identifier: MIT

package transcode

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestGIF(t *testing.T, path string, frames int, w, h int) {
	t.Helper()

	anim := &gif.GIF{LoopCount: 0}
	for i := 0; i < frames; i++ {
		pal := color.Palette{
			color.RGBA{A: 255},
			color.RGBA{B: 255, A: 255},
		}
		frame := image.NewPaletted(image.Rect(0, 0, w, h), pal)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				frame.SetColorIndex(x, y, uint8((x+i)%2))
			}
		}
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 10)
	}

	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, anim))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func solidBackground(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestCompositeOnBackground(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.gif")
	out := filepath.Join(dir, "out.gif")
	writeTestGIF(t, in, 3, 100, 100)

	bg := solidBackground(240, 280, color.RGBA{R: 255, A: 255})
	require.NoError(t, CompositeOnBackground(in, out, bg))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	result, err := gif.DecodeAll(f)
	require.NoError(t, err)

	assert.Len(t, result.Image, 3)
	assert.Equal(t, 240, result.Config.Width)
	assert.Equal(t, 280, result.Config.Height)
	assert.Equal(t, []int{10, 10, 10}, result.Delay)
	assert.Equal(t, 0, result.LoopCount)

	// Every output frame covers the whole canvas, and the region the video
	// frames never touch keeps the background color.
	for _, frame := range result.Image {
		assert.Equal(t, 240, frame.Bounds().Dx())
		assert.Equal(t, 280, frame.Bounds().Dy())

		r, g, b, _ := frame.At(200, 270).RGBA()
		assert.Equal(t, uint32(0xffff), r)
		assert.Zero(t, g)
		assert.Zero(t, b)
	}
}

func TestCompositeRejectsEmptyGIF(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.gif")
	require.NoError(t, os.WriteFile(in, []byte("GIF89a"), 0o644))

	err := CompositeOnBackground(in, filepath.Join(dir, "out.gif"), solidBackground(10, 10, color.RGBA{A: 255}))
	require.Error(t, err)
}

func TestMergedPaletteCapsAt256(t *testing.T) {
	var frame color.Palette
	for i := 0; i < 200; i++ {
		frame = append(frame, color.RGBA{R: uint8(i), A: 255})
	}
	merged := mergedPalette(frame, nil)
	assert.LessOrEqual(t, len(merged), 256)
	assert.GreaterOrEqual(t, len(merged), 200)
}

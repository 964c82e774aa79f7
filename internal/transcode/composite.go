// SPDX-License-Identifier: MIT

package transcode

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"os"

	"github.com/google/renameio/v2"
	"github.com/mabrink/busybeat/internal/colorx"
)

// backgroundPaletteSize caps how many palette slots the text background
// may claim per frame; the rest stay with the video frame's own palette.
const backgroundPaletteSize = 64

// CompositeOnBackground layers every frame of the GIF at inPath over the
// given background canvas and writes the result atomically to outPath.
// Frame timing and looping are preserved. The output frame size is the
// background's size; frames are drawn at the top-left so the text band at
// the bottom of the background stays visible wherever frames leave it
// uncovered.
func CompositeOnBackground(inPath, outPath string, background image.Image) error {
	data, err := os.ReadFile(inPath) // #nosec G304 -- pipeline-owned temp file
	if err != nil {
		return fmt.Errorf("read gif: %w", err)
	}
	src, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode gif: %w", err)
	}
	if len(src.Image) == 0 {
		return fmt.Errorf("gif has no frames")
	}

	bounds := background.Bounds()
	bgPalette := colorx.Palette(colorx.SampleImage(background), backgroundPaletteSize)

	// Accumulator carries pixels between frames: optimized GIFs only
	// encode the changed region of each frame.
	accum := image.NewRGBA(image.Rect(0, 0, src.Config.Width, src.Config.Height))

	out := &gif.GIF{
		LoopCount: src.LoopCount,
		Config: image.Config{
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		},
	}

	for i, frame := range src.Image {
		draw.Draw(accum, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)

		composed := image.NewRGBA(bounds)
		draw.Draw(composed, bounds, background, bounds.Min, draw.Src)
		draw.Draw(composed, accum.Bounds(), accum, accum.Bounds().Min, draw.Over)

		paletted := image.NewPaletted(bounds, mergedPalette(frame.Palette, bgPalette))
		draw.FloydSteinberg.Draw(paletted, bounds, composed, bounds.Min)

		out.Image = append(out.Image, paletted)
		if i < len(src.Delay) {
			out.Delay = append(out.Delay, src.Delay[i])
		} else {
			out.Delay = append(out.Delay, 10)
		}
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, out); err != nil {
		return fmt.Errorf("encode gif: %w", err)
	}
	if err := renameio.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write gif: %w", err)
	}
	return nil
}

// mergedPalette extends the frame's own palette with the most frequent
// background colors, capped at the GIF limit of 256 entries.
func mergedPalette(frame color.Palette, bg []colorx.RGB) color.Palette {
	merged := make(color.Palette, 0, 256)
	seen := make(map[colorx.RGB]bool, 256)

	add := func(c colorx.RGB) {
		if len(merged) >= 256 || seen[c] {
			return
		}
		seen[c] = true
		merged = append(merged, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
	}

	for _, c := range frame {
		r, g, b, _ := c.RGBA()
		add(colorx.RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)})
	}
	for _, c := range bg {
		add(c)
	}
	if len(merged) == 0 {
		merged = append(merged, color.RGBA{A: 255})
	}
	return merged
}

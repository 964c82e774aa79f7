// SPDX-License-Identifier: MIT

package transcode

import (
	"context"
	"fmt"
)

// Conversion parameters for the device display. The panel refreshes too
// slowly for the source frame rate, and the firmware GIF decoder costs
// memory per palette entry, so both are reduced up front.
const (
	TargetFPS    = 10
	TargetWidth  = 240
	TargetHeight = 280
	TargetColors = 128

	lossyLevel = 80
)

// Converter wraps the resolved external tools.
type Converter struct {
	FFmpegBin   string
	GifsicleBin string
}

// NewConverter resolves tool binaries from optional explicit paths.
func NewConverter(ffmpegBin, gifsicleBin string) *Converter {
	return &Converter{
		FFmpegBin:   ResolveFFmpeg(ffmpegBin),
		GifsicleBin: ResolveGifsicle(gifsicleBin),
	}
}

// Available reports whether the animated pipeline can run at all.
func (c *Converter) Available() bool {
	return c.FFmpegBin != "" && c.GifsicleBin != ""
}

// buildGIFArgs constructs the ffmpeg invocation for video-to-GIF
// conversion: frame rate reduction, cover-scaling with center crop to the
// panel size, and a two-pass 128-color palette.
func buildGIFArgs(input, output string) []string {
	filter := fmt.Sprintf(
		"fps=%d,scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,split[a][b];[a]palettegen=max_colors=%d[p];[b][p]paletteuse",
		TargetFPS, TargetWidth, TargetHeight, TargetWidth, TargetHeight, TargetColors,
	)
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-y",
		"-i", input,
		"-filter_complex", filter,
		"-loop", "0",
		output,
	}
}

// buildOptimizeArgs constructs the gifsicle invocation for lossy size
// reduction.
func buildOptimizeArgs(input, output string) []string {
	return []string{
		"-O3",
		fmt.Sprintf("--lossy=%d", lossyLevel),
		"-o", output,
		input,
	}
}

// ToGIF converts a video file into a frame-rate- and palette-reduced GIF.
func (c *Converter) ToGIF(ctx context.Context, videoPath, gifPath string) error {
	if c.FFmpegBin == "" {
		return fmt.Errorf("ffmpeg not available")
	}
	if err := runTool(ctx, c.FFmpegBin, buildGIFArgs(videoPath, gifPath)...); err != nil {
		return fmt.Errorf("convert video to gif: %w", err)
	}
	return nil
}

// Optimize runs the external lossy optimizer over a GIF.
func (c *Converter) Optimize(ctx context.Context, inPath, outPath string) error {
	if c.GifsicleBin == "" {
		return fmt.Errorf("gifsicle not available")
	}
	if err := runTool(ctx, c.GifsicleBin, buildOptimizeArgs(inPath, outPath)...); err != nil {
		return fmt.Errorf("optimize gif: %w", err)
	}
	return nil
}

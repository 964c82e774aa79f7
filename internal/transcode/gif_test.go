// SPDX-License-Identifier: MIT

package transcode

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGIFArgs(t *testing.T) {
	args := buildGIFArgs("in.mp4", "out.gif")

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-i in.mp4")
	assert.Contains(t, joined, "fps=10")
	assert.Contains(t, joined, "scale=240:280")
	assert.Contains(t, joined, "palettegen=max_colors=128")
	assert.Contains(t, joined, "paletteuse")
	assert.Equal(t, "out.gif", args[len(args)-1])
	// Loop forever on the device.
	assert.Contains(t, joined, "-loop 0")
}

func TestBuildOptimizeArgs(t *testing.T) {
	args := buildOptimizeArgs("in.gif", "out.gif")
	assert.Equal(t, []string{"-O3", "--lossy=80", "-o", "out.gif", "in.gif"}, args)
}

func TestConverterAvailability(t *testing.T) {
	c := &Converter{FFmpegBin: "/usr/bin/ffmpeg", GifsicleBin: ""}
	assert.False(t, c.Available())

	c.GifsicleBin = "/usr/bin/gifsicle"
	assert.True(t, c.Available())
}

func TestResolveBinExplicitWins(t *testing.T) {
	got := resolveBinWithStat("/custom/ffmpeg", "ffmpeg", "linux", os.Stat)
	assert.Equal(t, "/custom/ffmpeg", got)
}

func TestResolveBinDarwinFallback(t *testing.T) {
	fakeStat := func(path string) (os.FileInfo, error) {
		if path == "/opt/homebrew/bin/definitely-not-installed-tool" {
			f, err := os.CreateTemp(t.TempDir(), "bin")
			if err != nil {
				return nil, err
			}
			defer f.Close() //nolint:errcheck
			return f.Stat()
		}
		return nil, os.ErrNotExist
	}
	got := resolveBinWithStat("", "definitely-not-installed-tool", "darwin", fakeStat)
	assert.Equal(t, "/opt/homebrew/bin/definitely-not-installed-tool", got)
}

func TestResolveBinMissingEverywhere(t *testing.T) {
	got := resolveBinWithStat("", "definitely-not-installed-tool", "linux", os.Stat)
	assert.Empty(t, got)
}

func TestLineRingKeepsTail(t *testing.T) {
	ring := newLineRing(3)
	for _, line := range []string{"a", "b", "c", "d", "e"} {
		_, err := ring.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"c", "d", "e"}, ring.LastN(3))
	assert.Equal(t, []string{"e"}, ring.LastN(1))
}

func TestLineRingSplitsMultilineWrites(t *testing.T) {
	ring := newLineRing(10)
	_, err := ring.Write([]byte("one\ntwo\nthree\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, ring.LastN(10))
}

func TestLineRingSkipsBlankLines(t *testing.T) {
	ring := newLineRing(4)
	_, err := ring.Write([]byte("first\n\nsecond\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, ring.LastN(4))
}

// SPDX-License-Identifier: MIT

// Package transcode turns a downloaded canvas video into the optimized,
// text-composited GIF the device displays.
package transcode

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Well-known install locations probed when a binary is not on PATH.
// Homebrew on Apple Silicon and Intel Macs respectively.
var darwinBinDirs = []string{"/opt/homebrew/bin", "/usr/local/bin"}

// ResolveBin returns an effective binary path.
//
// Resolution order:
// 1) Explicit configured path
// 2) PATH lookup
// 3) Well-known install directories (macOS Homebrew)
// 4) Empty string, meaning the tool is unavailable
func ResolveBin(explicit, name string) string {
	return resolveBinWithStat(explicit, name, runtime.GOOS, os.Stat)
}

func resolveBinWithStat(explicit, name, goos string, stat func(string) (os.FileInfo, error)) string {
	explicit = strings.TrimSpace(explicit)
	if explicit != "" {
		return explicit
	}

	if path, err := exec.LookPath(name); err == nil {
		return path
	}

	if goos == "darwin" {
		for _, dir := range darwinBinDirs {
			candidate := filepath.Join(dir, name)
			if fi, err := stat(candidate); err == nil && fi != nil && !fi.IsDir() {
				return candidate
			}
		}
	}
	return ""
}

// ResolveFFmpeg resolves the ffmpeg binary.
func ResolveFFmpeg(explicit string) string {
	return ResolveBin(explicit, "ffmpeg")
}

// ResolveGifsicle resolves the gifsicle binary. An empty result disables
// the animated pipeline; the static path does not depend on it.
func ResolveGifsicle(explicit string) string {
	return ResolveBin(explicit, "gifsicle")
}

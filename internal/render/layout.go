// SPDX-License-Identifier: MIT

// Package render composes the 240x280 device canvas from artwork and track
// text. The static image and the animated background share every layout
// rule so the two display variants line up pixel-identically.
package render

import "strings"

// Canvas geometry. The device panel is 240x280 with the artwork band on
// top and two text lines (plus logo) below.
const (
	CanvasWidth  = 240
	CanvasHeight = 280

	artworkWidth  = 240
	artworkHeight = 225

	textX   = 50
	lineGap = 5

	logoSize = 30
	logoX    = 13
	logoYOff = 49 // from the bottom edge

	// Names longer than this wrap onto a second line.
	wrapThreshold = 20
)

const featMarker = "(feat."

// TextLayout is the resolved type arrangement for one track.
type TextLayout struct {
	NameLines  []string
	NameSize   float64
	ArtistSize float64
}

// DisplayName strips a featuring marker and surrounding whitespace. The
// shortened name is used for both display and tier selection.
func DisplayName(name string) string {
	if i := strings.Index(name, featMarker); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	return name
}

// Layout selects font tiers by name length and applies the two-line wrap
// rule. Tiers (runes): <=12 largest, 13-16 second, 17-20 third, >20 wraps
// into two stacked lines split at the last space at or before the
// threshold (hard split when the name has no space there).
func Layout(name string) TextLayout {
	name = DisplayName(name)
	runes := []rune(name)

	switch n := len(runes); {
	case n <= 12:
		return TextLayout{NameLines: []string{name}, NameSize: 24, ArtistSize: 18}
	case n <= 16:
		return TextLayout{NameLines: []string{name}, NameSize: 20, ArtistSize: 14}
	case n <= wrapThreshold:
		return TextLayout{NameLines: []string{name}, NameSize: 16, ArtistSize: 12}
	default:
		first, second := splitName(runes)
		return TextLayout{NameLines: []string{first, second}, NameSize: 16, ArtistSize: 10}
	}
}

func splitName(runes []rune) (string, string) {
	split := wrapThreshold
	for i := wrapThreshold; i >= 0; i-- {
		if runes[i] == ' ' {
			split = i
			break
		}
	}
	first := strings.TrimSpace(string(runes[:split]))
	second := strings.TrimSpace(string(runes[split:]))
	return first, second
}

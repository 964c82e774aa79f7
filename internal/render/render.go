// SPDX-License-Identifier: MIT

package render

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register artwork/logo decoders
	_ "image/png"
	"os"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/opentype"
)

var (
	nameColor   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	artistColor = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// Renderer composes device canvases. It is safe for concurrent use: all
// state is immutable after construction.
type Renderer struct {
	font *opentype.Font
	logo image.Image // nil when the logo asset is unavailable
}

// New builds a Renderer from raw TTF bytes and an optional logo image.
func New(fontData []byte, logo image.Image) (*Renderer, error) {
	fnt, err := opentype.Parse(fontData)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Renderer{font: fnt, logo: logo}, nil
}

// Load reads the font and logo from disk. A missing logo is tolerated; a
// missing font is not, since no text can be drawn without it.
func Load(fontPath, logoPath string) (*Renderer, error) {
	fontData, err := os.ReadFile(fontPath) // #nosec G304 -- operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", fontPath, err)
	}

	var logo image.Image
	if logoPath != "" {
		if f, err := os.Open(logoPath); err == nil { // #nosec G304
			logo, _, _ = image.Decode(f)
			_ = f.Close()
		}
	}
	return New(fontData, logo)
}

// Static composes artwork plus track text onto the canvas.
func (r *Renderer) Static(name, artist string, artwork image.Image) (image.Image, error) {
	dc, err := r.base(name, artist)
	if err != nil {
		return nil, err
	}

	scaled := image.NewRGBA(image.Rect(0, 0, artworkWidth, artworkHeight))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), artwork, artwork.Bounds(), xdraw.Src, nil)
	dc.DrawImage(scaled, (CanvasWidth-artworkWidth)/2, 0)

	r.drawLogo(dc)
	return dc.Image(), nil
}

// Background composes the text-and-logo canvas the animated path layers
// video frames onto. Layout is identical to Static minus the artwork.
func (r *Renderer) Background(name, artist string) (image.Image, error) {
	dc, err := r.base(name, artist)
	if err != nil {
		return nil, err
	}
	r.drawLogo(dc)
	return dc.Image(), nil
}

// base paints the black canvas and the track/artist text block.
func (r *Renderer) base(name, artist string) (*gg.Context, error) {
	dc := gg.NewContext(CanvasWidth, CanvasHeight)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	layout := Layout(name)

	y := float64(artworkHeight)
	dc.SetColor(nameColor)
	for _, line := range layout.NameLines {
		face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
			Size: layout.NameSize, DPI: 72, Hinting: 0,
		})
		if err != nil {
			return nil, fmt.Errorf("name face: %w", err)
		}
		dc.SetFontFace(face)
		// DrawString anchors at the baseline; offset by the point size to
		// approximate top-left anchoring like the original canvas layout.
		dc.DrawString(line, textX, y+layout.NameSize)
		y += layout.NameSize + lineGap
	}

	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size: layout.ArtistSize, DPI: 72, Hinting: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("artist face: %w", err)
	}
	dc.SetFontFace(face)
	dc.SetColor(artistColor)
	dc.DrawString(artist, textX, y+layout.ArtistSize)

	return dc, nil
}

func (r *Renderer) drawLogo(dc *gg.Context) {
	if r.logo == nil {
		return
	}
	scaled := image.NewRGBA(image.Rect(0, 0, logoSize, logoSize))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), r.logo, r.logo.Bounds(), xdraw.Over, nil)
	dc.DrawImage(scaled, logoX, CanvasHeight-logoYOff)
}

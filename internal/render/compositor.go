package render

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
)

// Layout controls font sizing and block placement.
type Layout struct {
	Scale         float64 // font size as a fraction of image height
	Floor         int     // minimum font size in pixels
	Margin        int
	BottomPadding int
	LineGap       int
	ShadowOffset  int
}

// DefaultLayout matches the stamp the field teams expect.
func DefaultLayout() Layout {
	return Layout{Scale: 0.03, Floor: 16, Margin: 20, BottomPadding: 64, LineGap: 10, ShadowOffset: 2}
}

// Compositor draws a right-aligned block of text lines near the bottom-right
// corner, each line with a black drop shadow under white text.
type Compositor struct {
	font   *truetype.Font
	layout Layout
}

func NewCompositor(f *truetype.Font, layout Layout) *Compositor {
	return &Compositor{font: f, layout: layout}
}

// FontSize returns the font size used for an image of the given height.
func (c *Compositor) FontSize(height int) int {
	size := int(float64(height) * c.layout.Scale)
	if size < c.layout.Floor {
		return c.layout.Floor
	}
	return size
}

// Draw returns a copy of img with lines drawn on it.
func (c *Compositor) Draw(img image.Image, lines []string) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	face := newFace(c.font, c.FontSize(h))
	defer face.Close()

	dc := gg.NewContextForImage(img)
	dc.SetFontFace(face)

	_, textH := dc.MeasureString("Hg")
	lineH := textH + float64(c.layout.LineGap)
	total := lineH * float64(len(lines))

	x := float64(w - c.layout.Margin)
	y := float64(h) - total - float64(c.layout.Margin) - float64(c.layout.BottomPadding)
	off := float64(c.layout.ShadowOffset)

	for _, line := range lines {
		// Anchor (1, 1): x is the right edge, y the top of the line.
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(line, x+off, y+off, 1, 1)
		dc.SetColor(color.White)
		dc.DrawStringAnchored(line, x, y, 1, 1)
		y += lineH
	}
	return dc.Image()
}
